package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "rental.v1.RentalService"

// RentalServiceServer is the server API of rental.v1.RentalService. Every
// method takes and returns a google.protobuf.Struct so clients can call it
// with any protobuf runtime, including grpcurl.
type RentalServiceServer interface {
	HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error)

	CreateRentalRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApproveRentalRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectRentalRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelRental(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InitiateReturn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRental(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRentals(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTimeline(context.Context, *structpb.Struct) (*structpb.Struct, error)

	SubmitPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitOverduePayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessLenderPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessDepositRefund(context.Context, *structpb.Struct) (*structpb.Struct, error)

	SubmitHandoverProof(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitReturnProof(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmReturn(context.Context, *structpb.Struct) (*structpb.Struct, error)

	ProposeSchedule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectSchedule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmSchedule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSchedule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReportNoShow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveNoShow(context.Context, *structpb.Struct) (*structpb.Struct, error)

	RaiseDispute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReviewDispute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveDispute(context.Context, *structpb.Struct) (*structpb.Struct, error)

	GetNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkNotificationRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(RentalServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, fn unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(RentalServiceServer)
			if interceptor == nil {
				return fn(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(server, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// RentalServiceDesc describes rental.v1.RentalService for grpc.Server.
var RentalServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RentalServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("HealthCheck", RentalServiceServer.HealthCheck),

		method("CreateRentalRequest", RentalServiceServer.CreateRentalRequest),
		method("ApproveRentalRequest", RentalServiceServer.ApproveRentalRequest),
		method("RejectRentalRequest", RentalServiceServer.RejectRentalRequest),
		method("CancelRental", RentalServiceServer.CancelRental),
		method("InitiateReturn", RentalServiceServer.InitiateReturn),
		method("GetRental", RentalServiceServer.GetRental),
		method("ListRentals", RentalServiceServer.ListRentals),
		method("GetTimeline", RentalServiceServer.GetTimeline),

		method("SubmitPayment", RentalServiceServer.SubmitPayment),
		method("SubmitOverduePayment", RentalServiceServer.SubmitOverduePayment),
		method("VerifyPayment", RentalServiceServer.VerifyPayment),
		method("RejectPayment", RentalServiceServer.RejectPayment),
		method("ProcessLenderPayment", RentalServiceServer.ProcessLenderPayment),
		method("ProcessDepositRefund", RentalServiceServer.ProcessDepositRefund),

		method("SubmitHandoverProof", RentalServiceServer.SubmitHandoverProof),
		method("ConfirmReceipt", RentalServiceServer.ConfirmReceipt),
		method("SubmitReturnProof", RentalServiceServer.SubmitReturnProof),
		method("ConfirmReturn", RentalServiceServer.ConfirmReturn),

		method("ProposeSchedule", RentalServiceServer.ProposeSchedule),
		method("SelectSchedule", RentalServiceServer.SelectSchedule),
		method("ConfirmSchedule", RentalServiceServer.ConfirmSchedule),
		method("DeleteSchedule", RentalServiceServer.DeleteSchedule),
		method("ReportNoShow", RentalServiceServer.ReportNoShow),
		method("ResolveNoShow", RentalServiceServer.ResolveNoShow),

		method("RaiseDispute", RentalServiceServer.RaiseDispute),
		method("ReviewDispute", RentalServiceServer.ReviewDispute),
		method("ResolveDispute", RentalServiceServer.ResolveDispute),

		method("GetNotifications", RentalServiceServer.GetNotifications),
		method("MarkNotificationRead", RentalServiceServer.MarkNotificationRead),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rental/v1/rental.proto",
}

func RegisterRentalServiceServer(s grpc.ServiceRegistrar, srv RentalServiceServer) {
	s.RegisterService(&RentalServiceDesc, srv)
}
