package grpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"rental-escrow-backend/internal/api/grpc/interceptor"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/security"
	"rental-escrow-backend/internal/service"
)

func userCtx(userID int32, admin bool) context.Context {
	md := metadata.Pairs(interceptor.UserIDKey, fmt.Sprint(userID), interceptor.IsAdminKey, fmt.Sprint(admin))
	return metadata.NewIncomingContext(context.Background(), md)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRentalHandler_CreateRentalRequest(t *testing.T) {
	rentals := new(MockRentalService)
	handler := NewRentalHandler(Services{Rentals: rentals})
	ctx := userCtx(1, false)

	in := service.CreateRentalInput{ListingID: 10, StartDate: "2026-03-05", EndDate: "2026-03-07", Quantity: 2}
	rentals.On("CreateRentalRequest", ctx, domain.Actor{UserID: 1}, in).
		Return(&domain.Rental{ID: 5, ListingID: 10, RenterID: 1, Status: domain.RentalStatusPending, TotalPrice: 4500}, nil)

	res, err := handler.CreateRentalRequest(ctx, mustStruct(t, map[string]any{
		"listing_id": 10, "start_date": "2026-03-05", "end_date": "2026-03-07", "quantity": 2,
	}))
	require.NoError(t, err)

	rental := res.GetFields()["rental"].GetStructValue().GetFields()
	assert.Equal(t, float64(5), rental["id"].GetNumberValue())
	assert.Equal(t, "PENDING", rental["status"].GetStringValue())
	assert.Equal(t, float64(4500), rental["total_price"].GetNumberValue())
	rentals.AssertExpectations(t)
}

func TestRentalHandler_MissingIdentity(t *testing.T) {
	handler := NewRentalHandler(Services{Rentals: new(MockRentalService)})

	_, err := handler.GetRental(context.Background(), mustStruct(t, map[string]any{"rental_id": 1}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRentalHandler_InvalidArguments(t *testing.T) {
	rentals := new(MockRentalService)
	handler := NewRentalHandler(Services{Rentals: rentals})

	_, err := handler.ApproveRentalRequest(userCtx(2, false), mustStruct(t, map[string]any{
		"rental_id": "seven", "approved_quantity": 1.5,
	}))
	require.Error(t, err)
	st := status.Convert(err)
	assert.Equal(t, codes.InvalidArgument, st.Code())

	var fields []string
	for _, d := range st.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields = append(fields, v.GetField())
			}
		}
	}
	assert.ElementsMatch(t, []string{"rental_id", "approved_quantity"}, fields)
	rentals.AssertNotCalled(t, "ApproveRentalRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRentalHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"authorization", &domain.AuthorizationError{ActorID: 1, Reason: "is not the lender"}, codes.PermissionDenied},
		{"transition", &domain.InvalidTransitionError{Current: domain.RentalStatusActive, Command: domain.CmdApprove}, codes.FailedPrecondition},
		{"validation", domain.NewValidationError("feedback", "too short"), codes.InvalidArgument},
		{"dependency", &domain.ExternalDependencyError{Dependency: "blob storage", Err: errors.New("disk full")}, codes.Unavailable},
		{"consistency", &domain.ConsistencyViolation{Invariant: "one payout per leg"}, codes.Internal},
		{"not found", fmt.Errorf("rental 9: %w", domain.ErrNotFound), codes.NotFound},
		{"unknown", errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rentals := new(MockRentalService)
			handler := NewRentalHandler(Services{Rentals: rentals})
			ctx := userCtx(2, false)
			rentals.On("InitiateReturn", ctx, domain.Actor{UserID: 2}, int32(9)).Return(nil, tt.err)

			_, err := handler.InitiateReturn(ctx, mustStruct(t, map[string]any{"rental_id": 9}))
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestRentalHandler_TransitionCarriesCurrentStatus(t *testing.T) {
	rentals := new(MockRentalService)
	handler := NewRentalHandler(Services{Rentals: rentals})
	ctx := userCtx(2, false)
	rentals.On("ApproveRentalRequest", ctx, domain.Actor{UserID: 2}, int32(3), (*int32)(nil)).
		Return(nil, &domain.InvalidTransitionError{Current: domain.RentalStatusCancelled, Command: domain.CmdApprove})

	_, err := handler.ApproveRentalRequest(ctx, mustStruct(t, map[string]any{"rental_id": 3}))
	st := status.Convert(err)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Contains(t, st.Message(), "current_status=CANCELLED")

	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if ei, ok := d.(*errdetails.ErrorInfo); ok {
			info = ei
		}
	}
	require.NotNil(t, info)
	assert.Equal(t, "CANCELLED", info.GetMetadata()["current_status"])
}

func TestRentalHandler_SubmitPaymentDecodesProof(t *testing.T) {
	payments := new(MockPaymentService)
	handler := NewRentalHandler(Services{Payments: payments})
	ctx := userCtx(1, false)

	expected := service.PaymentInput{
		Amount:          2500,
		ReferenceNumber: "TRX-1",
		Proof:           &service.Upload{Filename: "slip.png", Content: []byte("png-bytes")},
	}
	payments.On("SubmitPayment", ctx, domain.Actor{UserID: 1}, int32(4), expected).
		Return(&domain.PaymentRequest{ID: 8, RentalID: 4, Status: domain.PaymentStatusPending}, nil)

	res, err := handler.SubmitPayment(ctx, mustStruct(t, map[string]any{
		"rental_id":        4,
		"amount":           2500,
		"reference_number": "TRX-1",
		"proof": map[string]any{
			"filename": "slip.png",
			"content":  base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		},
	}))
	require.NoError(t, err)
	payment := res.GetFields()["payment"].GetStructValue().GetFields()
	assert.Equal(t, "PENDING", payment["status"].GetStringValue())
	payments.AssertExpectations(t)
}

func TestRentalHandler_BadProofEncoding(t *testing.T) {
	handler := NewRentalHandler(Services{Payments: new(MockPaymentService)})

	_, err := handler.SubmitPayment(userCtx(1, false), mustStruct(t, map[string]any{
		"rental_id": 4,
		"amount":    2500,
		"proof":     map[string]any{"filename": "slip.png", "content": "%%%"},
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRentalHandler_ListRentals(t *testing.T) {
	rentals := new(MockRentalService)
	handler := NewRentalHandler(Services{Rentals: rentals})
	ctx := userCtx(3, true)
	rentals.On("ListRentals", ctx, domain.Actor{UserID: 3, IsAdmin: true}, domain.RoleAdmin, "ACTIVE", int32(2), int32(10)).
		Return([]domain.Rental{{ID: 1}, {ID: 2}}, int32(12), nil)

	res, err := handler.ListRentals(ctx, mustStruct(t, map[string]any{
		"role": "admin", "status": "active", "page": 2, "page_size": 10,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(12), res.GetFields()["total"].GetNumberValue())
	assert.Len(t, res.GetFields()["rentals"].GetListValue().GetValues(), 2)
}

// The service descriptor, interceptors and JSON mapping together over an
// in-memory connection.
func TestRentalService_OverBufconn(t *testing.T) {
	tm := security.NewTokenManager("0123456789abcdef0123456789abcdef", "rental-escrow", time.Hour)
	rentals := new(MockRentalService)
	rentals.On("GetTimeline", mock.Anything, domain.Actor{UserID: 1}, int32(6)).
		Return([]domain.TimelineEvent{{ID: 1, RentalID: 6, EventType: "REQUEST_CREATED", ResultingStatus: domain.RentalStatusPending}}, nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpclib.NewServer(grpclib.ChainUnaryInterceptor(
		interceptor.Observe(),
		interceptor.NewAuthInterceptor(tm).Unary(),
	))
	RegisterRentalServiceServer(srv, NewRentalHandler(Services{Rentals: rentals}))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health := &structpb.Struct{}
	require.NoError(t, conn.Invoke(ctx, "/rental.v1.RentalService/HealthCheck", &structpb.Struct{}, health))
	assert.Equal(t, "SERVING", health.GetFields()["status"].GetStringValue())

	req := mustStruct(t, map[string]any{"rental_id": 6})
	err = conn.Invoke(ctx, "/rental.v1.RentalService/GetTimeline", req, &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := tm.GenerateAccessToken(1, "renter@example.com", nil)
	require.NoError(t, err)
	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

	out := &structpb.Struct{}
	require.NoError(t, conn.Invoke(authed, "/rental.v1.RentalService/GetTimeline", req, out))
	events := out.GetFields()["events"].GetListValue().GetValues()
	require.Len(t, events, 1)
	assert.Equal(t, "PENDING", events[0].GetStructValue().GetFields()["resulting_status"].GetStringValue())

	err = conn.Invoke(authed, "/rental.v1.RentalService/VerifyPayment", mustStruct(t, map[string]any{"payment_id": 1}), &structpb.Struct{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}
