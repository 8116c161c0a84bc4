package grpc

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/service"
)

type MockRentalService struct {
	mock.Mock
}

func (m *MockRentalService) CreateRentalRequest(ctx context.Context, actor domain.Actor, in service.CreateRentalInput) (*domain.Rental, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalService) ApproveRentalRequest(ctx context.Context, actor domain.Actor, rentalID int32, approvedQuantity *int32) (*domain.Rental, error) {
	args := m.Called(ctx, actor, rentalID, approvedQuantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalService) RejectRentalRequest(ctx context.Context, actor domain.Actor, rentalID int32, reasonCode, feedback string) (*domain.Rental, error) {
	args := m.Called(ctx, actor, rentalID, reasonCode, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalService) CancelRental(ctx context.Context, actor domain.Actor, rentalID int32, reasonCode, feedback string) (*domain.Rental, error) {
	args := m.Called(ctx, actor, rentalID, reasonCode, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalService) InitiateReturn(ctx context.Context, actor domain.Actor, rentalID int32) (*domain.Rental, error) {
	args := m.Called(ctx, actor, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalService) GetRental(ctx context.Context, actor domain.Actor, rentalID int32) (*domain.RentalView, error) {
	args := m.Called(ctx, actor, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalView), args.Error(1)
}

func (m *MockRentalService) ListRentals(ctx context.Context, actor domain.Actor, role domain.Role, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	args := m.Called(ctx, actor, role, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Rental), args.Get(1).(int32), args.Error(2)
}

func (m *MockRentalService) GetTimeline(ctx context.Context, actor domain.Actor, rentalID int32) ([]domain.TimelineEvent, error) {
	args := m.Called(ctx, actor, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimelineEvent), args.Error(1)
}

func (m *MockRentalService) ExpireStaleRequests(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRentalService) ListOverdueRentals(ctx context.Context) ([]domain.OverdueRental, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OverdueRental), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) SubmitPayment(ctx context.Context, actor domain.Actor, rentalID int32, in service.PaymentInput) (*domain.PaymentRequest, error) {
	args := m.Called(ctx, actor, rentalID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentRequest), args.Error(1)
}

func (m *MockPaymentService) SubmitOverduePayment(ctx context.Context, actor domain.Actor, rentalID int32, in service.PaymentInput) (*domain.PaymentRequest, error) {
	args := m.Called(ctx, actor, rentalID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentRequest), args.Error(1)
}

func (m *MockPaymentService) VerifyPayment(ctx context.Context, actor domain.Actor, paymentID int32) (*domain.PaymentRequest, error) {
	args := m.Called(ctx, actor, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentRequest), args.Error(1)
}

func (m *MockPaymentService) RejectPayment(ctx context.Context, actor domain.Actor, paymentID int32, reasonCode, feedback string) (*domain.PaymentRequest, error) {
	args := m.Called(ctx, actor, paymentID, reasonCode, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentRequest), args.Error(1)
}

func (m *MockPaymentService) ProcessLenderPayment(ctx context.Context, actor domain.Actor, rentalID int32, in service.PayoutInput) (*domain.CompletionPayment, error) {
	args := m.Called(ctx, actor, rentalID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompletionPayment), args.Error(1)
}

func (m *MockPaymentService) ProcessDepositRefund(ctx context.Context, actor domain.Actor, rentalID int32, in service.PayoutInput) (*domain.CompletionPayment, error) {
	args := m.Called(ctx, actor, rentalID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompletionPayment), args.Error(1)
}
