package grpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestArgs_NumericRanges(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		read    func(a *args, name string) any
		want    any
		wantErr string
	}{
		{"int32 in range", 7, func(a *args, n string) any { return a.int32(n) }, int32(7), ""},
		{"int32 too large", 1e10, func(a *args, n string) any { return a.int32(n) }, int32(0), "is out of range"},
		{"optional int32 too large", 3e9, func(a *args, n string) any { return a.optionalInt32(n) }, (*int32)(nil), "is out of range"},
		{"optional int32 too small", -3e9, func(a *args, n string) any { return a.optionalInt32(n) }, (*int32)(nil), "is out of range"},
		{"optional int32 fractional", 1.5, func(a *args, n string) any { return a.optionalInt32(n) }, (*int32)(nil), "must be a whole number"},
		{"int64 in range", 4500, func(a *args, n string) any { return a.int64(n) }, int64(4500), ""},
		{"int64 beyond exact range", 1e300, func(a *args, n string) any { return a.int64(n) }, int64(0), "is out of range"},
		{"int64 infinite", math.Inf(1), func(a *args, n string) any { return a.int64(n) }, int64(0), "is out of range"},
		{"int64 fractional", 10.25, func(a *args, n string) any { return a.int64(n) }, int64(0), "must be a whole number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newArgs(&structpb.Struct{Fields: map[string]*structpb.Value{"v": structpb.NewNumberValue(tt.value)}})
			got := tt.read(a, "v")
			assert.Equal(t, tt.want, got)
			if tt.wantErr == "" {
				assert.NoError(t, a.err())
				return
			}
			require.Error(t, a.err())
			assert.Equal(t, tt.wantErr, a.errs.Fields["v"])
		})
	}
}

func TestArgs_OptionalInt32Absent(t *testing.T) {
	a := newArgs(mustStruct(t, map[string]any{"other": 1}))
	assert.Nil(t, a.optionalInt32("approved_quantity"))
	assert.NoError(t, a.err())

	a = newArgs(mustStruct(t, map[string]any{"approved_quantity": nil}))
	assert.Nil(t, a.optionalInt32("approved_quantity"))
	assert.NoError(t, a.err())
}

func TestRentalHandler_OutOfRangeQuantity(t *testing.T) {
	rentals := new(MockRentalService)
	handler := NewRentalHandler(Services{Rentals: rentals})

	_, err := handler.ApproveRentalRequest(userCtx(2, false), mustStruct(t, map[string]any{
		"rental_id": 3, "approved_quantity": 1e10,
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	rentals.AssertNotCalled(t, "ApproveRentalRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
