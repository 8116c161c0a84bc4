package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rental-escrow-backend/internal/api/grpc/interceptor"
	"rental-escrow-backend/internal/domain"
)

// GetUserIDFromContext extracts the user ID from the gRPC metadata.
// It expects the header set by the auth interceptor.
func GetUserIDFromContext(ctx context.Context) (int32, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get(interceptor.UserIDKey)
	if len(userIDs) == 0 {
		return 0, status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}

	userID, err := strconv.ParseInt(userIDs[0], 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid user_id format: %v", err)
	}

	return int32(userID), nil
}

// ActorFromContext builds the calling actor from the authenticated metadata.
func ActorFromContext(ctx context.Context) (domain.Actor, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	md, _ := metadata.FromIncomingContext(ctx)
	admin := false
	if v := md.Get(interceptor.IsAdminKey); len(v) > 0 {
		admin, _ = strconv.ParseBool(v[0])
	}
	return domain.Actor{UserID: userID, IsAdmin: admin}, nil
}
