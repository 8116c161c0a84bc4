package interceptor

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/security"
)

// Metadata keys set by the interceptor for the handlers. Client supplied
// values under the same keys are always overwritten.
const (
	UserIDKey  = "user-id"
	IsAdminKey = "user-admin"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary returns a server interceptor function to authenticate and authorize unary RPCs
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		level := config.GetSecurityLevel(info.FullMethod)

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.New(nil)
		} else {
			md = md.Copy()
		}
		md.Delete(UserIDKey)
		md.Delete(IsAdminKey)

		if level == config.SecurityPublic {
			return handler(metadata.NewIncomingContext(ctx, md), req)
		}

		token, err := extractToken(md)
		if err != nil {
			return nil, err
		}

		claims, err := i.tokenManager.ValidateToken(token)
		if err != nil {
			logger.WarnContext(ctx, "Rejected token", "error", err)
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}

		if level == config.SecurityAdmin && !claims.IsAdmin() {
			return nil, status.Error(codes.PermissionDenied, "admin role required")
		}

		md.Set(UserIDKey, strconv.Itoa(int(claims.UserID)))
		md.Set(IsAdminKey, strconv.FormatBool(claims.IsAdmin()))

		ctx = logger.With(ctx, "user_id", claims.UserID)
		return handler(metadata.NewIncomingContext(ctx, md), req)
	}
}

func extractToken(md metadata.MD) (string, error) {
	authHeader := md.Get("authorization")
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	if token == "" {
		return "", status.Error(codes.Unauthenticated, "authorization token is empty")
	}

	return token, nil
}
