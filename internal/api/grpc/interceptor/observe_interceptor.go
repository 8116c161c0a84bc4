package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/metrics"
)

// Observe logs every unary call and counts it by status code. It runs
// outside the auth interceptor so rejected tokens are counted too.
func Observe() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		ctx = logger.With(ctx, "rpc", info.FullMethod)
		resp, err := handler(ctx, req)
		code := status.Code(err)

		metrics.RPCRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
		if err != nil {
			logger.WarnContext(ctx, "gRPC call failed", "code", code.String(), "duration", time.Since(start), "error", err)
		} else {
			logger.DebugContext(ctx, "gRPC call", "duration", time.Since(start))
		}
		return resp, err
	}
}
