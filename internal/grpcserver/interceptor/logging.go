package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
)

// UnaryLoggingInterceptor logs every unary call with its method, duration and status.
func UnaryLoggingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	st, _ := status.FromError(err)
	logger.Log.Infow(
		"gRPC request",
		"method", info.FullMethod,
		"duration", time.Since(start),
		"code", st.Code().String(),
		"message", st.Message(),
	)

	return resp, err
}
