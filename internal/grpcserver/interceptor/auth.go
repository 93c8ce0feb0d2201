package interceptor

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
)

type identifier interface {
	Identify(tokenString string) (string, error)
}

type AuthInterceptor struct {
	auth identifier
}

func NewAuthInterceptor(auth identifier) *AuthInterceptor {
	return &AuthInterceptor{auth: auth}
}

// UnaryAuthInterceptor resolves the x-auth-token metadata value for the protected
// methods and attaches the user ID to the context. Other methods pass through untouched.
func (a *AuthInterceptor) UnaryAuthInterceptor(protectedMethods []string) grpc.UnaryServerInterceptor {
	protected := make(map[string]struct{}, len(protectedMethods))
	for _, m := range protectedMethods {
		protected[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(auth.TokenHeader); len(values) > 0 {
				token = values[0]
			}
		}

		userID, err := a.auth.Identify(token)
		if err != nil {
			logger.Log.Debugw("gRPC call rejected by auth gate", "method", info.FullMethod, zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(auth.WithUserID(ctx, userID), req)
	}
}
