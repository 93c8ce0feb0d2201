// Package grpcserver exposes the contact manager over gRPC. Messages are the models
// structs carried by a JSON codec.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/contactkeeper/internal/grpcserver/interceptor"
)

type identifier interface {
	Identify(tokenString string) (string, error)
}

// ProtectedMethods are the calls that require an x-auth-token.
var ProtectedMethods = []string{
	FullMethod(MethodGetUser),
	FullMethod(MethodListContacts),
	FullMethod(MethodCreateContact),
	FullMethod(MethodUpdateContact),
	FullMethod(MethodDeleteContact),
}

// NewServer builds a grpc.Server with logging and auth interceptors and the
// ContactKeeper service registered.
func NewServer(handler ContactKeeperServer, gate identifier) *grpc.Server {
	authInterceptor := interceptor.NewAuthInterceptor(gate)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor,
			authInterceptor.UnaryAuthInterceptor(ProtectedMethods),
		),
	)
	RegisterContactKeeperServer(server, handler)

	return server
}

// NewGRPCServer is NewServer plus a TCP listener on addr.
func NewGRPCServer(
	addr string,
	handler ContactKeeperServer,
	gate identifier,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	return NewServer(handler, gate), lis, nil
}
