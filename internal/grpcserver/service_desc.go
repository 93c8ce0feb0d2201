package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "contactkeeper.ContactKeeper"

// Method names of the ContactKeeper service.
const (
	MethodRegister      = "Register"
	MethodLogin         = "Login"
	MethodGetUser       = "GetUser"
	MethodListContacts  = "ListContacts"
	MethodCreateContact = "CreateContact"
	MethodUpdateContact = "UpdateContact"
	MethodDeleteContact = "DeleteContact"
)

// FullMethod returns "/contactkeeper.ContactKeeper/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ContactKeeperServer is the server API of the ContactKeeper service.
type ContactKeeperServer interface {
	Register(ctx context.Context, request *models.RegisterRequest) (*models.TokenResponse, error)
	Login(ctx context.Context, request *models.LoginRequest) (*models.TokenResponse, error)
	GetUser(ctx context.Context, request *models.Empty) (*models.User, error)
	ListContacts(ctx context.Context, request *models.Empty) (*models.ContactsResponse, error)
	CreateContact(ctx context.Context, request *models.CreateContactRequest) (*models.Contact, error)
	UpdateContact(ctx context.Context, request *models.UpdateContactRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, request *models.ContactIDRequest) (*models.MessageResponse, error)
}

func unaryMethod[Req any, Resp any](
	method string,
	call func(server ContactKeeperServer, ctx context.Context, request *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(
			srv interface{},
			ctx context.Context,
			dec func(interface{}) error,
			interceptor grpc.UnaryServerInterceptor,
		) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ContactKeeperServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ContactKeeperServer), ctx, req.(*Req))
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the ContactKeeper service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContactKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodRegister, ContactKeeperServer.Register),
		unaryMethod(MethodLogin, ContactKeeperServer.Login),
		unaryMethod(MethodGetUser, ContactKeeperServer.GetUser),
		unaryMethod(MethodListContacts, ContactKeeperServer.ListContacts),
		unaryMethod(MethodCreateContact, ContactKeeperServer.CreateContact),
		unaryMethod(MethodUpdateContact, ContactKeeperServer.UpdateContact),
		unaryMethod(MethodDeleteContact, ContactKeeperServer.DeleteContact),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contactkeeper",
}

// RegisterContactKeeperServer registers srv on s.
func RegisterContactKeeperServer(s grpc.ServiceRegistrar, srv ContactKeeperServer) {
	s.RegisterService(&ServiceDesc, srv)
}
