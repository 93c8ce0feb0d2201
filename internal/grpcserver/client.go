package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

// Client calls the ContactKeeper service with the JSON codec.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// WithToken returns a context that sends token as x-auth-token metadata.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, auth.TokenHeader, token)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.conn.Invoke(ctx, FullMethod(method), in, out, opts...)
}

func (c *Client) Register(ctx context.Context, in *models.RegisterRequest, opts ...grpc.CallOption) (*models.TokenResponse, error) {
	out := new(models.TokenResponse)
	if err := c.invoke(ctx, MethodRegister, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, in *models.LoginRequest, opts ...grpc.CallOption) (*models.TokenResponse, error) {
	out := new(models.TokenResponse)
	if err := c.invoke(ctx, MethodLogin, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, opts ...grpc.CallOption) (*models.User, error) {
	out := new(models.User)
	if err := c.invoke(ctx, MethodGetUser, &models.Empty{}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListContacts(ctx context.Context, opts ...grpc.CallOption) (*models.ContactsResponse, error) {
	out := new(models.ContactsResponse)
	if err := c.invoke(ctx, MethodListContacts, &models.Empty{}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateContact(ctx context.Context, in *models.CreateContactRequest, opts ...grpc.CallOption) (*models.Contact, error) {
	out := new(models.Contact)
	if err := c.invoke(ctx, MethodCreateContact, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateContact(ctx context.Context, in *models.UpdateContactRequest, opts ...grpc.CallOption) (*models.Contact, error) {
	out := new(models.Contact)
	if err := c.invoke(ctx, MethodUpdateContact, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteContact(ctx context.Context, in *models.ContactIDRequest, opts ...grpc.CallOption) (*models.MessageResponse, error) {
	out := new(models.MessageResponse)
	if err := c.invoke(ctx, MethodDeleteContact, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
