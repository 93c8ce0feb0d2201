package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

const contactRemovedMessage = "Contact removed"

type contactManager interface {
	Register(ctx context.Context, request models.RegisterRequest) (models.TokenResponse, error)
	Login(ctx context.Context, request models.LoginRequest) (models.TokenResponse, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	ListContacts(ctx context.Context, userID string) ([]models.Contact, error)
	CreateContact(ctx context.Context, userID string, request models.CreateContactRequest) (*models.Contact, error)
	UpdateContact(ctx context.Context, userID string, contactID string, request models.UpdateContactRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, userID string, contactID string) error
}

// ContactKeeperHandler implements ContactKeeperServer on top of the service layer.
type ContactKeeperHandler struct {
	svc contactManager
}

var _ ContactKeeperServer = (*ContactKeeperHandler)(nil)

func NewContactKeeperHandler(svc contactManager) *ContactKeeperHandler {
	return &ContactKeeperHandler{svc: svc}
}

func (h *ContactKeeperHandler) Register(ctx context.Context, req *models.RegisterRequest) (*models.TokenResponse, error) {
	token, err := h.svc.Register(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}

	return &token, nil
}

func (h *ContactKeeperHandler) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	token, err := h.svc.Login(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}

	return &token, nil
}

func (h *ContactKeeperHandler) GetUser(ctx context.Context, _ *models.Empty) (*models.User, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, toStatus(models.ErrNoToken)
	}

	usr, err := h.svc.CurrentUser(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	return usr, nil
}

func (h *ContactKeeperHandler) ListContacts(ctx context.Context, _ *models.Empty) (*models.ContactsResponse, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, toStatus(models.ErrNoToken)
	}

	contacts, err := h.svc.ListContacts(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &models.ContactsResponse{Contacts: contacts}, nil
}

func (h *ContactKeeperHandler) CreateContact(ctx context.Context, req *models.CreateContactRequest) (*models.Contact, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, toStatus(models.ErrNoToken)
	}

	contact, err := h.svc.CreateContact(ctx, userID, *req)
	if err != nil {
		return nil, toStatus(err)
	}

	return contact, nil
}

func (h *ContactKeeperHandler) UpdateContact(ctx context.Context, req *models.UpdateContactRequest) (*models.Contact, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, toStatus(models.ErrNoToken)
	}

	contact, err := h.svc.UpdateContact(ctx, userID, req.ID, *req)
	if err != nil {
		return nil, toStatus(err)
	}

	return contact, nil
}

func (h *ContactKeeperHandler) DeleteContact(ctx context.Context, req *models.ContactIDRequest) (*models.MessageResponse, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, toStatus(models.ErrNoToken)
	}

	if err := h.svc.DeleteContact(ctx, userID, req.ID); err != nil {
		return nil, toStatus(err)
	}

	return &models.MessageResponse{Msg: contactRemovedMessage}, nil
}

// toStatus maps domain errors onto gRPC codes. Unknown errors are logged and reported
// as Internal without detail.
func toStatus(err error) error {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return status.Error(codes.InvalidArgument, validationErr.Error())
	case errors.Is(err, models.ErrNoToken),
		errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, models.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, models.ErrContactNotFound),
		errors.Is(err, models.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, models.ErrUserExists):
		return status.Error(codes.AlreadyExists, err.Error())
	}

	logger.Log.Errorw("gRPC request failed", zap.Error(err))

	return status.Error(codes.Internal, "Server Error")
}
