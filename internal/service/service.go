// Package service holds the business rules of the contact manager: registration and
// login, and ownership-scoped contact management. Both the REST and gRPC transports
// call into it.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type contactKeeper interface {
	InsertContact(ctx context.Context, contact *models.Contact) error
	GetContactByID(ctx context.Context, contactID string) (*models.Contact, error)
	GetContactsByOwner(ctx context.Context, ownerID string) ([]models.Contact, error)
	UpdateContact(ctx context.Context, contact *models.Contact) error
	DeleteContact(ctx context.Context, contactID string) error
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfContacts(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	contactKeeper
	statsKeeper
	pinger
}

type tokenIssuer interface {
	Issue(userID string) (string, error)
}

type payloadValidator interface {
	Struct(payload any) error
}

type Service struct {
	db       storage
	tokens   tokenIssuer
	validate payloadValidator
	now      func() time.Time
}

func New(
	db storage,
	tokens tokenIssuer,
	validate payloadValidator,
) *Service {
	return &Service{
		db:       db,
		tokens:   tokens,
		validate: validate,
		now:      time.Now,
	}
}

// Register creates a user and returns a token for it. An already registered email
// stops the operation with models.ErrUserExists before anything is written.
func (s *Service) Register(ctx context.Context, request models.RegisterRequest) (models.TokenResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return models.TokenResponse{}, err
	}

	_, err := s.db.GetUserByEmail(ctx, request.Email)
	if err == nil {
		return models.TokenResponse{}, models.ErrUserExists
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return models.TokenResponse{}, err
	}

	hash, err := auth.HashPassword(request.Password)
	if err != nil {
		return models.TokenResponse{}, err
	}

	usr := &models.User{
		ID:       uuid.New().String(),
		Name:     request.Name,
		Email:    request.Email,
		Password: hash,
		Date:     s.now(),
	}
	if err := s.db.CreateUser(ctx, usr); err != nil {
		return models.TokenResponse{}, err
	}

	return s.issueToken(usr.ID)
}

// Login checks the credentials. An unknown email and a wrong password produce the
// same models.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, request models.LoginRequest) (models.TokenResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return models.TokenResponse{}, err
	}

	usr, err := s.db.GetUserByEmail(ctx, request.Email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.TokenResponse{}, models.ErrInvalidCredentials
		}
		return models.TokenResponse{}, err
	}

	if !auth.CheckPassword(usr.Password, request.Password) {
		return models.TokenResponse{}, models.ErrInvalidCredentials
	}

	return s.issueToken(usr.ID)
}

func (s *Service) issueToken(userID string) (models.TokenResponse, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return models.TokenResponse{}, err
	}

	return models.TokenResponse{Token: token}, nil
}

// CurrentUser returns the authenticated user. The password hash is left in the struct;
// it is never serialised.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	if !isValidID(userID) {
		return nil, models.ErrUserNotFound
	}

	return s.db.GetUserByID(ctx, userID)
}

func (s *Service) ListContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	contacts, err := s.db.GetContactsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}

	return contacts, nil
}

func (s *Service) CreateContact(
	ctx context.Context,
	userID string,
	request models.CreateContactRequest,
) (*models.Contact, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	contactType := request.Type
	if contactType == "" {
		contactType = models.ContactTypePersonal
	}

	contact := &models.Contact{
		ID:    uuid.New().String(),
		Owner: userID,
		Name:  request.Name,
		Email: request.Email,
		Phone: request.Phone,
		Type:  contactType,
		Date:  s.now(),
	}
	if err := s.db.InsertContact(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

// UpdateContact applies the fields present in request to the caller's contact.
func (s *Service) UpdateContact(
	ctx context.Context,
	userID string,
	contactID string,
	request models.UpdateContactRequest,
) (*models.Contact, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	contact, err := s.getOwnedContact(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}

	request.Patch().Apply(contact)

	if err := s.db.UpdateContact(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

func (s *Service) DeleteContact(ctx context.Context, userID string, contactID string) error {
	if _, err := s.getOwnedContact(ctx, userID, contactID); err != nil {
		return err
	}

	return s.db.DeleteContact(ctx, contactID)
}

// getOwnedContact fetches first and authorizes second, so a missing contact and
// somebody else's contact stay distinguishable.
func (s *Service) getOwnedContact(ctx context.Context, userID string, contactID string) (*models.Contact, error) {
	if !isValidID(contactID) {
		return nil, models.ErrContactNotFound
	}

	contact, err := s.db.GetContactByID(ctx, contactID)
	if err != nil {
		return nil, err
	}

	if contact.Owner != userID {
		return nil, models.ErrNotOwner
	}

	return contact, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns the number of registered users and stored contacts.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	contacts, err := s.db.GetNumberOfContacts(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:    users,
		Contacts: contacts,
	}, nil
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
