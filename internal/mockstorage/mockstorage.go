// Package mockstorage provides a testify-based mock of the contactkeeper storage.
// It is used for unit testing the service, HTTP handlers and gRPC handlers by
// simulating storage behavior and failures.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfContacts works the same way for GetNumberOfContacts.
	OnGetNumberOfContacts func(ctx context.Context) (int64, error)
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *models.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

func (m *StorageMock) InsertContact(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *StorageMock) GetContactByID(ctx context.Context, contactID string) (*models.Contact, error) {
	args := m.Called(ctx, contactID)
	contact, _ := args.Get(0).(*models.Contact)
	return contact, args.Error(1)
}

func (m *StorageMock) GetContactsByOwner(ctx context.Context, ownerID string) ([]models.Contact, error) {
	args := m.Called(ctx, ownerID)
	contacts, _ := args.Get(0).([]models.Contact)
	return contacts, args.Error(1)
}

func (m *StorageMock) UpdateContact(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *StorageMock) DeleteContact(ctx context.Context, contactID string) error {
	args := m.Called(ctx, contactID)
	return args.Error(0)
}

// GetNumberOfUsers mocks retrieving the total number of users.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetNumberOfContacts(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfContacts != nil {
		return m.OnGetNumberOfContacts(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
