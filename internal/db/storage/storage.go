// Package storage names the full set of operations a contactkeeper backend provides.
// Consumers declare the smaller subsets they need; this interface is what the app
// wires and what every backend is checked against.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

type UserKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type ContactKeeper interface {
	InsertContact(ctx context.Context, contact *models.Contact) error
	GetContactByID(ctx context.Context, contactID string) (*models.Contact, error)
	GetContactsByOwner(ctx context.Context, ownerID string) ([]models.Contact, error)
	UpdateContact(ctx context.Context, contact *models.Contact) error
	DeleteContact(ctx context.Context, contactID string) error
}

type StatsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfContacts(ctx context.Context) (int64, error)
}

type Storage interface {
	UserKeeper
	ContactKeeper
	StatsKeeper
	Ping(ctx context.Context) error
	Close() error
}
