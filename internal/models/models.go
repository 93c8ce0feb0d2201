package models

import "time"

// Contact types accepted by the API.
const (
	ContactTypePersonal     = "personal"
	ContactTypeProfessional = "professional"
)

const (
	StorageTypeUnknown = iota
	StorageTypeMongo
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// User is a registered account. Password holds the bcrypt hash and never leaves the server.
type User struct {
	ID       string    `json:"_id" bson:"_id"`
	Name     string    `json:"name" bson:"name"`
	Email    string    `json:"email" bson:"email"`
	Password string    `json:"-" bson:"password"`
	Date     time.Time `json:"date" bson:"date"`
}

// Contact is a single address-book entry owned by exactly one user.
type Contact struct {
	ID    string    `json:"_id" bson:"_id"`
	Owner string    `json:"user" bson:"user"`
	Name  string    `json:"name" bson:"name"`
	Email string    `json:"email,omitempty" bson:"email,omitempty"`
	Phone string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Type  string    `json:"type" bson:"type"`
	Date  time.Time `json:"date" bson:"date"`
}

// ContactPatch carries a partial update. A nil field leaves the stored value unchanged.
type ContactPatch struct {
	Name  *string
	Email *string
	Phone *string
	Type  *string
}

// Apply copies the present fields of the patch onto the contact.
func (p ContactPatch) Apply(contact *Contact) {
	if p.Name != nil {
		contact.Name = *p.Name
	}
	if p.Email != nil {
		contact.Email = *p.Email
	}
	if p.Phone != nil {
		contact.Phone = *p.Phone
	}
	if p.Type != nil {
		contact.Type = *p.Type
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type CreateContactRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	Type  string `json:"type" validate:"omitempty,contacttype"`
}

// UpdateContactRequest mirrors CreateContactRequest with every field optional.
type UpdateContactRequest struct {
	ID    string  `json:"id,omitempty"`
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Email *string `json:"email" validate:"omitempty,email|len=0"`
	Phone *string `json:"phone"`
	Type  *string `json:"type" validate:"omitempty,contacttype"`
}

// Patch converts the request into a ContactPatch.
func (r UpdateContactRequest) Patch() ContactPatch {
	return ContactPatch{
		Name:  r.Name,
		Email: r.Email,
		Phone: r.Phone,
		Type:  r.Type,
	}
}

type ContactIDRequest struct {
	ID string `json:"id"`
}

type ContactsResponse struct {
	Contacts []Contact `json:"contacts"`
}

type Empty struct{}

// MessageResponse is the `{msg}` body used for confirmations and errors.
type MessageResponse struct {
	Msg string `json:"msg"`
}

type InternalStatsResponse struct {
	Users    int64 `json:"users"`
	Contacts int64 `json:"contacts"`
}
