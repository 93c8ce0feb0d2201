package state

import (
	"context"
	"regexp"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

type ContactActionType int

const (
	GetContacts ContactActionType = iota + 1
	AddContact
	UpdateContact
	DeleteContact
	SetCurrent
	ClearCurrent
	FilterContacts
	ClearFilter
	ClearContacts
	ContactError
)

type ContactAction struct {
	Type     ContactActionType
	Contacts []models.Contact
	Contact  *models.Contact
	ID       string
	Text     string
	Error    string
}

// ContactState is nil-aware: Contacts is nil until loaded and Filtered is nil while no
// filter is active.
type ContactState struct {
	Contacts   []models.Contact
	Current    *models.Contact
	Filtered   []models.Contact
	FilterText string
	Error      string
	Loading    bool
}

func ReduceContacts(state ContactState, action ContactAction) ContactState {
	switch action.Type {
	case GetContacts:
		state.Contacts = action.Contacts
		state.Loading = false

	case AddContact:
		state.Contacts = append([]models.Contact{*action.Contact}, state.Contacts...)
		state.Loading = false

	case UpdateContact:
		updated := *action.Contact
		state.Contacts = funk.Map(state.Contacts, func(contact models.Contact) models.Contact {
			if contact.ID == updated.ID {
				return updated
			}
			return contact
		}).([]models.Contact)
		if state.Current != nil && state.Current.ID == updated.ID {
			state.Current = &updated
		}
		state.Loading = false

	case DeleteContact:
		state.Contacts = funk.Filter(state.Contacts, func(contact models.Contact) bool {
			return contact.ID != action.ID
		}).([]models.Contact)
		if state.Current != nil && state.Current.ID == action.ID {
			state.Current = nil
		}
		state.Loading = false

	case SetCurrent:
		current := *action.Contact
		state.Current = &current

	case ClearCurrent:
		state.Current = nil

	case FilterContacts:
		state.FilterText = action.Text

	case ClearFilter:
		state.FilterText = ""

	case ClearContacts:
		state.Contacts = nil
		state.Current = nil
		state.FilterText = ""
		state.Error = ""

	case ContactError:
		state.Error = action.Error
	}

	state.Filtered = filterContacts(state.Contacts, state.FilterText)

	return state
}

// filterContacts keeps the contacts whose name or email contains text, ignoring case.
// An empty text means no filter.
func filterContacts(contacts []models.Contact, text string) []models.Contact {
	if text == "" {
		return nil
	}

	pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(text))

	return funk.Filter(contacts, func(contact models.Contact) bool {
		return pattern.MatchString(contact.Name) || pattern.MatchString(contact.Email)
	}).([]models.Contact)
}

// Visible returns the filtered contacts while a filter is active and all contacts otherwise.
func (s ContactState) Visible() []models.Contact {
	if s.FilterText != "" {
		return s.Filtered
	}

	return s.Contacts
}

type contactsAPI interface {
	GetContacts(ctx context.Context) ([]models.Contact, error)
	AddContact(ctx context.Context, request models.CreateContactRequest) (*models.Contact, error)
	UpdateContact(ctx context.Context, contactID string, request models.UpdateContactRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, contactID string) error
}

type ContactsContext struct {
	*Store[ContactState, ContactAction]

	api contactsAPI
}

func NewContactsContext(api contactsAPI) *ContactsContext {
	return &ContactsContext{
		Store: NewStore(ContactState{Loading: true}, ReduceContacts),
		api:   api,
	}
}

func (c *ContactsContext) GetContacts(ctx context.Context) error {
	contacts, err := c.api.GetContacts(ctx)
	if err != nil {
		return c.fail(err)
	}

	c.Dispatch(ContactAction{Type: GetContacts, Contacts: contacts})

	return nil
}

func (c *ContactsContext) AddContact(ctx context.Context, request models.CreateContactRequest) error {
	contact, err := c.api.AddContact(ctx, request)
	if err != nil {
		return c.fail(err)
	}

	c.Dispatch(ContactAction{Type: AddContact, Contact: contact})

	return nil
}

func (c *ContactsContext) UpdateContact(ctx context.Context, contactID string, request models.UpdateContactRequest) error {
	contact, err := c.api.UpdateContact(ctx, contactID, request)
	if err != nil {
		return c.fail(err)
	}

	c.Dispatch(ContactAction{Type: UpdateContact, Contact: contact})

	return nil
}

func (c *ContactsContext) DeleteContact(ctx context.Context, contactID string) error {
	if err := c.api.DeleteContact(ctx, contactID); err != nil {
		return c.fail(err)
	}

	c.Dispatch(ContactAction{Type: DeleteContact, ID: contactID})

	return nil
}

func (c *ContactsContext) SetCurrent(contact models.Contact) {
	c.Dispatch(ContactAction{Type: SetCurrent, Contact: &contact})
}

func (c *ContactsContext) ClearCurrent() {
	c.Dispatch(ContactAction{Type: ClearCurrent})
}

// FilterContacts narrows the visible contacts. An empty text clears the filter.
func (c *ContactsContext) FilterContacts(text string) {
	if text == "" {
		c.ClearFilter()
		return
	}

	c.Dispatch(ContactAction{Type: FilterContacts, Text: text})
}

func (c *ContactsContext) ClearFilter() {
	c.Dispatch(ContactAction{Type: ClearFilter})
}

// ClearContacts drops everything loaded for the previous session.
func (c *ContactsContext) ClearContacts() {
	c.Dispatch(ContactAction{Type: ClearContacts})
}

func (c *ContactsContext) fail(err error) error {
	c.Dispatch(ContactAction{Type: ContactError, Error: err.Error()})

	return err
}
