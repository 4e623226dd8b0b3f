package contacts

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/Daskott/safecall/server/dial"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report problems using the json names clients send us
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
}

type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Relationship string `json:"relationship"`
}

// Fields holds a partial update, nil fields are left untouched
type Fields struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Relationship *string `json:"relationship"`
}

// DefaultSeed is what a fresh directory starts with.
func DefaultSeed() []Contact {
	return []Contact{
		{ID: "1", Name: "John Doe", Phone: "+1-555-0101", Relationship: "Family"},
		{ID: "2", Name: "Jane Smith", Phone: "+1-555-0102", Relationship: "Friend"},
	}
}

// Directory is the in-memory emergency contact list. It is the only owner of
// its records, which live for as long as the Directory does.
type Directory struct {
	mu       sync.RWMutex
	contacts []Contact
	dialer   dial.Dialer
	newID    func() string
}

func NewDirectory(dialer dial.Dialer, seed []Contact) *Directory {
	contacts := make([]Contact, len(seed))
	copy(contacts, seed)

	return &Directory{
		contacts: contacts,
		dialer:   dialer,
		newID:    func() string { return uuid.New().String() },
	}
}

// List returns the contacts in insertion order.
func (d *Directory) List() []Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]Contact, len(d.contacts))
	copy(result, d.contacts)
	return result
}

func (d *Directory) Find(id string) (Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	idx := d.indexOf(id)
	if idx < 0 {
		return Contact{}, &NotFoundError{ID: id}
	}
	return d.contacts[idx], nil
}

func (d *Directory) Add(name, phone, relationship string) (Contact, error) {
	contact := Contact{
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		Relationship: strings.TrimSpace(relationship),
	}

	if err := validate.Struct(contact); err != nil {
		return Contact{}, newValidationError(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	contact.ID = d.newID()
	for d.indexOf(contact.ID) >= 0 {
		contact.ID = d.newID()
	}

	d.contacts = append(d.contacts, contact)
	return contact, nil
}

// Update merges fields into the contact with the given id. The merged
// record must still carry a name & phone.
func (d *Directory) Update(id string, fields Fields) (Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(id)
	if idx < 0 {
		return Contact{}, &NotFoundError{ID: id}
	}

	merged := d.contacts[idx]
	if fields.Name != nil {
		merged.Name = strings.TrimSpace(*fields.Name)
	}
	if fields.Phone != nil {
		merged.Phone = strings.TrimSpace(*fields.Phone)
	}
	if fields.Relationship != nil {
		merged.Relationship = strings.TrimSpace(*fields.Relationship)
	}

	if err := validate.Struct(merged); err != nil {
		return Contact{}, newValidationError(err)
	}

	d.contacts[idx] = merged
	return merged, nil
}

// Remove deletes the contact if present, removing an unknown id is a no-op.
func (d *Directory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(id)
	if idx < 0 {
		return
	}
	d.contacts = append(d.contacts[:idx], d.contacts[idx+1:]...)
}

// Call asks the platform to dial the contact. Stored state is not touched.
func (d *Directory) Call(ctx context.Context, id string) (dial.Intent, error) {
	contact, err := d.Find(id)
	if err != nil {
		return dial.Intent{}, err
	}

	return d.dialer.Dial(ctx, contact.Phone, contact.Name)
}

// indexOf must be called with d.mu held
func (d *Directory) indexOf(id string) int {
	for i, contact := range d.contacts {
		if contact.ID == id {
			return i
		}
	}
	return -1
}
