package types

import "strings"

// User is a property owner. ID is assigned by the store on insert; a zero
// ID means the user has not been persisted yet.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Normalize trims surrounding whitespace from the text fields.
func (u User) Normalize() User {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	return u
}

// Validate checks the fields a write needs. Email uniqueness is left to
// the store.
func (u User) Validate() error {
	if u.ID < 0 {
		return &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	if strings.TrimSpace(u.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(u.Email) == "" {
		return &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	return nil
}

// String renders the user the way owner pickers show it.
func (u User) String() string {
	return u.Name + " <" + u.Email + ">"
}
