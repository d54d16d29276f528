package types

import (
	"math"
	"strings"
)

// UnknownOwner is displayed when a property carries no resolved owner.
const UnknownOwner = "Unknown"

// Owner is the denormalised copy of the owning user that reads attach to a
// Property. It is derived from OwnerID and never written back.
type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Property is a real-estate listing owned by a User.
type Property struct {
	ID          int64   `json:"id"`
	OwnerID     int64   `json:"owner_id"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Size        float64 `json:"size"`
	Price       float64 `json:"price"`

	// Owner is filled by repository reads; writes ignore it.
	Owner *Owner `json:"owner,omitempty"`
}

// OwnerName returns the resolved owner name, or UnknownOwner.
func (p Property) OwnerName() string {
	if p.Owner == nil {
		return UnknownOwner
	}
	return p.Owner.Name
}

// Normalize trims surrounding whitespace from the text fields.
func (p Property) Normalize() Property {
	p.Description = strings.TrimSpace(p.Description)
	p.Location = strings.TrimSpace(p.Location)
	return p
}

// Validate checks the numeric constraints a write needs. The owner
// reference is checked against the store by the repository.
func (p Property) Validate() error {
	if p.ID < 0 {
		return &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	if math.IsNaN(p.Size) || math.IsInf(p.Size, 0) || p.Size < 0 {
		return &ValidationError{Field: "size", Reason: "must be a non-negative number"}
	}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must be a non-negative number"}
	}
	return nil
}
