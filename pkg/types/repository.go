package types

import "context"

// UserRepository is the sole authority for user identity and email
// uniqueness.
type UserRepository interface {
	// ListAll returns every user in store order.
	ListAll(ctx context.Context) ([]User, error)

	// Add persists a new user and returns it with its assigned ID.
	// Returns a ValidationError for empty name or email and
	// ErrDuplicateEmail when the email is taken.
	Add(ctx context.Context, u User) (User, error)

	// Update replaces name and email of the user with u.ID.
	// Returns ErrNotFound if no such user exists.
	Update(ctx context.Context, u User) error

	// Delete removes the user and every property it owns. On success no
	// property references id. Returns ErrNotFound if no such user exists and
	// a *CascadeError if dependents survived the parent delete.
	Delete(ctx context.Context, id int64) error
}

// PropertyRepository persists listings. Reads attach the owning user;
// writes validate the owner reference.
type PropertyRepository interface {
	// ListAll returns every property with its Owner resolved. A property
	// whose owner is missing fails the whole read with an *OrphanError.
	ListAll(ctx context.Context) ([]Property, error)

	// Add persists a new property and returns it with its assigned ID.
	// Returns ErrInvalidReference if OwnerID names no user.
	Add(ctx context.Context, p Property) (Property, error)

	// Update replaces the property with p.ID.
	// Returns ErrNotFound if no such property exists.
	Update(ctx context.Context, p Property) error

	// Delete removes the property with the given id. Deleting a missing id
	// is not an error; the returned count is zero.
	Delete(ctx context.Context, id int64) (int64, error)
}
