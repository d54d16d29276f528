// This file implements the properties table accessor. Reads join the owning
// user; writes run through the Enforcer owner check.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/estates/pkg/types"
)

var _ types.PropertyRepository = (*PropertiesTable)(nil)

const listPropertiesSQL = `SELECT p.id, p.owner_id, p.description, p.location, p.size, p.price, u.id, u.name, u.email
FROM properties p
LEFT JOIN users u ON u.id = p.owner_id
ORDER BY p.id`

// PropertiesTable persists property listings.
type PropertiesTable struct {
	adapter  *Adapter
	enforcer *Enforcer
}

// NewPropertiesTable returns a properties accessor over a.
func NewPropertiesTable(a *Adapter, e *Enforcer) *PropertiesTable {
	return &PropertiesTable{adapter: a, enforcer: e}
}

// ListAll returns every property with its owner attached. The first row whose
// owner is missing fails the read with *types.OrphanError.
func (pt *PropertiesTable) ListAll(ctx context.Context) ([]types.Property, error) {
	var props []types.Property
	err := pt.adapter.Query(ctx, listPropertiesSQL, func(rows *sql.Rows) error {
		p, err := hydrateProperty(rows)
		if err != nil {
			return err
		}
		props = append(props, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	return props, nil
}

func hydrateProperty(rows *sql.Rows) (types.Property, error) {
	var (
		p        types.Property
		desc     sql.NullString
		loc      sql.NullString
		ownerRef sql.NullInt64
		name     sql.NullString
		email    sql.NullString
	)
	if err := rows.Scan(&p.ID, &p.OwnerID, &desc, &loc, &p.Size, &p.Price, &ownerRef, &name, &email); err != nil {
		return types.Property{}, scanFailed("properties", err)
	}
	if !ownerRef.Valid {
		return types.Property{}, &types.OrphanError{PropertyID: p.ID, OwnerID: p.OwnerID}
	}
	p.Description = desc.String
	p.Location = loc.String
	p.Owner = &types.Owner{Name: name.String, Email: email.String}
	return p, nil
}

// Add inserts p after checking its owner and returns it with its assigned id.
func (pt *PropertiesTable) Add(ctx context.Context, p types.Property) (types.Property, error) {
	p = p.Normalize()
	if p.ID != 0 {
		return types.Property{}, &types.ValidationError{Field: "id", Reason: "must be zero for a new property"}
	}
	if err := p.Validate(); err != nil {
		return types.Property{}, err
	}

	err := pt.enforcer.WithOwner(ctx, p.OwnerID, func(s *Session) error {
		id, err := s.InsertReturningID(ctx,
			"INSERT INTO properties (owner_id, description, location, size, price) VALUES (?, ?, ?, ?, ?)",
			p.OwnerID, p.Description, p.Location, p.Size, p.Price)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
	if err != nil {
		return types.Property{}, fmt.Errorf("adding property: %w", err)
	}
	p.Owner = nil
	return p, nil
}

// Update replaces the property with p.ID after checking its owner.
func (pt *PropertiesTable) Update(ctx context.Context, p types.Property) error {
	p = p.Normalize()
	if p.ID == 0 {
		return &types.ValidationError{Field: "id", Reason: "property has not been persisted"}
	}
	if err := p.Validate(); err != nil {
		return err
	}

	err := pt.enforcer.WithOwner(ctx, p.OwnerID, func(s *Session) error {
		n, err := s.Exec(ctx,
			"UPDATE properties SET owner_id = ?, description = ?, location = ?, size = ?, price = ? WHERE id = ?",
			p.OwnerID, p.Description, p.Location, p.Size, p.Price, p.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("property %d: %w", p.ID, types.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}
	return nil
}

// Delete removes the property with the given id and reports how many rows
// went. A missing id is not an error.
func (pt *PropertiesTable) Delete(ctx context.Context, id int64) (int64, error) {
	n, err := pt.adapter.Exec(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("deleting property %d: %w", id, err)
	}
	return n, nil
}
