// This file implements sample data seeding for a fresh store.
package store

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/estates/pkg/types"
)

type seedListing struct {
	description string
	location    string
	size        float64
	price       float64
}

type seedOwner struct {
	user     types.User
	listings []seedListing
}

var sampleData = []seedOwner{
	{
		user: types.User{Name: "John Doe", Email: "john.doe@example.com"},
		listings: []seedListing{
			{"Modern apartment near Central Park", "New York", 1200, 750000},
		},
	},
	{
		user: types.User{Name: "Jane Smith", Email: "jane.smith@example.com"},
		listings: []seedListing{
			{"Family house with garden", "Los Angeles", 2400, 1150000},
		},
	},
	{
		user: types.User{Name: "Paul Brown", Email: "paul.brown@example.com"},
		listings: []seedListing{
			{"Beachfront condo", "Miami", 950, 620000},
		},
	},
}

// Seed inserts the sample owners and listings when the users table is empty.
// It reports whether anything was written.
func Seed(ctx context.Context, a *Adapter) (bool, error) {
	n, err := a.Count(ctx, "SELECT COUNT(*) FROM users")
	if err != nil {
		return false, fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	err = a.Tx(ctx, func(s *Session) error {
		for _, o := range sampleData {
			uid, err := s.InsertReturningID(ctx,
				"INSERT INTO users (name, email) VALUES (?, ?)", o.user.Name, o.user.Email)
			if err != nil {
				return fmt.Errorf("seeding user %s: %w", o.user.Name, err)
			}
			for _, l := range o.listings {
				if _, err := s.InsertReturningID(ctx,
					"INSERT INTO properties (owner_id, description, location, size, price) VALUES (?, ?, ?, ?, ?)",
					uid, l.description, l.location, l.size, l.price); err != nil {
					return fmt.Errorf("seeding property %q: %w", l.description, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	a.log.WithField("users", len(sampleData)).Info("seeded sample data")
	return true, nil
}
