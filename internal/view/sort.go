package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/estates/pkg/types"
)

// Field is a sortable property column.
type Field string

const (
	FieldID          Field = "id"
	FieldOwner       Field = "owner"
	FieldDescription Field = "description"
	FieldLocation    Field = "location"
	FieldSize        Field = "size"
	FieldPrice       Field = "price"
)

var sortFields = map[Field]func(a, b types.Property) int{
	FieldID:          func(a, b types.Property) int { return cmp.Compare(a.ID, b.ID) },
	FieldOwner:       func(a, b types.Property) int { return compareFold(a.OwnerName(), b.OwnerName()) },
	FieldDescription: func(a, b types.Property) int { return compareFold(a.Description, b.Description) },
	FieldLocation:    func(a, b types.Property) int { return compareFold(a.Location, b.Location) },
	FieldSize:        func(a, b types.Property) int { return cmp.Compare(a.Size, b.Size) },
	FieldPrice:       func(a, b types.Property) int { return cmp.Compare(a.Price, b.Price) },
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// SortKey is one (field, direction) pair of a sort order.
type SortKey struct {
	Field Field `json:"field"`
	Desc  bool  `json:"desc,omitempty"`
}

func (k SortKey) String() string {
	if k.Desc {
		return string(k.Field) + ":desc"
	}
	return string(k.Field)
}

// ParseSort parses a comma separated list such as "price:desc,owner". A
// leading "-" also means descending. An empty string is the store order.
func ParseSort(s string) ([]SortKey, error) {
	var keys []SortKey
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		var k SortKey
		if rest, ok := strings.CutPrefix(part, "-"); ok {
			k.Desc = true
			part = rest
		}
		name, dir, hasDir := strings.Cut(part, ":")
		switch {
		case !hasDir, dir == "asc":
		case dir == "desc":
			k.Desc = true
		default:
			return nil, fmt.Errorf("unknown sort direction %q", dir)
		}
		k.Field = Field(name)
		if _, ok := sortFields[k.Field]; !ok {
			return nil, fmt.Errorf("unknown sort field %q", name)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Sort returns a sorted copy of rows. The sort is stable, so rows with equal
// keys keep their relative order; no keys means the order is unchanged.
func Sort(rows []types.Property, keys []SortKey) []types.Property {
	out := slices.Clone(rows)
	if len(keys) == 0 {
		return out
	}
	slices.SortStableFunc(out, func(a, b types.Property) int {
		for _, k := range keys {
			compare, ok := sortFields[k.Field]
			if !ok {
				continue
			}
			if c := compare(a, b); c != 0 {
				if k.Desc {
					return -c
				}
				return c
			}
		}
		return 0
	})
	return out
}
