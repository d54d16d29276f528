package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/estates/pkg/types"
)

// Dimension names one of the independent filter inputs.
type Dimension int

const (
	General Dimension = iota
	OwnerName
	Location
	MinPrice
	MaxPrice
)

var dimensionNames = [...]string{
	General:   "general",
	OwnerName: "owner",
	Location:  "location",
	MinPrice:  "min-price",
	MaxPrice:  "max-price",
}

func (d Dimension) String() string {
	if d < 0 || int(d) >= len(dimensionNames) {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// ParseDimension maps a dimension name back to its Dimension.
func ParseDimension(s string) (Dimension, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range dimensionNames {
		if name == s {
			return Dimension(d), nil
		}
	}
	return 0, fmt.Errorf("unknown filter %q", s)
}

// Filters holds the raw text of every filter input. An empty field does not
// filter.
type Filters struct {
	General  string `json:"general,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Location string `json:"location,omitempty"`
	MinPrice string `json:"min_price,omitempty"`
	MaxPrice string `json:"max_price,omitempty"`
}

// Get returns the raw value of dimension d.
func (f Filters) Get(d Dimension) string {
	switch d {
	case General:
		return f.General
	case OwnerName:
		return f.Owner
	case Location:
		return f.Location
	case MinPrice:
		return f.MinPrice
	case MaxPrice:
		return f.MaxPrice
	}
	return ""
}

// With returns a copy of f with dimension d set to value.
func (f Filters) With(d Dimension, value string) Filters {
	switch d {
	case General:
		f.General = value
	case OwnerName:
		f.Owner = value
	case Location:
		f.Location = value
	case MinPrice:
		f.MinPrice = value
	case MaxPrice:
		f.MaxPrice = value
	}
	return f
}

// Predicate compiles f into a row predicate. A row passes only if every
// non-empty dimension matches. A row without an owner fails the owner filter
// and is matched by the general filter on its other fields only. A price
// bound that is not a number rejects every row until it is corrected.
func (f Filters) Predicate() func(types.Property) bool {
	var checks []func(types.Property) bool

	if q := needle(f.General); q != "" {
		checks = append(checks, func(p types.Property) bool {
			return ownerContains(p, q) ||
				contains(p.Location, q) ||
				contains(p.Description, q) ||
				contains(decimalForm(p.Price), q) ||
				contains(decimalForm(p.Size), q)
		})
	}
	if q := needle(f.Owner); q != "" {
		checks = append(checks, func(p types.Property) bool { return ownerContains(p, q) })
	}
	if q := needle(f.Location); q != "" {
		checks = append(checks, func(p types.Property) bool { return contains(p.Location, q) })
	}
	if s := strings.TrimSpace(f.MinPrice); s != "" {
		lo, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rejectAll
		}
		checks = append(checks, func(p types.Property) bool { return p.Price >= lo })
	}
	if s := strings.TrimSpace(f.MaxPrice); s != "" {
		hi, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rejectAll
		}
		checks = append(checks, func(p types.Property) bool { return p.Price <= hi })
	}

	return func(p types.Property) bool {
		for _, check := range checks {
			if !check(p) {
				return false
			}
		}
		return true
	}
}

func rejectAll(types.Property) bool { return false }

func needle(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func contains(field, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(field), lowerNeedle)
}

func ownerContains(p types.Property, lowerNeedle string) bool {
	return p.Owner != nil && contains(p.Owner.Name, lowerNeedle)
}

// decimalForm renders v with at least one fractional digit, so that a
// general filter of either "750000" or "750000.0" finds a price of 750000.
func decimalForm(v float64) string {
	s := FormatNumber(v)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatNumber renders a size or price the way the general filter and the
// presentation layer see it: shortest decimal form, no exponent.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Filter returns the rows of all that satisfy f, in their original order.
// all is not modified.
func Filter(all []types.Property, f Filters) []types.Property {
	keep := f.Predicate()
	out := make([]types.Property, 0, len(all))
	for _, p := range all {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
