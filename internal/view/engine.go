// Package view derives the filtered, sorted and paginated projection of the
// property collection that the presentation layer renders.
//
// The pipeline is Filter, then Sort, then Paginate, recomputed in full
// whenever the base rows, a filter input or the sort order change. Every
// recomputation resets the current page to 0.
package view

import (
	"slices"

	"github.com/mesh-intelligence/estates/pkg/types"
)

// Snapshot is an immutable picture of the view after a change.
type Snapshot struct {
	Filters   Filters          `json:"filters"`
	Sort      []SortKey        `json:"sort,omitempty"`
	Total     int              `json:"total"`
	Matched   int              `json:"matched"`
	PageSize  int              `json:"page_size"`
	Page      int              `json:"page"`
	PageCount int              `json:"page_count"`
	Rows      []types.Property `json:"rows"`
}

// Engine holds the last loaded property collection and the view
// configuration. It never modifies the rows it is given. An Engine is not
// safe for concurrent use.
type Engine struct {
	base     []types.Property
	filters  Filters
	sort     []SortKey
	pageSize int

	result []types.Property
	page   int
}

// NewEngine returns an empty engine. A non-positive pageSize means
// types.DefaultPageSize.
func NewEngine(pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	return &Engine{pageSize: pageSize}
}

// SetBase replaces the property collection, keeping filters and sort.
func (e *Engine) SetBase(rows []types.Property) Snapshot {
	e.base = slices.Clone(rows)
	return e.recompute()
}

// Base returns a copy of the loaded collection, before filtering.
func (e *Engine) Base() []types.Property { return slices.Clone(e.base) }

// SetFilter sets one filter input.
func (e *Engine) SetFilter(d Dimension, value string) Snapshot {
	e.filters = e.filters.With(d, value)
	return e.recompute()
}

// SetFilters replaces every filter input at once.
func (e *Engine) SetFilters(f Filters) Snapshot {
	e.filters = f
	return e.recompute()
}

// SetSort replaces the sort order. Nil restores store order.
func (e *Engine) SetSort(keys []SortKey) Snapshot {
	e.sort = slices.Clone(keys)
	return e.recompute()
}

// GetPage selects page index and returns its rows with the page count. On
// error the current page is unchanged.
func (e *Engine) GetPage(index int) ([]types.Property, int, error) {
	rows, err := Paginate(e.result, e.pageSize, index)
	count := PageCount(len(e.result), e.pageSize)
	if err != nil {
		return nil, count, err
	}
	e.page = index
	return slices.Clone(rows), count, nil
}

// Filters returns the current filter inputs.
func (e *Engine) Filters() Filters { return e.filters }

// Matched returns a copy of the full filtered and sorted result.
func (e *Engine) Matched() []types.Property { return slices.Clone(e.result) }

// Snapshot returns the current state of the view.
func (e *Engine) Snapshot() Snapshot {
	rows, _ := Paginate(e.result, e.pageSize, e.page)
	return Snapshot{
		Filters:   e.filters,
		Sort:      slices.Clone(e.sort),
		Total:     len(e.base),
		Matched:   len(e.result),
		PageSize:  e.pageSize,
		Page:      e.page,
		PageCount: PageCount(len(e.result), e.pageSize),
		Rows:      slices.Clone(rows),
	}
}

func (e *Engine) recompute() Snapshot {
	e.result = Sort(Filter(e.base, e.filters), e.sort)
	e.page = 0
	return e.Snapshot()
}
