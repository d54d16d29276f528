package view

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/estates/pkg/types"
)

// ErrPageOutOfRange is returned for a page index outside [0, PageCount).
var ErrPageOutOfRange = errors.New("page out of range")

// PageCount returns the number of pages n rows occupy. There is always at
// least one page, even when n is zero.
func PageCount(n, size int) int {
	if size <= 0 {
		size = types.DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Paginate returns page index of rows: rows[index*size : min((index+1)*size, len(rows))].
func Paginate(rows []types.Property, size, index int) ([]types.Property, error) {
	if size <= 0 {
		size = types.DefaultPageSize
	}
	count := PageCount(len(rows), size)
	if index < 0 || index >= count {
		return nil, fmt.Errorf("page %d of %d: %w", index, count, ErrPageOutOfRange)
	}
	start := index * size
	end := min(start+size, len(rows))
	return rows[start:end:end], nil
}
