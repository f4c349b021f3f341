// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by paged admin lists.
// Keep this as an int because call sites add one and then cast to int64
// for Mongo Find().SetLimit().
const PageSize = 50

// LimitPlusOne returns PageSize+1 as int64 for look-ahead pagination
// (fetch one extra document to detect hasNext).
func LimitPlusOne() int64 { return int64(PageSize + 1) }

// ParseStart extracts the "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	s := query.Get(r, "start")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Skip converts a 1-based start index to a Mongo skip count.
func Skip(start int) int64 {
	if start < 1 {
		start = 1
	}
	return int64(start - 1)
}

// Trim trims a slice fetched with LimitPlusOne to PageSize and reports
// whether another page exists past it. It modifies the slice in place.
func Trim[T any](rows *[]T) (hasNext bool) {
	if len(*rows) > PageSize {
		*rows = (*rows)[:PageSize]
		return true
	}
	return false
}

// Page is the envelope paged list endpoints return.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Start   int  `json:"start"`
	HasNext bool `json:"has_next"`
}

// NewPage builds a Page from a slice already trimmed with Trim.
func NewPage[T any](items []T, start int, hasNext bool) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Start: start, HasNext: hasNext}
}
