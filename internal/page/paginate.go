// Package page slices record collections into cursor-addressed pages and
// fills them with resolved records, topping up past per-item failures.
package page

import (
	"fmt"
	"strconv"

	"github.com/TravelMesh/read_layer/internal/apperr"
	"github.com/TravelMesh/read_layer/internal/ledger"
)

// Page is one slice of the collection. NextStart is the address of the first
// item beyond the slice, empty when the collection is exhausted.
type Page struct {
	Items     []ledger.Handle
	NextStart string
}

// ParseLimit parses the limit query parameter, returning def when absent.
func ParseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperr.PaginationLimit(fmt.Sprintf("limit %q is not a positive integer", raw))
	}
	return limit, nil
}

// Paginate slices limit handles starting at the item whose address equals
// startWith (or at the beginning when startWith is empty). The slice keeps
// the collection's insertion order.
func Paginate(handles []ledger.Handle, limit int, startWith string) (Page, error) {
	if limit <= 0 {
		return Page{}, apperr.PaginationLimit(fmt.Sprintf("limit %d is not a positive integer", limit))
	}

	offset := 0
	if startWith != "" {
		offset = -1
		for i, h := range handles {
			if h.Address() == startWith {
				offset = i
				break
			}
		}
		if offset == -1 {
			return Page{}, apperr.PaginationStartWith(fmt.Sprintf("no record with address %q in the collection", startWith))
		}
	}

	end := offset + limit
	if end > len(handles) {
		end = len(handles)
	}
	page := Page{Items: handles[offset:end]}
	if end < len(handles) {
		page.NextStart = handles[end].Address()
	}
	return page, nil
}
