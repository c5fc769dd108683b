// Package paginate windows an already-materialized list into 1-indexed
// pages of fixed size.
package paginate

import "math"

// Default page sizes.
const (
	SearchLimit = 10
	KeysLimit   = 200
)

// Page is one window of a list. Next is nil on the last page.
type Page[T any] struct {
	Items []T
	Next  *int
}

// Window returns page number page of items with limit entries per page.
//
// offset = (page-1)*limit and the window is items[offset:offset+limit]
// with sequence-slice semantics: negative bounds count back from the end
// and every bound is clamped to [0, len(items)]. For page <= 0 this yields
// an empty window, or the head of the list when len(items) exceeds the
// negative offset. Next is page+1 whenever offset+limit < len(items).
func Window[T any](items []T, page, limit int) Page[T] {
	if limit <= 0 {
		return Page[T]{Items: []T{}}
	}
	n := len(items)
	// Offsets that do not fit an int lie beyond either end of any list.
	if page > 0 && page-1 > (math.MaxInt-limit)/limit {
		return Page[T]{Items: []T{}}
	}
	if page <= 0 && page < math.MinInt/limit+1 {
		next := page + 1
		return Page[T]{Items: []T{}, Next: &next}
	}
	offset := (page - 1) * limit
	end := offset + limit

	lo, hi := clamp(offset, n), clamp(end, n)
	out := []T{}
	if lo < hi {
		out = append(out, items[lo:hi]...)
	}

	p := Page[T]{Items: out}
	if end < n {
		next := page + 1
		p.Next = &next
	}
	return p
}

func clamp(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
		return i
	}
	if i > n {
		return n
	}
	return i
}
