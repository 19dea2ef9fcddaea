package tablequery

import "fmt"

// PageSpec selects a 1-based page of PageSize items.
type PageSpec struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Page is one slice of a result set.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
}

// Paginate returns the requested page of items. TotalPages is at least 1,
// even for an empty input. A page outside [1, TotalPages] yields no items;
// clamping is the caller's decision. A non-positive PageSize is rejected.
func Paginate[T any](items []T, spec PageSpec) (Page[T], error) {
	if spec.PageSize <= 0 {
		return Page[T]{}, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidArgument, spec.PageSize)
	}

	total := len(items)
	pages := max(1, (total+spec.PageSize-1)/spec.PageSize)
	p := Page[T]{
		Items:      []T{},
		TotalItems: total,
		TotalPages: pages,
		Page:       spec.Page,
		PageSize:   spec.PageSize,
	}
	if spec.Page < 1 || spec.Page > pages {
		return p, nil
	}

	start := (spec.Page - 1) * spec.PageSize
	end := min(start+spec.PageSize, total)
	if start < end {
		p.Items = items[start:end:end]
	}
	return p, nil
}

// StartItem is the 1-based index of the first item on the page, 0 when empty.
func (p Page[T]) StartItem() int {
	if len(p.Items) == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// EndItem is the 1-based index of the last item on the page, 0 when empty.
func (p Page[T]) EndItem() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.StartItem() + len(p.Items) - 1
}

func (p Page[T]) HasPrevious() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool     { return p.Page < p.TotalPages }
