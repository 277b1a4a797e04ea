package util

import (
	"fmt"
	"strconv"
)

const (
	DefaultPerPage = 25
	MaxPerPage     = 200
)

// ParsePagination reads page/per_page, falling back to defaults for absent
// values. Non-numeric or out-of-range values are rejected.
func ParsePagination(pageStr, perPageStr string) (int, int, error) {
	page, perPage := 1, DefaultPerPage

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			return 0, 0, fmt.Errorf("invalid page: %s", pageStr)
		}
		page = p
	}
	if perPageStr != "" {
		pp, err := strconv.Atoi(perPageStr)
		if err != nil || pp < 1 || pp > MaxPerPage {
			return 0, 0, fmt.Errorf("invalid per_page: %s (1-%d)", perPageStr, MaxPerPage)
		}
		perPage = pp
	}

	return page, perPage, nil
}

// Paginate returns the requested page of items and the total page count.
func Paginate[T any](items []T, page, perPage int) ([]T, int) {
	total := len(items)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start >= total {
		return []T{}, totalPages
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return items[start:end], totalPages
}
