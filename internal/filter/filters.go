package filter

import (
	"math"

	"github.com/siahsang/inkwell/internal/validator"
	"github.com/siahsang/inkwell/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 10_000_000
)

// Filter is a page/limit window over a result set.
type Filter struct {
	Page  int
	Limit int
}

func NewFilter(page, limit int) Filter {
	return Filter{
		Page:  page,
		Limit: limit,
	}
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Normalize clamps out-of-range values instead of rejecting them.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Metadata builds the pagination block for a total row count.
func (f Filter) Metadata(total int) models.Pagination {
	totalPages := 0
	if total > 0 && f.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(f.Limit)))
	}
	return models.Pagination{
		Page:       f.Page,
		Limit:      f.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func ValidateFilters(filters Filter, v *validator.Validator) {
	v.Check(filters.Page > 0, "page", "must be greater than 0")
	v.Check(filters.Page <= MaxPage, "page", "must be a maximum of 10000000")
	v.Check(filters.Limit > 0, "limit", "must be greater than 0")
	v.Check(filters.Limit <= MaxLimit, "limit", "must be a maximum of 100")
}
