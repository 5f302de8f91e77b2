package db

import "gorm.io/gorm"

// Default and maximum page sizes for list endpoints
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination describes one page of a list result
type Pagination struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

// NormalizePage clamps page and perPage to sane values
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// NewPagination builds pagination metadata for a page of a result set
// of the given total size
func NewPagination(total int64, page, perPage int) *Pagination {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Pagination{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
	}
}

// Paginate is a gorm scope applying offset/limit for the given page
func Paginate(page, perPage int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * perPage).Limit(perPage)
	}
}
