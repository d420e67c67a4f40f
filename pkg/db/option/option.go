package option

import (
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"gorm.io/gorm"
)

// Option mutates a gorm statement before execution.
type Option interface {
	Apply(*gorm.DB) *gorm.DB
}

type paginationOption struct {
	page pagination.Pagination
}

// ApplyPagination applies cursor-token pagination. One extra row is
// fetched so callers can detect whether more pages exist.
func ApplyPagination(page pagination.Pagination) Option {
	return paginationOption{page: page}
}

func (o paginationOption) Apply(stmt *gorm.DB) *gorm.DB {
	size := o.page.PageSize
	if size <= 0 {
		size = 10
	}
	if size > 250 {
		size = 250
	}

	if o.page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(o.page.PageToken)
		if err == nil && cursor.CreatedAt != "" {
			stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	return stmt.Limit(size + 1)
}
