package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPlanFilter struct {
	ActiveOnly bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListPlanFilter, page pagination.Pagination) ([]*Plan, error)
	Update(ctx context.Context, db *gorm.DB, plan *Plan) error
}
