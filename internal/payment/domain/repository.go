package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPaymentFilter struct {
	CustomerID snowflake.ID
	Status     Status
	PaidFrom   *time.Time
	PaidTo     *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListPaymentFilter, page pagination.Pagination) ([]*Payment, error)
	RevenueTotal(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (int64, error)
}
