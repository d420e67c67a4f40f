package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/payment/domain"
	"github.com/revlytic/revlytic/pkg/db/option"
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, org_id, customer_id, amount, refund_amount, status, paid_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrgID,
		payment.CustomerID,
		payment.Amount,
		payment.RefundAmount,
		payment.Status,
		payment.PaidAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListPaymentFilter, page pagination.Pagination) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	stmt := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("org_id = ?", orgID)
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.PaidFrom != nil {
		stmt = stmt.Where("paid_at >= ?", *filter.PaidFrom)
	}
	if filter.PaidTo != nil {
		stmt = stmt.Where("paid_at <= ?", *filter.PaidTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) RevenueTotal(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (int64, error) {
	var total struct {
		Total int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount - refund_amount), 0) AS total
		 FROM payments
		 WHERE org_id = ?
		   AND status IN (?, ?)
		   AND paid_at >= ? AND paid_at <= ?`,
		orgID,
		domain.StatusSucceeded,
		domain.StatusRefunded,
		from,
		to,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total.Total, nil
}
