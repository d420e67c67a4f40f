package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/plan/domain"
	"github.com/revlytic/revlytic/pkg/db/option"
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (id, org_id, name, price, billing_cycle, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.OrgID,
		plan.Name,
		plan.Price,
		plan.BillingCycle,
		plan.Active,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, price, billing_cycle, active, created_at, updated_at
		 FROM plans WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListPlanFilter, page pagination.Pagination) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	stmt := db.WithContext(ctx).
		Model(&domain.Plan{}).
		Where("org_id = ?", orgID)
	if filter.ActiveOnly {
		stmt = stmt.Where("active = ?", true)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`UPDATE plans SET name = ?, price = ?, billing_cycle = ?, active = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		plan.Name,
		plan.Price,
		plan.BillingCycle,
		plan.Active,
		plan.UpdatedAt,
		plan.OrgID,
		plan.ID,
	).Error
}
