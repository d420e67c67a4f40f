package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/customer/domain"
	"github.com/revlytic/revlytic/pkg/db/option"
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	var planID interface{}
	if customer.PlanID != 0 {
		planID = customer.PlanID
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, org_id, name, email, status, plan_id, monthly_revenue, acquisition_cost, start_date, churn_date, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.OrgID,
		customer.Name,
		customer.Email,
		customer.Status,
		planID,
		customer.MonthlyRevenue,
		customer.AcquisitionCost,
		customer.StartDate,
		customer.ChurnDate,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, status, plan_id, monthly_revenue, acquisition_cost, start_date, churn_date, metadata, created_at, updated_at
		 FROM customers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("org_id = ?", orgID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.PlanID != "" {
		stmt = stmt.Where("plan_id = ?", filter.PlanID)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	var planID interface{}
	if customer.PlanID != 0 {
		planID = customer.PlanID
	}
	return db.WithContext(ctx).Exec(
		`UPDATE customers SET name = ?, email = ?, status = ?, plan_id = ?, monthly_revenue = ?, acquisition_cost = ?, churn_date = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		customer.Name,
		customer.Email,
		customer.Status,
		planID,
		customer.MonthlyRevenue,
		customer.AcquisitionCost,
		customer.ChurnDate,
		customer.UpdatedAt,
		customer.OrgID,
		customer.ID,
	).Error
}
