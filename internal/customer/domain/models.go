package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusChurned   Status = "churned"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusTrial, StatusChurned, StatusSuspended:
		return true
	}
	return false
}

type Customer struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID      `gorm:"not null;index;uniqueIndex:idx_customers_org_email" json:"organization_id"`
	Name            string            `gorm:"not null" json:"name"`
	Email           string            `gorm:"not null;uniqueIndex:idx_customers_org_email" json:"email"`
	Status          Status            `gorm:"not null;default:'active'" json:"status"`
	PlanID          snowflake.ID      `gorm:"column:plan_id" json:"plan_id,omitempty"`
	MonthlyRevenue  int64             `gorm:"column:monthly_revenue;not null" json:"monthly_revenue"`
	AcquisitionCost int64             `gorm:"column:acquisition_cost;not null" json:"acquisition_cost"`
	StartDate       time.Time         `gorm:"column:start_date;not null" json:"start_date"`
	ChurnDate       *time.Time        `gorm:"column:churn_date" json:"churn_date,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
