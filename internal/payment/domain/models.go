package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSucceeded, StatusPending, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

type Payment struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID `gorm:"not null;index" json:"organization_id"`
	CustomerID   snowflake.ID `gorm:"column:customer_id;not null" json:"customer_id"`
	Amount       int64        `gorm:"not null" json:"amount"`
	RefundAmount int64        `gorm:"column:refund_amount;not null" json:"refund_amount"`
	Status       Status       `gorm:"not null;default:'pending'" json:"status"`
	PaidAt       *time.Time   `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// NetAmount is the collected amount after refunds.
func (p Payment) NetAmount() int64 {
	return p.Amount - p.RefundAmount
}
