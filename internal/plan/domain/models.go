package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type BillingCycle string

const (
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
)

// monthlyDivisors normalizes a cycle price to a monthly price.
var monthlyDivisors = map[BillingCycle]float64{
	CycleMonthly:   1,
	CycleQuarterly: 3,
	CycleYearly:    12,
}

func (c BillingCycle) Valid() bool {
	_, ok := monthlyDivisors[c]
	return ok
}

type Plan struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID `gorm:"not null;index" json:"organization_id"`
	Name         string       `gorm:"not null" json:"name"`
	Price        int64        `gorm:"not null" json:"price"`
	BillingCycle BillingCycle `gorm:"column:billing_cycle;not null" json:"billing_cycle"`
	Active       bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// MonthlyPrice normalizes the plan price to a per-month amount in cents.
// An unknown cycle is treated as monthly.
func (p Plan) MonthlyPrice() float64 {
	divisor, ok := monthlyDivisors[p.BillingCycle]
	if !ok {
		divisor = 1
	}
	return float64(p.Price) / divisor
}
