package domain

import (
	"context"
	"errors"
	"time"
)

// Metric names used in responses and cache keys.
const (
	MetricMRR       = "mrr"
	MetricARR       = "arr"
	MetricChurnRate = "churn_rate"
	MetricLTV       = "ltv"
	MetricCAC       = "cac"
)

// MetricValue is one computed metric with its month-over-month movement.
type MetricValue struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Growth   float64 `json:"growth"`
}

// HistoricalPoint is a full metric snapshot for one calendar month.
type HistoricalPoint struct {
	Month     string  `json:"month"`
	MRR       float64 `json:"mrr"`
	ARR       float64 `json:"arr"`
	ChurnRate float64 `json:"churn_rate"`
	LTV       float64 `json:"ltv"`
	CAC       float64 `json:"cac"`
}

// CustomerGrowthPoint reports customer counts as of a month end.
type CustomerGrowthPoint struct {
	Month   string `json:"month"`
	Total   int64  `json:"total"`
	Active  int64  `json:"active"`
	Churned int64  `json:"churned"`
}

type Service interface {
	CalculateMRR(ctx context.Context, date time.Time) (MetricValue, error)
	CalculateARR(ctx context.Context, date time.Time) (MetricValue, error)
	CalculateChurnRate(ctx context.Context, date time.Time) (MetricValue, error)
	CalculateLTV(ctx context.Context, date time.Time) (MetricValue, error)
	CalculateCAC(ctx context.Context, date time.Time) (MetricValue, error)
	GetAllMetrics(ctx context.Context, date time.Time) (map[string]MetricValue, error)
	GetHistoricalData(ctx context.Context, months int) ([]HistoricalPoint, error)
	GetCustomerGrowth(ctx context.Context, months int) ([]CustomerGrowthPoint, error)
	ClearCache()
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrInvalidMonths       = errors.New("invalid_months")
)
