package domain

import (
	"context"
	"errors"
	"time"

	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
)

// Snapshot is everything the metrics report renders.
type Snapshot struct {
	OrgID        string
	GeneratedAt  time.Time
	Metrics      map[string]metricsdomain.MetricValue
	Historical   []metricsdomain.HistoricalPoint
	RevenueTotal int64
}

// Report is one rendered PDF document.
type Report struct {
	ID          string
	GeneratedAt time.Time
	ContentType string
	Data        []byte
}

type Service interface {
	GenerateMetricsReport(ctx context.Context) (Report, error)
}

var ErrInvalidOrganization = errors.New("invalid_organization")
