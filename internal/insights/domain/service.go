package domain

import (
	"context"
	"errors"
	"time"

	metricsdomain "github.com/revlytic/revlytic/internal/metrics/domain"
)

// Source values reported on a response.
const (
	SourceRemote = "remote"
	SourceRules  = "rules"
)

// Snapshot is the metric state shipped to the insights provider.
type Snapshot struct {
	OrgID       string                                 `json:"org_id"`
	GeneratedAt time.Time                              `json:"generated_at"`
	Metrics     map[string]metricsdomain.MetricValue   `json:"metrics"`
	Growth      []metricsdomain.CustomerGrowthPoint    `json:"customer_growth"`
}

// Response carries the produced insights and where they came from.
type Response struct {
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	Insights    []string  `json:"insights"`
}

// Provider turns a metric snapshot into human-readable insights.
type Provider interface {
	Analyze(ctx context.Context, snapshot Snapshot) ([]string, error)
}

type Service interface {
	Get(ctx context.Context) (Response, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrNoEndpoint          = errors.New("insights_endpoint_not_configured")
)
