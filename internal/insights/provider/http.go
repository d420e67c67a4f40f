package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/revlytic/revlytic/internal/config"
	"github.com/revlytic/revlytic/internal/insights/domain"
)

type analyzeResponse struct {
	Insights []string `json:"insights"`
}

// HTTPProvider forwards metric snapshots to the external insights service.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTP(cfg config.Config) domain.Provider {
	timeout := time.Duration(cfg.InsightsTimeout) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPProvider{
		endpoint: cfg.InsightsEndpoint,
		apiKey:   cfg.InsightsAPIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Analyze(ctx context.Context, snapshot domain.Snapshot) ([]string, error) {
	if p.endpoint == "" {
		return nil, domain.ErrNoEndpoint
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("insights_request_failed_status_%d", resp.StatusCode)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	return decoded.Insights, nil
}
