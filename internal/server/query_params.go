package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalTime accepts RFC3339 timestamps or bare dates. Bare dates snap
// to the start of the day, or the end of it when endOfDay is set, so that
// range filters behave inclusively.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		utc := ts.UTC()
		return &utc, nil
	}

	day, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return nil, err
	}
	day = day.UTC()
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

// parseRequiredDate parses the mandatory date query parameter for metric
// endpoints. Only bare YYYY-MM-DD dates are accepted.
func parseRequiredDate(c *gin.Context) (time.Time, error) {
	value := strings.TrimSpace(c.Query("date"))
	if value == "" {
		return time.Time{}, newValidationError("date", "missing_date", "date query parameter is required")
	}

	day, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, newValidationError("date", "invalid_date", "date must be formatted as YYYY-MM-DD")
	}
	return day.UTC(), nil
}

// parseMonths parses the months query parameter with a default when absent.
func parseMonths(c *gin.Context, def int) (int, error) {
	value := strings.TrimSpace(c.Query("months"))
	if value == "" {
		return def, nil
	}

	months, err := strconv.Atoi(value)
	if err != nil || months <= 0 {
		return 0, newValidationError("months", "invalid_months", "months must be a positive integer")
	}
	return months, nil
}
