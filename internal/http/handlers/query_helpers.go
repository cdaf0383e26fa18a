package handlers

import (
	"fmt"
	"time"

	"clinic-scheduler-backend/pkg/timeutil"

	"github.com/gin-gonic/gin"
)

// parseRangeQuery reads the "from"/"to" RFC3339 query parameters shared by
// the calendar-range endpoints, defaulting "to" to 24h after "from" when
// omitted (a single-day query).
func parseRangeQuery(c *gin.Context) (time.Time, time.Time, error) {
	fromStr := c.Query("from")
	if fromStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("missing required query parameter: from")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
	}
	toStr := c.Query("to")
	if toStr == "" {
		return from, from.Add(24 * time.Hour), nil
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
	}
	return from, to, nil
}

// parseDateQuery reads a single "date" (YYYY-MM-DD) query parameter,
// interpreted in the clinic's fixed timezone.
func parseDateQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing required query parameter: %s", name)
	}
	t, err := time.ParseInLocation("2006-01-02", raw, timeutil.ClinicLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, nil
}
