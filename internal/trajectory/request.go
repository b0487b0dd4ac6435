package trajectory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned for build requests outside the accepted bounds.
var ErrInvalidRequest = errors.New("invalid trajectory request")

const (
	DefaultWeeklyHours    = 8
	DefaultTotalMonths    = 12
	DefaultPositionsLimit = 5
)

// BuildRequest asks for a trajectory for one finished interview session.
type BuildRequest struct {
	SessionID             string `json:"session_id"`
	WeeklyHours           int    `json:"weekly_hours"`
	TotalMonths           int    `json:"total_months"`
	TargetPositionsLimit  int    `json:"target_positions_limit"`
	CurrentPositionsLimit int    `json:"current_positions_limit"`
}

// WithDefaults fills zero values.
func (r BuildRequest) WithDefaults() BuildRequest {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.WeeklyHours == 0 {
		r.WeeklyHours = DefaultWeeklyHours
	}
	if r.TotalMonths == 0 {
		r.TotalMonths = DefaultTotalMonths
	}
	if r.TargetPositionsLimit == 0 {
		r.TargetPositionsLimit = DefaultPositionsLimit
	}
	if r.CurrentPositionsLimit == 0 {
		r.CurrentPositionsLimit = DefaultPositionsLimit
	}
	return r
}

func (r BuildRequest) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("%w: session_id must not be empty", ErrInvalidRequest)
	}
	checks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"weekly_hours", r.WeeklyHours, 2, 60},
		{"total_months", r.TotalMonths, 1, 36},
		{"target_positions_limit", r.TargetPositionsLimit, 1, 20},
		{"current_positions_limit", r.CurrentPositionsLimit, 1, 20},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s must be within %d..%d, got %d", ErrInvalidRequest, c.name, c.min, c.max, c.value)
		}
	}
	return nil
}
