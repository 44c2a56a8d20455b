package providers

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Credentials for an upstream property-management API.
type Credentials struct {
	BaseURL string
	APIKey  string
}

// DayRecord is the canonical nightly record every provider client must emit.
// Pointer fields stay nil when the upstream said nothing; absence of policy
// information must not imply permissiveness.
type DayRecord struct {
	Date            time.Time
	Price           *float64
	Currency        *string
	Unavailable     bool
	CheckinAllowed  *bool
	CheckoutAllowed *bool
	MinStay         *int
	MaxStay         *int
}

// CalendarProvider fetches and normalizes nightly calendar data for one
// upstream. fetched is the count of raw records the upstream returned before
// normalization: callers use it to tell "upstream had nothing" (leave the
// store alone) from "upstream answered but nothing was usable" (clear the
// window). Ordinary HTTP failures and malformed bodies are logged by the
// client and reported as zero records, not as errors.
type CalendarProvider interface {
	Name() string
	FetchCalendar(ctx context.Context, creds Credentials, externalID string, from, to time.Time) (days []DayRecord, fetched int, err error)
}

// parseDay accepts strict YYYY-MM-DD only. Anything else is dropped by the
// normalizers without failing the batch.
func parseDay(s string) (time.Time, bool) {
	if !dayPattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// coercePrice turns the mixed number/string price encodings the upstreams use
// into a float, or nil when empty or unparsable.
func coercePrice(v interface{}) *float64 {
	switch p := v.(type) {
	case nil:
		return nil
	case float64:
		return &p
	case int:
		f := float64(p)
		return &f
	case string:
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			return nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
