package services

import (
	"context"
	"fmt"
	"time"

	"rental-sync-server/models"
	"rental-sync-server/providers"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxWindowDays caps how many nights one sync may pull from an
	// upstream. Operational guard against runaway calendar requests; override
	// with SYNC_MAX_WINDOW_DAYS.
	DefaultMaxWindowDays = 30

	// defaultSyncHorizonDays is how far ahead a sync reaches when the caller
	// gives no end date (before clamping).
	defaultSyncHorizonDays = 365
)

// CalendarImporter orchestrates fetch -> normalize -> clamp -> store for one
// listing at a time. It holds one client per upstream and picks by the
// listing's provider field, never by payload shape.
type CalendarImporter struct {
	store         *AvailabilityStore
	clients       map[string]providers.CalendarProvider
	credentials   map[string]providers.Credentials
	maxWindowDays int
	log           *logrus.Entry
}

func NewCalendarImporter(store *AvailabilityStore, clients map[string]providers.CalendarProvider, credentials map[string]providers.Credentials, maxWindowDays int, log *logrus.Entry) *CalendarImporter {
	if maxWindowDays <= 0 {
		maxWindowDays = DefaultMaxWindowDays
	}
	return &CalendarImporter{
		store:         store,
		clients:       clients,
		credentials:   credentials,
		maxWindowDays: maxWindowDays,
		log:           log,
	}
}

// SyncResult summarizes one calendar sync run.
type SyncResult struct {
	RunID       string    `json:"runID"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	Fetched     int       `json:"fetched"`
	RowsWritten int       `json:"rowsWritten"`
}

// SyncCalendar syncs one listing's nightly calendar. fromStr/toStr are
// optional YYYY-MM-DD bounds; malformed dates fall back to the defaults
// instead of failing the import. The returned error is reserved for
// configuration problems (unknown provider, missing table); upstream fetch
// failures and empty responses are logged no-ops so one bad listing never
// aborts a wider import run.
func (i *CalendarImporter) SyncCalendar(ctx context.Context, listing *models.Listing, fromStr, toStr string) (SyncResult, error) {
	result := SyncResult{RunID: uuid.NewString()}

	client, ok := i.clients[listing.Provider]
	if !ok {
		return result, fmt.Errorf("no calendar client configured for provider %q", listing.Provider)
	}

	from, to := i.resolveWindow(result.RunID, fromStr, toStr)
	result.WindowStart = from
	// fetch covers [from, to); the last synced night is to-1
	result.WindowEnd = to.AddDate(0, 0, -1)

	log := i.log.WithFields(logrus.Fields{
		"RunID":      result.RunID,
		"Provider":   client.Name(),
		"ListingID":  listing.ID,
		"ExternalID": listing.ExternalID,
		"From":       from.Format(providers.DateLayout),
		"To":         to.Format(providers.DateLayout),
	})

	days, fetched, err := client.FetchCalendar(ctx, i.credentials[listing.Provider], listing.ExternalID, from, to)
	if err != nil {
		log.WithError(err).Warn("calendar fetch aborted")
		return result, nil
	}
	if fetched == 0 {
		// nothing came back: leave the store untouched, distinct from an
		// answered-but-unusable batch which clears the window below
		log.Info("upstream returned no calendar data, store left untouched")
		return result, nil
	}
	result.Fetched = fetched

	written, err := i.store.UpsertWindow(ctx, listing.ExternalID, listing.ID, days, result.WindowStart, result.WindowEnd)
	if err != nil {
		log.WithError(err).Error("calendar sync write failed")
		return result, nil
	}
	result.RowsWritten = written

	log.WithFields(logrus.Fields{
		"Fetched":     fetched,
		"RowsWritten": written,
	}).Info("calendar sync complete")

	return result, nil
}

// resolveWindow applies the default horizon and the max-window clamp.
// Malformed inputs never error: they fall back to today / the default
// horizon, and an oversized window is clamped with a log line.
func (i *CalendarImporter) resolveWindow(runID, fromStr, toStr string) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if fromStr != "" {
		if parsed, err := time.Parse(providers.DateLayout, fromStr); err == nil {
			from = parsed
		} else {
			i.log.WithFields(logrus.Fields{"RunID": runID, "From": fromStr}).Warn("malformed from date, defaulting to today")
		}
	}

	to := from.AddDate(0, 0, defaultSyncHorizonDays)
	if toStr != "" {
		if parsed, err := time.Parse(providers.DateLayout, toStr); err == nil && parsed.After(from) {
			to = parsed
		} else {
			i.log.WithFields(logrus.Fields{"RunID": runID, "To": toStr}).Warn("malformed or inverted to date, defaulting to sync horizon")
		}
	}

	if days := int(to.Sub(from).Hours() / 24); days > i.maxWindowDays {
		to = from.AddDate(0, 0, i.maxWindowDays)
		i.log.WithFields(logrus.Fields{
			"RunID":         runID,
			"RequestedDays": days,
			"MaxWindowDays": i.maxWindowDays,
		}).Info("sync window clamped")
	}

	return from, to
}
