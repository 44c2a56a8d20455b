package services

import (
	"context"
	"testing"
	"time"

	"rental-sync-server/models"
	"rental-sync-server/providers"
)

type stubProvider struct {
	fetch    func(from, to time.Time) ([]providers.DayRecord, int, error)
	calls    int
	lastFrom time.Time
	lastTo   time.Time
}

func (s *stubProvider) Name() string { return "pms" }

func (s *stubProvider) FetchCalendar(_ context.Context, _ providers.Credentials, _ string, from, to time.Time) ([]providers.DayRecord, int, error) {
	s.calls++
	s.lastFrom = from
	s.lastTo = to
	if s.fetch == nil {
		return nil, 0, nil
	}
	return s.fetch(from, to)
}

// fullCalendar emits one priced record per night of [from, to).
func fullCalendar(price float64) func(from, to time.Time) ([]providers.DayRecord, int, error) {
	return func(from, to time.Time) ([]providers.DayRecord, int, error) {
		var records []providers.DayRecord
		for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
			p := price
			records = append(records, providers.DayRecord{Date: d, Price: &p})
		}
		return records, len(records), nil
	}
}

func newTestImporter(t *testing.T, store *AvailabilityStore, stub *stubProvider, maxWindowDays int) *CalendarImporter {
	t.Helper()
	return NewCalendarImporter(
		store,
		map[string]providers.CalendarProvider{"pms": stub},
		map[string]providers.Credentials{"pms": {BaseURL: "http://stub", APIKey: "k"}},
		maxWindowDays,
		testLog(),
	)
}

func TestSyncCalendar_ClampIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	store := NewAvailabilityStore(db, testLog())
	stub := &stubProvider{fetch: fullCalendar(100)}
	importer := newTestImporter(t, store, stub, 0) // 0 -> default clamp of 30
	listing := createListing(t, db, "ext-clamp")
	ctx := context.Background()

	from := "2026-01-01"
	to := day(t, from).AddDate(0, 0, 400).Format(providers.DateLayout)

	for run := 0; run < 3; run++ {
		result, err := importer.SyncCalendar(ctx, listing, from, to)
		if err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
		if result.RowsWritten != DefaultMaxWindowDays {
			t.Fatalf("run %d: expected %d rows written, got %d", run, DefaultMaxWindowDays, result.RowsWritten)
		}
	}

	if got := stub.lastTo.Sub(stub.lastFrom).Hours() / 24; int(got) != DefaultMaxWindowDays {
		t.Errorf("expected fetch clamped to %d days, got %v", DefaultMaxWindowDays, got)
	}
	if count := windowRowCount(t, db, listing.ID); count != int64(DefaultMaxWindowDays) {
		t.Errorf("expected exactly %d stored rows regardless of repeat runs, got %d", DefaultMaxWindowDays, count)
	}

	// the stored window starts at from and spans the clamp
	var first, last models.AvailabilityDay
	db.Where("listing_id = ?", listing.ID).Order("date ASC").First(&first)
	db.Where("listing_id = ?", listing.ID).Order("date DESC").First(&last)
	if !first.Date.Equal(day(t, "2026-01-01")) {
		t.Errorf("expected window start 2026-01-01, got %v", first.Date)
	}
	if !last.Date.Equal(day(t, "2026-01-30")) {
		t.Errorf("expected last synced night 2026-01-30, got %v", last.Date)
	}
}

func TestSyncCalendar_MalformedDatesFallBackToDefaults(t *testing.T) {
	db := newTestDB(t)
	store := NewAvailabilityStore(db, testLog())
	stub := &stubProvider{fetch: fullCalendar(100)}
	importer := newTestImporter(t, store, stub, 7)
	listing := createListing(t, db, "ext-malformed")

	result, err := importer.SyncCalendar(context.Background(), listing, "garbage", "also garbage")
	if err != nil {
		t.Fatalf("malformed dates must not fail the sync: %v", err)
	}
	if result.RowsWritten != 7 {
		t.Errorf("expected the default clamped window of 7 rows, got %d", result.RowsWritten)
	}

	today := time.Now().UTC()
	expectedStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if !stub.lastFrom.Equal(expectedStart) {
		t.Errorf("expected fetch to start today UTC %v, got %v", expectedStart, stub.lastFrom)
	}
}

func TestSyncCalendar_EmptyFetchLeavesStoreUntouched(t *testing.T) {
	db := newTestDB(t)
	store := NewAvailabilityStore(db, testLog())
	listing := createListing(t, db, "ext-noop")
	ctx := context.Background()

	// seed an earlier sync
	seedStub := &stubProvider{fetch: fullCalendar(100)}
	if _, err := newTestImporter(t, store, seedStub, 5).SyncCalendar(ctx, listing, "2026-01-01", "2026-01-06"); err != nil {
		t.Fatalf("seed sync failed: %v", err)
	}
	if count := windowRowCount(t, db, listing.ID); count != 5 {
		t.Fatalf("expected 5 seeded rows, got %d", count)
	}

	// upstream answers nothing at all
	emptyStub := &stubProvider{}
	result, err := newTestImporter(t, store, emptyStub, 5).SyncCalendar(ctx, listing, "2026-01-01", "2026-01-06")
	if err != nil {
		t.Fatalf("empty fetch must not fail: %v", err)
	}
	if result.RowsWritten != 0 {
		t.Errorf("expected no rows written, got %d", result.RowsWritten)
	}
	if count := windowRowCount(t, db, listing.ID); count != 5 {
		t.Errorf("empty fetch must leave existing rows untouched, got %d", count)
	}
}

func TestSyncCalendar_UnusableBatchClearsWindow(t *testing.T) {
	db := newTestDB(t)
	store := NewAvailabilityStore(db, testLog())
	listing := createListing(t, db, "ext-clear")
	ctx := context.Background()

	seedStub := &stubProvider{fetch: fullCalendar(100)}
	if _, err := newTestImporter(t, store, seedStub, 5).SyncCalendar(ctx, listing, "2026-01-01", "2026-01-06"); err != nil {
		t.Fatalf("seed sync failed: %v", err)
	}

	// upstream answered, but every record failed normalization
	unusable := &stubProvider{fetch: func(from, to time.Time) ([]providers.DayRecord, int, error) {
		return nil, 5, nil
	}}
	result, err := newTestImporter(t, store, unusable, 5).SyncCalendar(ctx, listing, "2026-01-01", "2026-01-06")
	if err != nil {
		t.Fatalf("unusable batch must not fail: %v", err)
	}
	if result.RowsWritten != 0 {
		t.Errorf("expected no rows written, got %d", result.RowsWritten)
	}
	if count := windowRowCount(t, db, listing.ID); count != 0 {
		t.Errorf("answered-but-unusable batch must clear the stale window, got %d rows", count)
	}
}

func TestSyncCalendar_UnknownProvider(t *testing.T) {
	db := newTestDB(t)
	store := NewAvailabilityStore(db, testLog())
	importer := NewCalendarImporter(store, map[string]providers.CalendarProvider{}, nil, 0, testLog())
	listing := createListing(t, db, "ext-unknown")

	if _, err := importer.SyncCalendar(context.Background(), listing, "", ""); err == nil {
		t.Fatal("expected a configuration error for an unknown provider")
	}
}
