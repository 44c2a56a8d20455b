package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testWindow(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	from, err := time.Parse(DateLayout, "2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	return from, from.AddDate(0, 0, 30)
}

func TestPMSClient_FetchCalendar(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintln(w, `{
			"days": [
				{"date": "2026-01-01", "pricing": {"value": 125.0, "currency": "GBP"}, "availability": {"unavailable": false, "min_stay": 2}},
				{"date": "2026-01-02", "pricing": {"value": "140.50"}, "availability": {"unavailable": false}},
				{"date": "2026-01-03", "pricing": {}, "availability": {"unavailable": false}},
				{"date": "2026-01-04", "pricing": {"value": 99}, "availability": {"unavailable": true}},
				{"date": "03/05/2026", "pricing": {"value": 80}, "availability": {"unavailable": false}}
			]
		}`)
	}))
	defer ts.Close()

	client := NewPMSClient(testLog())
	from, to := testWindow(t)

	days, fetched, err := client.FetchCalendar(context.Background(), Credentials{BaseURL: ts.URL, APIKey: "secret"}, "ext-1", from, to)
	if err != nil {
		t.Fatalf("FetchCalendar failed: %v", err)
	}

	if fetched != 5 {
		t.Errorf("expected 5 raw records, got %d", fetched)
	}
	// the malformed date is dropped silently
	if len(days) != 4 {
		t.Fatalf("expected 4 normalized records, got %d", len(days))
	}

	first := days[0]
	if first.Unavailable {
		t.Error("priced available day must stay available")
	}
	if first.Price == nil || *first.Price != 125.0 {
		t.Errorf("expected price 125.0, got %v", first.Price)
	}
	if first.Currency == nil || *first.Currency != "GBP" {
		t.Errorf("expected currency GBP, got %v", first.Currency)
	}
	if first.MinStay == nil || *first.MinStay != 2 {
		t.Errorf("expected min stay 2, got %v", first.MinStay)
	}
	if first.CheckinAllowed != nil {
		t.Error("absent checkin policy must stay nil, not default to false")
	}

	second := days[1]
	if second.Price == nil || *second.Price != 140.50 {
		t.Errorf("expected string price coerced to 140.50, got %v", second.Price)
	}

	third := days[2]
	if !third.Unavailable {
		t.Error("available day without price must be coerced to unavailable")
	}
	if third.Price != nil {
		t.Errorf("expected nil price, got %v", third.Price)
	}

	fourth := days[3]
	if !fourth.Unavailable {
		t.Error("explicitly unavailable day must stay unavailable")
	}
}

func TestPMSClient_FetchCalendar_UpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewPMSClient(testLog())
	from, to := testWindow(t)

	days, fetched, err := client.FetchCalendar(context.Background(), Credentials{BaseURL: ts.URL}, "ext-1", from, to)
	if err != nil {
		t.Fatalf("non-2xx must not surface as an error, got %v", err)
	}
	if fetched != 0 || len(days) != 0 {
		t.Errorf("expected no records on upstream failure, got fetched=%d days=%d", fetched, len(days))
	}
}

func TestPMSClient_FetchCalendar_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html>not json</html>`)
	}))
	defer ts.Close()

	client := NewPMSClient(testLog())
	from, to := testWindow(t)

	days, fetched, err := client.FetchCalendar(context.Background(), Credentials{BaseURL: ts.URL}, "ext-1", from, to)
	if err != nil {
		t.Fatalf("malformed body must not surface as an error, got %v", err)
	}
	if fetched != 0 || len(days) != 0 {
		t.Errorf("expected no records on malformed body, got fetched=%d days=%d", fetched, len(days))
	}
}
