package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPageBuilderClient_FetchCalendar(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "pb-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprintln(w, `{
			"data": [
				{"date": "2026-01-01", "status": "1", "status_desc": "Available", "price": "110.00", "currency": "GBP"},
				{"date": "2026-01-02", "status": "1", "status_desc": "AVAILABLE", "price": 95.5},
				{"date": "2026-01-03", "status": "1", "status_desc": "available", "price": ""},
				{"date": "2026-01-04", "status": "0", "status_desc": "Booked", "price": "120.00"},
				{"date": "2026-1-5", "status": "1", "status_desc": "available", "price": "100"}
			]
		}`)
	}))
	defer ts.Close()

	client := NewPageBuilderClient(testLog())
	from, to := testWindow(t)

	days, fetched, err := client.FetchCalendar(context.Background(), Credentials{BaseURL: ts.URL, APIKey: "pb-key"}, "ext-9", from, to)
	if err != nil {
		t.Fatalf("FetchCalendar failed: %v", err)
	}

	if fetched != 5 {
		t.Errorf("expected 5 raw records, got %d", fetched)
	}
	// "2026-1-5" fails the strict date gate
	if len(days) != 4 {
		t.Fatalf("expected 4 normalized records, got %d", len(days))
	}

	cases := []struct {
		index       int
		unavailable bool
		price       *float64
	}{
		{0, false, floatPtr(110.00)},
		{1, false, floatPtr(95.5)},
		{2, true, nil},              // "available" without price is not bookable
		{3, true, floatPtr(120.00)}, // priced but not available
	}
	for _, tc := range cases {
		day := days[tc.index]
		if day.Unavailable != tc.unavailable {
			t.Errorf("record %d: expected unavailable=%v, got %v", tc.index, tc.unavailable, day.Unavailable)
		}
		if tc.price == nil && day.Price != nil {
			t.Errorf("record %d: expected nil price, got %v", tc.index, *day.Price)
		}
		if tc.price != nil && (day.Price == nil || *day.Price != *tc.price) {
			t.Errorf("record %d: expected price %v, got %v", tc.index, *tc.price, day.Price)
		}
	}

	// the page builder never reports stay policy
	if days[0].MinStay != nil || days[0].CheckinAllowed != nil {
		t.Error("page builder records must leave policy fields nil")
	}
}

func TestPageBuilderClient_FetchCalendar_EmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"data": []}`)
	}))
	defer ts.Close()

	client := NewPageBuilderClient(testLog())
	from, to := testWindow(t)

	days, fetched, err := client.FetchCalendar(context.Background(), Credentials{BaseURL: ts.URL}, "ext-9", from, to)
	if err != nil {
		t.Fatalf("FetchCalendar failed: %v", err)
	}
	if fetched != 0 || len(days) != 0 {
		t.Errorf("expected empty result, got fetched=%d days=%d", fetched, len(days))
	}
}

func floatPtr(f float64) *float64 { return &f }
