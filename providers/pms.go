package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// pmsDay is the raw calendar day shape of the PMS REST API.
type pmsDay struct {
	Date    string `json:"date"`
	Pricing struct {
		Value    interface{} `json:"value"`
		Currency string      `json:"currency"`
	} `json:"pricing"`
	Availability struct {
		Unavailable     bool  `json:"unavailable"`
		CheckinAllowed  *bool `json:"checkin_allowed"`
		CheckoutAllowed *bool `json:"checkout_allowed"`
		MinStay         *int  `json:"min_stay"`
		MaxStay         *int  `json:"max_stay"`
	} `json:"availability"`
}

type pmsCalendarResponse struct {
	Days []pmsDay `json:"days"`
}

// PMSClient talks to the PMS REST API.
type PMSClient struct {
	httpClient *http.Client
	log        *logrus.Entry
}

func NewPMSClient(log *logrus.Entry) *PMSClient {
	return &PMSClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

func (c *PMSClient) Name() string { return "pms" }

func (c *PMSClient) FetchCalendar(ctx context.Context, creds Credentials, externalID string, from, to time.Time) ([]DayRecord, int, error) {
	endpoint := fmt.Sprintf("%s/v1/properties/%s/calendar?from=%s&to=%s",
		strings.TrimRight(creds.BaseURL, "/"),
		url.PathEscape(externalID),
		from.Format(DateLayout),
		to.Format(DateLayout),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		c.log.WithField("ExternalID", externalID).WithError(err).Warn("pms calendar request failed")
		return nil, 0, nil
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{
			"ExternalID": externalID,
			"Status":     res.StatusCode,
		}).Warn("pms calendar request returned non-2xx")
		return nil, 0, nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.log.WithField("ExternalID", externalID).WithError(err).Warn("pms calendar body read failed")
		return nil, 0, nil
	}

	var payload pmsCalendarResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.WithField("ExternalID", externalID).WithError(err).Warn("pms calendar body is not valid json")
		return nil, 0, nil
	}

	return c.normalize(payload.Days), len(payload.Days), nil
}

// normalize is a near pass-through: the PMS already reports an explicit
// unavailable flag, only the price needs numeric coercion.
func (c *PMSClient) normalize(raws []pmsDay) []DayRecord {
	days := make([]DayRecord, 0, len(raws))
	for _, raw := range raws {
		date, ok := parseDay(raw.Date)
		if !ok {
			continue
		}

		price := coercePrice(raw.Pricing.Value)

		record := DayRecord{
			Date:            date,
			Price:           price,
			Unavailable:     raw.Availability.Unavailable,
			CheckinAllowed:  raw.Availability.CheckinAllowed,
			CheckoutAllowed: raw.Availability.CheckoutAllowed,
			MinStay:         raw.Availability.MinStay,
			MaxStay:         raw.Availability.MaxStay,
		}

		// available requires price
		if !record.Unavailable && record.Price == nil {
			record.Unavailable = true
		}

		if currency := strings.TrimSpace(raw.Pricing.Currency); currency != "" {
			record.Currency = &currency
		}

		days = append(days, record)
	}
	return days
}
