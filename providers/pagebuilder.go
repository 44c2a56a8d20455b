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

// pageBuilderDay is the raw rate-calendar shape of the headless page-builder
// API: a status code/description pair plus a stringly-typed price.
type pageBuilderDay struct {
	Date       string      `json:"date"`
	Status     string      `json:"status"`
	StatusDesc string      `json:"status_desc"`
	Price      interface{} `json:"price"`
	Currency   string      `json:"currency"`
}

type pageBuilderRatesResponse struct {
	Data []pageBuilderDay `json:"data"`
}

// PageBuilderClient talks to the headless page-builder API.
type PageBuilderClient struct {
	httpClient *http.Client
	log        *logrus.Entry
}

func NewPageBuilderClient(log *logrus.Entry) *PageBuilderClient {
	return &PageBuilderClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

func (c *PageBuilderClient) Name() string { return "pagebuilder" }

func (c *PageBuilderClient) FetchCalendar(ctx context.Context, creds Credentials, externalID string, from, to time.Time) ([]DayRecord, int, error) {
	endpoint := fmt.Sprintf("%s/api/v2/rentals/%s/rates?start=%s&end=%s",
		strings.TrimRight(creds.BaseURL, "/"),
		url.PathEscape(externalID),
		from.Format(DateLayout),
		to.Format(DateLayout),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("X-Api-Key", creds.APIKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		c.log.WithField("ExternalID", externalID).WithError(err).Warn("pagebuilder rates request failed")
		return nil, 0, nil
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{
			"ExternalID": externalID,
			"Status":     res.StatusCode,
		}).Warn("pagebuilder rates request returned non-2xx")
		return nil, 0, nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.log.WithField("ExternalID", externalID).WithError(err).Warn("pagebuilder rates body read failed")
		return nil, 0, nil
	}

	var payload pageBuilderRatesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.log.WithField("ExternalID", externalID).WithError(err).Warn("pagebuilder rates body is not valid json")
		return nil, 0, nil
	}

	return c.normalize(payload.Data), len(payload.Data), nil
}

// normalize maps the status/price pair to the canonical record. A day counts
// as available only when status_desc says "available" AND a price is present;
// anything else, including a price-less "available", is unavailable. The
// page builder reports no checkin/checkout policy or stay lengths, those stay
// nil.
func (c *PageBuilderClient) normalize(raws []pageBuilderDay) []DayRecord {
	days := make([]DayRecord, 0, len(raws))
	for _, raw := range raws {
		date, ok := parseDay(raw.Date)
		if !ok {
			continue
		}

		price := coercePrice(raw.Price)
		available := strings.EqualFold(strings.TrimSpace(raw.StatusDesc), "available") && price != nil

		record := DayRecord{
			Date:        date,
			Price:       price,
			Unavailable: !available,
		}

		if currency := strings.TrimSpace(raw.Currency); currency != "" {
			record.Currency = &currency
		}

		days = append(days, record)
	}
	return days
}
