package services

import (
	"context"
	"time"

	"rental-sync-server/models"
	"rental-sync-server/providers"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PriceQuote is the "from £X" projection for one listing. Currency is the
// listing's configured display currency: nightly rows may carry no currency
// at all from one upstream, so the aggregation assumes a single operating
// currency (known limitation).
type PriceQuote struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// SearchParams are the public search filters. Empty dates mean browse mode:
// the availability filter is skipped entirely.
type SearchParams struct {
	Checkin   string
	Checkout  string
	Guests    int
	Bedrooms  int
	Bathrooms float64
}

// AvailabilityQuery answers date-range availability and price questions from
// the store's rows only; it never talks to the upstreams.
type AvailabilityQuery struct {
	db    *gorm.DB
	store *AvailabilityStore
	log   *logrus.Entry
}

func NewAvailabilityQuery(db *gorm.DB, store *AvailabilityStore, log *logrus.Entry) *AvailabilityQuery {
	return &AvailabilityQuery{db: db, store: store, log: log}
}

// AvailableListingIDs returns the listings bookable for every night in
// [checkin, checkout). Strict match: a listing misses the cut if even one
// night in range has no explicit available row, because a missing row means
// "unknown", never "assume available". Degenerate or unparsable ranges and a
// missing table return an empty set, not an error.
func (q *AvailabilityQuery) AvailableListingIDs(ctx context.Context, checkinStr, checkoutStr string) ([]uint, error) {
	checkin, err := time.Parse(providers.DateLayout, checkinStr)
	if err != nil {
		return []uint{}, nil
	}
	checkout, err := time.Parse(providers.DateLayout, checkoutStr)
	if err != nil {
		return []uint{}, nil
	}

	nights := int(checkout.Sub(checkin).Hours() / 24)
	if nights <= 0 {
		return []uint{}, nil
	}

	if !q.store.TableReady() {
		return []uint{}, nil
	}

	var ids []uint
	err = q.db.WithContext(ctx).
		Model(&models.AvailabilityDay{}).
		Where("date >= ? AND date < ? AND unavailable = ?", checkin, checkout, false).
		Group("listing_id").
		Having("COUNT(*) = ?", nights).
		Pluck("listing_id", &ids).Error
	if err != nil {
		q.log.WithError(err).Error("availability match query failed")
		return []uint{}, nil
	}

	return ids, nil
}

// MinPrices computes the cheapest available night per listing, scoped to
// [checkin, checkout) when both dates parse, all-time otherwise. Listings
// without any priced available night are simply absent from the map; callers
// render a placeholder.
func (q *AvailabilityQuery) MinPrices(ctx context.Context, listingIDs []uint, checkinStr, checkoutStr string) (map[uint]PriceQuote, error) {
	quotes := make(map[uint]PriceQuote, len(listingIDs))
	if len(listingIDs) == 0 || !q.store.TableReady() {
		return quotes, nil
	}

	tx := q.db.WithContext(ctx).
		Model(&models.AvailabilityDay{}).
		Select("listing_id, MIN(price) AS min_price").
		Where("listing_id IN ?", listingIDs).
		Where("unavailable = ? AND price IS NOT NULL", false)

	checkin, checkinErr := time.Parse(providers.DateLayout, checkinStr)
	checkout, checkoutErr := time.Parse(providers.DateLayout, checkoutStr)
	if checkinErr == nil && checkoutErr == nil && checkout.After(checkin) {
		tx = tx.Where("date >= ? AND date < ?", checkin, checkout)
	}

	var rows []struct {
		ListingID uint
		MinPrice  float64
	}
	if err := tx.Group("listing_id").Scan(&rows).Error; err != nil {
		q.log.WithError(err).Error("min price query failed")
		return quotes, nil
	}

	currencies := q.listingCurrencies(ctx, listingIDs)
	for _, row := range rows {
		quotes[row.ListingID] = PriceQuote{
			Price:    row.MinPrice,
			Currency: currencies[row.ListingID],
		}
	}

	return quotes, nil
}

// SearchListings intersects capacity filters on the listing attributes with
// the date candidate set when dates are present. Failures degrade to "no
// results"; the public search surface never exposes internal errors. Price
// quotes are a separate call (MinPrices) so handlers can memoize them.
func (q *AvailabilityQuery) SearchListings(ctx context.Context, params SearchParams) ([]models.Listing, error) {
	tx := q.db.WithContext(ctx).Model(&models.Listing{}).Where("status = ?", "published")

	if params.Guests > 0 {
		tx = tx.Where("guests >= ?", params.Guests)
	}
	if params.Bedrooms > 0 {
		tx = tx.Where("bedrooms >= ?", params.Bedrooms)
	}
	if params.Bathrooms > 0 {
		tx = tx.Where("bathrooms >= ?", params.Bathrooms)
	}

	dated := params.Checkin != "" || params.Checkout != ""
	if dated {
		ids, _ := q.AvailableListingIDs(ctx, params.Checkin, params.Checkout)
		if len(ids) == 0 {
			return []models.Listing{}, nil
		}
		tx = tx.Where("id IN ?", ids)
	}

	var listings []models.Listing
	if err := tx.Order("title ASC").Find(&listings).Error; err != nil {
		q.log.WithError(err).Error("listing search query failed")
		return []models.Listing{}, nil
	}

	return listings, nil
}

func (q *AvailabilityQuery) listingCurrencies(ctx context.Context, listingIDs []uint) map[uint]string {
	currencies := make(map[uint]string, len(listingIDs))
	var rows []struct {
		ID       uint
		Currency string
	}
	if err := q.db.WithContext(ctx).
		Model(&models.Listing{}).
		Select("id, currency").
		Where("id IN ?", listingIDs).
		Scan(&rows).Error; err != nil {
		q.log.WithError(err).Warn("listing currency lookup failed")
		return currencies
	}
	for _, row := range rows {
		currencies[row.ID] = row.Currency
	}
	return currencies
}
