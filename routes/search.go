package routes

import (
	"encoding/json"

	"rental-sync-server/models"
	"rental-sync-server/services"

	"github.com/kataras/iris/v12"
)

// SearchHandler serves the public search and map endpoints. Internal errors
// never surface here: the query service degrades to empty result sets and the
// handlers render those as "no properties found".
type SearchHandler struct {
	Query  *services.AvailabilityQuery
	Quotes *services.QuoteCache
}

type searchResult struct {
	*models.Listing
	FromPrice *services.PriceQuote `json:"fromPrice"`
}

// The embedded listing carries its own MarshalJSON (for the images array), so
// the quote has to be merged in by hand or it would be dropped.
func (r searchResult) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Listing)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["fromPrice"] = r.FromPrice
	return json.Marshal(fields)
}

type mapMarker struct {
	ID        uint                 `json:"id"`
	Title     string               `json:"title"`
	Lat       float32              `json:"lat"`
	Lng       float32              `json:"lng"`
	FromPrice *services.PriceQuote `json:"fromPrice"`
}

func (h *SearchHandler) searchParams(ctx iris.Context) services.SearchParams {
	return services.SearchParams{
		Checkin:   ctx.URLParam("checkin"),
		Checkout:  ctx.URLParam("checkout"),
		Guests:    ctx.URLParamIntDefault("guests", 0),
		Bedrooms:  ctx.URLParamIntDefault("bedrooms", 0),
		Bathrooms: ctx.URLParamFloat64Default("bathrooms", 0),
	}
}

// Search returns published listings matching the capacity filters and, when
// dates are given, bookable for every night in [checkin, checkout).
func (h *SearchHandler) Search(ctx iris.Context) {
	params := h.searchParams(ctx)

	listings, err := h.Query.SearchListings(ctx.Request().Context(), params)
	if err != nil {
		listings = []models.Listing{}
	}

	quotes := h.quotesFor(ctx, listings, params)

	results := make([]searchResult, 0, len(listings))
	for i := range listings {
		results = append(results, searchResult{
			Listing:   &listings[i],
			FromPrice: quoteOrNil(quotes, listings[i].ID),
		})
	}

	ctx.JSON(iris.Map{
		"success": true,
		"data":    results,
		"count":   len(results),
	})
}

// MapMarkers returns the same candidate set trimmed down to map pins.
func (h *SearchHandler) MapMarkers(ctx iris.Context) {
	params := h.searchParams(ctx)

	listings, err := h.Query.SearchListings(ctx.Request().Context(), params)
	if err != nil {
		listings = []models.Listing{}
	}

	quotes := h.quotesFor(ctx, listings, params)

	markers := make([]mapMarker, 0, len(listings))
	for _, listing := range listings {
		markers = append(markers, mapMarker{
			ID:        listing.ID,
			Title:     listing.Title,
			Lat:       listing.Lat,
			Lng:       listing.Lng,
			FromPrice: quoteOrNil(quotes, listing.ID),
		})
	}

	ctx.JSON(iris.Map{
		"success": true,
		"data":    markers,
	})
}

func (h *SearchHandler) quotesFor(ctx iris.Context, listings []models.Listing, params services.SearchParams) map[uint]services.PriceQuote {
	ids := make([]uint, 0, len(listings))
	for _, listing := range listings {
		ids = append(ids, listing.ID)
	}
	return h.Quotes.MinPrices(ctx.Request().Context(), h.Query, ids, params.Checkin, params.Checkout)
}

func quoteOrNil(quotes map[uint]services.PriceQuote, id uint) *services.PriceQuote {
	if quote, ok := quotes[id]; ok {
		return &quote
	}
	return nil
}
