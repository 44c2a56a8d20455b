package routes

import (
	"encoding/json"
	"strconv"

	"rental-sync-server/models"
	"rental-sync-server/services"
	"rental-sync-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingHandler owns the admin listing CRUD surface. Listings normally come
// in through the import pipeline; these endpoints exist for manual
// registration and cleanup.
type ListingHandler struct {
	DB    *gorm.DB
	Store *services.AvailabilityStore
}

type CreateListingInput struct {
	ExternalID   string   `json:"externalID" validate:"required"`
	Provider     string   `json:"provider" validate:"required,oneof=pms pagebuilder"`
	Title        string   `json:"title" validate:"required,max=256"`
	Description  string   `json:"description"`
	AddressLine1 string   `json:"addressLine1"`
	AddressLine2 string   `json:"addressLine2"`
	City         string   `json:"city"`
	Country      string   `json:"country"`
	Lat          float32  `json:"lat"`
	Lng          float32  `json:"lng"`
	Guests       int      `json:"guests" validate:"min=0"`
	Bedrooms     int      `json:"bedrooms" validate:"min=0"`
	Bathrooms    float32  `json:"bathrooms" validate:"min=0"`
	Currency     string   `json:"currency" validate:"omitempty,len=3"`
	Amenities    []string `json:"amenities"`
	Images       []string `json:"images"`
	Status       string   `json:"status" validate:"omitempty,oneof=published draft"`
}

func (h *ListingHandler) CreateListing(ctx iris.Context) {
	var input CreateListingInput

	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	// Ensure arrays are never null
	amenities := input.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	amenitiesJSON, _ := json.Marshal(amenities)

	images := input.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, _ := json.Marshal(images)

	status := input.Status
	if status == "" {
		status = "published"
	}

	listing := models.Listing{
		ExternalID:   input.ExternalID,
		Provider:     input.Provider,
		Title:        input.Title,
		Description:  input.Description,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		Country:      input.Country,
		Lat:          input.Lat,
		Lng:          input.Lng,
		Guests:       input.Guests,
		Bedrooms:     input.Bedrooms,
		Bathrooms:    input.Bathrooms,
		Currency:     input.Currency,
		Amenities:    datatypes.JSON(amenitiesJSON),
		Images:       string(imagesJSON),
		Status:       status,
	}

	result := h.DB.Create(&listing)
	if result.Error != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to create listing"})
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(listing)
}

func (h *ListingHandler) GetListing(ctx iris.Context) {
	listing, ok := h.listingFromPath(ctx)
	if !ok {
		return
	}
	ctx.JSON(listing)
}

func (h *ListingHandler) ListListings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	var total int64
	h.DB.Model(&models.Listing{}).Count(&total)

	var listings []models.Listing
	if err := h.DB.Order("id ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&listings).Error; err != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to list listings"})
		return
	}

	utils.JSONPage(ctx, listings, page, perPage, total)
}

// DeleteListing soft-deletes the listing and hard-deletes its availability
// rows, so the search index stops matching it immediately.
func (h *ListingHandler) DeleteListing(ctx iris.Context) {
	listing, ok := h.listingFromPath(ctx)
	if !ok {
		return
	}

	if err := h.DB.Delete(listing).Error; err != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to delete listing"})
		return
	}

	if err := h.Store.DeleteRowsForListing(ctx.Request().Context(), listing.ID); err != nil {
		// rows stay behind until the next orphan purge; deletion itself succeeded
		ctx.JSON(iris.Map{"success": true, "message": "Listing deleted, availability cleanup deferred"})
		utils.Audit(h.DB, ctx, models.SyncAudit{
			Action:     "listing_delete",
			ListingID:  listing.ID,
			ExternalID: listing.ExternalID,
			Detail:     "availability cleanup deferred to orphan purge",
		})
		return
	}

	utils.Audit(h.DB, ctx, models.SyncAudit{
		Action:     "listing_delete",
		ListingID:  listing.ID,
		ExternalID: listing.ExternalID,
	})

	ctx.JSON(iris.Map{"success": true, "message": "Listing and availability rows deleted"})
}

func (h *ListingHandler) listingFromPath(ctx iris.Context) (*models.Listing, bool) {
	id, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "Invalid listing ID"})
		return nil, false
	}

	var listing models.Listing
	if err := h.DB.First(&listing, id).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Listing not found"})
		return nil, false
	}

	return &listing, true
}
