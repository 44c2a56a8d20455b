package routes

import (
	"io"
	"strconv"

	"rental-sync-server/models"
	"rental-sync-server/services"
	"rental-sync-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// SyncHandler owns the admin calendar-sync surface: per-listing sync, the
// orphan purge and the audit trail.
type SyncHandler struct {
	DB       *gorm.DB
	Store    *services.AvailabilityStore
	Importer *services.CalendarImporter
}

type SyncCalendarInput struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// SyncListingCalendar runs one calendar sync for one listing. The body is
// optional; without it the importer uses its default window.
func (h *SyncHandler) SyncListingCalendar(ctx iris.Context) {
	id, err := strconv.ParseUint(ctx.Params().Get("id"), 10, 32)
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"message": "Invalid listing ID"})
		return
	}

	var listing models.Listing
	if err := h.DB.First(&listing, id).Error; err != nil {
		ctx.StatusCode(iris.StatusNotFound)
		ctx.JSON(iris.Map{"message": "Listing not found"})
		return
	}

	var input SyncCalendarInput
	if err := ctx.ReadJSON(&input); err != nil && err != io.EOF && ctx.GetContentLength() > 0 {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, err := h.Importer.SyncCalendar(ctx.Request().Context(), &listing, input.From, input.To)
	if err != nil {
		ctx.StatusCode(iris.StatusUnprocessableEntity)
		ctx.JSON(iris.Map{"message": err.Error()})
		return
	}

	windowStart := result.WindowStart
	windowEnd := result.WindowEnd
	utils.Audit(h.DB, ctx, models.SyncAudit{
		RunID:       result.RunID,
		Action:      "calendar_sync",
		ListingID:   listing.ID,
		ExternalID:  listing.ExternalID,
		WindowStart: &windowStart,
		WindowEnd:   &windowEnd,
		RowsWritten: result.RowsWritten,
	})

	ctx.JSON(iris.Map{
		"success": true,
		"data":    result,
	})
}

// PurgeOrphans removes availability rows whose listing is gone.
func (h *SyncHandler) PurgeOrphans(ctx iris.Context) {
	removed, err := h.Store.PurgeOrphanRows(ctx.Request().Context())
	if err != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"message": "Failed to purge orphaned rows"})
		return
	}

	utils.Audit(h.DB, ctx, models.SyncAudit{
		Action:      "orphan_purge",
		RowsWritten: int(removed),
	})

	ctx.JSON(iris.Map{
		"success":     true,
		"rowsRemoved": removed,
	})
}

// ListAudits returns recent sync/purge audit rows, newest first.
func (h *SyncHandler) ListAudits(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	var total int64
	h.DB.Model(&models.SyncAudit{}).Count(&total)

	var audits []models.SyncAudit
	if err := h.DB.Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&audits).Error; err != nil {
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "Failed to list audits"})
		return
	}

	utils.JSONPage(ctx, audits, page, perPage, total)
}
