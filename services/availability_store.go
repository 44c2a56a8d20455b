package services

import (
	"context"
	"errors"
	"time"

	"rental-sync-server/models"
	"rental-sync-server/providers"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrTableNotReady signals that the availability table is missing or lacks
// required columns; callers degrade to empty results instead of failing.
var ErrTableNotReady = errors.New("availability table is not ready")

// AvailabilityStore is the sole reader/writer of availability_days rows.
type AvailabilityStore struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewAvailabilityStore(db *gorm.DB, log *logrus.Entry) *AvailabilityStore {
	return &AvailabilityStore{db: db, log: log}
}

// UpsertWindow replaces every row of a listing inside [windowStart, windowEnd]
// (both inclusive) with the given records, in one transaction. An empty batch
// still clears the window: an upstream that stops reporting a previously
// synced range means "no longer bookable", not "leave the stale rows alone".
// Records dated outside the window are skipped so the delete scope always
// covers what gets inserted.
func (s *AvailabilityStore) UpsertWindow(ctx context.Context, externalID string, listingID uint, records []providers.DayRecord, windowStart, windowEnd time.Time) (int, error) {
	if !s.TableReady() {
		return 0, ErrTableNotReady
	}

	inserted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ? AND date >= ? AND date <= ?",
			listingID, windowStart, windowEnd).Delete(&models.AvailabilityDay{}).Error; err != nil {
			return err
		}

		rows := make([]models.AvailabilityDay, 0, len(records))
		for _, record := range records {
			if record.Date.Before(windowStart) || record.Date.After(windowEnd) {
				s.log.WithFields(logrus.Fields{
					"ExternalID": externalID,
					"Date":       record.Date.Format(providers.DateLayout),
				}).Warn("dropping record outside sync window")
				continue
			}
			rows = append(rows, models.AvailabilityDay{
				ListingID:       listingID,
				ExternalID:      externalID,
				Date:            record.Date,
				Price:           record.Price,
				Currency:        record.Currency,
				Unavailable:     record.Unavailable,
				CheckinAllowed:  record.CheckinAllowed,
				CheckoutAllowed: record.CheckoutAllowed,
				MinStay:         record.MinStay,
				MaxStay:         record.MaxStay,
			})
		}

		if len(rows) == 0 {
			return nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		inserted = len(rows)
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"ExternalID":  externalID,
			"ListingID":   listingID,
			"WindowStart": windowStart.Format(providers.DateLayout),
			"WindowEnd":   windowEnd.Format(providers.DateLayout),
		}).WithError(err).Error("availability window write failed")
		return 0, err
	}

	return inserted, nil
}

// DeleteRowsForListing removes every availability row of a listing. Called
// from the listing delete hook.
func (s *AvailabilityStore) DeleteRowsForListing(ctx context.Context, listingID uint) error {
	err := s.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Delete(&models.AvailabilityDay{}).Error
	if err != nil {
		s.log.WithField("ListingID", listingID).WithError(err).Error("availability delete for listing failed")
	}
	return err
}

// PurgeOrphanRows removes rows whose listing no longer exists (hard-deleted or
// soft-deleted). Idempotent; run by the daily sweep and the admin endpoint.
func (s *AvailabilityStore) PurgeOrphanRows(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("listing_id NOT IN (?)", s.db.Model(&models.Listing{}).Select("id")).
		Delete(&models.AvailabilityDay{})
	if res.Error != nil {
		s.log.WithError(res.Error).Error("orphan purge failed")
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.WithField("Rows", res.RowsAffected).Info("purged orphaned availability rows")
	}
	return res.RowsAffected, nil
}

// TableReady reports whether the availability table exists with the columns
// the matching query depends on.
func (s *AvailabilityStore) TableReady() bool {
	migrator := s.db.Migrator()
	if !migrator.HasTable(&models.AvailabilityDay{}) {
		return false
	}
	for _, column := range []string{"listing_id", "external_id", "date", "price", "unavailable"} {
		if !migrator.HasColumn(&models.AvailabilityDay{}, column) {
			return false
		}
	}
	return true
}
