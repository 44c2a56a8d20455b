package models

import (
	"time"
)

// AvailabilityDay is one row per listing per calendar night. The row is keyed by
// (external_id, date) so that repeated syncs of the same window stay idempotent.
// No gorm.Model here: window replacement must physically remove rows, soft deletes
// would leave tombstones that collide with the unique index on re-insert.
type AvailabilityDay struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	ListingID  uint      `json:"listingID" gorm:"not null;index:idx_availability_listing_date"`
	ExternalID string    `json:"externalID" gorm:"not null;uniqueIndex:idx_availability_external_date"`
	Date       time.Time `json:"date" gorm:"type:date;not null;uniqueIndex:idx_availability_external_date;index:idx_availability_listing_date;index"`

	Price    *float64 `json:"price"`
	Currency *string  `json:"currency" gorm:"type:varchar(8)"`

	// false means bookable that night. A night without a price is never bookable.
	Unavailable bool `json:"unavailable" gorm:"not null;default:false"`

	// Policy flags as reported upstream. nil means the provider said nothing,
	// which is not the same as false.
	CheckinAllowed  *bool `json:"checkinAllowed"`
	CheckoutAllowed *bool `json:"checkoutAllowed"`
	MinStay         *int  `json:"minStay"`
	MaxStay         *int  `json:"maxStay"`

	UpdatedAt time.Time `json:"updatedAt"`
}
