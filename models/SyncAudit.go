package models

import (
	"time"

	"gorm.io/gorm"
)

// SyncAudit records every admin-triggered calendar sync, purge and listing
// removal, with the window and row counts involved.
type SyncAudit struct {
	gorm.Model
	AdminUserID uint       `json:"adminUserID" gorm:"index"`
	RunID       string     `json:"runID" gorm:"type:varchar(40);index"`
	Action      string     `json:"action" gorm:"type:varchar(40);not null;index"` // calendar_sync, orphan_purge, listing_delete
	ListingID   uint       `json:"listingID" gorm:"index"`
	ExternalID  string     `json:"externalID"`
	WindowStart *time.Time `json:"windowStart" gorm:"type:date"`
	WindowEnd   *time.Time `json:"windowEnd" gorm:"type:date"`
	RowsWritten int        `json:"rowsWritten"`
	Detail      string     `json:"detail" gorm:"type:text"`
	IPAddress   string     `json:"ipAddress"`
}
