package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Listing struct {
	gorm.Model
	ExternalID  string `json:"externalID" gorm:"not null;uniqueIndex"`
	Provider    string `json:"provider" gorm:"type:varchar(20);not null;index"` // pms, pagebuilder
	Title       string `json:"title"`
	Description string `json:"description"`

	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 string  `json:"addressLine2"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	Lat          float32 `json:"lat"`
	Lng          float32 `json:"lng"`

	Guests    int     `json:"guests"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms float32 `json:"bathrooms"`

	Currency  string         `json:"currency"` // single operating currency, used for display
	Amenities datatypes.JSON `json:"amenities" gorm:"type:jsonb"`
	Images    string         `json:"images"` // JSON array of URLs

	Status string `json:"status" gorm:"type:varchar(20);default:'published';index"` // published, draft
}

// Custom JSON marshaling to convert the Images string to an array
func (l *Listing) MarshalJSON() ([]byte, error) {
	type Alias Listing
	aux := &struct {
		Images []string `json:"images"`
		*Alias
	}{
		Images: []string{},
		Alias:  (*Alias)(l),
	}

	if l.Images != "" {
		var images []string
		if err := json.Unmarshal([]byte(l.Images), &images); err == nil {
			aux.Images = images
		}
	}

	return json.Marshal(aux)
}
