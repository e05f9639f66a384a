package models

import (
	"time"

	"github.com/magicmaxmagic/ScrappingBot/pkg/geo"
)

// Area is a named neighborhood polygon. (Name, City) is unique in the
// store; areas are loaded once from reference GeoJSON and rarely change.
type Area struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	City    string      `json:"city"`
	Polygon geo.Polygon `json:"polygon"`
}

// Listing is the persisted row: a normalized record plus the area
// reference and derived fields computed at write time.
type Listing struct {
	ID          int64     `json:"id"`
	URLHash     string    `json:"url_hash"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       *float64  `json:"price"`
	Currency    string    `json:"currency"`
	AreaSqm     *float64  `json:"area_sqm"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Bedrooms    *int      `json:"bedrooms"`
	Bathrooms   *float64  `json:"bathrooms"`
	ListingType string    `json:"listing_type"`
	MonthlyRent *float64  `json:"monthly_rent,omitempty"`
	Source      string    `json:"source,omitempty"`
	AreaID      *int64    `json:"area_id"`
	PricePerSqm *float64  `json:"price_per_sqm"`
	YearlyYield *float64  `json:"yearly_yield"`
	IsActive    bool      `json:"is_active"`
	ScrapedAt   time.Time `json:"scraped_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
