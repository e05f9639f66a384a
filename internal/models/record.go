// Package models defines the record types flowing through the ETL pipeline.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawRecord is an untyped scraped record as produced by the crawler.
// It is a boundary type only: the transformer converts it to a
// NormalizedRecord before any business logic runs.
type RawRecord map[string]any

// String returns the value for key rendered as a trimmed string,
// or "" when the key is absent or nil.
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}

	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// Float returns the value for key as a float64 when it is numeric or a
// parseable numeric string.
func (r RawRecord) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// Has reports whether key is present with a non-nil, non-empty value.
func (r RawRecord) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}

	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}

	return true
}

// NormalizedRecord is a RawRecord after unit conversion and cleaning.
// Pointer fields distinguish "unknown" from zero.
type NormalizedRecord struct {
	IdentityKey string     `json:"identity_key"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       *float64   `json:"price"`
	Currency    string     `json:"currency"`
	AreaSqm     *float64   `json:"area_sqm"`
	Address     string     `json:"address,omitempty"`
	City        string     `json:"city,omitempty"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Bedrooms    *int       `json:"bedrooms"`
	Bathrooms   *float64   `json:"bathrooms"`
	ListingType string     `json:"listing_type"`
	MonthlyRent *float64   `json:"monthly_rent,omitempty"`
	Source      string     `json:"source,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (n *NormalizedRecord) HasCoordinates() bool {
	return n.Latitude != nil && n.Longitude != nil
}

// FieldCount returns the number of populated fields. The deduplicator
// uses it to prefer the more complete of two records sharing a key.
func (n *NormalizedRecord) FieldCount() int {
	count := 0

	for _, set := range []bool{
		n.URL != "",
		n.Title != "",
		n.Description != "",
		n.Price != nil,
		n.Currency != "",
		n.AreaSqm != nil,
		n.Address != "",
		n.City != "",
		n.Latitude != nil,
		n.Longitude != nil,
		n.Bedrooms != nil,
		n.Bathrooms != nil,
		n.ListingType != "",
		n.MonthlyRent != nil,
		n.Source != "",
	} {
		if set {
			count++
		}
	}

	return count
}

// Validation outcome reason codes.
const (
	ReasonMissingURL      = "missing_url"
	ReasonMissingPrice    = "missing_price"
	ReasonMissingCurrency = "missing_currency"
	ReasonInvalidPrice    = "invalid_price"
	ReasonInvalidArea     = "invalid_area"
	ReasonInvalidBedrooms = "invalid_bedrooms"
	ReasonInvalidBaths    = "invalid_bathrooms"
	ReasonInvalidType     = "invalid_listing_type"
	ReasonInvalidCoords   = "invalid_coordinates"
	ReasonMissingArea     = "missing_area"
	ReasonMissingCoords   = "missing_coordinates"
)

// ValidatedRecord is a NormalizedRecord annotated with a validation
// decision. Failed records are kept for the run report, never dropped.
type ValidatedRecord struct {
	NormalizedRecord

	Valid    bool     `json:"valid"`
	Reasons  []string `json:"reasons,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
