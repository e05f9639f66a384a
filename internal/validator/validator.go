// Package validator decides pass/fail for normalized records against
// structural and business rules.
package validator

import (
	"github.com/magicmaxmagic/ScrappingBot/internal/models"
	"github.com/magicmaxmagic/ScrappingBot/internal/normalizer"
)

// Bedroom and bathroom counts outside this range are scraper noise.
const (
	maxBedrooms  = 50
	maxBathrooms = 50
)

// Validator applies the record schema. In strict mode borderline cases
// (missing area, missing coordinates) fail instead of passing with a
// warning.
type Validator struct {
	strict bool
}

// NewValidator creates a validator. strict controls borderline handling.
func NewValidator(strict bool) *Validator {
	return &Validator{strict: strict}
}

// Validate decides one record. It never returns an error: malformed
// input produces a fail decision with machine-readable reasons.
func (v *Validator) Validate(rec models.NormalizedRecord) models.ValidatedRecord {
	out := models.ValidatedRecord{NormalizedRecord: rec}

	var reasons, warnings []string

	if rec.URL == "" {
		reasons = append(reasons, models.ReasonMissingURL)
	}

	switch {
	case rec.Price == nil:
		reasons = append(reasons, models.ReasonMissingPrice)
	case *rec.Price <= 0:
		reasons = append(reasons, models.ReasonInvalidPrice)
	}

	if rec.Currency == "" {
		reasons = append(reasons, models.ReasonMissingCurrency)
	}

	if rec.AreaSqm != nil && *rec.AreaSqm <= 0 {
		reasons = append(reasons, models.ReasonInvalidArea)
	}

	if rec.Bedrooms != nil && (*rec.Bedrooms < 0 || *rec.Bedrooms > maxBedrooms) {
		reasons = append(reasons, models.ReasonInvalidBedrooms)
	}

	if rec.Bathrooms != nil && (*rec.Bathrooms < 0 || *rec.Bathrooms > maxBathrooms) {
		reasons = append(reasons, models.ReasonInvalidBaths)
	}

	if rec.ListingType != normalizer.ListingTypeSale && rec.ListingType != normalizer.ListingTypeRent {
		reasons = append(reasons, models.ReasonInvalidType)
	}

	if (rec.Latitude == nil) != (rec.Longitude == nil) {
		reasons = append(reasons, models.ReasonInvalidCoords)
	}

	if rec.AreaSqm == nil {
		warnings = append(warnings, models.ReasonMissingArea)
	}

	if !rec.HasCoordinates() {
		warnings = append(warnings, models.ReasonMissingCoords)
	}

	if v.strict {
		reasons = append(reasons, warnings...)
		warnings = nil
	}

	out.Reasons = reasons
	out.Warnings = warnings
	out.Valid = len(reasons) == 0

	return out
}

// ValidateBatch decides a batch and splits it into pass and fail sets.
// Fail records are returned, not dropped; the orchestrator records them.
func (v *Validator) ValidateBatch(records []models.NormalizedRecord) (passed, failed []models.ValidatedRecord) {
	for _, rec := range records {
		decided := v.Validate(rec)
		if decided.Valid {
			passed = append(passed, decided)
		} else {
			failed = append(failed, decided)
		}
	}

	return passed, failed
}
