package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/magicmaxmagic/ScrappingBot/internal/models"
)

// Listing kinds accepted downstream.
const (
	ListingTypeSale = "sale"
	ListingTypeRent = "rent"
)

// Transformer converts raw scraped records into normalized records.
// It is stateless apart from the configured fallback currency and safe
// for concurrent use.
type Transformer struct {
	fallbackCurrency string
}

// NewTransformer creates a transformer with the given fallback currency.
func NewTransformer(fallbackCurrency string) *Transformer {
	if fallbackCurrency == "" {
		fallbackCurrency = "EUR"
	}

	return &Transformer{fallbackCurrency: strings.ToUpper(fallbackCurrency)}
}

// Transform converts one raw record. Individual field parse failures
// yield null fields and a parse note; the record itself always comes
// through so the validator can decide its fate.
func (t *Transformer) Transform(raw models.RawRecord) (models.NormalizedRecord, []string) {
	var notes []string

	rec := models.NormalizedRecord{
		URL:         raw.String("url"),
		Title:       NormalizeText(raw.String("title")),
		Description: NormalizeText(raw.String("description")),
		Address:     TitleCase(NormalizeText(raw.String("address"))),
		City:        NormalizeText(raw.String("city")),
		Source:      raw.String("source"),
		Currency:    NormalizeCurrency(raw.String("currency"), t.fallbackCurrency),
	}

	if priceStr := raw.String("price"); priceStr != "" {
		rec.Price = ParsePrice(priceStr)
		if rec.Price == nil {
			notes = append(notes, fmt.Sprintf("unparseable price %q", priceStr))
		}
	}

	rec.AreaSqm = t.normalizeArea(raw, &notes)

	rec.Latitude, rec.Longitude = t.normalizeCoordinates(raw, &notes)

	rec.Bedrooms = safeInt(raw.String("bedrooms"))
	rec.Bathrooms = safeFloat(raw.String("bathrooms"))

	rec.ListingType = strings.ToLower(raw.String("listing_type"))
	if rec.ListingType == "" {
		rec.ListingType = ListingTypeSale
	}

	if rentStr := raw.String("monthly_rent"); rentStr != "" {
		rec.MonthlyRent = ParsePrice(rentStr)
		if rec.MonthlyRent == nil {
			notes = append(notes, fmt.Sprintf("unparseable monthly rent %q", rentStr))
		}
	}

	rec.ScrapedAt = parseScrapedAt(raw.String("scraped_at"))
	rec.IdentityKey = IdentityKey(&rec)

	return rec, notes
}

func (t *Transformer) normalizeArea(raw models.RawRecord, notes *[]string) *float64 {
	areaStr := raw.String("area")
	if areaStr == "" {
		return nil
	}

	area := ParseArea(areaStr, raw.String("area_unit"))
	if area == nil {
		*notes = append(*notes, fmt.Sprintf("unparseable area %q", areaStr))
		return nil
	}

	return area
}

func (t *Transformer) normalizeCoordinates(raw models.RawRecord, notes *[]string) (*float64, *float64) {
	lat, latOK := raw.Float("latitude")
	lon, lonOK := raw.Float("longitude")

	if !latOK || !lonOK {
		return nil, nil
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		*notes = append(*notes, fmt.Sprintf("coordinates out of range (%f, %f)", lat, lon))
		return nil, nil
	}

	return &lat, &lon
}

// IdentityKey computes the stable content hash identifying one logical
// listing across re-scrapes: normalized title, normalized address (URL
// when the address is missing), and the price rounded to whole units.
func IdentityKey(rec *models.NormalizedRecord) string {
	location := rec.Address
	if location == "" {
		location = rec.URL
	}

	price := ""
	if rec.Price != nil {
		price = strconv.FormatInt(int64(math.Round(*rec.Price)), 10)
	}

	input := strings.ToLower(NormalizeText(rec.Title)) + "|" +
		strings.ToLower(NormalizeText(location)) + "|" +
		price

	sum := sha256.Sum256([]byte(input))

	return hex.EncodeToString(sum[:])
}

// safeInt parses an integer from free text, accepting decimal input
// like "2.0". Returns nil on failure.
func safeInt(s string) *int {
	f := safeFloat(s)
	if f == nil {
		return nil
	}

	n := int(*f)

	return &n
}

// safeFloat parses a float from free text, tolerating a comma decimal
// separator. Returns nil on failure.
func safeFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}

	return &f
}

// parseScrapedAt accepts RFC3339 or date-only timestamps and falls back
// to the current time so every record carries a scrape time.
func parseScrapedAt(s string) time.Time {
	if s != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
	}

	return time.Now().UTC()
}
