// Package dedup collapses normalized records sharing an identity key.
package dedup

import (
	"sort"

	"github.com/magicmaxmagic/ScrappingBot/internal/models"
)

// Dedup returns at most one record per identity key. The winner among
// records sharing a key is chosen by a strict total order, so the result
// set is the same for any permutation of the input. Output is sorted by
// identity key.
func Dedup(records []models.NormalizedRecord) []models.NormalizedRecord {
	if len(records) == 0 {
		return nil
	}

	winners := make(map[string]models.NormalizedRecord, len(records))

	for _, rec := range records {
		current, seen := winners[rec.IdentityKey]
		if !seen || beats(&rec, &current) {
			winners[rec.IdentityKey] = rec
		}
	}

	result := make([]models.NormalizedRecord, 0, len(winners))
	for _, rec := range winners {
		result = append(result, rec)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].IdentityKey < result[j].IdentityKey
	})

	return result
}

// beats reports whether a should replace b as the surviving record.
// Preference: more populated fields, then more recently scraped, then
// the lexicographically smaller URL as a deterministic last resort.
func beats(a, b *models.NormalizedRecord) bool {
	ac, bc := a.FieldCount(), b.FieldCount()
	if ac != bc {
		return ac > bc
	}

	if !a.ScrapedAt.Equal(b.ScrapedAt) {
		return a.ScrapedAt.After(b.ScrapedAt)
	}

	return a.URL < b.URL
}

// Duplicates returns, for every identity key occurring more than once,
// the indices of its occurrences in input order.
func Duplicates(records []models.NormalizedRecord) map[string][]int {
	byKey := make(map[string][]int)

	for i, rec := range records {
		byKey[rec.IdentityKey] = append(byKey[rec.IdentityKey], i)
	}

	for key, indices := range byKey {
		if len(indices) < 2 {
			delete(byKey, key)
		}
	}

	return byKey
}
