package geo

import "sort"

// entry is one indexed polygon with its owning area ID.
type entry struct {
	id   int64
	poly Polygon
	area float64
}

// Index holds area polygons for point lookups. It is read-only after
// construction and safe for concurrent Locate calls.
type Index struct {
	entries []entry
}

// NewIndex creates an empty polygon index.
func NewIndex() *Index {
	return &Index{}
}

// Add registers a polygon under the given area ID.
func (ix *Index) Add(id int64, poly Polygon) {
	ix.entries = append(ix.entries, entry{id: id, poly: poly, area: poly.Area()})
}

// Len returns the number of indexed polygons.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Locate returns the ID of the area containing pt. When several polygons
// overlap the smallest one wins; exact area ties go to the lowest ID so
// the result never depends on insertion order.
func (ix *Index) Locate(pt Point) (int64, bool) {
	var matches []entry

	for _, e := range ix.entries {
		if e.poly.Contains(pt) {
			matches = append(matches, e)
		}
	}

	if len(matches) == 0 {
		return 0, false
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].area != matches[j].area {
			return matches[i].area < matches[j].area
		}

		return matches[i].id < matches[j].id
	})

	return matches[0].id, true
}
