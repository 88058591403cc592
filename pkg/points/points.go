// Package points validates raw API items and turns them into renderable map points.
package points

import (
	"github.com/Sternrassler/inpost-airmap/pkg/metrics"
	"github.com/Sternrassler/inpost-airmap/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Field names in the upstream item shape.
const (
	FieldCategory  = "air_index_level"
	FieldLocation  = "location"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
)

var pointsDroppedTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
	Name: "airmap_points_dropped_total",
	Help: "Raw items discarded by the point filter by reason",
}, []string{"reason"})

// DropReason explains why an item did not become a point.
type DropReason string

const (
	DropMissingCategory DropReason = "missing_category"
	DropMissingLocation DropReason = "missing_location"
	DropInvalidLocation DropReason = "invalid_location"
	DropUnknownCategory DropReason = "unknown_category"
)

// Point is a validated, palette-matched geographic point.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"category"`
	Color     string  `json:"color"`
}

// Stats summarizes one Normalize pass.
type Stats struct {
	Input   int
	Output  int
	Dropped map[DropReason]int
}

// Normalize converts raw items into points, silently discarding items without
// a category, without a complete coordinate pair, or whose category is not in
// the palette.
func Normalize(items []pagination.RawItem, palette Palette) []Point {
	out, _ := NormalizeWithStats(items, palette)
	return out
}

// NormalizeWithStats is Normalize plus a per-reason account of dropped items.
func NormalizeWithStats(items []pagination.RawItem, palette Palette) ([]Point, Stats) {
	stats := Stats{Input: len(items), Dropped: make(map[DropReason]int)}
	out := make([]Point, 0, len(items))

	for _, item := range items {
		point, reason := normalizeItem(item, palette)
		if reason != "" {
			stats.Dropped[reason]++
			pointsDroppedTotal.WithLabelValues(string(reason)).Inc()
			continue
		}
		out = append(out, point)
	}

	stats.Output = len(out)
	return out, stats
}

func normalizeItem(item pagination.RawItem, palette Palette) (Point, DropReason) {
	category, ok := item[FieldCategory].(string)
	if !ok {
		return Point{}, DropMissingCategory
	}

	location, ok := item[FieldLocation].(map[string]any)
	if !ok {
		return Point{}, DropMissingLocation
	}
	lat, latOK := location[FieldLatitude].(float64)
	lon, lonOK := location[FieldLongitude].(float64)
	if !latOK || !lonOK {
		return Point{}, DropMissingLocation
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Point{}, DropInvalidLocation
	}

	color, ok := palette.Color(category)
	if !ok {
		return Point{}, DropUnknownCategory
	}

	return Point{
		Latitude:  lat,
		Longitude: lon,
		Category:  category,
		Color:     color,
	}, ""
}
