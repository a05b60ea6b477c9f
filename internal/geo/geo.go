// Package geo maps reports onto geographic point sets: normalized weighted
// points for an external heatmap renderer, and proximity lookups for the
// "similar reports nearby" submission flow.
package geo

import (
	"math"
	"sort"

	"civicwatch/internal/domain"
)

// WeightedPoint is the single normalized point shape handed to renderers.
type WeightedPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"`
}

// WeightedPoints converts reports to heatmap points. Weight is the priority
// score normalized by scaleMax and clamped to [0, 1]. Reports without a
// valid location are skipped. An empty input yields an empty slice.
func WeightedPoints(reports []domain.Report, scaleMax float64) []WeightedPoint {
	points := make([]WeightedPoint, 0, len(reports))
	for _, r := range reports {
		if !r.Location.Valid() {
			continue
		}
		w := 0.0
		if scaleMax > 0 {
			w = r.PriorityScore / scaleMax
		}
		if w < 0 {
			w = 0
		} else if w > 1 {
			w = 1
		}
		points = append(points, WeightedPoint{Lat: r.Location.Lat, Lng: r.Location.Lng, Weight: w})
	}
	return points
}

// Neighbor pairs a report with its distance from a lookup origin.
type Neighbor struct {
	Report   domain.Report `json:"report"`
	Distance float64       `json:"distance_m"`
}

const earthRadiusM = 6371000

// Nearby returns the unresolved reports within radiusM meters of origin,
// closest first. Reports with invalid locations are skipped. Ties on
// distance break by id so the order is deterministic.
func Nearby(reports []domain.Report, origin domain.Location, radiusM float64) []Neighbor {
	neighbors := make([]Neighbor, 0)
	if !origin.Valid() {
		return neighbors
	}
	for _, r := range reports {
		if !r.Location.Valid() || r.Status == domain.StatusResolved {
			continue
		}
		d := haversine(origin, r.Location)
		if d <= radiusM {
			neighbors = append(neighbors, Neighbor{Report: r, Distance: d})
		}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].Report.ID.String() < neighbors[j].Report.ID.String()
	})
	return neighbors
}

// haversine returns the great-circle distance between two points in meters.
func haversine(a, b domain.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}
