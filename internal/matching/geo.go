// Package matching selects the donors an alert should reach: GeoMatcher
// narrows the pool by distance, EligibilityFilter by role, blood type and
// donation recency.
package matching

import (
	"math"
	"runtime"

	"bloodalert/pkg/types"

	"golang.org/x/sync/errgroup"
)

const earthRadiusKm = 6371.0

// ParallelThreshold is the pool size above which distance checks are
// spread across goroutines.
var ParallelThreshold = 2048

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b types.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

// FindCandidates returns the donors from pool located within radiusKm of
// center, boundary inclusive, in pool order. Donors with no recorded
// location never match. A non-positive radius matches nobody.
func FindCandidates(center types.Point, radiusKm float64, pool []*types.User) []*types.User {
	if radiusKm <= 0 || len(pool) == 0 {
		return []*types.User{}
	}

	inRange := make([]bool, len(pool))
	check := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			loc := pool[i].Location()
			inRange[i] = loc != nil && DistanceKm(center, *loc) <= radiusKm
		}
	}

	if len(pool) <= ParallelThreshold {
		check(0, len(pool))
	} else {
		workers := runtime.GOMAXPROCS(0)
		chunk := (len(pool) + workers - 1) / workers

		var g errgroup.Group
		for lo := 0; lo < len(pool); lo += chunk {
			hi := min(lo+chunk, len(pool))
			g.Go(func() error {
				check(lo, hi)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make([]*types.User, 0)
	for i, ok := range inRange {
		if ok {
			out = append(out, pool[i])
		}
	}

	return out
}
