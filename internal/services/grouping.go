package services

import (
	"math"
	"sort"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

const distanceEpsilon = 1e-9

type rankedPOI struct {
	poi   domain.POI
	rank  int
	score int
}

func ratingOf(r *float64) float64 {
	if r == nil {
		return -1
	}
	return *r
}

// rankPOIs orders POIs by interest match, then rating, then locator.
// rank is the resulting position, so lower is better.
func rankPOIs(pois []domain.POI, interests []string) []rankedPOI {
	out := make([]rankedPOI, len(pois))
	for i, p := range pois {
		out[i] = rankedPOI{poi: p, score: interestScore(p, interests)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.score != b.score {
			return a.score > b.score
		}
		ra, rb := ratingOf(a.poi.Rating), ratingOf(b.poi.Rating)
		if ra != rb {
			return ra > rb
		}
		return a.poi.SourceLocator < b.poi.SourceLocator
	})
	for i := range out {
		out[i].rank = i
	}
	return out
}

// closer reports whether candidate a beats b at distances da and db.
// Equidistant candidates fall back to rank, then locator.
func closer(a, b rankedPOI, da, db float64) bool {
	if math.Abs(da-db) > distanceEpsilon {
		return da < db
	}
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.poi.SourceLocator < b.poi.SourceLocator
}

// groupDays seeds each day with the best remaining POI and grows it with the
// POI nearest the group's centroid. Each returned group is ordered as a
// nearest-neighbour chain from its seed.
func groupDays(ranked []rankedPOI, counts []int) [][]rankedPOI {
	remaining := append([]rankedPOI(nil), ranked...)
	groups := make([][]rankedPOI, len(counts))

	for d, want := range counts {
		if want == 0 || len(remaining) == 0 {
			continue
		}
		group := []rankedPOI{remaining[0]}
		remaining = remaining[1:]

		for len(group) < want && len(remaining) > 0 {
			points := make([]domain.GeoPoint, len(group))
			for i, g := range group {
				points[i] = g.poi.Location
			}
			c := utils.Centroid(points)

			best := 0
			bestDist := utils.HaversineKm(c, remaining[0].poi.Location)
			for i := 1; i < len(remaining); i++ {
				dist := utils.HaversineKm(c, remaining[i].poi.Location)
				if closer(remaining[i], remaining[best], dist, bestDist) {
					best, bestDist = i, dist
				}
			}
			group = append(group, remaining[best])
			remaining = append(remaining[:best], remaining[best+1:]...)
		}
		groups[d] = nearestNeighbourChain(group)
	}
	return groups
}

// nearestNeighbourChain orders a group starting from its first element.
func nearestNeighbourChain(group []rankedPOI) []rankedPOI {
	if len(group) < 3 {
		return group
	}
	rest := append([]rankedPOI(nil), group[1:]...)
	chain := []rankedPOI{group[0]}
	for len(rest) > 0 {
		cur := chain[len(chain)-1].poi.Location
		best := 0
		bestDist := utils.HaversineKm(cur, rest[0].poi.Location)
		for i := 1; i < len(rest); i++ {
			dist := utils.HaversineKm(cur, rest[i].poi.Location)
			if closer(rest[i], rest[best], dist, bestDist) {
				best, bestDist = i, dist
			}
		}
		chain = append(chain, rest[best])
		rest = append(rest[:best], rest[best+1:]...)
	}
	return chain
}

func pathKm(points []domain.GeoPoint, order []int) float64 {
	total := 0.0
	for i := 1; i < len(order); i++ {
		total += utils.HaversineKm(points[order[i-1]], points[order[i]])
	}
	return total
}

// shortestOpenPath returns a visiting order over points: a nearest-neighbour
// chain from index 0 improved by 2-opt, with the start kept fixed.
func shortestOpenPath(points []domain.GeoPoint) []int {
	n := len(points)
	order := make([]int, 0, n)
	if n == 0 {
		return order
	}
	visited := make([]bool, n)
	order = append(order, 0)
	visited[0] = true
	for len(order) < n {
		cur := points[order[len(order)-1]]
		best := -1
		bestDist := 0.0
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			d := utils.HaversineKm(cur, points[i])
			if best == -1 || d < bestDist-distanceEpsilon {
				best, bestDist = i, d
			}
		}
		visited[best] = true
		order = append(order, best)
	}

	improved := true
	for improved {
		improved = false
		for i := 1; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				candidate := append([]int(nil), order...)
				for a, b := i, j; a < b; a, b = a+1, b-1 {
					candidate[a], candidate[b] = candidate[b], candidate[a]
				}
				if pathKm(points, candidate) < pathKm(points, order)-distanceEpsilon {
					order = candidate
					improved = true
				}
			}
		}
	}
	return order
}
