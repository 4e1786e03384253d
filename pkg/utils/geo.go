package utils

import (
	"math"

	"wayfarer/internal/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points.
func HaversineKm(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// TravelMinutes estimates door-to-door minutes for the mode. Any non-zero
// distance costs at least one minute.
func TravelMinutes(a, b domain.GeoPoint, mode domain.TravelMode) int {
	km := HaversineKm(a, b)
	if km == 0 {
		return 0
	}
	mins := int(math.Ceil(km / mode.SpeedKmh() * 60))
	if mins < 1 {
		mins = 1
	}
	return mins
}

// Centroid of a non-empty point set.
func Centroid(points []domain.GeoPoint) domain.GeoPoint {
	if len(points) == 0 {
		return domain.GeoPoint{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return domain.GeoPoint{Lat: lat / n, Lng: lng / n}
}
