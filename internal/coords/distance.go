package coords

import "github.com/golang/geo/s2"

// EarthRadiusKM is the mean Earth radius used for haversine distance.
const EarthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance between two points in
// kilometers. s2.LatLng.Distance is a haversine implementation.
func DistanceKM(a, b Point) float64 {
	return HaversineKM(a.Lat, a.Lng, b.Lat, b.Lng)
}

// HaversineKM is DistanceKM for raw degree pairs.
func HaversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKM
}
