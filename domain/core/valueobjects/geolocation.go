package valueobjects

import (
	"errors"
	"math"
)

// earthRadiusMeters is the mean Earth radius used for great-circle distances
const earthRadiusMeters = 6371000.0

// GeoLocation is a value object representing a point on Earth,
// optionally annotated with a human-readable address and venue
type GeoLocation struct {
	latitude  float64
	longitude float64
	address   string
	venue     string
}

// NewGeoLocation creates a GeoLocation after validating the coordinates
func NewGeoLocation(lat, lng float64, address, venue string) (GeoLocation, error) {
	if lat < -90 || lat > 90 {
		return GeoLocation{}, errors.New("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return GeoLocation{}, errors.New("longitude must be between -180 and 180")
	}
	return GeoLocation{
		latitude:  lat,
		longitude: lng,
		address:   address,
		venue:     venue,
	}, nil
}

// Latitude returns the latitude in degrees
func (g GeoLocation) Latitude() float64 {
	return g.latitude
}

// Longitude returns the longitude in degrees
func (g GeoLocation) Longitude() float64 {
	return g.longitude
}

// Address returns the human-readable address, if any
func (g GeoLocation) Address() string {
	return g.address
}

// Venue returns the venue name, if any
func (g GeoLocation) Venue() string {
	return g.venue
}

// Label returns the most specific human-readable name for the location
func (g GeoLocation) Label() string {
	if g.venue != "" {
		return g.venue
	}
	return g.address
}

// Equals checks if two locations refer to the same coordinates
func (g GeoLocation) Equals(other GeoLocation) bool {
	return g.latitude == other.latitude && g.longitude == other.longitude
}

// DistanceMeters returns the great-circle distance to another location
// using the haversine formula
func (g GeoLocation) DistanceMeters(other GeoLocation) float64 {
	lat1 := g.latitude * math.Pi / 180
	lat2 := other.latitude * math.Pi / 180
	dLat := (other.latitude - g.latitude) * math.Pi / 180
	dLng := (other.longitude - g.longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
