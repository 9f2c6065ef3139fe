package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeoLocation_Validation(t *testing.T) {
	t.Run("valid coordinates", func(t *testing.T) {
		loc, err := NewGeoLocation(37.7749, -122.4194, "San Francisco", "")
		require.NoError(t, err)
		assert.Equal(t, 37.7749, loc.Latitude())
		assert.Equal(t, -122.4194, loc.Longitude())
	})

	t.Run("latitude out of range", func(t *testing.T) {
		_, err := NewGeoLocation(91.0, 0, "", "")
		assert.Error(t, err)
		_, err = NewGeoLocation(-91.0, 0, "", "")
		assert.Error(t, err)
	})

	t.Run("longitude out of range", func(t *testing.T) {
		_, err := NewGeoLocation(0, 181.0, "", "")
		assert.Error(t, err)
		_, err = NewGeoLocation(0, -181.0, "", "")
		assert.Error(t, err)
	})
}

func TestDistanceMeters(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		a, _ := NewGeoLocation(40.7128, -74.0060, "", "")
		b, _ := NewGeoLocation(40.7128, -74.0060, "", "")
		assert.Equal(t, 0.0, a.DistanceMeters(b))
	})

	t.Run("known distance between city centers", func(t *testing.T) {
		// Paris to London is roughly 343 km great-circle
		paris, _ := NewGeoLocation(48.8566, 2.3522, "", "")
		london, _ := NewGeoLocation(51.5074, -0.1278, "", "")
		distance := paris.DistanceMeters(london)
		assert.InDelta(t, 343500, distance, 2000)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, _ := NewGeoLocation(48.8566, 2.3522, "", "")
		b, _ := NewGeoLocation(51.5074, -0.1278, "", "")
		assert.InDelta(t, a.DistanceMeters(b), b.DistanceMeters(a), 1e-9)
	})

	t.Run("short distance", func(t *testing.T) {
		// Roughly 111 meters per 0.001 degrees of latitude
		a, _ := NewGeoLocation(50.0, 10.0, "", "")
		b, _ := NewGeoLocation(50.001, 10.0, "", "")
		assert.InDelta(t, 111.2, a.DistanceMeters(b), 1.0)
	})
}

func TestLabel(t *testing.T) {
	withVenue, _ := NewGeoLocation(1, 1, "123 Main St", "Blue Bottle")
	assert.Equal(t, "Blue Bottle", withVenue.Label())

	addressOnly, _ := NewGeoLocation(1, 1, "123 Main St", "")
	assert.Equal(t, "123 Main St", addressOnly.Label())
}
