package weather

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
)

var (
	// ErrGeocoderNotConfigured is returned when no geocoding API key is set.
	ErrGeocoderNotConfigured = errors.New("geocoder api key not configured")
	// ErrNoPlace is returned when a location has neither city nor country.
	ErrNoPlace = errors.New("location has no city or country to geocode")
)

// geocoder keeps its API key in a package variable.
var geocodeMu sync.Mutex

// Geocode resolves the coordinate of loc from its City and Country using
// the Google geocoding API. loc is returned unchanged on error.
func Geocode(apiKey string, loc Location) (Location, error) {
	if strings.TrimSpace(apiKey) == "" {
		return loc, ErrGeocoderNotConfigured
	}
	if strings.TrimSpace(loc.City) == "" && strings.TrimSpace(loc.Country) == "" {
		return loc, ErrNoPlace
	}

	geocodeMu.Lock()
	defer geocodeMu.Unlock()

	geocoder.ApiKey = apiKey
	point, err := geocoder.Geocoding(geocoder.Address{
		City:    loc.City,
		Country: loc.Country,
	})
	if err != nil {
		return loc, fmt.Errorf("geocode %s, %s: %w", loc.City, loc.Country, err)
	}

	loc.Latitude = point.Latitude
	loc.Longitude = point.Longitude
	return loc, nil
}
