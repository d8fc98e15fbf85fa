// Package geocode resolves GPS coordinates to US place names using the
// census place boundaries loaded into the geo_places table.
package geocode

import "context"

// Result holds the place a coordinate falls in.
type Result struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// ReverseGeocoder converts a lat/lon pair to a city and state.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*Result, error)
}
