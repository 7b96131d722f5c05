package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNoGeocodeResult is returned when the API finds nothing for an address
var ErrNoGeocodeResult = errors.New("no geocoding result")

// GeocodingService resolves bin locations to coordinates using the
// Google Maps Geocoding API
type GeocodingService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Coordinates represents latitude and longitude
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address represents a full address
type Address struct {
	FormattedAddress string      `json:"formatted_address"`
	Coordinates      Coordinates `json:"coordinates"`
}

// GoogleGeocodeResponse represents the Google Maps Geocoding API response
type GoogleGeocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// NewGeocodingService creates a geocoder. An empty baseURL uses the
// public Google endpoint.
func NewGeocodingService(apiKey, baseURL string) (*GeocodingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is required for geocoding")
	}
	if baseURL == "" {
		baseURL = googleGeocodeURL
	}
	return &GeocodingService{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Geocode converts an address string to coordinates
func (s *GeocodingService) Geocode(ctx context.Context, address string) (*Address, error) {
	params := url.Values{}
	params.Add("address", address)
	params.Add("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	var result GoogleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status == "ZERO_RESULTS" || (result.Status == "OK" && len(result.Results) == 0) {
		return nil, fmt.Errorf("%w for address: %s", ErrNoGeocodeResult, address)
	}
	if result.Status != "OK" {
		return nil, fmt.Errorf("geocoding API returned status: %s", result.Status)
	}

	first := result.Results[0]
	return &Address{
		FormattedAddress: first.FormattedAddress,
		Coordinates:      first.Geometry.Location,
	}, nil
}
