package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// This file wraps the Google Geocoding API. Forward geocoding turns a
// configured city into the session origin; reverse geocoding puts a place
// name next to the coordinates in the page header.

const defaultGmpGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/"

// ErrNoResultsFound is returned when a geocoding query yields no results.
var ErrNoResultsFound = errors.New("no results found for the given query")

// Place is a geocoding result reduced to what the application shows.
type Place struct {
	Coordinate  Coordinate
	CityName    string
	CountryCode string
}

// Label renders "City, CC", or whichever part is known.
func (p Place) Label() string {
	parts := make([]string, 0, 2)
	if p.CityName != "" {
		parts = append(parts, p.CityName)
	}
	if p.CountryCode != "" {
		parts = append(parts, p.CountryCode)
	}
	return strings.Join(parts, ", ")
}

// GeocodingService defines a generic interface for geocoding operations.
type GeocodingService interface {
	Geocode(ctx context.Context, address string) (Place, error)
	ReverseGeocode(ctx context.Context, origin Coordinate) (Place, error)
}

// GmpGeocodingService is an implementation of GeocodingService that uses the Google Maps Platform API.
type GmpGeocodingService struct {
	gmpKey        string
	gmpGeocodeURL string
	httpClient    *http.Client
}

func NewGmpGeocodingService(gmpKey, gmpGeocodeURL string, httpClient *http.Client) *GmpGeocodingService {
	return &GmpGeocodingService{
		gmpKey:        gmpKey,
		gmpGeocodeURL: gmpGeocodeURL,
		httpClient:    httpClient,
	}
}

func (s *GmpGeocodingService) Geocode(ctx context.Context, address string) (Place, error) {
	return s.performGeocodeRequest(ctx, map[string]string{
		"address": address,
	})
}

func (s *GmpGeocodingService) ReverseGeocode(ctx context.Context, origin Coordinate) (Place, error) {
	return s.performGeocodeRequest(ctx, map[string]string{
		"latlng": fmt.Sprintf("%.6f,%.6f", origin.Latitude, origin.Longitude),
	})
}

func (s *GmpGeocodingService) performGeocodeRequest(ctx context.Context, queryParams map[string]string) (Place, error) {
	baseURL, err := url.Parse(s.gmpGeocodeURL + "json")
	if err != nil {
		return Place{}, fmt.Errorf("failed to parse base geocode URL: %w", err)
	}

	q := baseURL.Query()
	q.Set("key", s.gmpKey)
	for key, value := range queryParams {
		q.Set(key, value)
	}
	baseURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocoding API request returned non-200 status: %s", resp.Status)
	}

	var responseJSON geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&responseJSON); err != nil {
		return Place{}, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	if responseJSON.Status != "OK" {
		if responseJSON.Status == "ZERO_RESULTS" {
			return Place{}, ErrNoResultsFound
		}
		return Place{}, fmt.Errorf("geocoding API returned status: %s", responseJSON.Status)
	}

	if len(responseJSON.Results) == 0 {
		return Place{}, ErrNoResultsFound
	}

	return placeFromResult(responseJSON.Results[0]), nil
}

// placeFromResult prefers the locality, falling back to the postal town or
// the first administrative area for rural fixes.
func placeFromResult(result geocodeResult) Place {
	place := Place{
		Coordinate: Coordinate{
			Latitude:  result.Geometry.Location.Latitude,
			Longitude: result.Geometry.Location.Longitude,
		},
	}

	var fallbackCity string
	for _, component := range result.AddressComponents {
		for _, componentType := range component.Types {
			switch componentType {
			case "locality":
				place.CityName = component.LongName
			case "postal_town", "administrative_area_level_1":
				if fallbackCity == "" {
					fallbackCity = component.LongName
				}
			case "country":
				place.CountryCode = component.ShortName
			}
		}
	}
	if place.CityName == "" {
		place.CityName = fallbackCity
	}
	return place
}

// The following structs mirror the Google Geocoding API JSON response.
type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
	Status  string          `json:"status"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	Geometry          geometry           `json:"geometry"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}
