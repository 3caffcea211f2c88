package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// This file contains the Location Provider adapters. The controller asks for a
// fix exactly once at startup; every adapter reports success or one of the two
// failure reasons, ErrLocationUnavailable and ErrLocationUnsupported.

// LocationProvider performs a one-shot acquisition of the session origin.
type LocationProvider interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// staticLocationProvider serves a coordinate fixed in configuration.
type staticLocationProvider struct {
	origin Coordinate
}

func (p staticLocationProvider) Locate(ctx context.Context) (Coordinate, error) {
	if !p.origin.Valid() {
		return Coordinate{}, fmt.Errorf("%w: configured origin %v is out of range", ErrLocationUnavailable, p.origin)
	}
	return p.origin, nil
}

// geocodedLocationProvider resolves a configured place name.
type geocodedLocationProvider struct {
	address  string
	geocoder GeocodingService
}

func (p geocodedLocationProvider) Locate(ctx context.Context) (Coordinate, error) {
	place, err := p.geocoder.Geocode(ctx, p.address)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: could not geocode %q: %v", ErrLocationUnavailable, p.address, err)
	}
	return place.Coordinate, nil
}

// ipLocationProvider asks an IP geolocation endpoint (ip-api.com response
// format) where the host running the service is.
type ipLocationProvider struct {
	url        string
	httpClient *http.Client
}

type ipLocationResponse struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
}

func (p ipLocationProvider) Locate(ctx context.Context) (Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: ip lookup failed: %v", ErrLocationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinate{}, fmt.Errorf("%w: ip lookup returned non-200 status: %s", ErrLocationUnavailable, resp.Status)
	}

	var body ipLocationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinate{}, fmt.Errorf("%w: failed to decode ip lookup response: %v", ErrLocationUnavailable, err)
	}
	if body.Status != "" && body.Status != "success" {
		return Coordinate{}, fmt.Errorf("%w: ip lookup status %q: %s", ErrLocationUnavailable, body.Status, body.Message)
	}

	if body.Latitude == nil || body.Longitude == nil {
		return Coordinate{}, fmt.Errorf("%w: ip lookup response has no coordinates", ErrLocationUnavailable)
	}

	origin := Coordinate{Latitude: *body.Latitude, Longitude: *body.Longitude}
	if !origin.Valid() {
		return Coordinate{}, fmt.Errorf("%w: ip lookup returned out-of-range coordinate %v", ErrLocationUnavailable, origin)
	}
	return origin, nil
}

// unsupportedLocationProvider is used when no location source is configured.
type unsupportedLocationProvider struct{}

func (unsupportedLocationProvider) Locate(ctx context.Context) (Coordinate, error) {
	return Coordinate{}, ErrLocationUnsupported
}

// locationErrorText maps a provider failure onto the fixed banner texts.
func locationErrorText(err error) string {
	if errors.Is(err, ErrLocationUnsupported) {
		return locationErrorUnsupported
	}
	return locationErrorUnavailable
}
