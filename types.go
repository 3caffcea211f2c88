package main

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Coordinate is a point captured from the Location Provider. It is replaced
// wholesale on re-acquisition and never mutated field by field.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies within the WGS84 ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// String formats the coordinate the way the page header shows it.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}

// QueryKind selects the canned prompt template, or CUSTOM for free text.
type QueryKind string

const (
	QueryKindTraffic QueryKind = "TRAFFIC"
	QueryKindFuel    QueryKind = "FUEL"
	QueryKindDining  QueryKind = "DINING"
	QueryKindCustom  QueryKind = "CUSTOM"
)

// ParseQueryKind accepts a kind name in any letter case.
func ParseQueryKind(s string) (QueryKind, error) {
	switch k := QueryKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case QueryKindTraffic, QueryKindFuel, QueryKindDining, QueryKindCustom:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQueryKind, s)
}

// loadingMessage is the indicator text shown while a query of this kind is in flight.
func (k QueryKind) loadingMessage() string {
	if k == QueryKindTraffic {
		return "Scanning road conditions..."
	}
	return "Searching nearby..."
}

// title is the heading of a result card of this kind.
func (k QueryKind) title() string {
	switch k {
	case QueryKindTraffic:
		return "Traffic & Road Conditions"
	case QueryKindFuel:
		return "Nearby Fuel Stations"
	case QueryKindDining:
		return "Local Dining"
	}
	return "Search Result"
}

// Source is a named, URI-bearing citation attached to an answer.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// GroundedAnswer is the normalized output of a GroundingService call.
type GroundedAnswer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// QueryResult is one entry of the session history. It is immutable after creation.
type QueryResult struct {
	ID         string    `json:"id"`
	Kind       QueryKind `json:"kind"`
	Text       string    `json:"text"`
	Sources    []Source  `json:"sources"`
	CreatedAt  time.Time `json:"created_at"`
	PromptText string    `json:"prompt_text"`
}

// LoadingStatus drives the loading indicator. At most one query is in flight.
type LoadingStatus struct {
	Active  bool   `json:"active"`
	Message string `json:"message"`
}

// viewState is everything the Presentation Layer renders.
type viewState struct {
	Location      *Coordinate   `json:"location"`
	LocationLabel string        `json:"location_label,omitempty"`
	LocationError string        `json:"location_error,omitempty"`
	History       []QueryResult `json:"history"`
	Loading       LoadingStatus `json:"loading"`
}

// Locating is true until the one-shot location request settles.
func (s viewState) Locating() bool {
	return s.Location == nil && s.LocationError == ""
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination,omitempty"`
	Text        string `json:"text,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ConfigResponse struct {
	DevMode     bool   `json:"dev_mode"`
	Model       string `json:"model"`
	AnswerCache bool   `json:"answer_cache"`
}
