package main

import "errors"

var (
	// ErrLocationRequired is returned when a query is issued before a location fix exists.
	ErrLocationRequired = errors.New("location required")
	// ErrQueryInFlight is returned when a second query arrives while one is outstanding.
	ErrQueryInFlight = errors.New("a query is already in progress")
	// ErrQueryFailed wraps any failure of the grounding service.
	ErrQueryFailed = errors.New("grounding query failed")
	// ErrEmptyQuery is returned for blank free-text input.
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrUnknownQueryKind is returned for a kind outside TRAFFIC, FUEL, DINING and CUSTOM.
	ErrUnknownQueryKind = errors.New("unknown query kind")

	// Location Provider failure reasons.
	ErrLocationUnavailable = errors.New("permission denied or unavailable")
	ErrLocationUnsupported = errors.New("not supported by this environment")
)

// User-facing notification texts.
const (
	notifyLocationRequired = "We need your location to find nearby info. Please enable location access."
	notifyQueryInFlight    = "Please wait for the current query to finish."
	notifyQueryFailed      = "Failed to fetch data. Please check your credentials or connection."

	locationErrorUnavailable = "Permission denied or unavailable."
	locationErrorUnsupported = "Geolocation not supported."
)
