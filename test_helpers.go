package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// --- Mocks ---

// mockGroundingService is a mock for the GroundingService interface. It
// records every call so tests can assert on prompt, origin and call count.
type mockGroundingService struct {
	QueryFunc func(ctx context.Context, prompt string, origin Coordinate) (GroundedAnswer, error)

	mu    sync.Mutex
	calls []groundingCall
}

type groundingCall struct {
	Prompt string
	Origin Coordinate
}

func (m *mockGroundingService) Query(ctx context.Context, prompt string, origin Coordinate) (GroundedAnswer, error) {
	m.mu.Lock()
	m.calls = append(m.calls, groundingCall{Prompt: prompt, Origin: origin})
	m.mu.Unlock()
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, prompt, origin)
	}
	return GroundedAnswer{}, errors.New("QueryFunc not implemented in mock")
}

func (m *mockGroundingService) Calls() []groundingCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]groundingCall(nil), m.calls...)
}

// mockLocationProvider is a mock for the LocationProvider interface.
type mockLocationProvider struct {
	LocateFunc func(ctx context.Context) (Coordinate, error)

	mu    sync.Mutex
	count int
}

func (m *mockLocationProvider) Locate(ctx context.Context) (Coordinate, error) {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
	if m.LocateFunc != nil {
		return m.LocateFunc(ctx)
	}
	return Coordinate{}, errors.New("LocateFunc not implemented in mock")
}

func (m *mockLocationProvider) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// mockGeocodingService is a mock for the GeocodingService interface.
type mockGeocodingService struct {
	GeocodeFunc        func(ctx context.Context, address string) (Place, error)
	ReverseGeocodeFunc func(ctx context.Context, origin Coordinate) (Place, error)
}

func (m *mockGeocodingService) Geocode(ctx context.Context, address string) (Place, error) {
	if m.GeocodeFunc != nil {
		return m.GeocodeFunc(ctx, address)
	}
	return Place{}, errors.New("GeocodeFunc not implemented in mock")
}

func (m *mockGeocodingService) ReverseGeocode(ctx context.Context, origin Coordinate) (Place, error) {
	if m.ReverseGeocodeFunc != nil {
		return m.ReverseGeocodeFunc(ctx, origin)
	}
	return Place{}, errors.New("ReverseGeocodeFunc not implemented in mock")
}

// mockCache is a mock for the Cache interface. Get misses by default.
type mockCache struct {
	getFunc   func(ctx context.Context, key string) (string, error)
	setFunc   func(ctx context.Context, key string, value any, expiration time.Duration) error
	flushFunc func(ctx context.Context) error
}

func (m *mockCache) Get(ctx context.Context, key string) (string, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, key)
	}
	return "", redis.Nil
}

func (m *mockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.setFunc != nil {
		return m.setFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockCache) Flush(ctx context.Context) error {
	if m.flushFunc != nil {
		return m.flushFunc(ctx)
	}
	return nil
}

// --- Fixtures ---

var (
	MockOrigin   = Coordinate{Latitude: 37.77, Longitude: -122.42}
	MockTime     = time.Date(2025, time.June, 1, 8, 30, 0, 0, time.UTC)
	MockResultID = "0190c6d2-8a1b-7c3d-9e4f-0123456789ab"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testAPIConfig bundles an apiConfig with the mocks wired into it.
type testAPIConfig struct {
	apiConfig *apiConfig
	grounder  *mockGroundingService
	locator   *mockLocationProvider
	geocoder  *mockGeocodingService
	cache     *mockCache
}

// newTestController returns a controller with deterministic time and ids.
func newTestController(store *StateStore, grounder GroundingService, locator LocationProvider, geocoder GeocodingService) *Controller {
	c := NewController(store, grounder, locator, geocoder, discardLogger())
	c.now = func() time.Time { return MockTime }
	c.newID = func() (string, error) { return MockResultID, nil }
	return c
}

// newTestAPIConfig builds a config whose controller already holds MockOrigin.
func newTestAPIConfig(t *testing.T) *testAPIConfig {
	t.Helper()

	grounder := &mockGroundingService{}
	locator := &mockLocationProvider{
		LocateFunc: func(ctx context.Context) (Coordinate, error) {
			return MockOrigin, nil
		},
	}
	geocoder := &mockGeocodingService{
		ReverseGeocodeFunc: func(ctx context.Context, origin Coordinate) (Place, error) {
			return Place{Coordinate: origin, CityName: "San Francisco", CountryCode: "US"}, nil
		},
	}
	store := NewStateStore()
	cfg := &apiConfig{
		geminiModel: defaultGeminiModel,
		logger:      discardLogger(),
		store:       store,
		controller:  newTestController(store, grounder, locator, geocoder),
		closing:     make(chan struct{}),
	}
	cfg.controller.Init(context.Background())

	return &testAPIConfig{
		apiConfig: cfg,
		grounder:  grounder,
		locator:   locator,
		geocoder:  geocoder,
		cache:     &mockCache{},
	}
}
