package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type apiConfig struct {
	geminiKey      string
	geminiModel    string
	geminiBaseURL  string
	gmpKey         string
	gmpGeocodeURL  string
	originLat      string
	originLng      string
	originCity     string
	ipGeoURL       string
	redisURL       string
	answerCacheTTL time.Duration
	port           string
	devMode        bool
	logger         *slog.Logger

	// lookupClient serves geocoding and IP lookups; the Gemini client has no timeout.
	lookupClient *http.Client
	geminiClient *http.Client

	cache      Cache
	store      *StateStore
	controller *Controller

	newRedisClientFunc func(opt *redis.Options) *redis.Client

	// closing is closed once the server starts shutting down; event streams watch it.
	closing     chan struct{}
	closingOnce sync.Once
}

// closeEventStreams ends every open /api/events stream. It is safe to call more than once.
func (cfg *apiConfig) closeEventStreams() {
	cfg.closingOnce.Do(func() {
		if cfg.closing != nil {
			close(cfg.closing)
		}
	})
}

// getRequiredEnv returns an error when key is unset or empty.
func getRequiredEnv(key string) (string, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return "", fmt.Errorf("environment variable %s must be set", key)
	}
	return val, nil
}

// getEnv retrieves an environment variable by key, with a fallback value.
func getEnv(key, fallback string, logger *slog.Logger) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	logger.Info("environment variable not set, using fallback", "key", key, "fallback", fallback)
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer, with a fallback value.
func getEnvAsInt(key string, fallback int, logger *slog.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		logger.Info("environment variable not set, using fallback", "key", key, "fallback", fallback)
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		logger.Warn("invalid integer value for environment variable, using fallback", "key", key, "value", valStr, "error", err)
		return fallback
	}
	return val
}

func newLogger(w io.Writer, devMode bool) *slog.Logger {
	if devMode {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}

// NewAPIConfig reads the environment (and .env, if present) and returns the
// configuration. It performs no network I/O; see connectCache and buildController.
func NewAPIConfig(w io.Writer) (*apiConfig, error) {
	devMode, err := strconv.ParseBool(os.Getenv("DEV_MODE"))
	if err != nil {
		devMode = false
	}
	logger := newLogger(w, devMode)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	geminiKey, err := getRequiredEnv("GEMINI_API_KEY")
	if err != nil {
		return nil, err
	}

	originLat, originLng := os.Getenv("ORIGIN_LAT"), os.Getenv("ORIGIN_LNG")
	if (originLat == "") != (originLng == "") {
		return nil, fmt.Errorf("ORIGIN_LAT and ORIGIN_LNG must be set together")
	}
	if originLat != "" {
		if _, err := parseOrigin(originLat, originLng); err != nil {
			return nil, err
		}
	}

	gmpKey := os.Getenv("GMP_KEY")
	originCity := os.Getenv("ORIGIN_CITY")
	if originCity != "" && gmpKey == "" {
		return nil, fmt.Errorf("ORIGIN_CITY requires GMP_KEY to be set")
	}

	cacheTTLSec := getEnvAsInt("ANSWER_CACHE_TTL_SEC", int(defaultAnswerCacheTTL/time.Second), logger)
	if cacheTTLSec <= 0 {
		logger.Warn("non-positive answer cache TTL, using default", "value", cacheTTLSec)
		cacheTTLSec = int(defaultAnswerCacheTTL / time.Second)
	}

	cfg := &apiConfig{
		geminiKey:          geminiKey,
		geminiModel:        getEnv("GEMINI_MODEL", defaultGeminiModel, logger),
		geminiBaseURL:      os.Getenv("GEMINI_BASE_URL"),
		gmpKey:             gmpKey,
		gmpGeocodeURL:      getEnv("GMP_GEOCODE_URL", defaultGmpGeocodeURL, logger),
		originLat:          originLat,
		originLng:          originLng,
		originCity:         originCity,
		ipGeoURL:           os.Getenv("IPGEO_URL"),
		redisURL:           os.Getenv("REDIS_URL"),
		answerCacheTTL:     time.Duration(cacheTTLSec) * time.Second,
		port:               getEnv("PORT", "8080", logger),
		devMode:            devMode,
		logger:             logger,
		lookupClient:       newInstrumentedClient(10 * time.Second),
		geminiClient:       newInstrumentedClient(0),
		store:              NewStateStore(),
		newRedisClientFunc: redis.NewClient,
		closing:            make(chan struct{}),
	}

	return cfg, nil
}

func parseOrigin(latStr, lngStr string) (Coordinate, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid ORIGIN_LAT: %w", err)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid ORIGIN_LNG: %w", err)
	}
	origin := Coordinate{Latitude: lat, Longitude: lng}
	if !origin.Valid() {
		return Coordinate{}, fmt.Errorf("origin %v is out of range", origin)
	}
	return origin, nil
}

// connectCache dials Redis when REDIS_URL is set. Without it the answer cache
// stays disabled and cfg.cache remains nil.
func (cfg *apiConfig) connectCache(ctx context.Context) error {
	if cfg.redisURL == "" {
		cfg.logger.Info("REDIS_URL not set, answer cache disabled")
		return nil
	}
	opt, err := redis.ParseURL(cfg.redisURL)
	if err != nil {
		return fmt.Errorf("could not parse Redis URL: %w", err)
	}
	client := cfg.newRedisClientFunc(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("could not connect to Redis: %w", err)
	}
	cfg.cache = NewRedisCache(client)
	cfg.logger.Info("connected to redis, answer cache enabled", "ttl", cfg.answerCacheTTL.String())
	return nil
}

// geocoder returns nil when no Maps Platform key is configured.
func (cfg *apiConfig) geocoder() GeocodingService {
	if cfg.gmpKey == "" {
		return nil
	}
	return NewGmpGeocodingService(cfg.gmpKey, cfg.gmpGeocodeURL, cfg.lookupClient)
}

// locationProvider picks the first configured source: fixed coordinates, a
// geocoded place name, then IP lookup.
func (cfg *apiConfig) locationProvider(geocoder GeocodingService) LocationProvider {
	switch {
	case cfg.originLat != "":
		origin, err := parseOrigin(cfg.originLat, cfg.originLng)
		if err != nil {
			cfg.logger.Warn("invalid configured origin", "error", err)
		}
		return staticLocationProvider{origin: origin}
	case cfg.originCity != "" && geocoder != nil:
		return geocodedLocationProvider{address: cfg.originCity, geocoder: geocoder}
	case cfg.ipGeoURL != "":
		return ipLocationProvider{url: cfg.ipGeoURL, httpClient: cfg.lookupClient}
	}
	return unsupportedLocationProvider{}
}

// buildController wires the grounding service, optional answer cache and
// location provider into the Controller.
func (cfg *apiConfig) buildController(ctx context.Context) error {
	gemini, err := NewGeminiGroundingService(ctx, cfg.geminiKey, cfg.geminiModel, cfg.geminiBaseURL, cfg.geminiClient)
	if err != nil {
		return err
	}

	var grounder GroundingService = gemini
	if cfg.cache != nil {
		grounder = newCachedGroundingService(gemini, cfg.cache, cfg.answerCacheTTL, cfg.logger)
	}

	geocoder := cfg.geocoder()
	cfg.controller = NewController(cfg.store, grounder, cfg.locationProvider(geocoder), geocoder, cfg.logger)
	return nil
}
