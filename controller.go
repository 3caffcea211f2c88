package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Controller orchestrates the session: it acquires the location once,
// validates query intents, calls the grounding service and records results.
// It is the only writer of the StateStore.
type Controller struct {
	store    *StateStore
	grounder GroundingService
	locator  LocationProvider
	geocoder GeocodingService // optional, labels the fix
	logger   *slog.Logger

	now   func() time.Time
	newID func() (string, error)

	initOnce sync.Once
}

func NewController(store *StateStore, grounder GroundingService, locator LocationProvider, geocoder GeocodingService, logger *slog.Logger) *Controller {
	return &Controller{
		store:    store,
		grounder: grounder,
		locator:  locator,
		geocoder: geocoder,
		logger:   logger,
		now:      time.Now,
		newID:    newResultID,
	}
}

// newResultID returns a time-ordered UUIDv7.
func newResultID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Init requests the location exactly once per process. Later calls return
// immediately; a failed fix is never retried.
func (c *Controller) Init(ctx context.Context) {
	c.initOnce.Do(func() {
		origin, err := c.locator.Locate(ctx)
		if err == nil && !origin.Valid() {
			err = fmt.Errorf("%w: provider returned out-of-range coordinate %v", ErrLocationUnavailable, origin)
		}
		if err != nil {
			c.logger.Warn("location unavailable", "error", err)
			c.store.setLocationError(locationErrorText(err))
			return
		}

		c.store.setLocation(origin, "")
		c.logger.Info("location acquired", "latitude", origin.Latitude, "longitude", origin.Longitude)

		if c.geocoder == nil {
			return
		}
		place, err := c.geocoder.ReverseGeocode(ctx, origin)
		if err != nil {
			c.logger.Warn("could not reverse geocode location", "error", err)
			return
		}
		if label := place.Label(); label != "" {
			c.store.setLocationLabel(label)
		}
	})
}

// HandleQuery runs one grounded query. It fails fast with ErrLocationRequired
// before a fix exists and with ErrQueryInFlight while another query holds the
// slot; neither touches the state. Service failures come back wrapped in
// ErrQueryFailed with the history untouched. The loading flag is cleared on
// every path once it has been set.
func (c *Controller) HandleQuery(ctx context.Context, kind QueryKind, prompt, destination string) (QueryResult, error) {
	origin, ok := c.store.location()
	if !ok {
		groundingQueriesTotal.WithLabelValues(string(kind), "no_location").Inc()
		return QueryResult{}, ErrLocationRequired
	}

	if !c.store.beginLoading(kind.loadingMessage()) {
		groundingQueriesTotal.WithLabelValues(string(kind), "busy").Inc()
		return QueryResult{}, ErrQueryInFlight
	}
	defer c.store.endLoading()

	c.logger.Debug("grounding query started", "kind", kind, "destination", destination)
	start := time.Now()

	// Issued queries run to completion even if the requester goes away.
	answer, err := c.grounder.Query(context.WithoutCancel(ctx), prompt, origin)
	if err != nil {
		groundingQueriesTotal.WithLabelValues(string(kind), "error").Inc()
		return QueryResult{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	id, err := c.newID()
	if err != nil {
		groundingQueriesTotal.WithLabelValues(string(kind), "error").Inc()
		return QueryResult{}, fmt.Errorf("%w: could not generate result id: %w", ErrQueryFailed, err)
	}

	sources := answer.Sources
	if sources == nil {
		sources = []Source{}
	}
	result := QueryResult{
		ID:         id,
		Kind:       kind,
		Text:       answer.Text,
		Sources:    sources,
		CreatedAt:  c.now(),
		PromptText: prompt,
	}
	c.store.prependResult(result)

	groundingQueriesTotal.WithLabelValues(string(kind), "success").Inc()
	c.logger.Info("grounding query completed", "kind", kind, "sources", len(sources), "duration", time.Since(start).String())
	return result, nil
}
