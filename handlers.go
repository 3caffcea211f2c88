package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// This file contains the HTTP handlers. They translate requests into
// Controller calls and Controller errors into the notifications the page
// shows; none of them writes to the state directly.

// @Summary      Run a grounded query
// @Description  Builds the prompt for the requested kind and asks the model for a
// @Description  location-grounded answer. The result is prepended to the history.
// @Tags         query
// @Accept       json
// @Produce      json
// @Param        body body      QueryRequest  true  "Query intent"
// @Success      200  {object}  QueryResult
// @Failure      400  {object}  ErrorResponse "Bad Request - Unknown kind or empty query text"
// @Failure      409  {object}  ErrorResponse "Conflict - Another query is in progress"
// @Failure      412  {object}  ErrorResponse "Precondition Failed - Location required"
// @Failure      502  {object}  ErrorResponse "Bad Gateway - The model call failed"
// @Router       /api/query [post]
func (cfg *apiConfig) handlerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cfg.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind, err := ParseQueryKind(req.Kind)
	if err != nil {
		cfg.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown query kind %q", req.Kind), nil)
		return
	}

	prompt, err := buildPrompt(kind, req.Destination, req.Text)
	if err != nil {
		cfg.respondWithError(w, http.StatusBadRequest, "Please enter a question first.", nil)
		return
	}

	result, err := cfg.controller.HandleQuery(r.Context(), kind, prompt, req.Destination)
	switch {
	case err == nil:
		cfg.respondWithJSON(w, http.StatusOK, result)
	case errors.Is(err, ErrLocationRequired):
		cfg.respondWithError(w, http.StatusPreconditionFailed, notifyLocationRequired, nil)
	case errors.Is(err, ErrQueryInFlight):
		cfg.respondWithError(w, http.StatusConflict, notifyQueryInFlight, nil)
	default:
		cfg.respondWithError(w, http.StatusBadGateway, notifyQueryFailed, err)
	}
}

// @Summary      Get view state
// @Description  Returns the current location status, loading indicator and history.
// @Tags         state
// @Produce      json
// @Success      200  {object}  viewState
// @Router       /api/state [get]
func (cfg *apiConfig) handlerState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	cfg.respondWithJSON(w, http.StatusOK, cfg.store.Snapshot())
}

// handlerEvents streams state snapshots as Server-Sent Events until the
// client disconnects or the server shuts down. The current state is sent first.
func (cfg *apiConfig) handlerEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		cfg.respondWithError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	updates, unsubscribe := cfg.store.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-cfg.closing:
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(state)
			if err != nil {
				cfg.logger.Error("error marshalling state event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
				cfg.logger.Debug("event stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// @Summary      Get application configuration
// @Tags         configuration
// @Produce      json
// @Success      200  {object}  ConfigResponse
// @Router       /api/config [get]
func (cfg *apiConfig) handlerConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}

	cfg.respondWithJSON(w, http.StatusOK, ConfigResponse{
		DevMode:     cfg.devMode,
		Model:       cfg.geminiModel,
		AnswerCache: cfg.cache != nil,
	})
}

// handlerFlushCache is a development-only endpoint that empties the answer cache.
// The history is never cleared; it lives as long as the process.

// @Summary      Flush answer cache (development only)
// @Tags         development
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  ErrorResponse "Answer cache is disabled"
// @Failure      500  {object}  ErrorResponse "Failed to flush cache"
// @Router       /dev/flush-cache [post]
func (cfg *apiConfig) handlerFlushCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	if cfg.cache == nil {
		cfg.respondWithError(w, http.StatusConflict, "Answer cache is disabled", nil)
		return
	}
	cfg.logger.Debug("answer cache flush requested")

	if err := cfg.cache.Flush(r.Context()); err != nil {
		cfg.respondWithError(w, http.StatusInternalServerError, "Failed to flush cache", err)
		return
	}
	cfg.respondWithJSON(w, http.StatusOK, map[string]string{"status": "answer cache flushed"})
}
