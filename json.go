package main

import (
	"encoding/json"
	"net/http"
)

// This file contains helper functions for sending standardized JSON responses.

// respondWithError logs the cause (if one is provided) and sends msg to the
// client as {"error": msg}. msg is the notification the page shows verbatim.
func (cfg *apiConfig) respondWithError(w http.ResponseWriter, code int, msg string, err error) {
	if err != nil {
		cfg.logger.Error(msg, "error", err)
	}
	cfg.respondWithJSON(w, code, ErrorResponse{
		Error: msg,
	})
}

// respondWithJSON marshals payload, sets the content type and writes the response.
func (cfg *apiConfig) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		cfg.logger.Error("error marshalling JSON", "error", err)
		w.WriteHeader(500)
		return
	}
	w.WriteHeader(code)
	_, err = w.Write(data)
	if err != nil {
		cfg.logger.Error("error writing response", "error", err)
	}
}
