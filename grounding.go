package main

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// This file provides the grounded-answer capability: a single generation call
// against Gemini with the Google Maps tool enabled and anchored at the caller's
// coordinate. The provider sits behind the GroundingService interface so the
// controller and handlers can be tested without the remote model.

const (
	defaultGeminiModel = "gemini-2.5-flash"
	fallbackAnswerText = "No information available at this time."
)

// GroundingService answers a prompt using location-grounded retrieval.
// Implementations hold no state between calls and are safe for concurrent use.
type GroundingService interface {
	Query(ctx context.Context, prompt string, origin Coordinate) (GroundedAnswer, error)
}

// GeminiGroundingService is a GroundingService backed by the Gemini API.
type GeminiGroundingService struct {
	client *genai.Client
	model  string
}

// NewGeminiGroundingService creates a client for the Gemini API. baseURL is
// optional and only overrides the endpoint (used by tests and proxies).
func NewGeminiGroundingService(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*GeminiGroundingService, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		clientConfig.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGroundingService{
		client: client,
		model:  model,
	}, nil
}

// Query issues exactly one generation request. Any failure of the call is
// returned as-is wrapped once; there is no retry and no partial answer.
func (s *GeminiGroundingService) Query(ctx context.Context, prompt string, origin Coordinate) (GroundedAnswer, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), groundingConfig(origin))
	if err != nil {
		return GroundedAnswer{}, fmt.Errorf("gemini generate content failed: %w", err)
	}
	return answerFromResponse(resp), nil
}

// groundingConfig enables the Google Maps tool and pins retrieval to origin.
func groundingConfig(origin Coordinate) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleMaps: &genai.GoogleMaps{}},
		},
		ToolConfig: &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{
					Latitude:  genai.Ptr(origin.Latitude),
					Longitude: genai.Ptr(origin.Longitude),
				},
			},
		},
	}
}

// answerFromResponse extracts the text and the source list of the first candidate.
func answerFromResponse(resp *genai.GenerateContentResponse) GroundedAnswer {
	if resp == nil {
		return GroundedAnswer{Text: fallbackAnswerText, Sources: []Source{}}
	}

	text := resp.Text()
	if text == "" {
		text = fallbackAnswerText
	}

	var md *genai.GroundingMetadata
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		md = resp.Candidates[0].GroundingMetadata
	}

	return GroundedAnswer{
		Text:    text,
		Sources: sourcesFromMetadata(md),
	}
}
