package main

import (
	"fmt"
	"strings"
)

// Canned prompts for the one-click actions.
const (
	promptTrafficNearby = "What are the current traffic conditions, including accidents or heavy congestion on major freeways and streets in my immediate vicinity?"
	promptTrafficRoute  = "Check for traffic accidents, delays, and road closures on the route to %s. Provide an estimated travel time based on current conditions."
	promptFuel          = "Find the nearest gas stations with good ratings and current prices if available."
	promptDining        = "Find the highly-rated restaurants and eateries in the immediate area."
)

// buildPrompt turns a user intent into the prompt text sent to the model.
// destination only affects TRAFFIC; text only affects CUSTOM and is passed
// through verbatim once it is known not to be blank.
func buildPrompt(kind QueryKind, destination, text string) (string, error) {
	switch kind {
	case QueryKindTraffic:
		if dest := strings.TrimSpace(destination); dest != "" {
			return fmt.Sprintf(promptTrafficRoute, dest), nil
		}
		return promptTrafficNearby, nil
	case QueryKindFuel:
		return promptFuel, nil
	case QueryKindDining:
		return promptDining, nil
	case QueryKindCustom:
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyQuery
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQueryKind, kind)
}
