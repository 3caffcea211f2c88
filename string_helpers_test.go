package main

import (
	"errors"
	"testing"

	"golang.org/x/text/transform"
)

type failingTransformer struct{}

func (failingTransformer) TransformString(t transform.Transformer, s string) (string, int, error) {
	return "", 0, errors.New("transform failed")
}

func TestNormalizePrompt(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "Already normal", input: "find gas near me", want: "find gas near me"},
		{name: "Diacritics and case", input: "Café near Plac Grunwaldzki", want: "cafe near plac grunwaldzki"},
		{name: "Polish letters", input: "Zażółć gęślą jaźń", want: "zazołc gesla jazn"},
		{name: "Whitespace collapsed", input: "  traffic \t on\n\nI-80  ", want: "traffic on i-80"},
		{name: "Empty", input: "", want: ""},
		{name: "Invalid UTF-8", input: "\xff\xfe", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizePrompt(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("normalizePrompt(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizePrompt_TransformError(t *testing.T) {
	original := transformer
	transformer = failingTransformer{}
	defer func() { transformer = original }()

	if _, err := normalizePrompt("Café"); err == nil {
		t.Fatal("expected the transformer error to be returned")
	}
}
