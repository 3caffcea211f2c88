package main

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StringTransformer defines the contract for a function that can transform a string.
type StringTransformer interface {
	TransformString(t transform.Transformer, s string) (string, int, error)
}

type defaultTransformer struct{}

func (dt defaultTransformer) TransformString(t transform.Transformer, s string) (string, int, error) {
	return transform.String(t, s)
}

// transformer is swapped out in tests to exercise the error path.
var transformer StringTransformer = defaultTransformer{}

// normalizePrompt reduces a prompt to the form used for answer-cache keys:
// diacritics stripped, lower case, runs of whitespace collapsed to one space.
// "Café  near  Plac Grunwaldzki" and "cafe near plac grunwaldzki" normalize alike.
func normalizePrompt(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("input string is not valid UTF-8")
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transformer.TransformString(t, s)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(strings.ToLower(result)), " "), nil
}
