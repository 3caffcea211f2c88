package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerCacheKey(t *testing.T) {
	a, err := answerCacheKey("Café  near  Plac Grunwaldzki", Coordinate{Latitude: 51.1101, Longitude: 17.0301})
	require.NoError(t, err)
	b, err := answerCacheKey("cafe near plac grunwaldzki", Coordinate{Latitude: 51.1099, Longitude: 17.0299})
	require.NoError(t, err)
	assert.Equal(t, a, b, "equivalent prompts at the same ~100m bucket share a key")
	assert.True(t, strings.HasPrefix(a, answerCacheKeyPrefix+":"))

	c, err := answerCacheKey("cafe near plac grunwaldzki", Coordinate{Latitude: 51.2, Longitude: 17.03})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "distant origins must not share a key")

	_, err = answerCacheKey("\xff\xfe", MockOrigin)
	assert.Error(t, err)
}

func TestCachedGroundingService_Query(t *testing.T) {
	ctx := context.Background()
	prompt := promptFuel
	fresh := GroundedAnswer{Text: "Fresh answer", Sources: []Source{{Title: "Station", URI: "https://maps.example/1"}}}
	stored := GroundedAnswer{Text: "Cached answer", Sources: []Source{{Title: "Old", URI: "https://maps.example/0"}}}
	storedJSON, _ := json.Marshal(stored)

	testCases := []struct {
		name           string
		getFunc        func(ctx context.Context, key string) (string, error)
		setErr         error
		nextErr        error
		expectedAnswer GroundedAnswer
		expectedErr    bool
		expectNextCall bool
		expectSet      bool
	}{
		{
			name:           "Hit skips the remote call",
			getFunc:        func(ctx context.Context, key string) (string, error) { return string(storedJSON), nil },
			expectedAnswer: stored,
		},
		{
			name:           "Miss calls through and stores",
			expectedAnswer: fresh,
			expectNextCall: true,
			expectSet:      true,
		},
		{
			name:           "Cache read error degrades to a miss",
			getFunc:        func(ctx context.Context, key string) (string, error) { return "", errors.New("redis down") },
			expectedAnswer: fresh,
			expectNextCall: true,
			expectSet:      true,
		},
		{
			name:           "Corrupt entry degrades to a miss",
			getFunc:        func(ctx context.Context, key string) (string, error) { return "{not json", nil },
			expectedAnswer: fresh,
			expectNextCall: true,
			expectSet:      true,
		},
		{
			name:           "Cache write error is not fatal",
			setErr:         errors.New("redis down"),
			expectedAnswer: fresh,
			expectNextCall: true,
			expectSet:      true,
		},
		{
			name:           "Remote error is returned and not cached",
			nextErr:        errors.New("503 unavailable"),
			expectedErr:    true,
			expectNextCall: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next := &mockGroundingService{
				QueryFunc: func(ctx context.Context, p string, origin Coordinate) (GroundedAnswer, error) {
					if tc.nextErr != nil {
						return GroundedAnswer{}, tc.nextErr
					}
					return fresh, nil
				},
			}
			var setKey string
			var setTTL time.Duration
			setCalled := false
			cache := &mockCache{
				getFunc: tc.getFunc,
				setFunc: func(ctx context.Context, key string, value any, expiration time.Duration) error {
					setCalled = true
					setKey = key
					setTTL = expiration
					return tc.setErr
				},
			}

			svc := newCachedGroundingService(next, cache, 90*time.Second, discardLogger())
			answer, err := svc.Query(ctx, prompt, MockOrigin)

			if tc.expectedErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedAnswer, answer)
			}
			assert.Equal(t, tc.expectNextCall, len(next.Calls()) == 1)
			assert.Equal(t, tc.expectSet, setCalled)
			if tc.expectSet {
				wantKey, _ := answerCacheKey(prompt, MockOrigin)
				assert.Equal(t, wantKey, setKey)
				assert.Equal(t, 90*time.Second, setTTL)
			}
		})
	}
}

func TestCachedGroundingService_Metrics(t *testing.T) {
	answerCacheLookupsTotal.Reset()

	stored, _ := json.Marshal(GroundedAnswer{Text: "cached"})
	hits := 0
	cache := &mockCache{
		getFunc: func(ctx context.Context, key string) (string, error) {
			hits++
			if hits == 1 {
				return "", errors.New("cold")
			}
			return string(stored), nil
		},
	}
	next := &mockGroundingService{
		QueryFunc: func(ctx context.Context, p string, origin Coordinate) (GroundedAnswer, error) {
			return GroundedAnswer{Text: "fresh", Sources: []Source{}}, nil
		},
	}
	svc := newCachedGroundingService(next, cache, 0, discardLogger())
	assert.Equal(t, defaultAnswerCacheTTL, svc.ttl)

	_, err := svc.Query(context.Background(), promptDining, MockOrigin)
	require.NoError(t, err)
	answer, err := svc.Query(context.Background(), promptDining, MockOrigin)
	require.NoError(t, err)
	assert.Equal(t, "cached", answer.Text)
	assert.NotNil(t, answer.Sources)

	assert.Equal(t, 1.0, testutil.ToFloat64(answerCacheLookupsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(answerCacheLookupsTotal.WithLabelValues("hit")))
}
