package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_InitialState(t *testing.T) {
	s := NewStateStore()
	snap := s.Snapshot()

	assert.Nil(t, snap.Location)
	assert.True(t, snap.Locating())
	assert.NotNil(t, snap.History)
	assert.Empty(t, snap.History)
	assert.False(t, snap.Loading.Active)

	_, ok := s.location()
	assert.False(t, ok)
}

func TestStateStore_SnapshotIsDeepCopy(t *testing.T) {
	s := NewStateStore()
	s.setLocation(MockOrigin, "San Francisco, US")
	s.prependResult(QueryResult{ID: "1", Sources: []Source{{Title: "A", URI: "a"}}})

	snap := s.Snapshot()
	snap.Location.Latitude = 0
	snap.History[0].Sources[0].Title = "mutated"
	snap.History[0].ID = "mutated"

	again := s.Snapshot()
	assert.Equal(t, MockOrigin, *again.Location)
	assert.Equal(t, "A", again.History[0].Sources[0].Title)
	assert.Equal(t, "1", again.History[0].ID)
}

func TestStateStore_BeginLoadingIsExclusive(t *testing.T) {
	s := NewStateStore()

	require.True(t, s.beginLoading("Scanning road conditions..."))
	assert.False(t, s.beginLoading("Searching nearby..."))
	assert.Equal(t, LoadingStatus{Active: true, Message: "Scanning road conditions..."}, s.Snapshot().Loading)

	s.endLoading()
	assert.Equal(t, LoadingStatus{}, s.Snapshot().Loading)
	assert.True(t, s.beginLoading("Searching nearby..."))
}

func TestStateStore_PrependKeepsNewestFirst(t *testing.T) {
	s := NewStateStore()
	s.prependResult(QueryResult{ID: "first"})
	s.prependResult(QueryResult{ID: "second"})
	s.prependResult(QueryResult{ID: "third"})

	var ids []string
	for _, r := range s.Snapshot().History {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"third", "second", "first"}, ids)
}

func TestStateStore_LocationErrorAndLabel(t *testing.T) {
	s := NewStateStore()
	s.setLocationError(locationErrorUnsupported)
	snap := s.Snapshot()
	assert.False(t, snap.Locating())
	assert.Equal(t, locationErrorUnsupported, snap.LocationError)

	s.setLocation(MockOrigin, "")
	s.setLocationLabel("San Francisco, US")
	snap = s.Snapshot()
	assert.Empty(t, snap.LocationError)
	assert.Equal(t, "San Francisco, US", snap.LocationLabel)
	origin, ok := s.location()
	assert.True(t, ok)
	assert.Equal(t, MockOrigin, origin)
}

func receiveState(t *testing.T, ch <-chan viewState) viewState {
	t.Helper()
	select {
	case st, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return st
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
	}
	return viewState{}
}

func TestStateStore_Subscribe(t *testing.T) {
	s := NewStateStore()
	updates, unsubscribe := s.Subscribe()

	initial := receiveState(t, updates)
	assert.True(t, initial.Locating())

	s.setLocation(MockOrigin, "")
	got := receiveState(t, updates)
	require.NotNil(t, got.Location)
	assert.Equal(t, MockOrigin, *got.Location)

	// Unread updates coalesce into the latest one.
	s.beginLoading("Searching nearby...")
	s.prependResult(QueryResult{ID: "r1"})
	s.endLoading()
	latest := receiveState(t, updates)
	assert.False(t, latest.Loading.Active)
	require.Len(t, latest.History, 1)
	assert.Equal(t, "r1", latest.History[0].ID)

	select {
	case extra := <-updates:
		t.Fatalf("expected no pending update, got %+v", extra)
	default:
	}

	unsubscribe()
	unsubscribe()
	_, ok := <-updates
	assert.False(t, ok, "channel is closed after unsubscribe")

	// Publishing after unsubscribe must not panic or block.
	s.setLocationLabel("after")
}
