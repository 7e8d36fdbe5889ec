package survey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreCreateRejectsSecond(t *testing.T) {
	store := NewSessionStore(0)

	first, err := store.Create(1, 100, time.Time{}, StageEligibility)
	require.NoError(t, err)
	first.Stage = StageItemRating
	store.Touch(first)

	_, err = store.Create(1, 100, time.Time{}, StageEligibility)
	assert.ErrorIs(t, err, ErrSessionActive)

	// The active session is untouched by the rejected start.
	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StageItemRating, got.Stage)
}

func TestSessionStoreClearAllowsRestart(t *testing.T) {
	store := NewSessionStore(0)

	_, err := store.Create(1, 100, time.Time{}, StageEligibility)
	require.NoError(t, err)

	store.Clear(1)
	_, ok := store.Get(1)
	assert.False(t, ok)

	_, err = store.Create(1, 100, time.Time{}, StageEligibility)
	assert.NoError(t, err)
}

func TestSessionStoreIsolatesUsers(t *testing.T) {
	store := NewSessionStore(0)

	_, err := store.Create(1, 100, time.Time{}, StageEligibility)
	require.NoError(t, err)
	_, err = store.Create(2, 200, time.Time{}, StageEligibility)
	require.NoError(t, err)

	store.Clear(1)
	_, ok := store.Get(2)
	assert.True(t, ok)
}

func TestTryAcquireBlocksSameStage(t *testing.T) {
	store := NewSessionStore(0)

	require.True(t, store.TryAcquire(1, StageItemRating))
	assert.False(t, store.TryAcquire(1, StageItemRating))

	// A different user is unaffected.
	assert.True(t, store.TryAcquire(2, StageItemRating))

	store.Release(1)
	assert.True(t, store.TryAcquire(1, StageItemRating))
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(20 * time.Millisecond)

	_, err := store.Create(1, 100, time.Time{}, StageEligibility)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, ok := store.Get(1)
	assert.False(t, ok)
}
