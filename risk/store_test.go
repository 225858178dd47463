package risk

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	store := tempStore(t)

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put("k", "v1"))
	require.NoError(t, store.Put("k", "v2")) // upsert

	v, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, store.Delete("k"))
	_, ok, err = store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_FloatRoundTrip(t *testing.T) {
	store := tempStore(t)

	require.NoError(t, store.PutFloat(keyPeakBalance, 10234.5678))
	v, ok, err := store.GetFloat(keyPeakBalance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10234.5678, v)
}

func TestGate_KillSwitchSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.db")
	clock := &stubClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	store, err := OpenStore(path)
	require.NoError(t, err)

	gate := NewGate(testGateConfig(), store, clock, nil)
	gate.Observe(0, 10000)
	require.Equal(t, StateSuppressed, gate.Observe(0, 9600))
	require.NoError(t, store.Close())

	// A fresh process must come back suppressed.
	store2, err := OpenStore(path)
	require.NoError(t, err)
	defer store2.Close()

	gate2 := NewGate(testGateConfig(), store2, clock, nil)
	assert.True(t, gate2.KillSwitchTripped())
	assert.Equal(t, StateSuppressed, gate2.Observe(0, 10500))

	// Operator clears the latch: next run trades again.
	require.NoError(t, store2.Delete(keyKillSwitch))
	gate3 := NewGate(testGateConfig(), store2, clock, nil)
	assert.False(t, gate3.KillSwitchTripped())
}

func TestGate_PeakBalanceSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.db")
	clock := &stubClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	store, err := OpenStore(path)
	require.NoError(t, err)
	gate := NewGate(testGateConfig(), store, clock, nil)
	gate.Observe(0, 12000)
	require.NoError(t, store.Close())

	store2, err := OpenStore(path)
	require.NoError(t, err)
	defer store2.Close()

	// Restart with a lower balance: drawdown is measured from the stored
	// peak, so the kill switch trips immediately.
	gate2 := NewGate(testGateConfig(), store2, clock, nil)
	assert.Equal(t, StateSuppressed, gate2.Observe(0, 11500))
	assert.True(t, gate2.KillSwitchTripped())
}
