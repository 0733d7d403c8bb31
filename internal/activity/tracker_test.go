package activity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/krellwind/tether/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noEnv(string) string { return "" }

func envOwner(pid string) func(string) string {
	return func(key string) string {
		if key == config.EnvOwnerPID {
			return pid
		}
		return ""
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTouchStampsCurrentTime(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	now := time.Unix(1700000000, int64(500*time.Millisecond))
	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(noEnv),
		WithClock(fixedClock(now)))

	tracker.Touch()

	rec, err := store.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, 1700000000.5, rec.Timestamp)
	assert.Nil(t, rec.OwnerPID)
}

func TestTouchEnvOverrideWinsOverPreviousOwner(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	prev := 111
	require.NoError(t, store.WriteRecord(&Record{Timestamp: 1, OwnerPID: &prev}))

	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(envOwner("222")),
		WithAliveCheck(func(int) bool { return true }))
	tracker.Touch()

	rec, err := store.ReadRecord()
	require.NoError(t, err)
	require.NotNil(t, rec.OwnerPID)
	assert.Equal(t, 222, *rec.OwnerPID)
}

func TestTouchKeepsAlivePreviousOwner(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	prev := 111
	require.NoError(t, store.WriteRecord(&Record{Timestamp: 1, OwnerPID: &prev}))

	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(noEnv),
		WithAliveCheck(func(pid int) bool { return pid == 111 }))
	tracker.Touch()

	rec, err := store.ReadRecord()
	require.NoError(t, err)
	require.NotNil(t, rec.OwnerPID)
	assert.Equal(t, 111, *rec.OwnerPID)
}

func TestTouchClearsDeadPreviousOwner(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	prev := 111
	require.NoError(t, store.WriteRecord(&Record{Timestamp: 1, OwnerPID: &prev}))

	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(noEnv),
		WithAliveCheck(func(int) bool { return false }))
	tracker.Touch()

	rec, err := store.ReadRecord()
	require.NoError(t, err)
	assert.Nil(t, rec.OwnerPID)
}

func TestTouchIgnoresUnparsableEnvOverride(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	prev := 111
	require.NoError(t, store.WriteRecord(&Record{Timestamp: 1, OwnerPID: &prev}))

	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(envOwner("banana")),
		WithAliveCheck(func(pid int) bool { return pid == 111 }))
	tracker.Touch()

	rec, err := store.ReadRecord()
	require.NoError(t, err)
	require.NotNil(t, rec.OwnerPID)
	assert.Equal(t, 111, *rec.OwnerPID, "bad override falls through to the previous owner")
}

func TestTouchSwallowsWriteFailures(t *testing.T) {
	// A plain file where the run dir should be makes every write fail.
	base := t.TempDir()
	blocked := filepath.Join(base, "run")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o600))

	tracker := NewTracker(NewStore(blocked, "default"), zap.NewNop(), WithEnvLookup(noEnv))
	assert.NotPanics(t, tracker.Touch)
}

func TestTouchSpawnsWatchdogWhenNoneAlive(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	spawned := 0
	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(noEnv),
		WithAliveCheck(func(int) bool { return false }),
		WithWatchdogSpawner(func() (int, error) {
			spawned++
			return 7777, nil
		}))

	tracker.Touch()
	assert.Equal(t, 1, spawned)
	assert.Equal(t, 7777, store.ReadWatchdogPID())
}

func TestTouchSkipsSpawnWhileWatchdogAlive(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	require.NoError(t, store.WriteWatchdogPID(7777))

	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(noEnv),
		WithAliveCheck(func(pid int) bool { return pid == 7777 }),
		WithWatchdogSpawner(func() (int, error) {
			t.Fatal("must not spawn a second watchdog")
			return 0, nil
		}))

	tracker.Touch()
	tracker.Touch()
}

func TestTouchRespawnsAfterWatchdogDeath(t *testing.T) {
	store := NewStore(t.TempDir(), "default")
	require.NoError(t, store.WriteWatchdogPID(7777))

	spawned := 0
	tracker := NewTracker(store, zap.NewNop(),
		WithEnvLookup(noEnv),
		WithAliveCheck(func(pid int) bool { return pid == 8888 }),
		WithWatchdogSpawner(func() (int, error) {
			spawned++
			return 8888, nil
		}))

	tracker.Touch()
	assert.Equal(t, 1, spawned)
	assert.Equal(t, 8888, store.ReadWatchdogPID())

	// The replacement is alive now, no further spawn.
	tracker.Touch()
	assert.Equal(t, 1, spawned)
}
