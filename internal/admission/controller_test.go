package admission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sllt-wei/plugin-summary/internal/repository/memory"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newController(t *testing.T, cooldown time.Duration) (*Controller, *memory.SessionMetaRepository) {
	t.Helper()
	meta := memory.NewSessionMetaRepository()
	return NewController(meta, cooldown, testLogger()), meta
}

func TestTryAdmit_SingleFlightPerSession(t *testing.T) {
	ctrl, _ := newController(t, time.Hour)

	assert.True(t, ctrl.TryAdmit("g1"))
	assert.False(t, ctrl.TryAdmit("g1"))

	ctrl.Release("g1")
	assert.True(t, ctrl.TryAdmit("g1"))
}

func TestTryAdmit_ConcurrentSameSession(t *testing.T) {
	ctrl, _ := newController(t, time.Hour)

	const callers = 32
	var wg sync.WaitGroup
	admitted := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- ctrl.TryAdmit("g1")
		}()
	}
	wg.Wait()
	close(admitted)

	var wins int
	for ok := range admitted {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent caller may win the slot")
}

func TestTryAdmit_DifferentSessionsDoNotContend(t *testing.T) {
	ctrl, _ := newController(t, time.Hour)

	assert.True(t, ctrl.TryAdmit("g1"))
	assert.True(t, ctrl.TryAdmit("g2"))
}

func TestRelease_IdleSessionIsNoOp(t *testing.T) {
	ctrl, _ := newController(t, time.Hour)

	ctrl.Release("never-admitted")
	assert.True(t, ctrl.TryAdmit("never-admitted"))
}

func TestAdmit_DisabledGate(t *testing.T) {
	ctrl, meta := newController(t, time.Hour)
	require.NoError(t, meta.SetDisabled(context.Background(), "g1", true))

	err := ctrl.Admit(context.Background(), "g1")
	assert.ErrorIs(t, err, ErrDisabled)

	// The slot must not have been taken.
	assert.True(t, ctrl.TryAdmit("g1"))
}

func TestAdmit_CooldownGate(t *testing.T) {
	ctrl, meta := newController(t, time.Hour)
	base := time.Unix(1_000_000, 0)
	ctrl.now = func() time.Time { return base }

	require.NoError(t, meta.SetLastSummaryAt(context.Background(), "g1", base.Add(-10*time.Minute).Unix()))

	err := ctrl.Admit(context.Background(), "g1")
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 50*time.Minute, cooldown.Remaining)

	// After the window elapses admission succeeds.
	ctrl.now = func() time.Time { return base.Add(51 * time.Minute) }
	require.NoError(t, ctrl.Admit(context.Background(), "g1"))
	ctrl.Release("g1")
}

func TestAdmit_NoPriorSummaryAdmits(t *testing.T) {
	ctrl, _ := newController(t, time.Hour)

	require.NoError(t, ctrl.Admit(context.Background(), "g1"))
	defer ctrl.Release("g1")

	assert.ErrorIs(t, ctrl.Admit(context.Background(), "g1"), ErrInProgress)
}
