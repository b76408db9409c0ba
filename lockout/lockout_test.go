package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/janisbent/ectf-workshop/flash"
)

func countingSleep(count *int) func(time.Duration) {
	return func(time.Duration) { *count++ }
}

func TestProcessNoOpWhenCounterZero(t *testing.T) {
	sim := flash.NewSim(1)
	ticks := 0
	lo := New(sim, countingSleep(&ticks))

	lo.Process()
	require.Equal(t, 0, ticks)
	require.Equal(t, uint32(0), lo.read())
}

func TestAttackRunsFullMaximum(t *testing.T) {
	sim := flash.NewSim(1)
	ticks := 0
	lo := New(sim, countingSleep(&ticks))

	lo.Attack()

	require.Equal(t, MaxPeriods, ticks)
	require.Equal(t, uint32(0), lo.read())
}

func TestProcessClampsOversizedPersistedCounter(t *testing.T) {
	sim := flash.NewSim(1)
	ticks := 0
	lo := New(sim, countingSleep(&ticks))

	lo.write(1000)

	lo.Process()
	require.Equal(t, MaxPeriods, ticks)
	require.Equal(t, uint32(0), lo.read())
}

func TestPowerCutMidLockoutResumesRemainingPeriods(t *testing.T) {
	sim := flash.NewSim(1)
	ticks := 0
	lo := New(sim, countingSleep(&ticks))

	lo.write(3)

	// Simulate the board resetting after exactly one tick persisted: the
	// power cut hits during the second period, before it is counted, so
	// flash holds the two remaining periods.
	lo.sleep = func(time.Duration) {
		ticks++
		if ticks == 2 {
			panic("power cut")
		}
	}
	require.Panics(t, lo.Process)
	require.Equal(t, 2, ticks)
	require.Equal(t, uint32(2), lo.read())

	// A second, independent Lockout instance over the same backend
	// (modelling the post-reset boot) must still drain the remaining
	// periods, never fewer.
	ticks2 := 0
	lo2 := New(sim, countingSleep(&ticks2))
	lo2.Process()
	require.Equal(t, 2, ticks2)
	require.Equal(t, uint32(0), lo2.read())
}
