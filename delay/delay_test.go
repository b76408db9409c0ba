package delay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/janisbent/ectf-workshop/entropy"
	"github.com/janisbent/ectf-workshop/rng"
)

func TestSmallDelayConsumesExactlyOnePoolByte(t *testing.T) {
	var pool entropy.Pool
	src := &rng.FixedSource{Words: []uint32{1, 2, 3, 4}}
	require.NoError(t, pool.Refill(src))

	SmallDelay(&pool)
	for i := 0; i < entropy.Size-1; i++ {
		require.False(t, pool.NeedsRefill())
		pool.Byte()
	}
	require.True(t, pool.NeedsRefill())
}

func TestSmallDelayNeverCallsTRNGDirectly(t *testing.T) {
	var pool entropy.Pool
	src := &rng.FixedSource{Words: []uint32{0, 0, 0, 0}}
	require.NoError(t, pool.Refill(src))

	// Draining the whole pool with SmallDelay must not itself trigger a
	// refill: that decision belongs to the dispatcher, not this package.
	for i := 0; i < entropy.Size; i++ {
		SmallDelay(&pool)
	}
	require.True(t, pool.NeedsRefill())
}

func TestLargeDelayDrawsFromSource(t *testing.T) {
	src := &rng.FixedSource{Words: []uint32{0b0110_0110_0110_0110_0110_0110_0110_0110}}
	LargeDelay(src)
}
