package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/janisbent/ectf-workshop/flash"
)

func freshStore(t *testing.T) (*Store, *flash.Sim) {
	t.Helper()
	sim := flash.NewSim(Slots)
	st, err := New(sim)
	require.NoError(t, err)
	return st, sim
}

func record(channel uint32, start, end uint64) *Subscription {
	s := &Subscription{
		Channel: channel,
		Start:   start,
		End:     end,
		Magic:   Magic,
	}
	s.Kch[0] = byte(channel)
	return s
}

func TestUpdateRejectsChannelZero(t *testing.T) {
	st, _ := freshStore(t)

	err := st.Update(record(0, 0, 100))
	require.ErrorIs(t, err, ErrChannelZero)
}

func TestUpdateDetectsBadInterval(t *testing.T) {
	st, _ := freshStore(t)

	err := st.Update(record(4, 100, 50))
	require.Error(t, err)

	var ae *AttackError
	require.ErrorAs(t, err, &ae)
}

func TestUpdateOverwritesExistingChannelSlot(t *testing.T) {
	st, _ := freshStore(t)

	require.NoError(t, st.Update(record(7, 0, 100)))
	first, err := st.FindByChannel(7)
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, st.Update(record(7, 0, 200)))

	second, err := st.FindByChannel(7)
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, uint64(200), second.End)

	// Only one slot holds channel 7.
	count := 0
	for i := 1; i < Slots; i++ {
		sub, err := st.Get(i)
		require.NoError(t, err)
		if sub != nil && sub.Channel == 7 {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestUpdateFillsEachFreeSlotExactlyOnce(t *testing.T) {
	st, _ := freshStore(t)

	for ch := uint32(1); ch <= 8; ch++ {
		require.NoError(t, st.Update(record(ch, 0, 100)))
	}

	seen := map[uint32]bool{}
	for i := 1; i < Slots; i++ {
		sub, err := st.Get(i)
		require.NoError(t, err)
		require.NotNil(t, sub)
		require.False(t, seen[sub.Channel], "channel %d occupies more than one slot", sub.Channel)
		seen[sub.Channel] = true
	}
	require.Len(t, seen, 8)
}

func TestUpdateReturnsFullWhenNoSlotAvailable(t *testing.T) {
	st, _ := freshStore(t)

	for ch := uint32(1); ch <= 8; ch++ {
		require.NoError(t, st.Update(record(ch, 0, 100)))
	}

	err := st.Update(record(9, 0, 100))
	require.ErrorIs(t, err, ErrFull)
}

func TestChannelZeroSurvivesUpdates(t *testing.T) {
	st, sim := freshStore(t)
	_ = sim

	zero := record(0, 0, ^uint64(0))
	require.NoError(t, st.SeedChannelZero(zero))

	for ch := uint32(1); ch <= 8; ch++ {
		require.NoError(t, st.Update(record(ch, 0, 100)))
	}

	got, err := st.Get(0)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint32(0), got.Channel)
}

func TestTornWriteLeavesSlotInvalid(t *testing.T) {
	st, sim := freshStore(t)

	require.NoError(t, st.Update(record(3, 0, 100)))

	sub, err := st.Get(1)
	require.NoError(t, err)
	require.NotNil(t, sub)

	// Arm a power cut partway through the next write to slot 1: short of
	// the magic word (the record's last word is the pad after it), so the
	// slot must read back invalid.
	sim.PowerCutAfter(1, recordSize-8)

	require.NoError(t, st.Update(record(3, 0, 200)))

	after, err := st.Get(1)
	require.NoError(t, err)
	require.Nil(t, after)
}

func TestGetOutOfRangeIsNil(t *testing.T) {
	st, _ := freshStore(t)

	sub, err := st.Get(-1)
	require.NoError(t, err)
	require.Nil(t, sub)

	sub, err = st.Get(Slots)
	require.NoError(t, err)
	require.Nil(t, sub)
}

func TestFindByChannelMissReturnsNil(t *testing.T) {
	st, _ := freshStore(t)

	sub, err := st.FindByChannel(42)
	require.NoError(t, err)
	require.Nil(t, sub)
}
