package tree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/janisbent/ectf-workshop/board"
	"github.com/janisbent/ectf-workshop/crypto"
)

// buildCover mirrors the navigator's own state machine to produce the full
// ordered node list for [start, end]: since the branch taken at each step
// depends only on the current (startPrefix, endPrefix) pair, never on the
// target timestamp, running the machine to exhaustion yields exactly the
// cover a subscription would have stored.
func buildCover(start, end uint64) []Vertex {
	startPrefix, endPrefix := start, end
	bits := 64

	var left, right []Vertex

	for {
		startLow := startPrefix&1 == 0
		endLow := endPrefix&1 == 1

		switch {
		case startLow && endLow:
			startPrefix >>= 1
			endPrefix >>= 1
			bits--

		case startPrefix&1 == 1:
			left = append(left, Vertex{Prefix: startPrefix, Bits: bits})
			if startPrefix == endPrefix {
				return appendReversed(left, right)
			}
			startPrefix++

		default:
			right = append(right, Vertex{Prefix: endPrefix, Bits: bits})
			if endPrefix == startPrefix {
				return appendReversed(left, right)
			}
			endPrefix--
		}

		if startPrefix > endPrefix {
			return appendReversed(left, right)
		}
	}
}

func appendReversed(left, right []Vertex) []Vertex {
	out := append([]Vertex{}, left...)
	for i := len(right) - 1; i >= 0; i-- {
		out = append(out, right[i])
	}
	return out
}

func vertexContains(v Vertex, t uint64) bool {
	shift := uint(64 - v.Bits)
	return v.Prefix == t>>shift
}

func coverOf(nodes []Vertex) Cover {
	return Cover{
		KeyCount: len(nodes),
		NodeKey: func(i int) [16]byte {
			var k [16]byte
			k[0] = byte(i + 1)
			return k
		},
	}
}

func TestKeyIndexForTimeOutOfRange(t *testing.T) {
	nodes := buildCover(10, 20)
	cov := coverOf(nodes)
	cov.Start, cov.End = 10, 20

	_, _, err := KeyIndexForTime(cov, 9)
	require.ErrorIs(t, err, ErrOutOfRange)

	_, _, err = KeyIndexForTime(cov, 21)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestKeyIndexForTimeEverySlotInSmallRange(t *testing.T) {
	const start, end = 10, 20
	nodes := buildCover(start, end)
	cov := coverOf(nodes)
	cov.Start, cov.End = start, end

	for tt := uint64(start); tt <= end; tt++ {
		idx, v, err := KeyIndexForTime(cov, tt)
		require.NoError(t, err)
		require.True(t, idx >= 0 && idx < len(nodes))
		require.Equal(t, nodes[idx], v)
		require.True(t, vertexContains(v, tt), "vertex %+v does not contain t=%d", v, tt)
	}
}

func TestKeyIndexForTimeFullRange(t *testing.T) {
	nodes := buildCover(0, ^uint64(0))
	require.Len(t, nodes, 1)
	require.Equal(t, Vertex{Prefix: 0, Bits: 0}, nodes[0])

	cov := coverOf(nodes)
	cov.Start, cov.End = 0, ^uint64(0)

	for _, tt := range []uint64{0, 1, 1 << 32, ^uint64(0)} {
		idx, v, err := KeyIndexForTime(cov, tt)
		require.NoError(t, err)
		require.Equal(t, 0, idx)
		require.True(t, vertexContains(v, tt))
	}
}

func TestKeyIndexForTimeSingleLeaf(t *testing.T) {
	nodes := buildCover(42, 42)
	require.Len(t, nodes, 1)
	require.Equal(t, 64, nodes[0].Bits)
	require.Equal(t, uint64(42), nodes[0].Prefix)

	cov := coverOf(nodes)
	cov.Start, cov.End = 42, 42

	idx, v, err := KeyIndexForTime(cov, 42)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, nodes[0], v)
}

func testSecrets() board.Secrets {
	return board.Secrets{
		LeftTreeKey:  [32]byte{1},
		RightTreeKey: [32]byte{2},
	}
}

func TestDeriveTreeKeyIsDeterministic(t *testing.T) {
	secrets := testSecrets()
	v := Vertex{Prefix: 0b101, Bits: 61}
	nodeKey := [16]byte{9, 9, 9}

	k1, err := DeriveTreeKey(100, nodeKey, v, secrets)
	require.NoError(t, err)
	k2, err := DeriveTreeKey(100, nodeKey, v, secrets)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}

func TestDeriveTreeKeyDiffersAcrossLeavesUnderSameInteriorNode(t *testing.T) {
	secrets := testSecrets()
	nodes := buildCover(8, 15) // a single interior node at bits=61 covering [8,15]
	require.Len(t, nodes, 1)
	v := nodes[0]
	require.Less(t, v.Bits, 64)

	nodeKey := [16]byte{7}

	keyA, err := DeriveTreeKey(8, nodeKey, v, secrets)
	require.NoError(t, err)
	keyB, err := DeriveTreeKey(15, nodeKey, v, secrets)
	require.NoError(t, err)

	require.NotEqual(t, keyA, keyB)
}

func TestDeriveTreeKeyLeafUsesKDFLeafDirectly(t *testing.T) {
	secrets := testSecrets()
	v := Vertex{Prefix: 42, Bits: 64}
	nodeKey := [16]byte{3, 1, 4}

	got, err := DeriveTreeKey(42, nodeKey, v, secrets)
	require.NoError(t, err)

	want, err := crypto.KDFLeaf(nodeKey)
	require.NoError(t, err)

	require.Equal(t, want, got)
}
