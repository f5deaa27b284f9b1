package quantize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aligned(id string, at float64, kind Kind, confidence float64) AlignedEvent {
	return AlignedEvent{
		Time:  at,
		Kind:  kind,
		Attrs: map[string]any{"id": id},
		Info:  &AlignmentInfo{OriginalTime: at, Confidence: confidence, QuantizeMode: "1/4"},
	}
}

func TestResolveConflictsNoConflict(t *testing.T) {
	in := []AlignedEvent{
		aligned("1", 0.5, KindDon, 0.9),
		aligned("2", 1.0, KindKa, 0.8),
	}

	out := ResolveConflicts(in)

	assert.Equal(t, in, out)
}

func TestResolveConflictsSameKindKeepsMostConfident(t *testing.T) {
	out := ResolveConflicts([]AlignedEvent{
		aligned("low", 1.0, KindDon, 0.5),
		aligned("high", 1.0, KindDon, 0.9),
		aligned("mid", 1.0, KindDon, 0.7),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "high", out[0].Attrs["id"])
	assert.Equal(t, 1.0, out[0].Time)
	assert.False(t, out[0].Info.ConflictResolved)
}

func TestResolveConflictsSameKindTieKeepsFirst(t *testing.T) {
	out := ResolveConflicts([]AlignedEvent{
		aligned("first", 2.0, KindKa, 0.8),
		aligned("second", 2.0, KindKa, 0.8),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].Attrs["id"])
}

func TestResolveConflictsMixedKindsShiftLaterEvents(t *testing.T) {
	in := []AlignedEvent{
		aligned("don", 1.0, KindDon, 0.9),
		aligned("ka", 1.0, KindKa, 0.95),
	}

	out := ResolveConflicts(in)

	require.Len(t, out, 2)
	assert.Equal(t, "don", out[0].Attrs["id"])
	assert.Equal(t, 1.0, out[0].Time)
	assert.False(t, out[0].Info.ConflictResolved)

	assert.Equal(t, "ka", out[1].Attrs["id"])
	assert.InDelta(t, 1.001, out[1].Time, 1e-12)
	assert.True(t, out[1].Info.ConflictResolved)

	// the input info block is untouched
	assert.False(t, in[1].Info.ConflictResolved)
	assert.Equal(t, 1.0, in[1].Time)
}

func TestResolveConflictsMixedGroupKeepsEveryMember(t *testing.T) {
	out := ResolveConflicts([]AlignedEvent{
		aligned("a", 2.0, KindDon, 0.9),
		aligned("b", 2.0, KindKa, 0.9),
		aligned("c", 2.0, KindDon, 0.9),
		aligned("d", 2.0, "big_don", 0.9),
	})

	require.Len(t, out, 4)
	for i, e := range out {
		assert.InDelta(t, 2.0+float64(i)*ConflictOffset, e.Time, 1e-12)
		for _, other := range out[i+1:] {
			assert.GreaterOrEqual(t, other.Time-e.Time, ConflictOffset-1e-12)
		}
	}
}

func TestResolveConflictsRoundsToMicroseconds(t *testing.T) {
	out := ResolveConflicts([]AlignedEvent{
		aligned("a", 1.0, KindDon, 0.4),
		aligned("b", 1.0000001, KindDon, 0.6),
		aligned("c", 1.00001, KindDon, 0.9),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Attrs["id"])
	assert.Equal(t, "c", out[1].Attrs["id"])
}

func TestResolveConflictsGroupOrderFollowsFirstSeen(t *testing.T) {
	out := ResolveConflicts([]AlignedEvent{
		aligned("late", 3.0, KindDon, 0.5),
		aligned("early", 1.0, KindKa, 0.5),
		aligned("late-dup", 3.0, KindDon, 0.9),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "late-dup", out[0].Attrs["id"])
	assert.Equal(t, "early", out[1].Attrs["id"])
}

func TestResolveConflictsAlwaysResolves(t *testing.T) {
	kinds := []Kind{KindDon, KindKa}
	var in []AlignedEvent
	for i := 0; i < 200; i++ {
		in = append(in, aligned("x", float64(i%7)*0.25, kinds[(i/3)%2], float64(i%5)/5))
	}

	out := ResolveConflicts(in)

	assert.NotEmpty(t, out)
	assert.LessOrEqual(t, len(out), len(in))
	seen := make(map[int64]Kind)
	for _, e := range out {
		k := timeKey(e.Time)
		if prev, ok := seen[k]; ok {
			assert.Equal(t, prev, e.Kind, "distinct kinds share %v", e.Time)
		}
		seen[k] = e.Kind
	}
}

func TestResolveConflictsEmpty(t *testing.T) {
	assert.Empty(t, ResolveConflicts(nil))
}
