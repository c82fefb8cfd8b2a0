package engine

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleIsPermutation(t *testing.T) {
	t.Parallel()

	in := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	orig := append([]int(nil), in...)

	out := Shuffle(NewRand(42), in)
	assert.Equal(t, orig, in, "input must not be mutated")
	require.Len(t, out, len(in))

	sorted := append([]int(nil), out...)
	sort.Ints(sorted)
	assert.Equal(t, orig, sorted)
}

func TestShuffleSameSeedSameOrder(t *testing.T) {
	t.Parallel()

	in := []string{"a", "b", "c", "d", "e", "f"}
	assert.Equal(t, Shuffle(NewRand(7), in), Shuffle(NewRand(7), in))
}

func TestShuffleEdgeCases(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Shuffle(NewRand(1), []int{}))
	assert.Equal(t, []int{9}, Shuffle(NewRand(1), []int{9}))
}

func TestShuffleReachesEveryOrder(t *testing.T) {
	t.Parallel()

	seen := map[[3]int]bool{}
	rng := NewRand(99)
	for i := 0; i < 600; i++ {
		out := Shuffle(rng, []int{1, 2, 3})
		seen[[3]int{out[0], out[1], out[2]}] = true
	}
	assert.Len(t, seen, 6)
}

func TestValidateIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{name: "valid", ids: []string{"a", "b"}},
		{name: "empty", ids: nil, wantErr: true},
		{name: "blank id", ids: []string{"a", ""}, wantErr: true},
		{name: "duplicate", ids: []string{"a", "b", "a"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateIDs(tc.ids)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDefinition)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStopwatch(t *testing.T) {
	t.Parallel()

	w := Stopwatch{}
	w = w.Tick().Tick()
	assert.Equal(t, 2, w.Seconds)

	w.Suspended = true
	w = w.Tick()
	assert.Equal(t, 2, w.Seconds)
}

func TestCountdownSync(t *testing.T) {
	t.Parallel()

	c := NewCountdown(10)
	assert.Equal(t, 10, c.Sync(10*time.Second).Remaining)
	assert.Equal(t, 10, c.Sync(9001*time.Millisecond).Remaining)
	assert.Equal(t, 9, c.Sync(9*time.Second).Remaining)
	assert.Equal(t, 1, c.Sync(time.Millisecond).Remaining)
	assert.Equal(t, 0, c.Sync(0).Remaining)
	assert.Equal(t, 0, c.Sync(-time.Second).Remaining)
	assert.Equal(t, 10, c.Sync(time.Minute).Remaining)

	c = c.Sync(3 * time.Second).Reset()
	assert.Equal(t, 10, c.Remaining)
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float64(0), Percentage(3, 0))
	assert.Equal(t, float64(50), Percentage(1, 2))
	assert.Equal(t, float64(100), Percentage(4, 4))
}

func TestEffectsMerge(t *testing.T) {
	t.Parallel()

	e := After("a", 1, time.Second).Merge(Effects{Persist: true}).Merge(Complete())
	assert.True(t, e.Changed)
	assert.True(t, e.Persist)
	assert.True(t, e.Completed)
	assert.True(t, e.CancelPending)
	assert.Equal(t, []Continuation{{Kind: "a", Token: 1, Delay: time.Second}}, e.Schedule)
}

func TestDirectionGuess(t *testing.T) {
	t.Parallel()

	g, ok := DirectionRight.Guess()
	assert.True(t, ok)
	assert.True(t, g)

	g, ok = DirectionLeft.Guess()
	assert.True(t, ok)
	assert.False(t, g)

	_, ok = Direction("up").Guess()
	assert.False(t, ok)
}
