package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopRoundTrip(t *testing.T) {
	w := NewWheel(64, 0)

	res := w.Push(1, "entry-1", 10)
	assert.Equal(t, Ok, res)
	assert.True(t, w.Contains(1))
	assert.Equal(t, 1, w.Size())

	entry, ok := w.Pop(1)
	require.True(t, ok)
	assert.Equal(t, "entry-1", entry)
	assert.False(t, w.Contains(1))
	assert.Equal(t, 0, w.Size())
}

func TestPushDuplicateID(t *testing.T) {
	w := NewWheel(64, 0)
	require.Equal(t, Ok, w.Push(1, "first", 10))
	assert.Equal(t, Duplicate, w.Push(1, "second", 20))

	entry, ok := w.Pop(1)
	require.True(t, ok)
	assert.Equal(t, "first", entry, "duplicate push must not disturb the existing entry")
}

func TestPushRespectsCapacity(t *testing.T) {
	w := NewWheel(64, 2)
	require.Equal(t, Ok, w.Push(1, "a", 5))
	require.Equal(t, Ok, w.Push(2, "b", 5))
	assert.Equal(t, Full, w.Push(3, "c", 5))
}

func TestTickFiresExpiredEntriesInDeadlineOrder(t *testing.T) {
	w := NewWheel(16, 0)
	w.Push(1, "late", 30)
	w.Push(2, "early", 10)
	w.Push(3, "mid", 20)

	var fired []any
	w.Tick(0, func(e any) { fired = append(fired, e) })
	assert.Empty(t, fired, "nothing should fire before its deadline")

	w.Tick(25, func(e any) { fired = append(fired, e) })
	assert.Equal(t, []any{"early", "mid"}, fired)
	assert.True(t, w.Contains(1))
	assert.False(t, w.Contains(2))
	assert.False(t, w.Contains(3))

	w.Tick(30, func(e any) { fired = append(fired, e) })
	assert.Equal(t, []any{"early", "mid", "late"}, fired)
	assert.False(t, w.Contains(1))
}

func TestTickMigratesFromOverflow(t *testing.T) {
	w := NewWheel(8, 0)
	// deadline sits well past the ring span, so it must start in the
	// overflow heap and migrate into the ring as currentMs approaches it.
	require.Equal(t, Ok, w.Push(1, "far", 1000))

	var fired []any
	for now := int64(0); now <= 1000; now += 50 {
		w.Tick(now, func(e any) { fired = append(fired, e) })
	}

	assert.Equal(t, []any{"far"}, fired)
}

func TestTickCallbackCanReinsert(t *testing.T) {
	w := NewWheel(16, 0)
	w.Push(1, "hedge", 10)

	var fired []any
	w.Tick(10, func(e any) {
		fired = append(fired, e)
		w.Push(2, "hedge-retry", 20)
	})

	assert.Equal(t, []any{"hedge"}, fired)
	assert.True(t, w.Contains(2))

	w.Tick(20, func(e any) { fired = append(fired, e) })
	assert.Equal(t, []any{"hedge", "hedge-retry"}, fired)
}

func TestPopAnyReturnsNearestDeadline(t *testing.T) {
	w := NewWheel(64, 0)
	w.Push(5, "slowest", 50)
	w.Push(6, "fastest", 5)
	w.Push(7, "middle", 20)

	entry, ok := w.PopAny()
	require.True(t, ok)
	assert.Equal(t, "fastest", entry)
	assert.Equal(t, 2, w.Size())
}

func TestPopAnyEmptyWheel(t *testing.T) {
	w := NewWheel(8, 0)
	_, ok := w.PopAny()
	assert.False(t, ok)
}

func TestPopMissingID(t *testing.T) {
	w := NewWheel(8, 0)
	_, ok := w.Pop(42)
	assert.False(t, ok)
}
