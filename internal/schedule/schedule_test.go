package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalMidnight(t *testing.T) {
	// 14:00 UTC in a UTC-5 group is 09:00 local; local midnight is
	// 05:00 UTC that day.
	at := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	got := LocalMidnight(at, -5)
	assert.Equal(t, time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC), got)

	// 01:00 UTC in a UTC-5 group is still the previous local day.
	at = time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	got = LocalMidnight(at, -5)
	assert.Equal(t, time.Date(2024, 3, 9, 5, 0, 0, 0, time.UTC), got)

	// Positive offsets shift the other way: 23:00 UTC in UTC+3 is
	// already the next local day.
	at = time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)
	got = LocalMidnight(at, 3)
	assert.Equal(t, time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC), got)

	// Fractional offsets work too (e.g. UTC+5.5).
	at = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	got = LocalMidnight(at, 5.5)
	assert.Equal(t, time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC), got)
}

func TestEffectiveWindow(t *testing.T) {
	at := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

	w := EffectiveWindow(at, 7, PaceDay, -5)
	start := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, start.Add(7*24*time.Hour), w.RawEnd)
	assert.Equal(t, start.Add(7*24*time.Hour-time.Minute), w.End)

	// Week pace stretches each period to 7 days.
	w = EffectiveWindow(at, 4, PaceWeek, 0)
	start = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, start.Add(28*24*time.Hour), w.RawEnd)

	// Unknown pace falls back to day.
	w = EffectiveWindow(at, 3, "fortnight", 0)
	assert.Equal(t, start.Add(3*24*time.Hour), w.RawEnd)
}

func TestWindowOverlaps(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	}
	a := WindowFrom(day(1), 7, PaceDay) // Mar 1 .. Mar 8 (minus a minute)
	b := WindowFrom(day(5), 7, PaceDay)
	c := WindowFrom(day(8), 7, PaceDay)

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a), "overlap must be symmetric")
	assert.True(t, a.Overlaps(a), "a window overlaps itself")

	// Back-to-back plans do not overlap: a ends a minute before c starts.
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))

	// A window fully inside another overlaps it.
	inner := WindowFrom(day(2), 2, PaceDay)
	assert.True(t, a.Overlaps(inner))
	assert.True(t, inner.Overlaps(a))
}

func TestWindowContains(t *testing.T) {
	w := WindowFrom(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 7, PaceDay)

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.True(t, w.Contains(w.Start.Add(3*24*time.Hour)))
	assert.False(t, w.Contains(w.Start.Add(-time.Second)))
	assert.False(t, w.Contains(w.RawEnd))
}

func TestFindOverlaps(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	}
	span := func(id string, startDay, duration int) Span {
		return Span{ID: id, Window: WindowFrom(day(startDay), duration, PaceDay)}
	}

	t.Run("no existing plans", func(t *testing.T) {
		candidate := span("new", 1, 7)
		res := FindOverlaps(candidate, nil)
		assert.Empty(t, res.Overlapping)
		assert.Equal(t, "new", res.NextToActivate.ID)
	})

	t.Run("earlier existing plan wins", func(t *testing.T) {
		candidate := span("new", 5, 7)
		existing := []Span{span("old", 1, 7)}
		res := FindOverlaps(candidate, existing)
		assert.Len(t, res.Overlapping, 1)
		assert.Equal(t, "old", res.NextToActivate.ID)
	})

	t.Run("candidate wins over later plans", func(t *testing.T) {
		candidate := span("new", 1, 7)
		existing := []Span{span("later", 5, 7), span("much-later", 7, 3)}
		res := FindOverlaps(candidate, existing)
		assert.Len(t, res.Overlapping, 2)
		assert.Equal(t, "new", res.NextToActivate.ID)
	})

	t.Run("candidate wins ties", func(t *testing.T) {
		candidate := span("new", 3, 5)
		existing := []Span{span("same-start", 3, 7)}
		res := FindOverlaps(candidate, existing)
		assert.Equal(t, "new", res.NextToActivate.ID)
	})

	t.Run("non-overlapping plans are ignored", func(t *testing.T) {
		candidate := span("new", 1, 7)
		existing := []Span{span("after", 8, 7), span("clash", 4, 2)}
		res := FindOverlaps(candidate, existing)
		assert.Len(t, res.Overlapping, 1)
		assert.Equal(t, "clash", res.Overlapping[0].ID)
		assert.Equal(t, "new", res.NextToActivate.ID)
	})
}

func TestBlockIndexAt(t *testing.T) {
	start := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, BlockIndexAt(start.Add(-time.Hour), start, PaceDay))
	assert.Equal(t, 1, BlockIndexAt(start, start, PaceDay))
	assert.Equal(t, 1, BlockIndexAt(start.Add(23*time.Hour), start, PaceDay))
	assert.Equal(t, 2, BlockIndexAt(start.Add(24*time.Hour), start, PaceDay))
	assert.Equal(t, 8, BlockIndexAt(start.Add(7*24*time.Hour), start, PaceDay))

	assert.Equal(t, 1, BlockIndexAt(start.Add(6*24*time.Hour), start, PaceWeek))
	assert.Equal(t, 2, BlockIndexAt(start.Add(7*24*time.Hour), start, PaceWeek))
}
