// Package schedule holds the pure interval math behind plan windows:
// timezone-normalized start dates, effective [start, end] windows, and
// the overlap resolution that keeps one plan active per group. No I/O,
// no clock reads; callers pass every instant in.
package schedule

import "time"

// Pace values: one block per day or one per week.
const (
	PaceDay  = "day"
	PaceWeek = "week"
)

// PeriodLength is the duration of one block's period for a pace.
// Unknown paces fall back to a day, matching how stored plans from
// older clients are read.
func PeriodLength(pace string) time.Duration {
	if pace == PaceWeek {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Window is a plan's effective interval. Start is the group-local
// midnight of the requested start, as an absolute instant. RawEnd is
// Start plus the full plan length; End backs off one minute so that
// back-to-back plans (one ending at midnight, the next starting at the
// same midnight) do not count as overlapping.
type Window struct {
	Start  time.Time
	End    time.Time
	RawEnd time.Time
}

// LocalMidnight returns the caller-local midnight containing t, as an
// absolute instant. tzOffsetHours is the signed UTC offset (UTC-5 is
// -5): local time is t plus the offset, and the local midnight converts
// back by subtracting it.
func LocalMidnight(t time.Time, tzOffsetHours float64) time.Time {
	offset := time.Duration(tzOffsetHours * float64(time.Hour))
	local := t.UTC().Add(offset)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(-offset)
}

// EffectiveWindow computes the window a plan occupies when started at
// requestedStart: the start normalized to the group-local midnight,
// running duration periods at the given pace.
func EffectiveWindow(requestedStart time.Time, duration int, pace string, tzOffsetHours float64) Window {
	start := LocalMidnight(requestedStart, tzOffsetHours)
	return WindowFrom(start, duration, pace)
}

// WindowFrom builds the window for an already-normalized start date.
func WindowFrom(start time.Time, duration int, pace string) Window {
	rawEnd := start.Add(time.Duration(duration) * PeriodLength(pace))
	return Window{
		Start:  start,
		End:    rawEnd.Add(-time.Minute),
		RawEnd: rawEnd,
	}
}

// Overlaps reports whether two closed windows [Start, End] intersect.
// Symmetric, and every window overlaps itself.
func (w Window) Overlaps(o Window) bool {
	s1, e1 := w.Start, w.End
	s2, e2 := o.Start, o.End
	return between(s1, s2, e1) || between(s1, e2, e1) ||
		between(s2, s1, e2) || between(s2, e1, e2)
}

// Contains reports whether t falls inside the closed window.
func (w Window) Contains(t time.Time) bool {
	return between(w.Start, t, w.End)
}

func between(lo, t, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// Span is a window tagged with the plan instance it belongs to.
// Callers must filter out ended instances before resolving overlaps;
// an ended plan never blocks a new one.
type Span struct {
	ID string
	Window
}

// OverlapResult is the resolver's answer for one candidate window.
type OverlapResult struct {
	// Overlapping holds the existing spans that intersect the
	// candidate, in input order.
	Overlapping []Span

	// NextToActivate is the span that should ultimately be active among
	// the candidate and everything it overlaps: the earliest start,
	// first seen winning ties. Nil only when there are no spans at all.
	NextToActivate *Span
}

// FindOverlaps resolves a candidate window against a group's live
// (non-ended) plan spans. The candidate itself competes for
// NextToActivate, so applying a plan over an earlier-starting one does
// not displace it.
func FindOverlaps(candidate Span, existing []Span) OverlapResult {
	res := OverlapResult{NextToActivate: &candidate}
	for i := range existing {
		if !candidate.Overlaps(existing[i].Window) {
			continue
		}
		res.Overlapping = append(res.Overlapping, existing[i])
		if existing[i].Start.Before(res.NextToActivate.Start) {
			next := existing[i]
			res.NextToActivate = &next
		}
	}
	return res
}

// BlockIndexAt is the 1-based index of the block covering now for a
// plan starting at start. Results below 1 or above the plan's duration
// mean now falls outside the plan.
func BlockIndexAt(now, start time.Time, pace string) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start)/PeriodLength(pace)) + 1
}
