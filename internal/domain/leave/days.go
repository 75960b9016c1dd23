package leave

import "time"

// DateSet holds midnight-UTC dates.
type DateSet map[time.Time]struct{}

func NewDateSet(dates ...time.Time) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

func (s DateSet) Add(d time.Time) {
	s[dateOnly(d)] = struct{}{}
}

func (s DateSet) Has(d time.Time) bool {
	_, ok := s[dateOnly(d)]
	return ok
}

// ChargeableDays counts the days a leave request costs over [from, to]
// inclusive, given the non-working days in range (weekly off, active
// holidays and, when configured, company event days).
//
// Baseline days are the in-range dates outside the non-working set. With
// sandwiching off, or for types that never sandwich, the charge is the
// baseline alone. Otherwise a non-working day is also charged when the
// baseline holds at least one date before it and one after it, so an off
// day flanked by leave on both sides counts as leave. A single-day range
// can never produce a sandwiched day.
//
// Returns the total and a per-"YYYY-MM" breakdown. Pure: no clock, no
// storage.
func ChargeableDays(lt LeaveType, from, to time.Time, nonWorking DateSet, sandwich bool) (float64, map[string]float64) {
	from = dateOnly(from)
	to = dateOnly(to)
	if from.After(to) {
		return 0, map[string]float64{}
	}

	baseline := make(map[time.Time]struct{})
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !nonWorking.Has(d) {
			baseline[d] = struct{}{}
		}
	}

	included := baseline
	if sandwich && lt.Sandwichable() {
		for off := range nonWorking {
			if off.Before(from) || off.After(to) {
				continue
			}
			hasBefore, hasAfter := false, false
			for d := range baseline {
				if d.Before(off) {
					hasBefore = true
				}
				if d.After(off) {
					hasAfter = true
				}
			}
			if hasBefore && hasAfter {
				included[off] = struct{}{}
			}
		}
	}

	byMonth := make(map[string]float64)
	for d := range included {
		byMonth[monthKey(d)] += 1.0
	}
	return float64(len(included)), byMonth
}
