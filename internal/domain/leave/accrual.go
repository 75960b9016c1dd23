package leave

import (
	"math"
	"time"

	"lms/internal/domain/policy"
)

// TypeAccrual is the accrual position of one wallet type as of a date.
type TypeAccrual struct {
	Accrued          float64
	TotalEntitlement float64
	Eligible         bool
}

// ComputeAccrual recomputes the accrued amount per wallet type for a year as
// of the given date. It is a pure recomputation, never an increment, which
// is what makes the monthly accrual job idempotent.
//
// CL and PL accrue monthly from the later of January or the join month,
// capped at the annual entitlement. PL accrues regardless of eligibility;
// the eligibility gate (join date plus the configured months) only controls
// when the balance becomes usable. SL is an annual grant, pro-rated over the
// remaining months in the joining year. RH is a fixed entitlement of one.
func ComputeAccrual(joinDate time.Time, year int, asOf time.Time, p policy.Settings) map[LeaveType]TypeAccrual {
	joinDate = dateOnly(joinDate)
	asOf = dateOnly(asOf)
	months := monthsElapsedInYear(joinDate, year, asOf)

	clCap := float64(p.AnnualCL)
	plCap := float64(p.AnnualPL)
	slCap := float64(p.AnnualSL)

	clAccrued := math.Min(clCap, float64(months)*p.MonthlyCreditCL)
	plAccrued := math.Min(plCap, float64(months)*p.MonthlyCreditPL)

	slAccrued := slCap
	if joinDate.Year() == year {
		remainingMonths := 12 - int(joinDate.Month()) + 1
		slAccrued = math.Round(slCap*float64(remainingMonths)/12*10) / 10
	}

	return map[LeaveType]TypeAccrual{
		TypeCL: {Accrued: clAccrued, TotalEntitlement: clCap, Eligible: true},
		TypeSL: {Accrued: slAccrued, TotalEntitlement: slCap, Eligible: true},
		TypePL: {Accrued: plAccrued, TotalEntitlement: plCap, Eligible: PLEligible(joinDate, asOf, p.PLEligibilityMonths)},
		TypeRH: {Accrued: float64(p.AnnualRH), TotalEntitlement: float64(p.AnnualRH), Eligible: true},
	}
}

// PLEligible reports whether PL is usable as of a date: the eligibility
// window after the join date must have elapsed.
func PLEligible(joinDate, asOf time.Time, eligibilityMonths int) bool {
	return !dateOnly(asOf).Before(addMonths(dateOnly(joinDate), eligibilityMonths))
}

func monthsElapsedInYear(joinDate time.Time, year int, asOf time.Time) int {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if asOf.Before(end) {
		end = asOf
	}
	if joinDate.Year() == year {
		start = time.Date(year, joinDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else if joinDate.After(end) {
		return 0
	}
	if start.After(end) {
		return 0
	}
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}
