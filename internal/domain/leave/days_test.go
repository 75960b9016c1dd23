package leave

import (
	"testing"
	"time"
)

func TestChargeableDaysSandwichesWeekend(t *testing.T) {
	// Saturday through Monday with Sunday off.
	from := date(2025, time.June, 14)
	to := date(2025, time.June, 16)
	nonWorking := NewDateSet(date(2025, time.June, 15))

	days, byMonth := ChargeableDays(TypeCL, from, to, nonWorking, true)
	if days != 3 {
		t.Fatalf("expected 3 chargeable days with sandwich, got %v", days)
	}
	if byMonth["2025-06"] != 3 {
		t.Fatalf("expected month breakdown of 3, got %v", byMonth["2025-06"])
	}
}

func TestChargeableDaysLWPNeverSandwiches(t *testing.T) {
	from := date(2025, time.June, 14)
	to := date(2025, time.June, 16)
	nonWorking := NewDateSet(date(2025, time.June, 15))

	days, _ := ChargeableDays(TypeLWP, from, to, nonWorking, true)
	if days != 2 {
		t.Fatalf("expected 2 chargeable days for LWP, got %v", days)
	}
}

func TestChargeableDaysSandwichDisabled(t *testing.T) {
	from := date(2025, time.June, 14)
	to := date(2025, time.June, 16)
	nonWorking := NewDateSet(date(2025, time.June, 15))

	days, _ := ChargeableDays(TypeCL, from, to, nonWorking, false)
	if days != 2 {
		t.Fatalf("expected 2 chargeable days with sandwich off, got %v", days)
	}
}

func TestChargeableDaysSingleOffDayIsZero(t *testing.T) {
	day := date(2025, time.June, 15)
	nonWorking := NewDateSet(day)

	days, byMonth := ChargeableDays(TypeCL, day, day, nonWorking, true)
	if days != 0 {
		t.Fatalf("expected 0 chargeable days, got %v", days)
	}
	if len(byMonth) != 0 {
		t.Fatalf("expected empty month breakdown, got %v", byMonth)
	}
}

func TestChargeableDaysLeadingOffDayNotCharged(t *testing.T) {
	// Off day at the start has no baseline day before it.
	from := date(2025, time.June, 15)
	to := date(2025, time.June, 17)
	nonWorking := NewDateSet(date(2025, time.June, 15))

	days, _ := ChargeableDays(TypePL, from, to, nonWorking, true)
	if days != 2 {
		t.Fatalf("expected 2 chargeable days, got %v", days)
	}
}

func TestChargeableDaysCrossMonthBreakdown(t *testing.T) {
	from := date(2025, time.June, 30)
	to := date(2025, time.July, 1)

	days, byMonth := ChargeableDays(TypeCL, from, to, NewDateSet(), true)
	if days != 2 {
		t.Fatalf("expected 2 chargeable days, got %v", days)
	}
	if byMonth["2025-06"] != 1 || byMonth["2025-07"] != 1 {
		t.Fatalf("expected one day in each month, got %v", byMonth)
	}
}
