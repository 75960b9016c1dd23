package policy

import "testing"

func TestDefaults(t *testing.T) {
	p := Defaults(2025)
	if p.Year != 2025 {
		t.Fatalf("year = %d", p.Year)
	}
	if p.AnnualPL != 7 || p.AnnualCL != 5 || p.AnnualSL != 6 || p.AnnualRH != 1 {
		t.Fatalf("unexpected entitlements: %+v", p)
	}
	if p.PLEligibilityMonths != 6 || p.BackdatedMaxDays != 7 || p.CarryForwardPLMax != 4 {
		t.Fatalf("unexpected policy windows: %+v", p)
	}
	if p.EnforceNoticeDays || p.EnforceMonthlyCap {
		t.Fatal("notice and monthly cap default to off")
	}
	if !p.SandwichEnabled || !p.SandwichIncludeEvents {
		t.Fatal("sandwich rules default to on")
	}
	if p.WeeklyOffDay != 7 {
		t.Fatalf("weekly off day = %d, want Sunday (7)", p.WeeklyOffDay)
	}
}
