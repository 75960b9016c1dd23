package leave

import (
	"context"
	"testing"
)

func seedPLBalance(t *testing.T, store *fakeStore, employeeID string, year int, opening, accrued, used float64) {
	t.Helper()
	bal := WalletBalance{EmployeeID: employeeID, Year: year, Type: TypePL, Opening: opening, Accrued: accrued, Used: used}
	bal.Recompute()
	if _, err := store.InsertBalance(context.Background(), bal); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

func TestYearCloseCarriesForwardAndEncashes(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	// 4 + 7 - 1 = 10 unused PL against a carry-forward cap of 4.
	seedPLBalance(t, store, "emp1", 2025, 4, 7, 1)

	summary, err := svc.RunYearClose(ctx, 2025, "hr1")
	if err != nil {
		t.Fatalf("year close failed: %v", err)
	}
	if summary.Processed != 1 || summary.TotalCarryForward != 4 || summary.TotalEncash != 6 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	closed, _, _ := store.GetBalance(ctx, "emp1", 2025, TypePL)
	if closed.CarryForward != 4 {
		t.Fatalf("closing year carry forward = %v, want 4", closed.CarryForward)
	}

	next, found, _ := store.GetBalance(ctx, "emp1", 2026, TypePL)
	if !found || next.Opening != 4 || next.CarryForward != 0 {
		t.Fatalf("next year PL should open at 4 with no carry forward of its own, got %+v", next)
	}
	if next.Remaining != 4 {
		t.Fatalf("next year PL remaining = %v, want 4", next.Remaining)
	}

	// The other wallet rows exist for the new year but start empty.
	for _, lt := range []LeaveType{TypeCL, TypeSL, TypeRH} {
		bal, found, _ := store.GetBalance(ctx, "emp1", 2026, lt)
		if !found {
			t.Fatalf("next year %s row missing", lt)
		}
		if bal.Opening != 0 || bal.Remaining != 0 {
			t.Fatalf("next year %s should start empty, got %+v", lt, bal)
		}
	}

	if store.transactionCount(ActionYearClose) != 1 {
		t.Fatal("expected one YEAR_CLOSE transaction")
	}
}

func TestYearCloseUnderCapCarriesEverything(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	// 0 + 7 - 5 = 2 unused, below the cap.
	seedPLBalance(t, store, "emp1", 2025, 0, 7, 5)

	summary, err := svc.RunYearClose(ctx, 2025, "hr1")
	if err != nil {
		t.Fatalf("year close failed: %v", err)
	}
	if summary.TotalCarryForward != 2 || summary.TotalEncash != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	next, _, _ := store.GetBalance(ctx, "emp1", 2026, TypePL)
	if next.Opening != 2 {
		t.Fatalf("next year PL opening = %v, want 2", next.Opening)
	}
}

func TestYearCloseIsIdempotent(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	seedPLBalance(t, store, "emp1", 2025, 4, 7, 1)

	if _, err := svc.RunYearClose(ctx, 2025, "hr1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _, _ := store.GetBalance(ctx, "emp1", 2026, TypePL)

	summary, err := svc.RunYearClose(ctx, 2025, "hr1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.TotalCarryForward != 4 {
		t.Fatalf("re-run should recompute the same carry forward, got %v", summary.TotalCarryForward)
	}

	second, _, _ := store.GetBalance(ctx, "emp1", 2026, TypePL)
	if second.Opening != first.Opening || second.Remaining != first.Remaining {
		t.Fatalf("re-run changed next year balance: %+v vs %+v", first, second)
	}
	if store.transactionCount(ActionYearClose) != 1 {
		t.Fatal("re-run must not append another YEAR_CLOSE transaction")
	}
}

func TestYearCloseMultipleEmployees(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	seedPLBalance(t, store, "emp1", 2025, 0, 7, 0)
	seedPLBalance(t, store, "emp2", 2025, 0, 7, 7)

	summary, err := svc.RunYearClose(ctx, 2025, "hr1")
	if err != nil {
		t.Fatalf("year close failed: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", summary.Processed)
	}
	if summary.TotalCarryForward != 4 || summary.TotalEncash != 3 {
		t.Fatalf("unexpected totals: %+v", summary)
	}

	drained, _, _ := store.GetBalance(ctx, "emp2", 2026, TypePL)
	if drained.Opening != 0 {
		t.Fatalf("fully used PL should carry nothing, got %v", drained.Opening)
	}
}
