package leave

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEnsureWalletCreatesAndAccrues(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureWallet(ctx, "emp1", 2025, date(2025, time.June, 1), "emp1"); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}

	// Six months elapsed: CL caps at 5, PL at 6, SL full grant, RH 1.
	want := map[LeaveType]float64{TypeCL: 5, TypePL: 6, TypeSL: 6, TypeRH: 1}
	for lt, expected := range want {
		bal, found, err := store.GetBalance(ctx, "emp1", 2025, lt)
		if err != nil || !found {
			t.Fatalf("balance %s missing: %v", lt, err)
		}
		if bal.Accrued != expected {
			t.Fatalf("%s accrued = %v, want %v", lt, bal.Accrued, expected)
		}
		if bal.Remaining != bal.Opening+bal.Accrued+bal.CarryForward-bal.Used {
			t.Fatalf("%s remaining violates the wallet invariant", lt)
		}
	}
}

func TestEnsureWalletIsIdempotent(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()
	asOf := date(2025, time.June, 1)

	if err := svc.EnsureWallet(ctx, "emp1", 2025, asOf, "emp1"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	first := store.transactionCount(ActionAccrual)

	if err := svc.EnsureWallet(ctx, "emp1", 2025, asOf, "emp1"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if got := store.transactionCount(ActionAccrual); got != first {
		t.Fatalf("repeat ensure appended accrual transactions: %d then %d", first, got)
	}
}

func TestManualAdjustDeductsAndLogs(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.ManualAdjust(ctx, "emp1", 2025, TypePL, -3, "hr1", "policy violation penalty"); err != nil {
		t.Fatalf("manual adjust: %v", err)
	}

	bal, _, _ := store.GetBalance(ctx, "emp1", 2025, TypePL)
	if bal.Used != 3 || bal.Remaining != 3 {
		t.Fatalf("expected used 3 remaining 3, got used %v remaining %v", bal.Used, bal.Remaining)
	}
	if store.transactionCount(ActionManualAdjust) != 1 {
		t.Fatal("expected one MANUAL_ADJUST transaction")
	}
}

func TestManualAdjustRejectsNegativeRemaining(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.ManualAdjust(ctx, "emp1", 2025, TypePL, -10, "hr1", "too much")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance, got %v", err)
	}

	bal, _, _ := store.GetBalance(ctx, "emp1", 2025, TypePL)
	if bal.Used != 0 {
		t.Fatalf("failed adjustment must not change the wallet, used = %v", bal.Used)
	}
}

func TestManualAdjustRequiresRemark(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	err := svc.ManualAdjust(context.Background(), "emp1", 2025, TypePL, -1, "hr1", "  ")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != "remark_required" {
		t.Fatalf("expected remark_required, got %v", err)
	}
}

func TestDeductPenaltyIsHROnly(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.DeductPenalty(ctx, "emp2", 2025, 3, "mgr1", "unauthorised absence")
	var aerr *AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected authorization error for manager, got %v", err)
	}

	if err := svc.DeductPenalty(ctx, "emp2", 2025, 3, "hr1", "unauthorised absence"); err != nil {
		t.Fatalf("HR penalty deduction failed: %v", err)
	}
	bal, _, _ := store.GetBalance(ctx, "emp2", 2025, TypePL)
	if bal.Used != 3 {
		t.Fatalf("expected 3 PL days deducted, got %v", bal.Used)
	}
}
