package leave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lms/internal/domain/directory"
)

func TestRunMonthlyAccrualCreditsActiveEmployees(t *testing.T) {
	svc, store, dir, _, _ := newTestService(t)
	dir.employees["emp5"] = directory.Employee{
		ID: "emp5", Code: "E005", Name: "Later",
		JoinDate: date(2025, time.September, 1), Active: true, ManagerID: "mgr1", Role: "EMPLOYEE",
	}
	ctx := context.Background()

	summary, err := svc.RunMonthlyAccrual(ctx, 2025, time.June, "hr1")
	if err != nil {
		t.Fatalf("accrual run failed: %v", err)
	}
	if summary.Month != "2025-06" {
		t.Fatalf("unexpected month label %q", summary.Month)
	}
	if summary.Processed != 5 {
		t.Fatalf("expected 5 processed, got %d", summary.Processed)
	}
	if summary.SkippedNotEligible != 1 {
		t.Fatalf("future joiner should be skipped, got %d", summary.SkippedNotEligible)
	}

	bal, found, _ := store.GetBalance(ctx, "emp1", 2025, TypeCL)
	if !found || bal.Accrued != 5 {
		t.Fatalf("expected CL accrued 5 for emp1, got %+v", bal)
	}
}

func TestRunMonthlyAccrualIsIdempotent(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RunMonthlyAccrual(ctx, 2025, time.June, "hr1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := store.transactionCount(ActionAccrual)

	if _, err := svc.RunMonthlyAccrual(ctx, 2025, time.June, "hr1"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := store.transactionCount(ActionAccrual); got != first {
		t.Fatalf("duplicate run credited again: %d then %d accrual transactions", first, got)
	}
}

func TestRunMonthlyAccrualLaterMonthAddsDelta(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RunMonthlyAccrual(ctx, 2025, time.May, "hr1"); err != nil {
		t.Fatalf("may run: %v", err)
	}
	may, _, _ := store.GetBalance(ctx, "emp1", 2025, TypePL)
	if may.Accrued != 5 {
		t.Fatalf("expected PL accrued 5 through May, got %v", may.Accrued)
	}

	if _, err := svc.RunMonthlyAccrual(ctx, 2025, time.June, "hr1"); err != nil {
		t.Fatalf("june run: %v", err)
	}
	june, _, _ := store.GetBalance(ctx, "emp1", 2025, TypePL)
	if june.Accrued != 6 {
		t.Fatalf("expected PL accrued 6 through June, got %v", june.Accrued)
	}
}

type recordedAudit struct {
	ActorID string
	Action  string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedAudit
}

func (f *fakeRecorder) Record(ctx context.Context, actorID, action, entityType, entityID string, meta map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedAudit{ActorID: actorID, Action: action})
	return nil
}

func TestRunMonthlyAccrualAttributesActor(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	rec := &fakeRecorder{}
	svc.Audit = rec
	ctx := context.Background()

	if _, err := svc.RunMonthlyAccrual(ctx, 2025, time.June, "system"); err != nil {
		t.Fatalf("accrual run failed: %v", err)
	}

	store.mu.Lock()
	for _, txn := range store.txns {
		if txn.Action == ActionAccrual && txn.ActorID != "system" {
			t.Fatalf("accrual transaction missing actor: %+v", txn)
		}
	}
	store.mu.Unlock()

	found := false
	for _, e := range rec.events {
		if e.Action == "ACCRUAL_RUN" {
			found = true
			if e.ActorID != "system" {
				t.Fatalf("audit event actor = %q, want system", e.ActorID)
			}
		}
	}
	if !found {
		t.Fatal("expected an ACCRUAL_RUN audit event")
	}
}

func TestRunMonthlyAccrualRejectsInvalidMonth(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.RunMonthlyAccrual(context.Background(), 2025, time.Month(13), "hr1")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != "invalid_month" {
		t.Fatalf("expected invalid_month, got %v", err)
	}
}
