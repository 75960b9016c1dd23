package leave

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lms/internal/domain/directory"
	"lms/internal/platform/config"
	"lms/internal/platform/db"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Config{DatabaseURL: dbURL})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, "../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func createTestEmployee(t *testing.T, pool *pgxpool.Pool, code string) string {
	t.Helper()
	id, err := directory.NewStore(pool).Create(context.Background(), directory.Employee{
		Code:     code,
		Name:     "Test " + code,
		Email:    code + "@example.com",
		JoinDate: time.Date(2023, time.January, 10, 0, 0, 0, 0, time.UTC),
		Active:   true,
		Role:     "EMPLOYEE",
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return id
}

func TestStoreBalanceRoundTrip(t *testing.T) {
	pool := testPool(t)
	store := NewStore(pool)
	ctx := context.Background()
	empID := createTestEmployee(t, pool, "ITG001")

	bal := WalletBalance{EmployeeID: empID, Year: 2031, Type: TypeCL, Accrued: 5}
	bal.Recompute()
	id, err := store.InsertBalance(ctx, bal)
	if err != nil {
		t.Fatalf("insert balance: %v", err)
	}
	bal.ID = id

	loaded, found, err := store.GetBalance(ctx, empID, 2031, TypeCL)
	if err != nil || !found {
		t.Fatalf("get balance: found=%v err=%v", found, err)
	}
	if loaded.Accrued != 5 || loaded.Remaining != 5 {
		t.Fatalf("unexpected balance: %+v", loaded)
	}

	err = store.InTx(ctx, func(tx StoreAPI) error {
		locked, found, err := tx.GetBalanceForUpdate(ctx, empID, 2031, TypeCL)
		if err != nil || !found {
			t.Fatalf("lock balance: found=%v err=%v", found, err)
		}
		locked.Used = 2
		locked.Recompute()
		if err := tx.UpdateBalance(ctx, locked); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, Transaction{
			EmployeeID: empID, Year: 2031, Type: TypeCL,
			DeltaDays: -2, Action: ActionApproveDeduct, ActionAt: time.Now().UTC(),
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	after, _, _ := store.GetBalance(ctx, empID, 2031, TypeCL)
	if after.Used != 2 || after.Remaining != 3 {
		t.Fatalf("tx update lost: %+v", after)
	}

	txns, err := store.ListTransactions(ctx, empID, 2031, 10)
	if err != nil || len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d err=%v", len(txns), err)
	}
}

func TestStoreTxRollbackOnError(t *testing.T) {
	pool := testPool(t)
	store := NewStore(pool)
	ctx := context.Background()
	empID := createTestEmployee(t, pool, "ITG002")

	bal := WalletBalance{EmployeeID: empID, Year: 2032, Type: TypePL, Accrued: 7}
	bal.Recompute()
	if _, err := store.InsertBalance(ctx, bal); err != nil {
		t.Fatalf("insert balance: %v", err)
	}

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx StoreAPI) error {
		locked, _, err := tx.GetBalanceForUpdate(ctx, empID, 2032, TypePL)
		if err != nil {
			return err
		}
		locked.Used = 7
		locked.Recompute()
		if err := tx.UpdateBalance(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	after, _, _ := store.GetBalance(ctx, empID, 2032, TypePL)
	if after.Used != 0 {
		t.Fatalf("rollback lost: %+v", after)
	}
}

func TestStoreRequestLifecycleAndOverlap(t *testing.T) {
	pool := testPool(t)
	store := NewStore(pool)
	ctx := context.Background()
	empID := createTestEmployee(t, pool, "ITG003")

	req := LeaveRequest{
		EmployeeID:   empID,
		Type:         TypeCL,
		FromDate:     time.Date(2031, time.June, 14, 0, 0, 0, 0, time.UTC),
		ToDate:       time.Date(2031, time.June, 16, 0, 0, 0, 0, time.UTC),
		Reason:       "trip",
		Status:       StatusPending,
		ComputedDays: 3,
		DaysByMonth:  map[string]float64{"2031-06": 3},
		AppliedAt:    time.Now().UTC(),
	}
	id, err := store.CreateRequest(ctx, req)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	loaded, err := store.GetRequest(ctx, id)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if loaded.DaysByMonth["2031-06"] != 3 {
		t.Fatalf("days_by_month lost: %+v", loaded.DaysByMonth)
	}

	overlap, err := store.OverlappingRequest(ctx, empID,
		time.Date(2031, time.June, 16, 0, 0, 0, 0, time.UTC),
		time.Date(2031, time.June, 17, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("overlap query: %v", err)
	}
	if overlap == nil || overlap.ID != id {
		t.Fatalf("expected overlap with %s, got %+v", id, overlap)
	}

	none, err := store.OverlappingRequest(ctx, empID,
		time.Date(2031, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2031, time.July, 2, 0, 0, 0, 0, time.UTC))
	if err != nil || none != nil {
		t.Fatalf("expected no overlap, got %+v err=%v", none, err)
	}

	if _, err := store.GetRequest(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
