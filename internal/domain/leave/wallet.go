package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lms/internal/domain/directory"
	"lms/internal/domain/policy"
)

// The ledger. Everything in this file is the only code allowed to mutate
// wallet rows, and every mutation pairs with one appended transaction inside
// the same database transaction.

// EnsureWallet creates missing wallet rows for the employee and year and
// recomputes accrued amounts as of the given date. Safe to call repeatedly;
// it never regresses used amounts, and it appends an ACCRUAL transaction
// only when the accrued figure actually changes.
func (s *Service) EnsureWallet(ctx context.Context, employeeID string, year int, asOf time.Time, actorID string) error {
	emp, err := s.Directory.Employee(ctx, employeeID)
	if err != nil {
		return err
	}
	settings, err := s.Policy.Get(ctx, year)
	if err != nil {
		return err
	}
	return s.Store.InTx(ctx, func(tx StoreAPI) error {
		return s.ensureWalletTx(ctx, tx, emp, year, asOf, settings, actorID)
	})
}

func (s *Service) ensureWalletTx(ctx context.Context, tx StoreAPI, emp directory.Employee, year int, asOf time.Time, settings policy.Settings, actorID string) error {
	accruals := ComputeAccrual(emp.JoinDate, year, asOf, settings)
	for _, lt := range WalletTypes {
		bal, found, err := tx.GetBalanceForUpdate(ctx, emp.ID, year, lt)
		if err != nil {
			return err
		}
		if !found {
			bal = WalletBalance{EmployeeID: emp.ID, Year: year, Type: lt}
			id, err := tx.InsertBalance(ctx, bal)
			if err != nil {
				return err
			}
			bal.ID = id
		}

		target := accruals[lt].Accrued
		if bal.Accrued == target {
			continue
		}
		delta := target - bal.Accrued
		bal.Accrued = target
		bal.Recompute()
		if err := tx.UpdateBalance(ctx, bal); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, Transaction{
			EmployeeID: emp.ID,
			Year:       year,
			Type:       lt,
			DeltaDays:  delta,
			Action:     ActionAccrual,
			Remark:     fmt.Sprintf("accrual as of %s", asOf.Format("2006-01-02")),
			ActorID:    actorID,
			ActionAt:   s.now(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// debitTx charges a wallet for an approved request. The paid portion is
// clamped to the remaining balance and never negative; the shortfall comes
// back as unpaid days, not as an error.
func (s *Service) debitTx(ctx context.Context, tx StoreAPI, employeeID string, year int, lt LeaveType, requestID string, days float64, actorID, remark string) (paid, unpaid float64, err error) {
	if lt == TypeRH {
		taken, err := tx.HasApprovedRH(ctx, employeeID, year)
		if err != nil {
			return 0, 0, err
		}
		if taken {
			return 0, 0, ErrRHQuotaExceeded
		}
	}

	bal, found, err := tx.GetBalanceForUpdate(ctx, employeeID, year, lt)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, fmt.Errorf("no wallet row for %s %d %s", employeeID, year, lt)
	}

	paid = days
	if bal.Remaining < paid {
		paid = bal.Remaining
	}
	if paid < 0 {
		paid = 0
	}
	unpaid = days - paid

	bal.Used += paid
	bal.Recompute()
	if err := tx.UpdateBalance(ctx, bal); err != nil {
		return 0, 0, err
	}
	if err := tx.AppendTransaction(ctx, Transaction{
		EmployeeID: employeeID,
		Year:       year,
		Type:       lt,
		DeltaDays:  -paid,
		Action:     ActionApproveDeduct,
		RequestID:  requestID,
		Remark:     remark,
		ActorID:    actorID,
		ActionAt:   s.now(),
	}); err != nil {
		return 0, 0, err
	}
	return paid, unpaid, nil
}

// creditTx returns previously paid days to the wallet. Used never drops
// below zero.
func (s *Service) creditTx(ctx context.Context, tx StoreAPI, employeeID string, year int, lt LeaveType, amount float64, requestID, actorID, remark string) error {
	bal, found, err := tx.GetBalanceForUpdate(ctx, employeeID, year, lt)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no wallet row for %s %d %s", employeeID, year, lt)
	}

	bal.Used -= amount
	if bal.Used < 0 {
		bal.Used = 0
	}
	bal.Recompute()
	if err := tx.UpdateBalance(ctx, bal); err != nil {
		return err
	}
	return tx.AppendTransaction(ctx, Transaction{
		EmployeeID: employeeID,
		Year:       year,
		Type:       lt,
		DeltaDays:  amount,
		Action:     ActionCancelRecredit,
		RequestID:  requestID,
		Remark:     remark,
		ActorID:    actorID,
		ActionAt:   s.now(),
	})
}

// ManualAdjust applies an arbitrary signed wallet delta with a mandatory
// remark. A negative delta raises used days (a penalty deduction); a
// positive delta lowers them. The adjustment is rejected rather than letting
// the remaining balance go negative.
func (s *Service) ManualAdjust(ctx context.Context, employeeID string, year int, lt LeaveType, delta float64, actorID, remark string) error {
	if strings.TrimSpace(remark) == "" {
		return validationf("remark_required", "a remark is required for manual adjustments")
	}
	if !lt.InWallet() {
		return validationf("invalid_leave_type", "%s has no wallet balance", lt)
	}
	if err := s.EnsureWallet(ctx, employeeID, year, s.today(), actorID); err != nil {
		return err
	}

	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		bal, found, err := tx.GetBalanceForUpdate(ctx, employeeID, year, lt)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no wallet row for %s %d %s", employeeID, year, lt)
		}

		bal.Used -= delta
		if bal.Used < 0 {
			bal.Used = 0
		}
		bal.Recompute()
		if bal.Remaining < 0 {
			return validationf("insufficient_balance", "adjustment of %.1f would leave %s balance negative", delta, lt)
		}
		if err := tx.UpdateBalance(ctx, bal); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, Transaction{
			EmployeeID: employeeID,
			Year:       year,
			Type:       lt,
			DeltaDays:  delta,
			Action:     ActionManualAdjust,
			Remark:     remark,
			ActorID:    actorID,
			ActionAt:   s.now(),
		})
	})
	if err != nil {
		return err
	}

	s.audit(ctx, actorID, "WALLET_MANUAL_ADJUST", "leave_balances", "", map[string]any{
		"employeeId": employeeID,
		"year":       year,
		"leaveType":  lt,
		"deltaDays":  delta,
		"remark":     remark,
	})
	return nil
}

// DeductPenalty deducts PL days as a disciplinary penalty. Restricted to
// HR-equivalent actors.
func (s *Service) DeductPenalty(ctx context.Context, employeeID string, year int, days float64, actorID, remark string) error {
	actor, err := s.Directory.Employee(ctx, actorID)
	if err != nil {
		return err
	}
	if !s.isHREquivalent(actor.Role) {
		return authorizationf("only HR can deduct penalty days")
	}
	if days <= 0 {
		return validationf("invalid_days", "penalty days must be positive")
	}
	return s.ManualAdjust(ctx, employeeID, year, TypePL, -days, actorID, remark)
}

// WalletBalances returns the employee's wallet for a year, creating and
// refreshing it first so lazily-initialized employees read correctly.
func (s *Service) WalletBalances(ctx context.Context, employeeID string, year int) ([]WalletBalance, error) {
	if err := s.EnsureWallet(ctx, employeeID, year, s.today(), employeeID); err != nil {
		return nil, err
	}
	return s.Store.ListBalances(ctx, employeeID, year)
}

// Transactions returns the append-only ledger entries for an employee,
// newest first. Year zero means all years.
func (s *Service) Transactions(ctx context.Context, employeeID string, year int, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.Store.ListTransactions(ctx, employeeID, year, limit)
}
