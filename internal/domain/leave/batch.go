package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RunMonthlyAccrual refreshes wallet accruals for all active employees as of
// the end of the given month. The per-type recomputation is idempotent, so a
// duplicate run for the same month credits nothing new. Each employee runs in
// their own transaction; a failure skips that employee only.
func (s *Service) RunMonthlyAccrual(ctx context.Context, year int, month time.Month, actorID string) (AccrualRunSummary, error) {
	if month < time.January || month > time.December {
		return AccrualRunSummary{}, validationf("invalid_month", "month must be 1 to 12, got %d", month)
	}
	summary := AccrualRunSummary{Month: fmt.Sprintf("%04d-%02d", year, month)}

	asOf := lastDayOfMonth(year, month)
	settings, err := s.Policy.Get(ctx, year)
	if err != nil {
		return summary, err
	}
	employees, err := s.Directory.ActiveEmployees(ctx)
	if err != nil {
		return summary, err
	}

	for _, emp := range employees {
		if dateOnly(emp.JoinDate).After(asOf) {
			summary.SkippedNotEligible++
			continue
		}
		err := s.Store.InTx(ctx, func(tx StoreAPI) error {
			return s.ensureWalletTx(ctx, tx, emp, year, asOf, settings, actorID)
		})
		if err != nil {
			slog.Warn("accrual failed for employee", "employeeId", emp.ID, "month", summary.Month, "err", err)
			summary.SkippedFailed++
			continue
		}

		balances, err := s.Store.ListBalances(ctx, emp.ID, year)
		if err != nil {
			slog.Warn("accrual detail read failed", "employeeId", emp.ID, "err", err)
			summary.SkippedFailed++
			continue
		}
		remaining := make(map[string]float64, len(balances))
		for _, b := range balances {
			remaining[string(b.Type)] = b.Remaining
		}
		summary.Processed++
		summary.Credited++
		summary.Details = append(summary.Details, AccrualDetail{
			EmployeeID: emp.ID,
			Code:       emp.Code,
			Name:       emp.Name,
			Remaining:  remaining,
		})
	}

	s.audit(ctx, actorID, "ACCRUAL_RUN", "leave_balances", "", map[string]any{
		"month":              summary.Month,
		"processed":          summary.Processed,
		"skippedNotEligible": summary.SkippedNotEligible,
		"skippedFailed":      summary.SkippedFailed,
	})
	slog.Info("monthly accrual run finished",
		"month", summary.Month, "processed", summary.Processed,
		"skippedNotEligible", summary.SkippedNotEligible, "skippedFailed", summary.SkippedFailed)
	return summary, nil
}
