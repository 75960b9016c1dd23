package leave

import (
	"context"
	"log/slog"
	"math"
)

// RunYearClose carries unused PL forward into the next year and reports the
// days above the cap as encashable. Each employee closes in their own
// transaction, so one failure never rolls back the rest, and a re-run for the
// same year reproduces the same carry-forward instead of compounding it.
func (s *Service) RunYearClose(ctx context.Context, year int, actorID string) (YearCloseSummary, error) {
	summary := YearCloseSummary{Year: year, NextYear: year + 1}

	settings, err := s.Policy.Get(ctx, year)
	if err != nil {
		return summary, err
	}
	capDays := float64(settings.CarryForwardPLMax)

	balances, err := s.Store.ListPLBalances(ctx, year)
	if err != nil {
		return summary, err
	}

	for _, bal := range balances {
		detail, err := s.closeEmployeeYear(ctx, bal.EmployeeID, year, capDays, actorID)
		if err != nil {
			slog.Warn("year close failed for employee", "employeeId", bal.EmployeeID, "year", year, "err", err)
			summary.SkippedFailed++
			continue
		}
		summary.Processed++
		if detail.CarryForward > 0 {
			summary.WithCarryForward++
		}
		if detail.EncashDays > 0 {
			summary.WithEncash++
		}
		summary.TotalCarryForward += detail.CarryForward
		summary.TotalEncash += detail.EncashDays
		summary.Details = append(summary.Details, detail)
	}

	s.audit(ctx, actorID, "YEAR_CLOSE_RUN", "leave_balances", "", map[string]any{
		"year":              year,
		"processed":         summary.Processed,
		"skippedFailed":     summary.SkippedFailed,
		"totalCarryForward": summary.TotalCarryForward,
		"totalEncash":       summary.TotalEncash,
	})
	slog.Info("year close run finished",
		"year", year, "processed", summary.Processed, "skippedFailed", summary.SkippedFailed,
		"totalCarryForward", summary.TotalCarryForward, "totalEncash", summary.TotalEncash)
	return summary, nil
}

func (s *Service) closeEmployeeYear(ctx context.Context, employeeID string, year int, capDays float64, actorID string) (YearCloseDetail, error) {
	detail := YearCloseDetail{EmployeeID: employeeID}
	nextYear := year + 1

	err := s.Store.InTx(ctx, func(tx StoreAPI) error {
		bal, found, err := tx.GetBalanceForUpdate(ctx, employeeID, year, TypePL)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		// Unused intentionally excludes the carry-forward already on the
		// row, so a second run recomputes the same figure.
		unused := bal.Opening + bal.Accrued - bal.Used
		if unused < 0 {
			unused = 0
		}
		carried := math.Min(unused, capDays)
		encash := math.Max(0, unused-carried)

		bal.CarryForward = carried
		bal.Recompute()
		if err := tx.UpdateBalance(ctx, bal); err != nil {
			return err
		}

		for _, lt := range WalletTypes {
			next, found, err := tx.GetBalanceForUpdate(ctx, employeeID, nextYear, lt)
			if err != nil {
				return err
			}
			if !found {
				next = WalletBalance{EmployeeID: employeeID, Year: nextYear, Type: lt}
				id, err := tx.InsertBalance(ctx, next)
				if err != nil {
					return err
				}
				next.ID = id
			}
			if lt != TypePL || next.Opening == carried {
				continue
			}
			delta := carried - next.Opening
			next.Opening = carried
			next.Recompute()
			if err := tx.UpdateBalance(ctx, next); err != nil {
				return err
			}
			if err := tx.AppendTransaction(ctx, Transaction{
				EmployeeID: employeeID,
				Year:       nextYear,
				Type:       TypePL,
				DeltaDays:  delta,
				Action:     ActionYearClose,
				Remark:     "carry forward from year close",
				ActorID:    actorID,
				ActionAt:   s.now(),
			}); err != nil {
				return err
			}
		}

		detail.UnusedPL = unused
		detail.CarryForward = carried
		detail.EncashDays = encash
		return nil
	})
	if err != nil {
		return detail, err
	}

	if detail.EncashDays > 0 {
		s.audit(ctx, actorID, "PL_ENCASHMENT", "leave_balances", "", map[string]any{
			"employeeId": employeeID,
			"year":       year,
			"encashDays": detail.EncashDays,
		})
	}
	return detail, nil
}
