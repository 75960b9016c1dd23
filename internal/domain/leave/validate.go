package leave

import (
	"fmt"
	"time"

	"lms/internal/domain/policy"
)

// Pure policy checks shared by apply-time and approval-time validation.

// backdatedStatus classifies a start date against the backdated window.
// Within the window the request proceeds as an emergency backdated request;
// beyond it the returned reason signals a forced conversion to LWP.
func backdatedStatus(from, today time.Time, maxDays int) (isBackdated bool, autoLWPReason string) {
	from = dateOnly(from)
	today = dateOnly(today)
	if !from.Before(today) {
		return false, ""
	}
	daysBack := int(today.Sub(from).Hours() / 24)
	if daysBack <= maxDays {
		return true, ""
	}
	return true, fmt.Sprintf("backdated_over_limit_%d_days_max_%d", daysBack, maxDays)
}

func plEligibilityError(joinDate, from time.Time, eligibilityMonths int) *ValidationError {
	eligibleFrom := addMonths(dateOnly(joinDate), eligibilityMonths)
	if dateOnly(from).Before(eligibleFrom) {
		return validationf("pl_not_eligible",
			"PL is allowed only after %d months from the join date; eligible from %s",
			eligibilityMonths, eligibleFrom.Format("2006-01-02"))
	}
	return nil
}

// noticeError enforces the advance-notice rule for CL and PL when enabled.
// Backdated starts are exempt here; the backdated rule owns them.
func noticeError(lt LeaveType, from, today time.Time, settings policy.Settings) *ValidationError {
	if !settings.EnforceNoticeDays {
		return nil
	}
	if lt != TypeCL && lt != TypePL {
		return nil
	}
	from = dateOnly(from)
	today = dateOnly(today)
	if from.Before(today) {
		return nil
	}
	notice := int(from.Sub(today).Hours() / 24)
	if notice < settings.NoticeDaysCLPL {
		return validationf("notice_period",
			"%s must be applied at least %d days before the start date; current notice is %d days",
			lt, settings.NoticeDaysCLPL, notice)
	}
	return nil
}

// monthlyCapError checks the request's per-month day counts against the cap
// on top of already-approved totals. Override never bypasses this check.
func monthlyCapError(requestByMonth, existingByMonth map[string]float64, settings policy.Settings) *ValidationError {
	if !settings.EnforceMonthlyCap {
		return nil
	}
	for month, requested := range requestByMonth {
		existing := existingByMonth[month]
		if existing+requested > settings.MonthlyCapCLPL {
			return validationf("monthly_cap_exceeded",
				"monthly cap exceeded for %s: approved %.1f + requested %.1f > cap %.1f",
				month, existing, requested, settings.MonthlyCapCLPL)
		}
	}
	return nil
}
