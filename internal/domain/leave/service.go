package leave

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lms/internal/domain/auth"
	"lms/internal/domain/directory"
	"lms/internal/domain/policy"
)

type Service struct {
	Store     StoreAPI
	Policy    PolicyProvider
	Calendar  CalendarProvider
	Directory DirectoryProvider
	Compoff   CompoffLedger
	Audit     Recorder
	Clock     func() time.Time
}

func NewService(store StoreAPI, policyProvider PolicyProvider, calendarProvider CalendarProvider, directoryProvider DirectoryProvider) *Service {
	return &Service{
		Store:     store,
		Policy:    policyProvider,
		Calendar:  calendarProvider,
		Directory: directoryProvider,
		Clock:     time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) today() time.Time {
	return dateOnly(s.now())
}

func (s *Service) isHREquivalent(role string) bool {
	return auth.IsHREquivalent(role)
}

func (s *Service) audit(ctx context.Context, actorID, action, entityType, entityID string, meta map[string]any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actorID, action, entityType, entityID, meta); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

// nonWorkingDays collects weekly-off days, active holidays and, when the
// policy treats them as off days, company event dates in the range.
func (s *Service) nonWorkingDays(ctx context.Context, from, to time.Time, settings policy.Settings) (DateSet, error) {
	set := NewDateSet()
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if isoWeekday(d) == settings.WeeklyOffDay {
			set.Add(d)
		}
	}

	holidays, err := s.Calendar.HolidayDates(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, d := range holidays {
		set.Add(d)
	}

	if settings.SandwichIncludeEvents {
		events, err := s.Calendar.EventDates(ctx, from, to)
		if err != nil {
			return nil, err
		}
		for _, d := range events {
			set.Add(d)
		}
	}
	return set, nil
}

// Apply runs the full validation pipeline and files a PENDING request.
// A start date older than the backdated window force-converts the request
// to LWP instead of rejecting it.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*LeaveRequest, error) {
	if !input.Type.Valid() {
		return nil, validationf("invalid_leave_type", "unknown leave type %q", input.Type)
	}
	from := dateOnly(input.FromDate)
	to := dateOnly(input.ToDate)
	if from.After(to) {
		return nil, validationf("invalid_dates", "fromDate must not be after toDate")
	}
	if from.Year() != to.Year() {
		return nil, validationf("cross_year", "leave cannot span calendar years (%d to %d)", from.Year(), to.Year())
	}
	year := from.Year()
	actorID := input.ActorID
	if actorID == "" {
		actorID = input.EmployeeID
	}

	if input.Type == TypeRH {
		if !from.Equal(to) {
			return nil, validationf("rh_single_day", "restricted holiday must be a single day")
		}
		isRH, err := s.Calendar.IsRestrictedHolidayDate(ctx, year, from)
		if err != nil {
			return nil, err
		}
		if !isRH {
			return nil, validationf("rh_invalid_date", "%s is not a restricted holiday date for %d", from.Format("2006-01-02"), year)
		}
		taken, err := s.Store.HasApprovedRH(ctx, input.EmployeeID, year)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrRHQuotaExceeded
		}
	}

	overlap, err := s.Store.OverlappingRequest(ctx, input.EmployeeID, from, to)
	if err != nil {
		return nil, err
	}
	if overlap != nil {
		return nil, validationf("overlap", "request overlaps existing leave from %s to %s",
			overlap.FromDate.Format("2006-01-02"), overlap.ToDate.Format("2006-01-02"))
	}

	emp, err := s.Directory.Employee(ctx, input.EmployeeID)
	if err != nil {
		return nil, err
	}
	if auth.RoleRank(emp.Role) > 2 && emp.ManagerID == "" {
		return nil, validationf("no_reporting_manager", "reporting manager not set")
	}

	if err := s.EnsureWallet(ctx, input.EmployeeID, year, s.today(), actorID); err != nil {
		return nil, err
	}

	if input.Override {
		actor, err := s.Directory.Employee(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !s.isHREquivalent(actor.Role) {
			return nil, authorizationf("only HR can override policy rules")
		}
		if strings.TrimSpace(input.OverrideRemark) == "" {
			return nil, validationf("override_remark_required", "a remark is required when overriding policy")
		}
	}

	settings, err := s.Policy.Get(ctx, year)
	if err != nil {
		return nil, err
	}
	nonWorking, err := s.nonWorkingDays(ctx, from, to, settings)
	if err != nil {
		return nil, err
	}
	computedDays, byMonth := ChargeableDays(input.Type, from, to, nonWorking, settings.SandwichEnabled)
	if computedDays <= 0 {
		return nil, validationf("zero_days", "request has no chargeable day after excluding off days")
	}

	today := s.today()
	effectiveType := input.Type
	_, autoLWPReason := backdatedStatus(from, today, settings.BackdatedMaxDays)
	if autoLWPReason != "" {
		effectiveType = TypeLWP
	}

	if effectiveType != TypeLWP && !input.Override {
		events, err := s.Calendar.EventDates(ctx, from, to)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			return nil, validationf("event_block", "leave is not permitted on company event days; HR override required")
		}
	}

	if effectiveType != TypeCompoff && effectiveType != TypeLWP {
		if effectiveType == TypePL && !input.Override {
			if verr := plEligibilityError(emp.JoinDate, from, settings.PLEligibilityMonths); verr != nil {
				return nil, verr
			}
		}
		if !input.Override {
			if verr := noticeError(effectiveType, from, today, settings); verr != nil {
				return nil, verr
			}
		}
		// Override never exempts the monthly cap.
		existing, err := s.Store.ApprovedMonthTotals(ctx, input.EmployeeID, year, "")
		if err != nil {
			return nil, err
		}
		if verr := monthlyCapError(byMonth, existing, settings); verr != nil {
			return nil, verr
		}
	}

	req := LeaveRequest{
		EmployeeID:         input.EmployeeID,
		Type:               effectiveType,
		FromDate:           from,
		ToDate:             to,
		Reason:             input.Reason,
		Status:             StatusPending,
		ComputedDays:       computedDays,
		DaysByMonth:        byMonth,
		Override:           input.Override,
		OverrideRemark:     input.OverrideRemark,
		AutoConvertedToLWP: autoLWPReason != "",
		AutoLWPReason:      autoLWPReason,
		AppliedAt:          s.now(),
	}
	id, err := s.Store.CreateRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	req.ID = id

	s.audit(ctx, actorID, "LEAVE_APPLY", "leave_requests", id, map[string]any{
		"employeeId":   input.EmployeeID,
		"leaveType":    effectiveType,
		"fromDate":     from.Format("2006-01-02"),
		"toDate":       to.Format("2006-01-02"),
		"computedDays": computedDays,
		"override":     input.Override,
	})
	return &req, nil
}

// approvalAuthority enforces the hierarchy: self-approval is always denied,
// rank 1-2 acts on anyone, rank 3-4 acts on their reporting subtree, others
// hold no authority.
func (s *Service) approvalAuthority(ctx context.Context, req LeaveRequest, approver directory.Employee) error {
	if approver.ID == req.EmployeeID {
		return authorizationf("cannot act on your own leave request")
	}
	rank := auth.RoleRank(approver.Role)
	if rank <= 2 {
		return nil
	}
	if rank <= 4 {
		subordinates, err := s.Directory.SubordinateIDs(ctx, approver.ID)
		if err != nil {
			return err
		}
		for _, id := range subordinates {
			if id == req.EmployeeID {
				return nil
			}
		}
		return authorizationf("you can only act on leaves of your reporting subtree")
	}
	return authorizationf("no approval authority for this request")
}

// Approve moves a PENDING request to APPROVED, charging the wallet (or the
// comp-off ledger, or nothing for LWP) in the same transaction as the status
// change. A wallet shortfall is not an error; it becomes unpaid days.
func (s *Service) Approve(ctx context.Context, requestID, actorID, remark string) (*LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, statef(req.Status, "cannot approve request with status %s", req.Status)
	}

	approver, err := s.Directory.Employee(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.approvalAuthority(ctx, req, approver); err != nil {
		return nil, err
	}

	emp, err := s.Directory.Employee(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	year := req.FromDate.Year()
	settings, err := s.Policy.Get(ctx, year)
	if err != nil {
		return nil, err
	}
	today := s.today()

	if req.Override {
		if !s.isHREquivalent(approver.Role) {
			return nil, authorizationf("only HR can approve a request with policy override")
		}
		if strings.TrimSpace(req.OverrideRemark) == "" {
			return nil, validationf("override_remark_required", "a remark is required when overriding policy")
		}
	} else if req.Type != TypeCompoff {
		// Elapsed time can change outcomes, so a subset of the apply-time
		// checks runs again. Notice only applies to future starts.
		if !req.FromDate.Before(today) {
			if verr := noticeError(req.Type, req.FromDate, today, settings); verr != nil {
				return nil, verr
			}
		}
		if req.Type == TypePL {
			if verr := plEligibilityError(emp.JoinDate, req.FromDate, settings.PLEligibilityMonths); verr != nil {
				return nil, verr
			}
		}
		if len(req.DaysByMonth) > 0 {
			existing, err := s.Store.ApprovedMonthTotals(ctx, req.EmployeeID, year, req.ID)
			if err != nil {
				return nil, err
			}
			if verr := monthlyCapError(req.DaysByMonth, existing, settings); verr != nil {
				return nil, verr
			}
		}
	}

	var updated LeaveRequest
	err = s.Store.InTx(ctx, func(tx StoreAPI) error {
		locked, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if locked.Status != StatusPending {
			return statef(locked.Status, "cannot approve request with status %s", locked.Status)
		}

		var paid, unpaid float64
		switch {
		case locked.Type == TypeLWP:
			paid, unpaid = 0, locked.ComputedDays
		case locked.Type == TypeCompoff:
			if s.Compoff != nil {
				paid, err = s.Compoff.Consume(ctx, locked.EmployeeID, locked.ID, locked.ComputedDays)
				if err != nil {
					return err
				}
			}
			unpaid = locked.ComputedDays - paid
		default:
			if err := s.ensureWalletTx(ctx, tx, emp, year, today, settings, actorID); err != nil {
				return err
			}
			paid, unpaid, err = s.debitTx(ctx, tx, locked.EmployeeID, year, locked.Type, locked.ID, locked.ComputedDays, actorID, remark)
			if err != nil {
				return err
			}
		}

		now := s.now()
		locked.Status = StatusApproved
		locked.PaidDays = paid
		locked.UnpaidDays = unpaid
		locked.ApproverID = actorID
		locked.ApprovedRemark = remark
		locked.ApprovedAt = &now
		if err := tx.UpdateRequest(ctx, locked); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, ApprovalHistory{
			RequestID: locked.ID,
			ActorID:   actorID,
			Action:    "APPROVE",
			Remark:    remark,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("leave status transition", "requestId", requestID, "from", StatusPending, "to", StatusApproved)
	s.audit(ctx, actorID, "LEAVE_APPROVE", "leave_requests", requestID, map[string]any{
		"employeeId": updated.EmployeeID,
		"leaveType":  updated.Type,
		"paidDays":   updated.PaidDays,
		"unpaidDays": updated.UnpaidDays,
	})
	return &updated, nil
}

// Reject moves a PENDING request to REJECTED. No wallet effect.
func (s *Service) Reject(ctx context.Context, requestID, actorID, remark string) (*LeaveRequest, error) {
	if strings.TrimSpace(remark) == "" {
		return nil, validationf("remark_required", "a remark is required when rejecting")
	}

	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, statef(req.Status, "cannot reject request with status %s", req.Status)
	}
	approver, err := s.Directory.Employee(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.approvalAuthority(ctx, req, approver); err != nil {
		return nil, err
	}

	var updated LeaveRequest
	err = s.Store.InTx(ctx, func(tx StoreAPI) error {
		locked, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if locked.Status != StatusPending {
			return statef(locked.Status, "cannot reject request with status %s", locked.Status)
		}
		now := s.now()
		locked.Status = StatusRejected
		locked.RejectedBy = actorID
		locked.RejectedRemark = remark
		locked.RejectedAt = &now
		if err := tx.UpdateRequest(ctx, locked); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, ApprovalHistory{
			RequestID: locked.ID,
			ActorID:   actorID,
			Action:    "REJECT",
			Remark:    remark,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("leave status transition", "requestId", requestID, "from", StatusPending, "to", StatusRejected)
	s.audit(ctx, actorID, "LEAVE_REJECT", "leave_requests", requestID, map[string]any{
		"employeeId": updated.EmployeeID,
		"leaveType":  updated.Type,
		"remark":     remark,
	})
	return &updated, nil
}

// Cancel voids an APPROVED CL or PL request. HR only. The employee's
// original reason is never touched; the cancellation remark lives in its
// own field. With recredit, the previously paid days return to the wallet
// in the same transaction as the status change.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (*LeaveRequest, error) {
	actor, err := s.Directory.Employee(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	if !s.isHREquivalent(actor.Role) {
		return nil, authorizationf("only HR can cancel an approved leave")
	}

	target := StatusCancelled
	if input.ByCompany {
		target = StatusCancelledByCompany
	}

	var updated LeaveRequest
	err = s.Store.InTx(ctx, func(tx StoreAPI) error {
		locked, err := tx.GetRequestForUpdate(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if locked.Status != StatusApproved {
			return statef(locked.Status, "only APPROVED leaves can be cancelled, status is %s", locked.Status)
		}
		if locked.Type != TypeCL && locked.Type != TypePL {
			return validationf("cancel_not_allowed", "only CL and PL leaves can be cancelled")
		}

		now := s.now()
		locked.Status = target
		locked.CancelledBy = input.ActorID
		locked.CancelledRemark = input.Remark
		locked.CancelledAt = &now

		if input.Recredit && locked.PaidDays > 0 {
			year := locked.FromDate.Year()
			if err := s.creditTx(ctx, tx, locked.EmployeeID, year, locked.Type, locked.PaidDays, locked.ID, input.ActorID, input.Remark); err != nil {
				return err
			}
		}
		if err := tx.UpdateRequest(ctx, locked); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, ApprovalHistory{
			RequestID: locked.ID,
			ActorID:   input.ActorID,
			Action:    "CANCEL",
			Remark:    input.Remark,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("leave status transition", "requestId", input.RequestID, "from", StatusApproved, "to", target)
	s.audit(ctx, input.ActorID, "LEAVE_CANCEL", "leave_requests", input.RequestID, map[string]any{
		"employeeId": updated.EmployeeID,
		"leaveType":  updated.Type,
		"recredit":   input.Recredit,
		"byCompany":  input.ByCompany,
	})
	return &updated, nil
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.Store.GetRequest(ctx, requestID)
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.Store.ListRequests(ctx, filter)
}

func (s *Service) History(ctx context.Context, requestID string) ([]ApprovalHistory, error) {
	return s.Store.ListHistory(ctx, requestID)
}
