package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"lms/internal/platform/querier"
)

// Store is the Postgres implementation of StoreAPI. The same struct serves
// pooled and transactional access; InTx rebinds DB onto the open transaction.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) InTx(ctx context.Context, fn func(StoreAPI) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("failed to rollback transaction", "err", err)
		}
	}()

	if err := fn(&Store{DB: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const balanceColumns = `id, employee_id, year, leave_type, opening_days, accrued_days, used_days, remaining_days, carry_forward_days`

func scanBalance(row pgx.Row) (WalletBalance, error) {
	var b WalletBalance
	err := row.Scan(&b.ID, &b.EmployeeID, &b.Year, &b.Type, &b.Opening, &b.Accrued, &b.Used, &b.Remaining, &b.CarryForward)
	return b, err
}

func (s *Store) getBalance(ctx context.Context, employeeID string, year int, lt LeaveType, forUpdate bool) (WalletBalance, bool, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances WHERE employee_id = $1 AND year = $2 AND leave_type = $3`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBalance(s.DB.QueryRow(ctx, query, employeeID, year, lt))
	if errors.Is(err, pgx.ErrNoRows) {
		return WalletBalance{}, false, nil
	}
	if err != nil {
		return WalletBalance{}, false, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, true, nil
}

func (s *Store) GetBalance(ctx context.Context, employeeID string, year int, lt LeaveType) (WalletBalance, bool, error) {
	return s.getBalance(ctx, employeeID, year, lt, false)
}

func (s *Store) GetBalanceForUpdate(ctx context.Context, employeeID string, year int, lt LeaveType) (WalletBalance, bool, error) {
	return s.getBalance(ctx, employeeID, year, lt, true)
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]WalletBalance, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+balanceColumns+` FROM leave_balances WHERE employee_id = $1 AND year = $2 ORDER BY leave_type`,
		employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []WalletBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) ListPLBalances(ctx context.Context, year int) ([]WalletBalance, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+balanceColumns+` FROM leave_balances WHERE year = $1 AND leave_type = $2 ORDER BY employee_id`,
		year, TypePL)
	if err != nil {
		return nil, fmt.Errorf("failed to list PL balances: %w", err)
	}
	defer rows.Close()

	var balances []WalletBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) InsertBalance(ctx context.Context, b WalletBalance) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx,
		`INSERT INTO leave_balances (employee_id, year, leave_type, opening_days, accrued_days, used_days, remaining_days, carry_forward_days)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		b.EmployeeID, b.Year, b.Type, b.Opening, b.Accrued, b.Used, b.Remaining, b.CarryForward).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert balance: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateBalance(ctx context.Context, b WalletBalance) error {
	_, err := s.DB.Exec(ctx,
		`UPDATE leave_balances SET opening_days = $1, accrued_days = $2, used_days = $3, remaining_days = $4, carry_forward_days = $5, updated_at = NOW()
		 WHERE id = $6`,
		b.Opening, b.Accrued, b.Used, b.Remaining, b.CarryForward, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func (s *Store) AppendTransaction(ctx context.Context, txn Transaction) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO leave_transactions (employee_id, year, leave_type, delta_days, action, request_id, remark, actor_id, action_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.EmployeeID, txn.Year, txn.Type, txn.DeltaDays, txn.Action, txn.RequestID, txn.Remark, txn.ActorID, txn.ActionAt)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, employeeID string, year int, limit int) ([]Transaction, error) {
	query := `SELECT id, employee_id, year, leave_type, delta_days, action, request_id, remark, actor_id, action_at
		FROM leave_transactions WHERE employee_id = $1`
	args := []any{employeeID}
	if year > 0 {
		args = append(args, year)
		query += ` AND year = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY action_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.EmployeeID, &t.Year, &t.Type, &t.DeltaDays, &t.Action, &t.RequestID, &t.Remark, &t.ActorID, &t.ActionAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

const requestColumns = `id, employee_id, leave_type, from_date, to_date, reason, status, computed_days, days_by_month,
	paid_days, unpaid_days, override_policy, override_remark, auto_converted_lwp, auto_lwp_reason,
	approver_id, approved_remark, approved_at, rejected_by, rejected_remark, rejected_at,
	cancelled_by, cancelled_remark, cancelled_at, applied_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	var byMonth []byte
	err := row.Scan(&r.ID, &r.EmployeeID, &r.Type, &r.FromDate, &r.ToDate, &r.Reason, &r.Status, &r.ComputedDays, &byMonth,
		&r.PaidDays, &r.UnpaidDays, &r.Override, &r.OverrideRemark, &r.AutoConvertedToLWP, &r.AutoLWPReason,
		&r.ApproverID, &r.ApprovedRemark, &r.ApprovedAt, &r.RejectedBy, &r.RejectedRemark, &r.RejectedAt,
		&r.CancelledBy, &r.CancelledRemark, &r.CancelledAt, &r.AppliedAt)
	if err != nil {
		return r, err
	}
	if len(byMonth) > 0 {
		if err := json.Unmarshal(byMonth, &r.DaysByMonth); err != nil {
			return r, fmt.Errorf("failed to decode days_by_month: %w", err)
		}
	}
	return r, nil
}

func (s *Store) CreateRequest(ctx context.Context, req LeaveRequest) (string, error) {
	byMonth, err := json.Marshal(req.DaysByMonth)
	if err != nil {
		return "", fmt.Errorf("failed to encode days_by_month: %w", err)
	}

	var id string
	err = s.DB.QueryRow(ctx,
		`INSERT INTO leave_requests (employee_id, leave_type, from_date, to_date, reason, status, computed_days, days_by_month,
			override_policy, override_remark, auto_converted_lwp, auto_lwp_reason, applied_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		req.EmployeeID, req.Type, req.FromDate, req.ToDate, req.Reason, req.Status, req.ComputedDays, byMonth,
		req.Override, req.OverrideRemark, req.AutoConvertedToLWP, req.AutoLWPReason, req.AppliedAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create leave request: %w", err)
	}
	return id, nil
}

func (s *Store) getRequest(ctx context.Context, id string, forUpdate bool) (LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	req, err := scanRequest(s.DB.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("failed to get leave request: %w", err)
	}
	return req, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (LeaveRequest, error) {
	return s.getRequest(ctx, id, false)
}

func (s *Store) GetRequestForUpdate(ctx context.Context, id string) (LeaveRequest, error) {
	return s.getRequest(ctx, id, true)
}

func (s *Store) UpdateRequest(ctx context.Context, req LeaveRequest) error {
	byMonth, err := json.Marshal(req.DaysByMonth)
	if err != nil {
		return fmt.Errorf("failed to encode days_by_month: %w", err)
	}

	_, err = s.DB.Exec(ctx,
		`UPDATE leave_requests SET status = $1, computed_days = $2, days_by_month = $3, paid_days = $4, unpaid_days = $5,
			approver_id = $6, approved_remark = $7, approved_at = $8,
			rejected_by = $9, rejected_remark = $10, rejected_at = $11,
			cancelled_by = $12, cancelled_remark = $13, cancelled_at = $14, updated_at = NOW()
		 WHERE id = $15`,
		req.Status, req.ComputedDays, byMonth, req.PaidDays, req.UnpaidDays,
		req.ApproverID, req.ApprovedRemark, req.ApprovedAt,
		req.RejectedBy, req.RejectedRemark, req.RejectedAt,
		req.CancelledBy, req.CancelledRemark, req.CancelledAt, req.ID)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE 1=1`
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += ` AND employee_id = $` + strconv.Itoa(len(args))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		query += ` AND EXTRACT(YEAR FROM from_date) = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit)
	query += ` ORDER BY applied_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// OverlappingRequest returns any PENDING or APPROVED request of the employee
// whose date range intersects [from, to], or nil when none does.
func (s *Store) OverlappingRequest(ctx context.Context, employeeID string, from, to time.Time) (*LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = $1 AND status IN ($2, $3) AND to_date >= $4 AND from_date <= $5
		 LIMIT 1`,
		employeeID, StatusPending, StatusApproved, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check overlapping request: %w", err)
	}
	return &req, nil
}

func (s *Store) HasApprovedRH(ctx context.Context, employeeID string, year int) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM leave_requests
		 WHERE employee_id = $1 AND leave_type = $2 AND status = $3 AND EXTRACT(YEAR FROM from_date) = $4`,
		employeeID, TypeRH, StatusApproved, year).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count approved RH: %w", err)
	}
	return count > 0, nil
}

// ApprovedMonthTotals sums the per-month chargeable days of the employee's
// approved CL, PL and RH requests for the year, optionally excluding one
// request so re-validation at approval time does not count itself.
func (s *Store) ApprovedMonthTotals(ctx context.Context, employeeID string, year int, excludeRequestID string) (map[string]float64, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT days_by_month FROM leave_requests
		 WHERE employee_id = $1 AND status = $2 AND leave_type IN ($3, $4, $5)
		   AND EXTRACT(YEAR FROM from_date) = $6 AND ($7 = '' OR id::text <> $7)`,
		employeeID, StatusApproved, TypeCL, TypePL, TypeRH, year, excludeRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approved month totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan days_by_month: %w", err)
		}
		if len(raw) == 0 {
			continue
		}
		var byMonth map[string]float64
		if err := json.Unmarshal(raw, &byMonth); err != nil {
			return nil, fmt.Errorf("failed to decode days_by_month: %w", err)
		}
		for month, days := range byMonth {
			totals[month] += days
		}
	}
	return totals, rows.Err()
}

func (s *Store) AppendHistory(ctx context.Context, entry ApprovalHistory) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO leave_approvals (request_id, actor_id, action, remark, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.RequestID, entry.ActorID, entry.Action, entry.Remark, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append approval history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, requestID string) ([]ApprovalHistory, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT id, request_id, actor_id, action, remark, created_at
		 FROM leave_approvals WHERE request_id = $1 ORDER BY created_at`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval history: %w", err)
	}
	defer rows.Close()

	var history []ApprovalHistory
	for rows.Next() {
		var h ApprovalHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.ActorID, &h.Action, &h.Remark, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
