package leave

import (
	"context"
	"time"

	"lms/internal/domain/directory"
	"lms/internal/domain/policy"
)

// StoreAPI is the persistence surface of the leave domain. InTx runs the
// callback against a transactional view of the same interface; wallet row
// reads inside a transaction take row locks so concurrent mutations of the
// same (employee, year, type) row serialize instead of losing updates.
type StoreAPI interface {
	InTx(ctx context.Context, fn func(StoreAPI) error) error

	GetBalance(ctx context.Context, employeeID string, year int, lt LeaveType) (WalletBalance, bool, error)
	GetBalanceForUpdate(ctx context.Context, employeeID string, year int, lt LeaveType) (WalletBalance, bool, error)
	ListBalances(ctx context.Context, employeeID string, year int) ([]WalletBalance, error)
	ListPLBalances(ctx context.Context, year int) ([]WalletBalance, error)
	InsertBalance(ctx context.Context, balance WalletBalance) (string, error)
	UpdateBalance(ctx context.Context, balance WalletBalance) error
	AppendTransaction(ctx context.Context, txn Transaction) error
	ListTransactions(ctx context.Context, employeeID string, year int, limit int) ([]Transaction, error)

	CreateRequest(ctx context.Context, req LeaveRequest) (string, error)
	GetRequest(ctx context.Context, id string) (LeaveRequest, error)
	GetRequestForUpdate(ctx context.Context, id string) (LeaveRequest, error)
	UpdateRequest(ctx context.Context, req LeaveRequest) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
	OverlappingRequest(ctx context.Context, employeeID string, from, to time.Time) (*LeaveRequest, error)
	HasApprovedRH(ctx context.Context, employeeID string, year int) (bool, error)
	ApprovedMonthTotals(ctx context.Context, employeeID string, year int, excludeRequestID string) (map[string]float64, error)
	AppendHistory(ctx context.Context, entry ApprovalHistory) error
	ListHistory(ctx context.Context, requestID string) ([]ApprovalHistory, error)
}

// PolicyProvider supplies per-year policy configuration, self-creating
// defaults for years with no stored row.
type PolicyProvider interface {
	Get(ctx context.Context, year int) (policy.Settings, error)
}

// CalendarProvider supplies the working-day context for day counting and
// restricted-holiday validation.
type CalendarProvider interface {
	HolidayDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
	IsRestrictedHolidayDate(ctx context.Context, year int, date time.Time) (bool, error)
	EventDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// DirectoryProvider resolves employees and the reporting hierarchy.
type DirectoryProvider interface {
	Employee(ctx context.Context, id string) (directory.Employee, error)
	SubordinateIDs(ctx context.Context, managerID string) ([]string, error)
	ActiveEmployees(ctx context.Context) ([]directory.Employee, error)
}

// CompoffLedger consumes comp-off credits at approval time. Consume returns
// how many of the required days the ledger could cover.
type CompoffLedger interface {
	Consume(ctx context.Context, employeeID string, requestID string, days float64) (float64, error)
}

// Recorder appends audit events for mutating operations and batch runs.
type Recorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, meta map[string]any) error
}
