package leave

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lms/internal/domain/directory"
	"lms/internal/domain/policy"
)

// In-memory StoreAPI and provider fakes. Every mutation goes through the
// same Update/Insert/Append methods the Postgres store exposes, so service
// logic under test cannot bypass the store surface.

type fakeStore struct {
	mu       sync.Mutex
	seq      int
	balances map[string]WalletBalance
	txns     []Transaction
	requests map[string]LeaveRequest
	history  []ApprovalHistory
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances: make(map[string]WalletBalance),
		requests: make(map[string]LeaveRequest),
	}
}

func balanceKey(employeeID string, year int, lt LeaveType) string {
	return fmt.Sprintf("%s|%d|%s", employeeID, year, lt)
}

func (f *fakeStore) nextID() string {
	f.seq++
	return fmt.Sprintf("id-%d", f.seq)
}

func (f *fakeStore) InTx(ctx context.Context, fn func(StoreAPI) error) error {
	return fn(f)
}

func (f *fakeStore) GetBalance(ctx context.Context, employeeID string, year int, lt LeaveType) (WalletBalance, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[balanceKey(employeeID, year, lt)]
	return b, ok, nil
}

func (f *fakeStore) GetBalanceForUpdate(ctx context.Context, employeeID string, year int, lt LeaveType) (WalletBalance, bool, error) {
	return f.GetBalance(ctx, employeeID, year, lt)
}

func (f *fakeStore) ListBalances(ctx context.Context, employeeID string, year int) ([]WalletBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []WalletBalance
	for _, b := range f.balances {
		if b.EmployeeID == employeeID && b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPLBalances(ctx context.Context, year int) ([]WalletBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []WalletBalance
	for _, b := range f.balances {
		if b.Year == year && b.Type == TypePL {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertBalance(ctx context.Context, b WalletBalance) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.nextID()
	f.balances[balanceKey(b.EmployeeID, b.Year, b.Type)] = b
	return b.ID, nil
}

func (f *fakeStore) UpdateBalance(ctx context.Context, b WalletBalance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[balanceKey(b.EmployeeID, b.Year, b.Type)] = b
	return nil
}

func (f *fakeStore) AppendTransaction(ctx context.Context, txn Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn.ID = f.nextID()
	f.txns = append(f.txns, txn)
	return nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, employeeID string, year int, limit int) ([]Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Transaction
	for i := len(f.txns) - 1; i >= 0 && len(out) < limit; i-- {
		t := f.txns[i]
		if t.EmployeeID != employeeID {
			continue
		}
		if year > 0 && t.Year != year {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) CreateRequest(ctx context.Context, req LeaveRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = f.nextID()
	f.requests[req.ID] = req
	return req.ID, nil
}

func (f *fakeStore) GetRequest(ctx context.Context, id string) (LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return req, nil
}

func (f *fakeStore) GetRequestForUpdate(ctx context.Context, id string) (LeaveRequest, error) {
	return f.GetRequest(ctx, id)
}

func (f *fakeStore) UpdateRequest(ctx context.Context, req LeaveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[req.ID]; !ok {
		return ErrNotFound
	}
	f.requests[req.ID] = req
	return nil
}

func (f *fakeStore) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []LeaveRequest
	for _, req := range f.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Year > 0 && req.FromDate.Year() != filter.Year {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (f *fakeStore) OverlappingRequest(ctx context.Context, employeeID string, from, to time.Time) (*LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.EmployeeID != employeeID {
			continue
		}
		if req.Status != StatusPending && req.Status != StatusApproved {
			continue
		}
		if !req.ToDate.Before(from) && !req.FromDate.After(to) {
			match := req
			return &match, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) HasApprovedRH(ctx context.Context, employeeID string, year int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.EmployeeID == employeeID && req.Type == TypeRH && req.Status == StatusApproved && req.FromDate.Year() == year {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ApprovedMonthTotals(ctx context.Context, employeeID string, year int, excludeRequestID string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := make(map[string]float64)
	for _, req := range f.requests {
		if req.EmployeeID != employeeID || req.Status != StatusApproved || req.FromDate.Year() != year {
			continue
		}
		if req.Type != TypeCL && req.Type != TypePL && req.Type != TypeRH {
			continue
		}
		if excludeRequestID != "" && req.ID == excludeRequestID {
			continue
		}
		for month, days := range req.DaysByMonth {
			totals[month] += days
		}
	}
	return totals, nil
}

func (f *fakeStore) AppendHistory(ctx context.Context, entry ApprovalHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.nextID()
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeStore) ListHistory(ctx context.Context, requestID string) ([]ApprovalHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ApprovalHistory
	for _, h := range f.history {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) transactionCount(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, t := range f.txns {
		if t.Action == action {
			count++
		}
	}
	return count
}

type fakePolicy struct {
	settings policy.Settings
}

func (f *fakePolicy) Get(ctx context.Context, year int) (policy.Settings, error) {
	settings := f.settings
	settings.Year = year
	return settings, nil
}

type fakeCalendar struct {
	holidays   []time.Time
	restricted []time.Time
	events     []time.Time
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

func (f *fakeCalendar) HolidayDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range f.holidays {
		if inRange(d, from, to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeCalendar) IsRestrictedHolidayDate(ctx context.Context, year int, date time.Time) (bool, error) {
	for _, d := range f.restricted {
		if d.Equal(date) && d.Year() == year {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCalendar) EventDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range f.events {
		if inRange(d, from, to) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	employees map[string]directory.Employee
	subs      map[string][]string
}

func (f *fakeDirectory) Employee(ctx context.Context, id string) (directory.Employee, error) {
	emp, ok := f.employees[id]
	if !ok {
		return directory.Employee{}, directory.ErrNotFound
	}
	return emp, nil
}

func (f *fakeDirectory) SubordinateIDs(ctx context.Context, managerID string) ([]string, error) {
	return f.subs[managerID], nil
}

func (f *fakeDirectory) ActiveEmployees(ctx context.Context) ([]directory.Employee, error) {
	var out []directory.Employee
	for _, emp := range f.employees {
		if emp.Active {
			out = append(out, emp)
		}
	}
	return out, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestService wires a service against the fakes with the clock frozen at
// 2025-06-01 and the default policy (notice and monthly cap off, sandwich on,
// Sunday off).
func newTestService(t *testing.T) (*Service, *fakeStore, *fakeDirectory, *fakePolicy, *fakeCalendar) {
	t.Helper()

	store := newFakeStore()
	dir := &fakeDirectory{
		employees: map[string]directory.Employee{
			"emp1": {ID: "emp1", Code: "E001", Name: "Asha", JoinDate: date(2023, time.January, 10), Active: true, ManagerID: "mgr1", Role: "EMPLOYEE"},
			"emp2": {ID: "emp2", Code: "E002", Name: "Ravi", JoinDate: date(2023, time.March, 1), Active: true, ManagerID: "mgr2", Role: "EMPLOYEE"},
			"mgr1": {ID: "mgr1", Code: "M001", Name: "Meera", JoinDate: date(2020, time.May, 1), Active: true, ManagerID: "hr1", Role: "MANAGER"},
			"mgr2": {ID: "mgr2", Code: "M002", Name: "Kiran", JoinDate: date(2020, time.May, 1), Active: true, ManagerID: "hr1", Role: "MANAGER"},
			"hr1":  {ID: "hr1", Code: "H001", Name: "Divya", JoinDate: date(2019, time.February, 1), Active: true, Role: "HR"},
		},
		subs: map[string][]string{
			"mgr1": {"emp1"},
			"mgr2": {"emp2"},
			"hr1":  {"mgr1", "mgr2", "emp1", "emp2"},
		},
	}
	pol := &fakePolicy{settings: policy.Defaults(2025)}
	cal := &fakeCalendar{}

	svc := NewService(store, pol, cal, dir)
	svc.Clock = func() time.Time { return date(2025, time.June, 1) }
	return svc, store, dir, pol, cal
}
