package leave

import "time"

type LeaveType string

const (
	TypeCL      LeaveType = "CL"
	TypeSL      LeaveType = "SL"
	TypePL      LeaveType = "PL"
	TypeRH      LeaveType = "RH"
	TypeCompoff LeaveType = "COMPOFF"
	TypeLWP     LeaveType = "LWP"
)

// WalletTypes are the leave types backed by a wallet balance row. COMPOFF
// consumes a separate ledger and LWP consumes nothing.
var WalletTypes = []LeaveType{TypeCL, TypeSL, TypePL, TypeRH}

func (t LeaveType) Valid() bool {
	switch t {
	case TypeCL, TypeSL, TypePL, TypeRH, TypeCompoff, TypeLWP:
		return true
	}
	return false
}

func (t LeaveType) InWallet() bool {
	switch t {
	case TypeCL, TypeSL, TypePL, TypeRH:
		return true
	}
	return false
}

// Sandwichable reports whether intervening off days can be charged for this
// type. RH, COMPOFF and LWP never sandwich.
func (t LeaveType) Sandwichable() bool {
	switch t {
	case TypeCL, TypePL, TypeSL:
		return true
	}
	return false
}

type Status string

const (
	StatusPending            Status = "PENDING"
	StatusApproved           Status = "APPROVED"
	StatusRejected           Status = "REJECTED"
	StatusCancelled          Status = "CANCELLED"
	StatusCancelledByCompany Status = "CANCELLED_BY_COMPANY"
)

// Transaction action tags. Every wallet mutation appends exactly one entry.
const (
	ActionAccrual        = "ACCRUAL"
	ActionApproveDeduct  = "APPROVE_DEDUCT"
	ActionCancelRecredit = "CANCEL_RECREDIT"
	ActionManualAdjust   = "MANUAL_ADJUST"
	ActionYearClose      = "YEAR_CLOSE"
)

type WalletBalance struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employeeId"`
	Year         int       `json:"year"`
	Type         LeaveType `json:"leaveType"`
	Opening      float64   `json:"opening"`
	Accrued      float64   `json:"accrued"`
	Used         float64   `json:"used"`
	Remaining    float64   `json:"remaining"`
	CarryForward float64   `json:"carryForward"`
}

// Recompute restores the balance invariant after any field change.
func (b *WalletBalance) Recompute() {
	b.Remaining = b.Opening + b.Accrued + b.CarryForward - b.Used
}

type Transaction struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Year       int       `json:"year"`
	Type       LeaveType `json:"leaveType"`
	DeltaDays  float64   `json:"deltaDays"`
	Action     string    `json:"action"`
	RequestID  string    `json:"requestId,omitempty"`
	Remark     string    `json:"remark,omitempty"`
	ActorID    string    `json:"actorId"`
	ActionAt   time.Time `json:"actionAt"`
}

type LeaveRequest struct {
	ID                 string             `json:"id"`
	EmployeeID         string             `json:"employeeId"`
	Type               LeaveType          `json:"leaveType"`
	FromDate           time.Time          `json:"fromDate"`
	ToDate             time.Time          `json:"toDate"`
	Reason             string             `json:"reason,omitempty"`
	Status             Status             `json:"status"`
	ComputedDays       float64            `json:"computedDays"`
	DaysByMonth        map[string]float64 `json:"daysByMonth,omitempty"`
	PaidDays           float64            `json:"paidDays"`
	UnpaidDays         float64            `json:"unpaidDays"`
	Override           bool               `json:"overridePolicy"`
	OverrideRemark     string             `json:"overrideRemark,omitempty"`
	AutoConvertedToLWP bool               `json:"autoConvertedToLwp"`
	AutoLWPReason      string             `json:"autoLwpReason,omitempty"`
	ApproverID         string             `json:"approverId,omitempty"`
	ApprovedRemark     string             `json:"approvedRemark,omitempty"`
	ApprovedAt         *time.Time         `json:"approvedAt,omitempty"`
	RejectedBy         string             `json:"rejectedBy,omitempty"`
	RejectedRemark     string             `json:"rejectedRemark,omitempty"`
	RejectedAt         *time.Time         `json:"rejectedAt,omitempty"`
	CancelledBy        string             `json:"cancelledBy,omitempty"`
	CancelledRemark    string             `json:"cancelledRemark,omitempty"`
	CancelledAt        *time.Time         `json:"cancelledAt,omitempty"`
	AppliedAt          time.Time          `json:"appliedAt"`
}

type ApprovalHistory struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	ActorID   string    `json:"actorId"`
	Action    string    `json:"action"`
	Remark    string    `json:"remark,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ApplyInput struct {
	EmployeeID     string
	Type           LeaveType
	FromDate       time.Time
	ToDate         time.Time
	Reason         string
	Override       bool
	OverrideRemark string
	ActorID        string
}

type CancelInput struct {
	RequestID string
	ActorID   string
	Recredit  bool
	Remark    string
	ByCompany bool
}

type RequestFilter struct {
	EmployeeID string
	Year       int
	Status     Status
	Limit      int
	Offset     int
}

type AccrualDetail struct {
	EmployeeID string             `json:"employeeId"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Remaining  map[string]float64 `json:"remaining"`
}

type AccrualRunSummary struct {
	Month              string          `json:"month"`
	Processed          int             `json:"processed"`
	Credited           int             `json:"credited"`
	SkippedNotEligible int             `json:"skippedNotEligible"`
	SkippedFailed      int             `json:"skippedFailed"`
	Details            []AccrualDetail `json:"details"`
}

type YearCloseDetail struct {
	EmployeeID   string  `json:"employeeId"`
	UnusedPL     float64 `json:"unusedPl"`
	CarryForward float64 `json:"carryForward"`
	EncashDays   float64 `json:"encashDays"`
}

type YearCloseSummary struct {
	Year              int               `json:"year"`
	NextYear          int               `json:"nextYear"`
	Processed         int               `json:"processed"`
	WithCarryForward  int               `json:"withCarryForward"`
	WithEncash        int               `json:"withEncash"`
	SkippedFailed     int               `json:"skippedFailed"`
	TotalCarryForward float64           `json:"totalCarryForward"`
	TotalEncash       float64           `json:"totalEncash"`
	Details           []YearCloseDetail `json:"details"`
}
