package leavehandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lms/internal/domain/auth"
	"lms/internal/domain/directory"
	"lms/internal/domain/leave"
	"lms/internal/transport/http/api"
	"lms/internal/transport/http/middleware"
	"lms/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
}

func NewHandler(service *leave.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Post("/requests", h.handleApply)
		r.Get("/requests", h.handleListRequests)
		r.Get("/requests/{requestID}", h.handleGetRequest)
		r.Get("/requests/{requestID}/history", h.handleHistory)
		r.Post("/requests/{requestID}/approve", h.handleApprove)
		r.Post("/requests/{requestID}/reject", h.handleReject)
		r.Post("/requests/{requestID}/cancel", h.handleCancel)
		r.Get("/balances", h.handleBalances)
		r.Get("/transactions", h.handleTransactions)
	})
}

// WriteServiceError maps the domain error taxonomy onto HTTP statuses.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())

	var verr *leave.ValidationError
	if errors.As(err, &verr) {
		api.Fail(w, http.StatusBadRequest, verr.Code, verr.Message, reqID)
		return
	}
	var aerr *leave.AuthorizationError
	if errors.As(err, &aerr) {
		api.Fail(w, http.StatusForbidden, "forbidden", aerr.Message, reqID)
		return
	}
	var serr *leave.StateError
	if errors.As(err, &serr) {
		api.Fail(w, http.StatusConflict, "invalid_state", serr.Message, reqID)
		return
	}
	if errors.Is(err, leave.ErrNotFound) || errors.Is(err, directory.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
		return
	}
	api.Fail(w, http.StatusInternalServerError, "internal_error", "operation failed", reqID)
}

type applyPayload struct {
	EmployeeID     string `json:"employeeId"`
	LeaveType      string `json:"leaveType"`
	FromDate       string `json:"fromDate"`
	ToDate         string `json:"toDate"`
	Reason         string `json:"reason"`
	Override       bool   `json:"overridePolicy"`
	OverrideRemark string `json:"overrideRemark"`
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload applyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	from, err := shared.ParseDate(payload.FromDate)
	if err != nil || from.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_dates", "fromDate must be a valid date in YYYY-MM-DD format", middleware.GetRequestID(r.Context()))
		return
	}
	to, err := shared.ParseDate(payload.ToDate)
	if err != nil || to.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_dates", "toDate must be a valid date in YYYY-MM-DD format", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := user.EmployeeID
	if payload.EmployeeID != "" && payload.EmployeeID != user.EmployeeID {
		if !auth.IsHREquivalent(user.Role) {
			api.Fail(w, http.StatusForbidden, "forbidden", "only HR can apply on behalf of another employee", middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = payload.EmployeeID
	}

	req, err := h.Service.Apply(r.Context(), leave.ApplyInput{
		EmployeeID:     employeeID,
		Type:           leave.LeaveType(payload.LeaveType),
		FromDate:       from,
		ToDate:         to,
		Reason:         payload.Reason,
		Override:       payload.Override,
		OverrideRemark: payload.OverrideRemark,
		ActorID:        user.EmployeeID,
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	filter := leave.RequestFilter{
		EmployeeID: user.EmployeeID,
		Status:     leave.Status(r.URL.Query().Get("status")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			filter.Year = year
		}
	}
	if target := r.URL.Query().Get("employeeId"); target != "" && target != user.EmployeeID {
		if !auth.IsHREquivalent(user.Role) {
			api.Fail(w, http.StatusForbidden, "forbidden", "only HR can list another employee's requests", middleware.GetRequestID(r.Context()))
			return
		}
		filter.EmployeeID = target
	}

	requests, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if req.EmployeeID != user.EmployeeID && !auth.IsHREquivalent(user.Role) && auth.RoleRank(user.Role) > 4 {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this request", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	history, err := h.Service.History(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Remark string `json:"remark"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Approve(r.Context(), chi.URLParam(r, "requestID"), user.EmployeeID, payload.Remark)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Reject(r.Context(), chi.URLParam(r, "requestID"), user.EmployeeID, payload.Remark)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type cancelPayload struct {
	Remark    string `json:"remark"`
	Recredit  bool   `json:"recredit"`
	ByCompany bool   `json:"byCompany"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload cancelPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Cancel(r.Context(), leave.CancelInput{
		RequestID: chi.URLParam(r, "requestID"),
		ActorID:   user.EmployeeID,
		Recredit:  payload.Recredit,
		Remark:    payload.Remark,
		ByCompany: payload.ByCompany,
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID, year, ok := h.resolveEmployeeYear(w, r, user.EmployeeID, user.Role)
	if !ok {
		return
	}
	balances, err := h.Service.WalletBalances(r.Context(), employeeID, year)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID, year, ok := h.resolveEmployeeYear(w, r, user.EmployeeID, user.Role)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	txns, err := h.Service.Transactions(r.Context(), employeeID, year, page.Limit)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	api.Success(w, txns, middleware.GetRequestID(r.Context()))
}

// resolveEmployeeYear applies the self-or-HR rule to the employeeId query
// parameter and defaults the year to the current one.
func (h *Handler) resolveEmployeeYear(w http.ResponseWriter, r *http.Request, selfID, role string) (string, int, bool) {
	employeeID := selfID
	if target := r.URL.Query().Get("employeeId"); target != "" && target != selfID {
		if !auth.IsHREquivalent(role) {
			api.Fail(w, http.StatusForbidden, "forbidden", "only HR can view another employee's wallet", middleware.GetRequestID(r.Context()))
			return "", 0, false
		}
		employeeID = target
	}

	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2200 {
			api.Fail(w, http.StatusBadRequest, "invalid_year", "year must be a four digit number", middleware.GetRequestID(r.Context()))
			return "", 0, false
		}
		year = parsed
	}
	return employeeID, year, true
}
