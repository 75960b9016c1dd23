package adminhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lms/internal/domain/audit"
	"lms/internal/domain/auth"
	"lms/internal/domain/calendar"
	"lms/internal/domain/directory"
	"lms/internal/domain/leave"
	"lms/internal/domain/policy"
	"lms/internal/platform/metrics"
	"lms/internal/transport/http/api"
	leavehandler "lms/internal/transport/http/handlers/leave"
	"lms/internal/transport/http/middleware"
	"lms/internal/transport/http/shared"
)

// Handler groups the HR and admin operations: policy and calendar
// management, employee onboarding, batch runs and the audit trail.
type Handler struct {
	Leave     *leave.Service
	Policy    *policy.Store
	Calendar  *calendar.Store
	Directory *directory.Store
	Audit     *audit.Service
	Metrics   *metrics.Collector
}

func NewHandler(leaveSvc *leave.Service, policyStore *policy.Store, calendarStore *calendar.Store, directoryStore *directory.Store, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{
		Leave:     leaveSvc,
		Policy:    policyStore,
		Calendar:  calendarStore,
		Directory: directoryStore,
		Audit:     auditSvc,
		Metrics:   collector,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireHR)
		r.Get("/policy", h.handleGetPolicy)
		r.Put("/policy", h.handleUpdatePolicy)
		r.Get("/holidays", h.handleListHolidays)
		r.Post("/holidays", h.handleCreateHoliday)
		r.Delete("/holidays/{holidayID}", h.handleDeleteHoliday)
		r.Get("/events", h.handleListEvents)
		r.Post("/events", h.handleCreateEvent)
		r.Delete("/events/{eventID}", h.handleDeleteEvent)
		r.Get("/employees", h.handleListEmployees)
		r.Post("/employees", h.handleCreateEmployee)
		r.Post("/employees/{employeeID}/deactivate", h.handleDeactivateEmployee)
		r.Post("/accrual/run", h.handleRunAccrual)
		r.Post("/year-close/run", h.handleRunYearClose)
		r.Post("/penalty", h.handlePenalty)
		r.Post("/balances/adjust", h.handleAdjustBalance)
		r.Get("/audit/events", h.handleListAudit)
	})
}

// requireHR gates the whole admin group on an HR-equivalent token.
func requireHR(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}
		if !auth.IsHREquivalent(user.Role) {
			api.Fail(w, http.StatusForbidden, "forbidden", "hr role required", middleware.GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseYear(r *http.Request) int {
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			return year
		}
	}
	return time.Now().UTC().Year()
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Policy.Get(r.Context(), parseYear(r))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_load_failed", "failed to load policy", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, settings, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload policy.Settings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year < 2000 || payload.Year > 2200 {
		api.Fail(w, http.StatusBadRequest, "invalid_year", "year must be a four digit number", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Policy.Update(r.Context(), payload); err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_update_failed", "failed to update policy", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, payload, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Calendar.ListHolidays(r.Context(), parseYear(r))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_list_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

type holidayPayload struct {
	Date       string `json:"date"`
	Name       string `json:"name"`
	Active     *bool  `json:"active"`
	Restricted bool   `json:"restricted"`
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	date, err := shared.ParseDate(payload.Date)
	if err != nil || date.IsZero() || payload.Name == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "date and name are required", middleware.GetRequestID(r.Context()))
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	id, err := h.Calendar.CreateHoliday(r.Context(), calendar.Holiday{
		Date:       date,
		Name:       payload.Name,
		Active:     active,
		Restricted: payload.Restricted,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_create_failed", "failed to create holiday", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Calendar.DeleteHoliday(r.Context(), chi.URLParam(r, "holidayID")); err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "holiday not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "holiday_delete_failed", "failed to delete holiday", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Calendar.ListEvents(r.Context(), parseYear(r))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "event_list_failed", "failed to list company events", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

type eventPayload struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	Active *bool  `json:"active"`
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	date, err := shared.ParseDate(payload.Date)
	if err != nil || date.IsZero() || payload.Name == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "date and name are required", middleware.GetRequestID(r.Context()))
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	id, err := h.Calendar.CreateEvent(r.Context(), calendar.CompanyEvent{Date: date, Name: payload.Name, Active: active})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "event_create_failed", "failed to create company event", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Calendar.DeleteEvent(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "company event not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "event_delete_failed", "failed to delete company event", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.ActiveEmployees(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

type employeePayload struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	JoinDate  string `json:"joinDate"`
	ManagerID string `json:"managerId"`
	Role      string `json:"role"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	joinDate, err := shared.ParseDate(payload.JoinDate)
	if err != nil || joinDate.IsZero() || payload.Code == "" || payload.Name == "" || payload.Email == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "code, name, email and joinDate are required", middleware.GetRequestID(r.Context()))
		return
	}
	role := payload.Role
	if role == "" {
		role = auth.RoleEmployee
	}

	id, err := h.Directory.Create(r.Context(), directory.Employee{
		Code:      payload.Code,
		Name:      payload.Name,
		Email:     payload.Email,
		JoinDate:  joinDate,
		Active:    true,
		ManagerID: payload.ManagerID,
		Role:      role,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.SetActive(r.Context(), chi.URLParam(r, "employeeID"), false); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_deactivate_failed", "failed to deactivate employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"deactivated": true}, middleware.GetRequestID(r.Context()))
}

type accrualPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (h *Handler) handleRunAccrual(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload accrualPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year == 0 || payload.Month == 0 {
		now := time.Now().UTC()
		previous := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		payload.Year, payload.Month = previous.Year(), int(previous.Month())
	}

	summary, err := h.Leave.RunMonthlyAccrual(r.Context(), payload.Year, time.Month(payload.Month), user.EmployeeID)
	if err != nil {
		leavehandler.WriteServiceError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordAccrualRun()
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

type yearClosePayload struct {
	Year int `json:"year"`
}

func (h *Handler) handleRunYearClose(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload yearClosePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year == 0 {
		payload.Year = time.Now().UTC().Year() - 1
	}

	summary, err := h.Leave.RunYearClose(r.Context(), payload.Year, user.EmployeeID)
	if err != nil {
		leavehandler.WriteServiceError(w, r, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordYearCloseRun()
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

type penaltyPayload struct {
	EmployeeID string  `json:"employeeId"`
	Year       int     `json:"year"`
	Days       float64 `json:"days"`
	Remark     string  `json:"remark"`
}

func (h *Handler) handlePenalty(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload penaltyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year == 0 {
		payload.Year = time.Now().UTC().Year()
	}
	if payload.Days == 0 {
		payload.Days = 3
	}

	if err := h.Leave.DeductPenalty(r.Context(), payload.EmployeeID, payload.Year, payload.Days, user.EmployeeID, payload.Remark); err != nil {
		leavehandler.WriteServiceError(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"deducted": true}, middleware.GetRequestID(r.Context()))
}

type adjustPayload struct {
	EmployeeID string  `json:"employeeId"`
	Year       int     `json:"year"`
	LeaveType  string  `json:"leaveType"`
	DeltaDays  float64 `json:"deltaDays"`
	Remark     string  `json:"remark"`
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload adjustPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year == 0 {
		payload.Year = time.Now().UTC().Year()
	}

	err := h.Leave.ManualAdjust(r.Context(), payload.EmployeeID, payload.Year, leave.LeaveType(payload.LeaveType), payload.DeltaDays, user.EmployeeID, payload.Remark)
	if err != nil {
		leavehandler.WriteServiceError(w, r, err)
		return
	}
	api.Success(w, map[string]bool{"adjusted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	filter := audit.Filter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
		ActorID:    r.URL.Query().Get("actorId"),
	}
	events, err := h.Audit.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}
