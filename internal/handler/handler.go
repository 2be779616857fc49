// Package handler содержит HTTP-обработчики API реестра регистраций.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/clubledger/internal/aggregate"
	"github.com/mmeshcher/clubledger/internal/filter"
	"github.com/mmeshcher/clubledger/internal/ledger"
	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/money"
	"github.com/mmeshcher/clubledger/internal/registration"
	"github.com/mmeshcher/clubledger/internal/repository"
	"github.com/mmeshcher/clubledger/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ListRegistrations(ctx context.Context) ([]service.RegistrationView, error)
	SetRegistrationEnabled(ctx context.Context, title string, enabled bool) (*model.Registration, error)
	SetWaitlistOpen(ctx context.Context, title string, open bool) (*model.Registration, error)
	InviteTeam(ctx context.Context, title, team string) (*model.Registration, error)
	RevokeTeam(ctx context.Context, title, team string) (*model.Registration, error)
	ListRegistrants(ctx context.Context, criteria filter.Criteria) ([]*model.Registrant, error)
	GetRegistrant(ctx context.Context, id string) (*model.Registrant, error)
	Summary(ctx context.Context, title string) (aggregate.Totals, error)
	Refund(ctx context.Context, id, paymentID string, amount decimal.Decimal, note string) (*model.Registrant, error)
	CancelPayment(ctx context.Context, id, paymentID, reason string) (*model.Registrant, error)
	CancelPlan(ctx context.Context, id string, paymentIDs []string, note string) (*model.Registrant, error)
	ReschedulePayment(ctx context.Context, id, paymentID string, date time.Time, note string) (*model.Registrant, error)
	ListWaitlist(ctx context.Context, program string) ([]*model.WaitlistEntry, error)
	AdvanceWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error)
	RemoveWaitlistEntries(ctx context.Context, ids []string) (int, error)
}

// Handler реализует HTTP-обработчики API реестра.
type Handler struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:  s,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type waitlistToggleRequest struct {
	Open *bool `json:"open" validate:"required"`
}

type teamRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type refundRequest struct {
	Amount string `json:"amount" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

type cancelPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type cancelPlanRequest struct {
	PaymentIDs []string `json:"payment_ids" validate:"required,min=1,dive,required"`
	Note       string   `json:"note" validate:"max=500"`
}

type rescheduleRequest struct {
	Date string `json:"date" validate:"required"`
	Note string `json:"note" validate:"max=500"`
}

type removeWaitlistRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type removeWaitlistResponse struct {
	Removed int `json:"removed"`
}

// decode разбирает тело запроса и проверяет его по тегам validate.
// При ошибке ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// writeError отображает доменные ошибки на HTTP-статусы.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrRegistrationNotFound),
		errors.Is(err, repository.ErrRegistrantNotFound),
		errors.Is(err, repository.ErrEntryNotFound),
		errors.Is(err, ledger.ErrPaymentNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrPaymentNotScheduled),
		errors.Is(err, ledger.ErrPaymentNotRefundable),
		errors.Is(err, ledger.ErrInvalidRefundAmount),
		errors.Is(err, ledger.ErrInvalidScheduleDate),
		errors.Is(err, ledger.ErrNoPaymentsSelected),
		errors.Is(err, registration.ErrRegistrationClosed),
		errors.Is(err, registration.ErrEmptyTeamName),
		errors.Is(err, money.ErrMalformedAmount):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		h.logger.Error(op+" error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// ListRegistrations возвращает наборы с итогами.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListRegistrations(r.Context())
	if err != nil {
		h.writeError(w, "list registrations", err)
		return
	}

	resp := make([]registrationResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, newRegistrationResponse(v))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func newToggleResponse(reg *model.Registration) registrationToggleResponse {
	return registrationToggleResponse{
		Title:        reg.Title,
		Enabled:      reg.Enabled,
		WaitlistOpen: reg.WaitlistOpen,
	}
}

// SetRegistrationEnabled открывает или закрывает набор.
func (h *Handler) SetRegistrationEnabled(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.service.SetRegistrationEnabled(r.Context(), chi.URLParam(r, "title"), *req.Enabled)
	if err != nil {
		h.writeError(w, "toggle registration", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newToggleResponse(reg))
}

// SetWaitlistOpen открывает или закрывает лист ожидания набора.
func (h *Handler) SetWaitlistOpen(w http.ResponseWriter, r *http.Request) {
	var req waitlistToggleRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.service.SetWaitlistOpen(r.Context(), chi.URLParam(r, "title"), *req.Open)
	if err != nil {
		h.writeError(w, "toggle waitlist", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newToggleResponse(reg))
}

// InviteTeam добавляет команду в приглашённые.
func (h *Handler) InviteTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.service.InviteTeam(r.Context(), chi.URLParam(r, "title"), req.Name)
	if err != nil {
		h.writeError(w, "invite team", err)
		return
	}
	h.writeJSON(w, http.StatusOK, registration.InvitedTeams(reg))
}

// RevokeTeam удаляет команду из приглашённых.
func (h *Handler) RevokeTeam(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.RevokeTeam(r.Context(), chi.URLParam(r, "title"), chi.URLParam(r, "team"))
	if err != nil {
		h.writeError(w, "revoke team", err)
		return
	}
	h.writeJSON(w, http.StatusOK, registration.InvitedTeams(reg))
}

// ListRegistrants возвращает регистрантов по фильтру статуса и поисковой строке.
func (h *Handler) ListRegistrants(w http.ResponseWriter, r *http.Request) {
	criteria := filter.Criteria{
		Status: r.URL.Query().Get("status"),
		Query:  r.URL.Query().Get("q"),
	}

	registrants, err := h.service.ListRegistrants(r.Context(), criteria)
	if err != nil {
		h.writeError(w, "list registrants", err)
		return
	}

	resp := make([]registrantResponse, 0, len(registrants))
	for _, reg := range registrants {
		resp = append(resp, newRegistrantResponse(reg))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetRegistrant возвращает регистранта с планом платежей.
func (h *Handler) GetRegistrant(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.GetRegistrant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get registrant", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRegistrantResponse(reg))
}

// Summary возвращает итоговые суммы по всем регистрантам или по одному набору.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Summary(r.Context(), r.URL.Query().Get("registration"))
	if err != nil {
		h.writeError(w, "summary", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newTotalsResponse(totals))
}

// Refund оформляет возврат по платежу.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := money.ParseStrict(req.Amount)
	if err != nil {
		h.writeError(w, "refund", err)
		return
	}

	reg, err := h.service.Refund(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "paymentID"), amount, req.Note)
	if err != nil {
		h.writeError(w, "refund", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRegistrantResponse(reg))
}

// CancelPayment отменяет один запланированный платёж.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req cancelPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.service.CancelPayment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "paymentID"), req.Reason)
	if err != nil {
		h.writeError(w, "cancel payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRegistrantResponse(reg))
}

// CancelPlan отменяет выбранные платежи плана.
func (h *Handler) CancelPlan(w http.ResponseWriter, r *http.Request) {
	var req cancelPlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.service.CancelPlan(r.Context(), chi.URLParam(r, "id"), req.PaymentIDs, req.Note)
	if err != nil {
		h.writeError(w, "cancel plan", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRegistrantResponse(reg))
}

// ReschedulePayment переносит дату запланированного платежа.
func (h *Handler) ReschedulePayment(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	reg, err := h.service.ReschedulePayment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "paymentID"), date, req.Note)
	if err != nil {
		h.writeError(w, "reschedule payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRegistrantResponse(reg))
}

// ListWaitlist возвращает лист ожидания набора и число записей в каждом статусе.
func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListWaitlist(r.Context(), chi.URLParam(r, "title"))
	if err != nil {
		h.writeError(w, "list waitlist", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newWaitlistResponse(entries))
}

// AdvanceWaitlistEntry продвигает приглашение на следующий шаг.
func (h *Handler) AdvanceWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.AdvanceWaitlistEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "advance waitlist entry", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newWaitlistEntryResponse(e))
}

// RemoveWaitlistEntries удаляет выбранные записи листа ожидания.
func (h *Handler) RemoveWaitlistEntries(w http.ResponseWriter, r *http.Request) {
	var req removeWaitlistRequest
	if !h.decode(w, r, &req) {
		return
	}

	removed, err := h.service.RemoveWaitlistEntries(r.Context(), req.IDs)
	if err != nil {
		h.writeError(w, "remove waitlist entries", err)
		return
	}
	h.writeJSON(w, http.StatusOK, removeWaitlistResponse{Removed: removed})
}
