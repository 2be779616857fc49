package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/clubledger/internal/aggregate"
	"github.com/mmeshcher/clubledger/internal/filter"
	"github.com/mmeshcher/clubledger/internal/ledger"
	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/repository"
	"github.com/mmeshcher/clubledger/internal/seed"
	"github.com/mmeshcher/clubledger/internal/service"
)

type stubService struct {
	views    []service.RegistrationView
	viewsErr error

	registration    *model.Registration
	registrationErr error

	registrants    []*model.Registrant
	registrantsErr error
	gotCriteria    filter.Criteria

	registrant    *model.Registrant
	registrantErr error

	totals    aggregate.Totals
	totalsErr error

	gotAmount     decimal.Decimal
	gotPaymentIDs []string
	gotDate       time.Time
	mutateErr     error

	entries    []*model.WaitlistEntry
	entriesErr error

	entry    *model.WaitlistEntry
	entryErr error

	removed   int
	removeErr error
}

func (s *stubService) ListRegistrations(ctx context.Context) ([]service.RegistrationView, error) {
	return s.views, s.viewsErr
}

func (s *stubService) SetRegistrationEnabled(ctx context.Context, title string, enabled bool) (*model.Registration, error) {
	return s.registration, s.registrationErr
}

func (s *stubService) SetWaitlistOpen(ctx context.Context, title string, open bool) (*model.Registration, error) {
	return s.registration, s.registrationErr
}

func (s *stubService) InviteTeam(ctx context.Context, title, team string) (*model.Registration, error) {
	return s.registration, s.registrationErr
}

func (s *stubService) RevokeTeam(ctx context.Context, title, team string) (*model.Registration, error) {
	return s.registration, s.registrationErr
}

func (s *stubService) ListRegistrants(ctx context.Context, criteria filter.Criteria) ([]*model.Registrant, error) {
	s.gotCriteria = criteria
	return s.registrants, s.registrantsErr
}

func (s *stubService) GetRegistrant(ctx context.Context, id string) (*model.Registrant, error) {
	return s.registrant, s.registrantErr
}

func (s *stubService) Summary(ctx context.Context, title string) (aggregate.Totals, error) {
	return s.totals, s.totalsErr
}

func (s *stubService) Refund(ctx context.Context, id, paymentID string, amount decimal.Decimal, note string) (*model.Registrant, error) {
	s.gotAmount = amount
	return s.registrant, s.mutateErr
}

func (s *stubService) CancelPayment(ctx context.Context, id, paymentID, reason string) (*model.Registrant, error) {
	return s.registrant, s.mutateErr
}

func (s *stubService) CancelPlan(ctx context.Context, id string, paymentIDs []string, note string) (*model.Registrant, error) {
	s.gotPaymentIDs = paymentIDs
	return s.registrant, s.mutateErr
}

func (s *stubService) ReschedulePayment(ctx context.Context, id, paymentID string, date time.Time, note string) (*model.Registrant, error) {
	s.gotDate = date
	return s.registrant, s.mutateErr
}

func (s *stubService) ListWaitlist(ctx context.Context, program string) ([]*model.WaitlistEntry, error) {
	return s.entries, s.entriesErr
}

func (s *stubService) AdvanceWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	return s.entry, s.entryErr
}

func (s *stubService) RemoveWaitlistEntries(ctx context.Context, ids []string) (int, error) {
	return s.removed, s.removeErr
}

func newTestRouter(t *testing.T, svc Service) http.Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger).SetupRouter()
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func sampleRegistrant() *model.Registrant {
	return &model.Registrant{
		ID:                "r-1",
		AthleteName:       "Maya Chen",
		Contact:           model.Contact{Name: "Lin Chen", Email: "lin@example.com"},
		RegistrationTitle: "U16 Girls",
		ListPrice:         decimal.RequireFromString("1249"),
		Payments: []model.Payment{
			{
				ID:             "p-1",
				Description:    "Deposit",
				Amount:         decimal.RequireFromString("312.25"),
				OriginalAmount: decimal.RequireFromString("312.25"),
				Refunded:       decimal.RequireFromString("100"),
				Status:         model.PaymentPartiallyRefunded,
			},
		},
		TotalPaid:         decimal.RequireFromString("312.25"),
		Outstanding:       decimal.RequireFromString("936.75"),
		Refunded:          decimal.RequireFromString("100"),
		Status:            model.StatusCurrent,
		PaymentPlanStatus: model.PlanActive,
	}
}

func TestListRegistrants_PassesCriteria(t *testing.T) {
	svc := &stubService{registrants: []*model.Registrant{sampleRegistrant()}}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/registrants?status=Refunded&q=maya", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	assert.Equal(t, filter.Criteria{Status: "Refunded", Query: "maya"}, svc.gotCriteria)

	var got []registrantResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "$936.75", got[0].Outstanding)
	assert.Equal(t, "($100.00)", got[0].RefundedDisplay)
	assert.Equal(t, "$1,249.00", got[0].TotalFees)
	assert.Equal(t, "Current", got[0].DisplayStatus)
	assert.Equal(t, "($100.00)", got[0].Payments[0].RefundedDisplay)
}

func TestGetRegistrant_NotFound(t *testing.T) {
	svc := &stubService{registrantErr: repository.ErrRegistrantNotFound}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/registrants/missing", nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestRefund_ParsesDisplayAmount(t *testing.T) {
	svc := &stubService{registrant: sampleRegistrant()}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/registrants/r-1/payments/p-1/refund", refundRequest{Amount: "$1,000.50", Note: "injury"})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	assert.True(t, svc.gotAmount.Equal(decimal.RequireFromString("1000.50")))
}

func TestRefund_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		serviceErr error
		wantStatus int
	}{
		{name: "bad json", body: "{", wantStatus: http.StatusBadRequest},
		{name: "missing amount", body: refundRequest{}, wantStatus: http.StatusUnprocessableEntity},
		{name: "malformed amount", body: refundRequest{Amount: "abc"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "fraction of a cent", body: refundRequest{Amount: "0.001"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "exponent notation", body: refundRequest{Amount: "1e2"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "over refundable", body: refundRequest{Amount: "5000"}, serviceErr: ledger.ErrInvalidRefundAmount, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown payment", body: refundRequest{Amount: "5"}, serviceErr: ledger.ErrPaymentNotFound, wantStatus: http.StatusNotFound},
		{name: "internal", body: refundRequest{Amount: "5"}, serviceErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{registrant: sampleRegistrant(), mutateErr: tt.serviceErr}
			h := newTestRouter(t, svc)

			res := doRequest(t, h, http.MethodPost, "/api/registrants/r-1/payments/p-1/refund", tt.body)
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatus, res.StatusCode)
		})
	}
}

func TestCancelPlan_RequiresPayments(t *testing.T) {
	svc := &stubService{registrant: sampleRegistrant()}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/registrants/r-1/plan/cancel", cancelPlanRequest{})
	res.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res = doRequest(t, h, http.MethodPost, "/api/registrants/r-1/plan/cancel", cancelPlanRequest{PaymentIDs: []string{"p-2", "p-3"}})
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"p-2", "p-3"}, svc.gotPaymentIDs)
}

func TestReschedule_ValidatesDate(t *testing.T) {
	svc := &stubService{registrant: sampleRegistrant()}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/registrants/r-1/payments/p-2/reschedule", rescheduleRequest{Date: "12/01/2026"})
	var rejected errorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rejected))
	res.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, "date must be YYYY-MM-DD", rejected.Error)
	assert.True(t, svc.gotDate.IsZero(), "service must not be called with an unparsed date")

	res = doRequest(t, h, http.MethodPost, "/api/registrants/r-1/payments/p-2/reschedule", rescheduleRequest{Date: "2026-12-01"})
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), svc.gotDate)

	svc.mutateErr = ledger.ErrInvalidScheduleDate
	res = doRequest(t, h, http.MethodPost, "/api/registrants/r-1/payments/p-2/reschedule", rescheduleRequest{Date: "2040-12-01"})
	res.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
}

func TestSummary(t *testing.T) {
	svc := &stubService{totals: aggregate.Totals{
		TotalPaid:        decimal.RequireFromString("2186.84"),
		TotalOutstanding: decimal.RequireFromString("936.75"),
		Count:            3,
	}}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/summary", nil)
	defer res.Body.Close()

	var got totalsResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "$2,186.84", got.TotalPaid)
	assert.Equal(t, "$3,123.59", got.TotalValue)
	assert.Equal(t, 3, got.Count)
}

func TestRegistrationToggles(t *testing.T) {
	svc := &stubService{registration: &model.Registration{Title: "U8 Mixed"}}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodPatch, "/api/registrations/U8%20Mixed/enabled", map[string]any{})
	res.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res = doRequest(t, h, http.MethodPatch, "/api/registrations/U8%20Mixed/enabled", map[string]any{"enabled": false})
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	svc.registrationErr = wrapErr(repository.ErrRegistrationNotFound)
	res = doRequest(t, h, http.MethodPatch, "/api/registrations/Nope/waitlist", map[string]any{"open": true})
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestInviteTeam_ReturnsSortedTeams(t *testing.T) {
	svc := &stubService{registration: &model.Registration{
		Title:        "U16 Girls",
		InvitedTeams: map[string]struct{}{"Thunder": {}, "Lightning": {}},
	}}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/registrations/U16%20Girls/teams", teamRequest{Name: "Lightning"})
	defer res.Body.Close()

	var got []string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, []string{"Lightning", "Thunder"}, got)
}

func TestWaitlistEndpoints(t *testing.T) {
	entry := &model.WaitlistEntry{ID: "w-1", AthleteName: "Ivy Park", Program: "U16 Girls", Status: model.InviteInvited}
	waiting := &model.WaitlistEntry{ID: "w-2", AthleteName: "Nora Ali", Program: "U16 Girls", Status: model.InviteWaitlist}
	other := &model.WaitlistEntry{ID: "w-3", AthleteName: "Zoe Kim", Program: "U16 Girls", Status: model.InviteWaitlist}
	svc := &stubService{entries: []*model.WaitlistEntry{entry, waiting, other}, entry: entry, removed: 2}
	h := newTestRouter(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/registrations/U16%20Girls/waitlist", nil)
	var list waitlistResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	res.Body.Close()
	require.Len(t, list.Entries, 3)
	assert.Equal(t, "Invited", list.Entries[0].Status)
	assert.Equal(t, map[string]int{"Invited": 1, "Waitlist": 2}, list.Counts)

	res = doRequest(t, h, http.MethodPost, "/api/waitlist/w-1/advance", nil)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = doRequest(t, h, http.MethodPost, "/api/waitlist/remove", removeWaitlistRequest{IDs: []string{"w-1", "w-2"}})
	var removed removeWaitlistResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&removed))
	res.Body.Close()
	assert.Equal(t, 2, removed.Removed)

	svc.removeErr = repository.ErrEntryNotFound
	res = doRequest(t, h, http.MethodPost, "/api/waitlist/remove", removeWaitlistRequest{IDs: []string{"nope"}})
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestListRegistrations_ReportsCapacity(t *testing.T) {
	full := service.RegistrationView{InvitedTeams: []string{}}
	full.Registration = model.Registration{Title: "U12 Boys", Capacity: model.Capacity{Current: 12, Max: 12}}
	open := service.RegistrationView{InvitedTeams: []string{"Thunder"}}
	open.Registration = model.Registration{Title: "U16 Girls", Capacity: model.Capacity{Current: 4, Max: 20}, Enabled: true}

	h := newTestRouter(t, &stubService{views: []service.RegistrationView{full, open}})

	res := doRequest(t, h, http.MethodGet, "/api/registrations", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got []registrationResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.True(t, got[0].IsFull)
	assert.Equal(t, 0, got[0].Remaining)
	assert.False(t, got[1].IsFull)
	assert.Equal(t, 16, got[1].Remaining)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(t, &stubService{})

	res := doRequest(t, h, http.MethodGet, "/api/nothing", nil)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

// Сквозной сценарий через настоящий сервис и хранилище в памяти.
func TestRouter_EndToEndRefund(t *testing.T) {
	data, err := seed.Default()
	require.NoError(t, err)

	repo := repository.NewMemoryRepository(data)
	svc := service.NewService(repo, nil, service.WithClock(func() time.Time {
		return time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
	}))
	h := newTestRouter(t, svc)

	var maya *model.Registrant
	for _, r := range data.Registrants {
		if strings.HasPrefix(r.AthleteName, "Maya") {
			maya = r
		}
	}
	require.NotNil(t, maya)
	paymentID := maya.Payments[0].ID

	res := doRequest(t, h, http.MethodPost, "/api/registrants/"+maya.ID+"/payments/"+paymentID+"/refund", refundRequest{Amount: "100"})
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got registrantResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "Partially Refunded", got.Payments[0].Status)
	assert.Equal(t, "($100.00)", got.RefundedDisplay)
	assert.Equal(t, "$936.75", got.Outstanding)

	res2 := doRequest(t, h, http.MethodPost, "/api/registrants/"+maya.ID+"/payments/"+paymentID+"/refund", refundRequest{Amount: "1000"})
	res2.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, res2.StatusCode)
}

func wrapErr(err error) error {
	return errors.Join(errors.New("update registration"), err)
}
