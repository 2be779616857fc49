package handler

import (
	"time"

	"github.com/mmeshcher/clubledger/internal/aggregate"
	"github.com/mmeshcher/clubledger/internal/ledger"
	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/money"
	"github.com/mmeshcher/clubledger/internal/service"
	"github.com/mmeshcher/clubledger/internal/waitlist"
)

type errorResponse struct {
	Error string `json:"error"`
}

type totalsResponse struct {
	TotalPaid        string `json:"total_paid"`
	TotalOutstanding string `json:"total_outstanding"`
	TotalRefunded    string `json:"total_refunded"`
	TotalDiscounts   string `json:"total_discounts"`
	TotalValue       string `json:"total_value"`
	Count            int    `json:"count"`
}

func newTotalsResponse(t aggregate.Totals) totalsResponse {
	return totalsResponse{
		TotalPaid:        money.Format(t.TotalPaid),
		TotalOutstanding: money.Format(t.TotalOutstanding),
		TotalRefunded:    money.Format(t.TotalRefunded),
		TotalDiscounts:   money.Format(t.TotalDiscounts),
		TotalValue:       money.Format(t.Value()),
		Count:            t.Count,
	}
}

type registrationResponse struct {
	Title           string         `json:"title"`
	ListPrice       string         `json:"list_price"`
	StartDate       string         `json:"start_date,omitempty"`
	EndDate         string         `json:"end_date,omitempty"`
	CapacityCurrent int            `json:"capacity_current"`
	CapacityMax     int            `json:"capacity_max"`
	Remaining       int            `json:"remaining"`
	IsFull          bool           `json:"is_full"`
	Enabled         bool           `json:"enabled"`
	WaitlistOpen    bool           `json:"waitlist_open"`
	InvitedTeams    []string       `json:"invited_teams"`
	Totals          totalsResponse `json:"totals"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func newRegistrationResponse(v service.RegistrationView) registrationResponse {
	reg := v.Registration
	return registrationResponse{
		Title:           reg.Title,
		ListPrice:       money.Format(reg.ListPrice),
		StartDate:       formatDate(reg.StartDate),
		EndDate:         formatDate(reg.EndDate),
		CapacityCurrent: reg.Capacity.Current,
		CapacityMax:     reg.Capacity.Max,
		Remaining:       reg.Remaining(),
		IsFull:          reg.IsFull(),
		Enabled:         reg.Enabled,
		WaitlistOpen:    reg.WaitlistOpen,
		InvitedTeams:    v.InvitedTeams,
		Totals:          newTotalsResponse(v.Totals),
	}
}

type registrationToggleResponse struct {
	Title        string `json:"title"`
	Enabled      bool   `json:"enabled"`
	WaitlistOpen bool   `json:"waitlist_open"`
}

type discountResponse struct {
	Code        string `json:"code"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
}

type paymentResponse struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Amount          string `json:"amount"`
	OriginalAmount  string `json:"original_amount"`
	DiscountApplied string `json:"discount_applied,omitempty"`
	Refunded        string `json:"refunded"`
	RefundedDisplay string `json:"refunded_display"`
	TransactionID   string `json:"transaction_id,omitempty"`
	Status          string `json:"status"`
	Uncollected     bool   `json:"uncollected,omitempty"`
	IsModified      bool   `json:"is_modified"`
	OriginalDate    string `json:"original_date,omitempty"`
	ModifiedDate    string `json:"modified_date,omitempty"`
	ModifiedNote    string `json:"modified_note,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
}

func newPaymentResponse(p model.Payment) paymentResponse {
	resp := paymentResponse{
		ID:              p.ID,
		Description:     p.Description,
		Date:            formatDate(p.Date),
		Amount:          money.Format(p.Amount),
		OriginalAmount:  money.Format(p.OriginalAmount),
		Refunded:        money.Format(p.Refunded),
		RefundedDisplay: money.FormatRefund(p.Refunded),
		TransactionID:   p.TransactionID,
		Status:          string(p.Status),
		Uncollected:     p.Uncollected,
		IsModified:      p.Modification.IsModified,
		CancelReason:    p.CancelReason,
	}
	if p.DiscountApplied.IsPositive() {
		resp.DiscountApplied = money.Format(p.DiscountApplied)
	}
	if p.Modification.IsModified {
		resp.OriginalDate = formatDate(p.Modification.OriginalDate)
		resp.ModifiedDate = formatDate(p.Modification.ModifiedDate)
		resp.ModifiedNote = p.Modification.Note
	}
	return resp
}

type registrantResponse struct {
	ID                string            `json:"id"`
	AthleteName       string            `json:"athlete_name"`
	DateOfBirth       string            `json:"date_of_birth,omitempty"`
	Gender            string            `json:"gender,omitempty"`
	ContactName       string            `json:"contact_name"`
	ContactEmail      string            `json:"contact_email"`
	Registration      string            `json:"registration"`
	Team              string            `json:"team,omitempty"`
	RegisteredAt      string            `json:"registered_at,omitempty"`
	ListPrice         string            `json:"list_price"`
	TotalFees         string            `json:"total_fees"`
	Discount          *discountResponse `json:"discount,omitempty"`
	TotalPaid         string            `json:"total_paid"`
	Outstanding       string            `json:"outstanding"`
	Refunded          string            `json:"refunded"`
	RefundedDisplay   string            `json:"refunded_display"`
	Status            string            `json:"status"`
	DisplayStatus     string            `json:"display_status,omitempty"`
	PaymentPlanStatus string            `json:"payment_plan_status"`
	OutstandingReason string            `json:"outstanding_reason,omitempty"`
	Payments          []paymentResponse `json:"payments"`
}

func newRegistrantResponse(r *model.Registrant) registrantResponse {
	display, _ := ledger.DisplayStatus(r.Status)

	resp := registrantResponse{
		ID:                r.ID,
		AthleteName:       r.AthleteName,
		DateOfBirth:       formatDate(r.DateOfBirth),
		Gender:            r.Gender,
		ContactName:       r.Contact.Name,
		ContactEmail:      r.Contact.Email,
		Registration:      r.RegistrationTitle,
		Team:              r.Team,
		RegisteredAt:      formatDate(r.RegisteredAt),
		ListPrice:         money.Format(r.ListPrice),
		TotalFees:         money.Format(r.TotalFees()),
		TotalPaid:         money.Format(r.TotalPaid),
		Outstanding:       money.Format(r.Outstanding),
		Refunded:          money.Format(r.Refunded),
		RefundedDisplay:   money.FormatRefund(r.Refunded),
		Status:            string(r.Status),
		DisplayStatus:     display,
		PaymentPlanStatus: string(r.PaymentPlanStatus),
		OutstandingReason: r.OutstandingReason,
		Payments:          make([]paymentResponse, 0, len(r.Payments)),
	}
	if r.Discount != nil {
		resp.Discount = &discountResponse{
			Code:        r.Discount.Code,
			Type:        string(r.Discount.Type),
			Description: r.Discount.Description,
			Amount:      money.Format(r.Discount.Amount),
		}
	}
	for _, p := range r.Payments {
		resp.Payments = append(resp.Payments, newPaymentResponse(p))
	}
	return resp
}

type waitlistEntryResponse struct {
	ID           string `json:"id"`
	AthleteName  string `json:"athlete_name"`
	Program      string `json:"program"`
	DateAdded    string `json:"date_added"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	Status       string `json:"status"`
}

type waitlistResponse struct {
	Entries []waitlistEntryResponse `json:"entries"`
	Counts  map[string]int          `json:"counts"`
}

func newWaitlistResponse(entries []*model.WaitlistEntry) waitlistResponse {
	resp := waitlistResponse{
		Entries: make([]waitlistEntryResponse, 0, len(entries)),
		Counts:  make(map[string]int),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, newWaitlistEntryResponse(e))
	}
	for status, n := range waitlist.CountByStatus(entries) {
		resp.Counts[string(status)] = n
	}
	return resp
}

func newWaitlistEntryResponse(e *model.WaitlistEntry) waitlistEntryResponse {
	return waitlistEntryResponse{
		ID:           e.ID,
		AthleteName:  e.AthleteName,
		Program:      e.Program,
		DateAdded:    formatDate(e.DateAdded),
		ContactName:  e.FamilyContact.Name,
		ContactEmail: e.FamilyContact.Email,
		Status:       string(e.Status),
	}
}
