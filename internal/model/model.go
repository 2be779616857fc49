// Package model содержит доменные сущности реестра регистраций и платежей клуба.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus описывает расчётный статус регистранта.
type AccountStatus string

const (
	StatusCurrent           AccountStatus = "Current"
	StatusOverdue           AccountStatus = "Overdue"
	StatusPaid              AccountStatus = "Paid"
	StatusRefunded          AccountStatus = "Refunded"
	StatusPartiallyRefunded AccountStatus = "Partially Refunded"
	StatusCanceled          AccountStatus = "Canceled"
)

// IsValid сообщает, является ли статус одним из известных.
func (s AccountStatus) IsValid() bool {
	switch s {
	case StatusCurrent, StatusOverdue, StatusPaid, StatusRefunded, StatusPartiallyRefunded, StatusCanceled:
		return true
	default:
		return false
	}
}

// PaymentStatus описывает статус отдельного платежа.
type PaymentStatus string

const (
	PaymentPaid              PaymentStatus = "Paid"
	PaymentScheduled         PaymentStatus = "Scheduled"
	PaymentRefunded          PaymentStatus = "Refunded"
	PaymentPartiallyRefunded PaymentStatus = "Partially Refunded"
	PaymentCanceled          PaymentStatus = "Canceled"
)

// IsPaidFamily сообщает, были ли деньги по платежу фактически получены.
func (s PaymentStatus) IsPaidFamily() bool {
	return s == PaymentPaid || s == PaymentRefunded || s == PaymentPartiallyRefunded
}

// PlanStatus описывает состояние плана платежей.
type PlanStatus string

const (
	PlanActive   PlanStatus = "Active"
	PlanCanceled PlanStatus = "Canceled"
)

// OutstandingReasonCanceled помечает нулевой долг, возникший из-за отмены плана.
const OutstandingReasonCanceled = "canceled"

// DiscountType описывает способ расчёта скидки.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount описывает применённый к регистранту промокод.
type Discount struct {
	Code        string
	Type        DiscountType
	Description string
	// Value задаёт процент или фиксированную сумму в зависимости от Type.
	Value  decimal.Decimal
	Amount decimal.Decimal
}

// Capacity описывает заполненность набора.
type Capacity struct {
	Current int
	Max     int
}

// Registration описывает сезонный набор, например "U16 Girls".
type Registration struct {
	Title        string
	ListPrice    decimal.Decimal
	StartDate    time.Time
	EndDate      time.Time
	Capacity     Capacity
	Enabled      bool
	WaitlistOpen bool
	InvitedTeams map[string]struct{}
}

// Remaining возвращает число свободных мест.
func (r *Registration) Remaining() int {
	return r.Capacity.Max - r.Capacity.Current
}

// IsFull возвращает true, если свободных мест не осталось.
func (r *Registration) IsFull() bool {
	return r.Capacity.Current >= r.Capacity.Max
}

// Clone возвращает копию набора, не разделяющую множество приглашённых команд.
func (r *Registration) Clone() *Registration {
	c := *r
	c.InvitedTeams = make(map[string]struct{}, len(r.InvitedTeams))
	for k := range r.InvitedTeams {
		c.InvitedTeams[k] = struct{}{}
	}
	return &c
}

// Modification хранит историю переноса даты платежа.
type Modification struct {
	OriginalDate time.Time
	ModifiedDate time.Time
	Note         string
	IsModified   bool
}

// RefundNote фиксирует одну операцию возврата по платежу.
type RefundNote struct {
	Amount decimal.Decimal
	Note   string
}

// Payment описывает одну строку плана платежей: депозит, взнос или полную оплату.
type Payment struct {
	ID              string
	Description     string
	Date            time.Time
	Amount          decimal.Decimal
	OriginalAmount  decimal.Decimal
	DiscountApplied decimal.Decimal
	Refunded        decimal.Decimal
	TransactionID   string
	Status          PaymentStatus
	Modification    Modification
	CancelReason    string
	Refunds         []RefundNote
	// Uncollected отмечает платёж, возврат по которому оформлен до получения денег.
	// Его сумма остаётся в Outstanding.
	Uncollected bool
}

// Refundable возвращает сумму, которую ещё можно вернуть по платежу.
func (p *Payment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.Refunded)
}

// Contact описывает основное контактное лицо семьи.
type Contact struct {
	Name  string
	Email string
}

// Registrant описывает запись одного спортсмена в одном наборе.
type Registrant struct {
	ID                string
	AthleteName       string
	DateOfBirth       time.Time
	Gender            string
	Contact           Contact
	RegistrationTitle string
	Team              string
	RegisteredAt      time.Time
	ListPrice         decimal.Decimal
	Discount          *Discount
	Payments          []Payment

	TotalPaid         decimal.Decimal
	Outstanding       decimal.Decimal
	Refunded          decimal.Decimal
	Status            AccountStatus
	PaymentPlanStatus PlanStatus
	OutstandingReason string
}

// DiscountAmount возвращает сумму скидки или ноль, если скидки нет.
func (r *Registrant) DiscountAmount() decimal.Decimal {
	if r.Discount == nil {
		return decimal.Zero
	}
	return r.Discount.Amount
}

// TotalFees возвращает стоимость с учётом скидки.
func (r *Registrant) TotalFees() decimal.Decimal {
	return r.ListPrice.Sub(r.DiscountAmount())
}

// FindPayment возвращает указатель на платёж с указанным идентификатором.
func (r *Registrant) FindPayment(id string) (*Payment, bool) {
	for i := range r.Payments {
		if r.Payments[i].ID == id {
			return &r.Payments[i], true
		}
	}
	return nil, false
}

// Clone возвращает глубокую копию регистранта.
func (r *Registrant) Clone() *Registrant {
	c := *r
	if r.Discount != nil {
		d := *r.Discount
		c.Discount = &d
	}
	c.Payments = make([]Payment, len(r.Payments))
	for i, p := range r.Payments {
		p.Refunds = append([]RefundNote(nil), p.Refunds...)
		c.Payments[i] = p
	}
	return &c
}

// InviteStatus описывает состояние приглашения из листа ожидания.
type InviteStatus string

const (
	InviteWaitlist InviteStatus = "Waitlist"
	InviteInvited  InviteStatus = "Invited"
	InviteExpired  InviteStatus = "Expired"
	InviteDeclined InviteStatus = "Declined"
	InviteRemoved  InviteStatus = "Removed"
)

// WaitlistEntry описывает спортсмена в листе ожидания набора.
type WaitlistEntry struct {
	ID            string
	AthleteName   string
	Program       string
	DateAdded     time.Time
	FamilyContact Contact
	Status        InviteStatus
}
