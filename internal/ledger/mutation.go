package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/money"
	"github.com/mmeshcher/clubledger/internal/validation"
)

var (
	// ErrPaymentNotFound возвращается, если у регистранта нет платежа с указанным идентификатором.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentNotScheduled возвращается при попытке отменить или перенести незапланированный платёж.
	ErrPaymentNotScheduled = errors.New("payment is not scheduled")
	// ErrPaymentNotRefundable возвращается при попытке вернуть деньги по отменённому платежу.
	ErrPaymentNotRefundable = errors.New("payment cannot be refunded")
	// ErrInvalidRefundAmount возвращается, если сумма возврата не положительна или превышает остаток.
	ErrInvalidRefundAmount = errors.New("invalid refund amount")
	// ErrInvalidScheduleDate возвращается, если новая дата раньше сегодняшней или дальше горизонта планирования.
	ErrInvalidScheduleDate = errors.New("invalid schedule date")
	// ErrNoPaymentsSelected возвращается при отмене плана без выбранных платежей.
	ErrNoPaymentsSelected = errors.New("no payments selected")
)

// Recalculate пересчитывает TotalPaid, Outstanding и Refunded по списку платежей.
// Запланированные и не полученные платежи входят в Outstanding.
func Recalculate(r *model.Registrant) {
	paid, outstanding, refunded := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range r.Payments {
		switch {
		case p.Status == model.PaymentScheduled,
			p.Uncollected && p.Status != model.PaymentCanceled:
			outstanding = outstanding.Add(p.Amount)
		case p.Status.IsPaidFamily():
			paid = paid.Add(p.Amount)
		}
		refunded = refunded.Add(p.Refunded)
	}
	r.TotalPaid = paid
	r.Outstanding = outstanding
	r.Refunded = refunded
}

func sumRefunded(r *model.Registrant) decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Payments {
		total = total.Add(p.Refunded)
	}
	return total
}

// Refund возвращает часть или всю сумму платежа. Outstanding не меняется:
// долг определяется только запланированными платежами.
func Refund(r *model.Registrant, paymentID string, amount decimal.Decimal, note string) error {
	p, ok := r.FindPayment(paymentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if p.Status == model.PaymentCanceled {
		return fmt.Errorf("%w: %s", ErrPaymentNotRefundable, paymentID)
	}
	if !amount.IsPositive() || amount.GreaterThan(p.Refundable()) {
		return fmt.Errorf("%w: %s exceeds refundable %s", ErrInvalidRefundAmount, amount.StringFixed(2), p.Refundable().StringFixed(2))
	}
	if !money.IsWholeCents(amount) {
		return fmt.Errorf("%w: %s is not a whole number of cents", ErrInvalidRefundAmount, amount)
	}

	if p.Status == model.PaymentScheduled {
		p.Uncollected = true
	}
	p.Refunded = p.Refunded.Add(amount)
	p.Refunds = append(p.Refunds, model.RefundNote{Amount: amount, Note: note})
	if p.Refunded.Equal(p.Amount) {
		p.Status = model.PaymentRefunded
	} else {
		p.Status = model.PaymentPartiallyRefunded
	}

	r.Refunded = sumRefunded(r)
	r.Status = StatusAfterRefund(r)
	return nil
}

// CancelPayment отменяет один запланированный платёж.
func CancelPayment(r *model.Registrant, paymentID, reason string) error {
	p, ok := r.FindPayment(paymentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if p.Status != model.PaymentScheduled {
		return fmt.Errorf("%w: %s is %s", ErrPaymentNotScheduled, paymentID, p.Status)
	}

	p.Status = model.PaymentCanceled
	p.CancelReason = reason

	Recalculate(r)
	r.Status = StatusAfterCancel(r)
	return nil
}

// CancelPlan отменяет выбранные запланированные платежи. Все идентификаторы
// проверяются до изменений, поэтому при ошибке регистрант остаётся прежним.
func CancelPlan(r *model.Registrant, paymentIDs []string, note string) error {
	if len(paymentIDs) == 0 {
		return ErrNoPaymentsSelected
	}

	selected := make([]*model.Payment, 0, len(paymentIDs))
	for _, id := range paymentIDs {
		p, ok := r.FindPayment(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
		}
		if p.Status != model.PaymentScheduled {
			return fmt.Errorf("%w: %s is %s", ErrPaymentNotScheduled, id, p.Status)
		}
		selected = append(selected, p)
	}

	for _, p := range selected {
		p.Status = model.PaymentCanceled
		p.CancelReason = note
	}

	Recalculate(r)
	r.PaymentPlanStatus = model.PlanCanceled
	if r.Outstanding.IsZero() {
		r.OutstandingReason = model.OutstandingReasonCanceled
	}
	r.Status = StatusAfterPlanCancel(r)
	return nil
}

// EditScheduledDate переносит дату запланированного платежа. Исходная дата
// запоминается только при первом переносе.
func EditScheduledDate(r *model.Registrant, paymentID string, newDate time.Time, note string, today time.Time) error {
	p, ok := r.FindPayment(paymentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if p.Status != model.PaymentScheduled {
		return fmt.Errorf("%w: %s is %s", ErrPaymentNotScheduled, paymentID, p.Status)
	}
	if !validation.IsWithinScheduleHorizon(newDate, today) {
		return fmt.Errorf("%w: %s must be between today and %d years ahead",
			ErrInvalidScheduleDate, newDate.Format(time.DateOnly), validation.ScheduleHorizonYears)
	}

	if !p.Modification.IsModified {
		p.Modification.OriginalDate = p.Date
	}
	p.Modification.ModifiedDate = validation.DateOnly(today)
	p.Modification.Note = note
	p.Modification.IsModified = true
	p.Date = validation.DateOnly(newDate)
	return nil
}
