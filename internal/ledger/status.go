// Package ledger выводит статусы регистрантов из истории платежей и применяет
// к этой истории возвраты, отмены и переносы дат.
package ledger

import (
	"time"

	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/validation"
)

// Отображаемые статусы основной таблицы регистрантов.
const (
	DisplayCompleted = "Completed"
	DisplayCurrent   = "Current"
	DisplayOverdue   = "Overdue"
)

// HasPastDueScheduled сообщает, есть ли запланированный платёж с датой строго раньше сегодняшней.
func HasPastDueScheduled(r *model.Registrant, today time.Time) bool {
	day := validation.DateOnly(today)
	for _, p := range r.Payments {
		if p.Status == model.PaymentScheduled && validation.DateIn(p.Date, day.Location()).Before(day) {
			return true
		}
	}
	return false
}

// PromoteOverdue переводит регистранта из Current в Overdue при наличии просроченного платежа.
// Обратного перехода нет. Возвращает true, если статус изменился.
func PromoteOverdue(r *model.Registrant, today time.Time) bool {
	if r.Status != model.StatusCurrent || !HasPastDueScheduled(r, today) {
		return false
	}
	r.Status = model.StatusOverdue
	return true
}

// PromoteAllOverdue применяет PromoteOverdue ко всему набору и возвращает число изменённых записей.
func PromoteAllOverdue(registrants []*model.Registrant, today time.Time) int {
	promoted := 0
	for _, r := range registrants {
		if PromoteOverdue(r, today) {
			promoted++
		}
	}
	return promoted
}

// StatusAfterRefund вычисляет статус регистранта после возврата.
func StatusAfterRefund(r *model.Registrant) model.AccountStatus {
	switch {
	case r.Outstanding.IsZero():
		return model.StatusPaid
	case r.Status == model.StatusOverdue:
		return model.StatusOverdue
	default:
		return model.StatusCurrent
	}
}

// StatusAfterCancel вычисляет статус регистранта после отмены платежа.
// Порядок проверок значим: срабатывает первое подходящее правило.
func StatusAfterCancel(r *model.Registrant) model.AccountStatus {
	switch {
	case r.Outstanding.IsZero() && r.TotalPaid.LessThan(r.ListPrice):
		return model.StatusCanceled
	case r.Refunded.IsPositive() && r.Refunded.GreaterThanOrEqual(r.TotalPaid):
		return model.StatusRefunded
	case r.Refunded.IsPositive():
		return model.StatusPartiallyRefunded
	case r.Outstanding.IsZero():
		return model.StatusPaid
	default:
		return model.StatusCurrent
	}
}

// StatusAfterPlanCancel вычисляет статус после отмены плана: нулевой остаток
// означает Paid, иначе действуют правила StatusAfterCancel.
func StatusAfterPlanCancel(r *model.Registrant) model.AccountStatus {
	if r.Outstanding.IsZero() {
		return model.StatusPaid
	}
	return StatusAfterCancel(r)
}

// DisplayStatus возвращает статус для основной таблицы. Регистранты с
// возвратами и отменами в ней не показываются, для них ok == false.
func DisplayStatus(status model.AccountStatus) (string, bool) {
	switch status {
	case model.StatusPaid:
		return DisplayCompleted, true
	case model.StatusCurrent:
		return DisplayCurrent, true
	case model.StatusOverdue:
		return DisplayOverdue, true
	default:
		return "", false
	}
}

// InitialStatus выводит статус для только что загруженного регистранта, у
// которого статус не задан явно.
func InitialStatus(r *model.Registrant) model.AccountStatus {
	switch {
	case r.Refunded.IsPositive() && r.Refunded.GreaterThanOrEqual(r.TotalPaid):
		return model.StatusRefunded
	case r.Refunded.IsPositive():
		return model.StatusPartiallyRefunded
	case r.Outstanding.IsZero():
		return model.StatusPaid
	default:
		return model.StatusCurrent
	}
}
