// Package aggregate сводит регистрантов в итоговые суммы по программе и по наборам.
package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clubledger/internal/model"
)

// Totals содержит итоговые суммы по произвольному подмножеству регистрантов.
type Totals struct {
	TotalPaid        decimal.Decimal
	TotalOutstanding decimal.Decimal
	TotalRefunded    decimal.Decimal
	TotalDiscounts   decimal.Decimal
	Count            int
}

// Value возвращает полную стоимость: оплачено плюс ожидается минус возвращено.
// Скидки уже учтены в суммах платежей и повторно не вычитаются.
func (t Totals) Value() decimal.Decimal {
	return t.TotalPaid.Add(t.TotalOutstanding).Sub(t.TotalRefunded)
}

// Aggregate суммирует показатели регистрантов за один проход.
func Aggregate(registrants []*model.Registrant) Totals {
	t := Totals{
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalRefunded:    decimal.Zero,
		TotalDiscounts:   decimal.Zero,
	}
	for _, r := range registrants {
		t.TotalPaid = t.TotalPaid.Add(r.TotalPaid)
		t.TotalOutstanding = t.TotalOutstanding.Add(r.Outstanding)
		t.TotalRefunded = t.TotalRefunded.Add(r.Refunded)
		t.TotalDiscounts = t.TotalDiscounts.Add(r.DiscountAmount())
		t.Count++
	}
	return t
}

// RegistrationStats содержит набор с актуальными итогами по его регистрантам.
type RegistrationStats struct {
	Registration model.Registration
	Totals       Totals
}

// ForRegistration возвращает регистрантов указанного набора.
func ForRegistration(registrants []*model.Registrant, title string) []*model.Registrant {
	res := make([]*model.Registrant, 0)
	for _, r := range registrants {
		if r.RegistrationTitle == title {
			res = append(res, r)
		}
	}
	return res
}

// CalculateRegistrationStats считает итоги для каждого набора и проставляет
// текущую заполненность по фактическому числу регистрантов.
func CalculateRegistrationStats(registrations []*model.Registration, registrants []*model.Registrant) []RegistrationStats {
	res := make([]RegistrationStats, 0, len(registrations))
	for _, reg := range registrations {
		totals := Aggregate(ForRegistration(registrants, reg.Title))

		withStats := *reg.Clone()
		withStats.Capacity.Current = totals.Count

		res = append(res, RegistrationStats{
			Registration: withStats,
			Totals:       totals,
		})
	}
	return res
}
