// Package money содержит разбор и форматирование денежных сумм в долларах США.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedAmount возвращается, если строку невозможно разобрать как сумму.
var ErrMalformedAmount = errors.New("malformed amount")

var replacer = strings.NewReplacer("$", "", ",", "", " ", "")

// Parse разбирает отображаемую сумму ("$1,249.00") в десятичное число.
// Для пустой или некорректной строки возвращает ноль.
func Parse(display string) decimal.Decimal {
	d, err := ParseStrict(display)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseStrict разбирает сумму так же, как Parse, но возвращает ошибку для некорректного ввода.
// Экспоненциальная запись и доли цента не принимаются.
func ParseStrict(display string) (decimal.Decimal, error) {
	s := replacer.Replace(strings.TrimSpace(display))
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrMalformedAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !IsWholeCents(d) {
		return decimal.Zero, ErrMalformedAmount
	}
	return d, nil
}

// IsWholeCents сообщает, выражается ли сумма целым числом центов.
func IsWholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Round округляет сумму до центов.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format возвращает сумму с двумя знаками после точки и разделителями тысяч, без символа валюты.
func Format(d decimal.Decimal) string {
	s := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	b.WriteByte('.')
	b.WriteString(frac)

	return b.String()
}

// FormatRefund возвращает "($X.XX)" для положительной суммы возврата и пустую строку для нулевой.
func FormatRefund(d decimal.Decimal) string {
	if !d.IsPositive() {
		return ""
	}
	return "($" + Format(d) + ")"
}
