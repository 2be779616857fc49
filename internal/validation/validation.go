// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ScheduleHorizonYears ограничивает, насколько далеко вперёд можно перенести платёж.
const ScheduleHorizonYears = 7

// DateOnly отбрасывает время суток, сохраняя часовой пояс.
func DateOnly(t time.Time) time.Time {
	return DateIn(t, t.Location())
}

// DateIn возвращает календарную дату t как полночь в часовом поясе loc.
func DateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsWithinScheduleHorizon проверяет, что дата не раньше сегодняшней и не позже чем через семь лет.
// Календарная дата сравнивается в часовом поясе today.
func IsWithinScheduleHorizon(date, today time.Time) bool {
	if date.IsZero() {
		return false
	}
	day := DateIn(date, today.Location())
	start := DateOnly(today)
	end := start.AddDate(ScheduleHorizonYears, 0, 0)
	return !day.Before(start) && !day.After(end)
}

// IsValidEmail проверяет адрес электронной почты. Домен без точки не принимается.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return false
	}
	_, domain, _ := strings.Cut(email, "@")
	return strings.Contains(domain, ".")
}
