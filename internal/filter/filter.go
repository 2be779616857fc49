// Package filter отбирает и упорядочивает регистрантов для отображения.
package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/mmeshcher/clubledger/internal/ledger"
	"github.com/mmeshcher/clubledger/internal/model"
)

// Специальные значения фильтра по статусу.
const (
	StatusAll       = "All"
	StatusCompleted = "Completed"
	StatusRefunded  = "Refunded"
)

// Criteria описывает параметры выборки.
type Criteria struct {
	Status string
	Query  string
}

// MatchStatus проверяет регистранта на соответствие фильтру по статусу.
// Пустой фильтр пропускает только строки, видимые в основной таблице.
func MatchStatus(r *model.Registrant, status string) bool {
	switch status {
	case "", StatusAll:
		_, visible := ledger.DisplayStatus(r.Status)
		return visible
	case StatusCompleted:
		return r.Status == model.StatusPaid
	case StatusRefunded:
		return r.Refunded.IsPositive()
	default:
		return string(r.Status) == status
	}
}

// MatchSearch ищет подстроку без учёта регистра в каждом слове имени спортсмена и контактного лица.
func MatchSearch(r *model.Registrant, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, name := range []string{r.AthleteName, r.Contact.Name} {
		for _, token := range strings.Fields(strings.ToLower(name)) {
			if strings.Contains(token, q) {
				return true
			}
		}
	}
	return false
}

// Apply выполняет полный конвейер: перевод просроченных в Overdue по всему
// набору, фильтр по статусу, поиск и сортировку по дате регистрации от новых к старым.
// Регистранты изменяются на месте, возвращается новый срез.
func Apply(registrants []*model.Registrant, c Criteria, today time.Time) []*model.Registrant {
	ledger.PromoteAllOverdue(registrants, today)

	res := make([]*model.Registrant, 0, len(registrants))
	for _, r := range registrants {
		if MatchStatus(r, c.Status) && MatchSearch(r, c.Query) {
			res = append(res, r)
		}
	}

	slices.SortStableFunc(res, func(a, b *model.Registrant) int {
		return b.RegisteredAt.Compare(a.RegisteredAt)
	})
	return res
}
