// Package waitlist реализует жизненный цикл приглашений из листа ожидания.
package waitlist

import (
	"github.com/mmeshcher/clubledger/internal/model"
)

var cycle = map[model.InviteStatus]model.InviteStatus{
	model.InviteWaitlist: model.InviteInvited,
	model.InviteInvited:  model.InviteExpired,
	model.InviteExpired:  model.InviteDeclined,
	model.InviteDeclined: model.InviteWaitlist,
}

// Next возвращает следующий статус цикла Waitlist → Invited → Expired → Declined → Waitlist.
// Removed и неизвестные статусы не меняются.
func Next(status model.InviteStatus) model.InviteStatus {
	if next, ok := cycle[status]; ok {
		return next
	}
	return status
}

// Advance продвигает запись на один шаг и сообщает, изменился ли статус.
func Advance(e *model.WaitlistEntry) bool {
	next := Next(e.Status)
	if next == e.Status {
		return false
	}
	e.Status = next
	return true
}

// Remove помечает записи с указанными идентификаторами как Removed и возвращает число изменённых.
func Remove(entries []*model.WaitlistEntry, ids []string) int {
	targets := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		targets[id] = struct{}{}
	}

	removed := 0
	for _, e := range entries {
		if _, ok := targets[e.ID]; !ok || e.Status == model.InviteRemoved {
			continue
		}
		e.Status = model.InviteRemoved
		removed++
	}
	return removed
}

// Active возвращает записи, которые ещё не удалены.
func Active(entries []*model.WaitlistEntry) []*model.WaitlistEntry {
	res := make([]*model.WaitlistEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status != model.InviteRemoved {
			res = append(res, e)
		}
	}
	return res
}

// CountByStatus считает записи по статусам приглашения.
func CountByStatus(entries []*model.WaitlistEntry) map[model.InviteStatus]int {
	res := make(map[model.InviteStatus]int)
	for _, e := range entries {
		res[e.Status]++
	}
	return res
}
