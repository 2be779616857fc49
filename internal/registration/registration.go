// Package registration управляет открытием набора, листом ожидания и приглашёнными командами.
package registration

import (
	"errors"
	"slices"
	"strings"

	"github.com/mmeshcher/clubledger/internal/model"
)

var (
	// ErrRegistrationClosed возвращается при попытке открыть лист ожидания закрытого набора.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrEmptyTeamName возвращается для пустого названия команды.
	ErrEmptyTeamName = errors.New("team name cannot be empty")
)

// SetEnabled открывает или закрывает набор. Закрытие набора закрывает и лист ожидания.
func SetEnabled(reg *model.Registration, enabled bool) {
	reg.Enabled = enabled
	if !enabled {
		reg.WaitlistOpen = false
	}
}

// SetWaitlistOpen открывает или закрывает лист ожидания открытого набора.
func SetWaitlistOpen(reg *model.Registration, open bool) error {
	if open && !reg.Enabled {
		return ErrRegistrationClosed
	}
	reg.WaitlistOpen = open
	return nil
}

// InviteTeam добавляет команду в список приглашённых.
func InviteTeam(reg *model.Registration, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyTeamName
	}
	if reg.InvitedTeams == nil {
		reg.InvitedTeams = make(map[string]struct{})
	}
	reg.InvitedTeams[name] = struct{}{}
	return nil
}

// RevokeTeam удаляет команду из списка приглашённых.
func RevokeTeam(reg *model.Registration, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyTeamName
	}
	delete(reg.InvitedTeams, name)
	return nil
}

// InvitedTeams возвращает отсортированный список приглашённых команд.
func InvitedTeams(reg *model.Registration) []string {
	res := make([]string, 0, len(reg.InvitedTeams))
	for name := range reg.InvitedTeams {
		res = append(res, name)
	}
	slices.Sort(res)
	return res
}
