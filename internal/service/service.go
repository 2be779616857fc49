// Package service реализует бизнес-логику реестра регистраций и платежей.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/clubledger/internal/aggregate"
	"github.com/mmeshcher/clubledger/internal/filter"
	"github.com/mmeshcher/clubledger/internal/ledger"
	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/registration"
	"github.com/mmeshcher/clubledger/internal/waitlist"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	ListRegistrations(ctx context.Context) ([]*model.Registration, error)
	GetRegistration(ctx context.Context, title string) (*model.Registration, error)
	UpdateRegistration(ctx context.Context, title string, fn func(*model.Registration) error) (*model.Registration, error)
	ListRegistrants(ctx context.Context) ([]*model.Registrant, error)
	GetRegistrant(ctx context.Context, id string) (*model.Registrant, error)
	UpdateRegistrant(ctx context.Context, id string, fn func(*model.Registrant) error) (*model.Registrant, error)
	UpdateEachRegistrant(ctx context.Context, fn func(*model.Registrant) bool) (int, error)
	ListWaitlist(ctx context.Context, program string) ([]*model.WaitlistEntry, error)
	UpdateWaitlistEntry(ctx context.Context, id string, fn func(*model.WaitlistEntry) error) (*model.WaitlistEntry, error)
	UpdateWaitlist(ctx context.Context, ids []string, fn func([]*model.WaitlistEntry) int) (int, error)
}

// Service содержит бизнес-логику реестра.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// Option настраивает сервис.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт новый сервис с указанным репозиторием и логгером.
func NewService(repo Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegistrationView объединяет набор, его итоги и список приглашённых команд.
type RegistrationView struct {
	aggregate.RegistrationStats
	InvitedTeams []string
}

// ListRegistrations возвращает наборы с итогами, рассчитанными по текущим регистрантам.
func (s *Service) ListRegistrations(ctx context.Context) ([]RegistrationView, error) {
	regs, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	registrants, err := s.repo.ListRegistrants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}

	stats := aggregate.CalculateRegistrationStats(regs, registrants)
	res := make([]RegistrationView, 0, len(stats))
	for _, st := range stats {
		res = append(res, RegistrationView{
			RegistrationStats: st,
			InvitedTeams:      registration.InvitedTeams(&st.Registration),
		})
	}
	return res, nil
}

// SetRegistrationEnabled открывает или закрывает набор.
func (s *Service) SetRegistrationEnabled(ctx context.Context, title string, enabled bool) (*model.Registration, error) {
	reg, err := s.repo.UpdateRegistration(ctx, title, func(r *model.Registration) error {
		registration.SetEnabled(r, enabled)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("registration toggled", zap.String("registration", title), zap.Bool("enabled", enabled))
	return reg, nil
}

// SetWaitlistOpen открывает или закрывает лист ожидания набора.
func (s *Service) SetWaitlistOpen(ctx context.Context, title string, open bool) (*model.Registration, error) {
	reg, err := s.repo.UpdateRegistration(ctx, title, func(r *model.Registration) error {
		return registration.SetWaitlistOpen(r, open)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("waitlist toggled", zap.String("registration", title), zap.Bool("open", open))
	return reg, nil
}

// InviteTeam добавляет команду в приглашённые.
func (s *Service) InviteTeam(ctx context.Context, title, team string) (*model.Registration, error) {
	return s.repo.UpdateRegistration(ctx, title, func(r *model.Registration) error {
		return registration.InviteTeam(r, team)
	})
}

// RevokeTeam удаляет команду из приглашённых.
func (s *Service) RevokeTeam(ctx context.Context, title, team string) (*model.Registration, error) {
	return s.repo.UpdateRegistration(ctx, title, func(r *model.Registration) error {
		return registration.RevokeTeam(r, team)
	})
}

// ListRegistrants возвращает отфильтрованных и отсортированных регистрантов.
// Перед выборкой просроченные регистранты переводятся в Overdue.
func (s *Service) ListRegistrants(ctx context.Context, criteria filter.Criteria) ([]*model.Registrant, error) {
	if _, err := s.PromoteOverdue(ctx); err != nil {
		return nil, err
	}
	registrants, err := s.repo.ListRegistrants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	return filter.Apply(registrants, criteria, s.now()), nil
}

// GetRegistrant возвращает регистранта по идентификатору.
func (s *Service) GetRegistrant(ctx context.Context, id string) (*model.Registrant, error) {
	return s.repo.GetRegistrant(ctx, id)
}

// Summary возвращает итоги по всем регистрантам или по одному набору.
func (s *Service) Summary(ctx context.Context, title string) (aggregate.Totals, error) {
	registrants, err := s.repo.ListRegistrants(ctx)
	if err != nil {
		return aggregate.Totals{}, fmt.Errorf("list registrants: %w", err)
	}
	if title == "" {
		return aggregate.Aggregate(registrants), nil
	}
	if _, err := s.repo.GetRegistration(ctx, title); err != nil {
		return aggregate.Totals{}, err
	}
	return aggregate.Aggregate(aggregate.ForRegistration(registrants, title)), nil
}

func (s *Service) mutate(ctx context.Context, op, id string, fn func(*model.Registrant) error, fields ...zap.Field) (*model.Registrant, error) {
	r, err := s.repo.UpdateRegistrant(ctx, id, fn)
	if err != nil {
		s.logger.Warn(op+" rejected", append(fields, zap.String("registrant", id), zap.Error(err))...)
		return nil, err
	}
	s.logger.Info(op+" applied", append(fields,
		zap.String("registrant", id),
		zap.String("status", string(r.Status)),
		zap.String("outstanding", r.Outstanding.StringFixed(2)),
		zap.String("refunded", r.Refunded.StringFixed(2)),
	)...)
	return r, nil
}

// Refund возвращает часть или всю сумму платежа.
func (s *Service) Refund(ctx context.Context, id, paymentID string, amount decimal.Decimal, note string) (*model.Registrant, error) {
	return s.mutate(ctx, "refund", id, func(r *model.Registrant) error {
		return ledger.Refund(r, paymentID, amount, note)
	}, zap.String("payment", paymentID), zap.String("amount", amount.StringFixed(2)))
}

// CancelPayment отменяет один запланированный платёж.
func (s *Service) CancelPayment(ctx context.Context, id, paymentID, reason string) (*model.Registrant, error) {
	return s.mutate(ctx, "cancel payment", id, func(r *model.Registrant) error {
		return ledger.CancelPayment(r, paymentID, reason)
	}, zap.String("payment", paymentID))
}

// CancelPlan отменяет выбранные запланированные платежи плана.
func (s *Service) CancelPlan(ctx context.Context, id string, paymentIDs []string, note string) (*model.Registrant, error) {
	return s.mutate(ctx, "cancel plan", id, func(r *model.Registrant) error {
		return ledger.CancelPlan(r, paymentIDs, note)
	}, zap.Strings("payments", paymentIDs))
}

// ReschedulePayment переносит дату запланированного платежа.
func (s *Service) ReschedulePayment(ctx context.Context, id, paymentID string, date time.Time, note string) (*model.Registrant, error) {
	today := s.now()
	return s.mutate(ctx, "reschedule payment", id, func(r *model.Registrant) error {
		return ledger.EditScheduledDate(r, paymentID, date, note, today)
	}, zap.String("payment", paymentID), zap.String("date", date.Format(time.DateOnly)))
}

// ListWaitlist возвращает записи листа ожидания набора без удалённых.
func (s *Service) ListWaitlist(ctx context.Context, program string) ([]*model.WaitlistEntry, error) {
	if _, err := s.repo.GetRegistration(ctx, program); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListWaitlist(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return waitlist.Active(entries), nil
}

// AdvanceWaitlistEntry продвигает приглашение на следующий шаг цикла.
func (s *Service) AdvanceWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	e, err := s.repo.UpdateWaitlistEntry(ctx, id, func(e *model.WaitlistEntry) error {
		waitlist.Advance(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("waitlist entry advanced", zap.String("entry", id), zap.String("status", string(e.Status)))
	return e, nil
}

// RemoveWaitlistEntries удаляет записи из листа ожидания и возвращает число удалённых.
func (s *Service) RemoveWaitlistEntries(ctx context.Context, ids []string) (int, error) {
	removed, err := s.repo.UpdateWaitlist(ctx, ids, func(entries []*model.WaitlistEntry) int {
		targets := make([]string, 0, len(entries))
		for _, e := range entries {
			targets = append(targets, e.ID)
		}
		return waitlist.Remove(entries, targets)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("waitlist entries removed", zap.Int("removed", removed))
	return removed, nil
}

// PromoteOverdue переводит в Overdue регистрантов с просроченными платежами.
func (s *Service) PromoteOverdue(ctx context.Context) (int, error) {
	today := s.now()
	promoted, err := s.repo.UpdateEachRegistrant(ctx, func(r *model.Registrant) bool {
		return ledger.PromoteOverdue(r, today)
	})
	if err != nil {
		return 0, fmt.Errorf("promote overdue: %w", err)
	}
	if promoted > 0 {
		s.logger.Info("registrants promoted to overdue", zap.Int("count", promoted))
	}
	return promoted, nil
}

// StartOverdueSweep запускает фоновый процесс перевода просроченных регистрантов в Overdue.
func (s *Service) StartOverdueSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.PromoteOverdue(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("overdue sweep error", zap.Error(err))
				}
			}
		}
	}()
}
