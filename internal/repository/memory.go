// Package repository содержит хранилище наборов, регистрантов и листа ожидания в памяти.
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/seed"
)

var (
	// ErrRegistrationNotFound возвращается, если набор с таким названием не найден.
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrRegistrantNotFound возвращается, если регистрант не найден.
	ErrRegistrantNotFound = errors.New("registrant not found")
	// ErrEntryNotFound возвращается, если запись листа ожидания не найдена.
	ErrEntryNotFound = errors.New("waitlist entry not found")
)

// MemoryRepository хранит состояние в памяти. Записи индексированы по
// стабильным идентификаторам; каждое изменение применяется к копии записи и
// сохраняется только при успехе.
type MemoryRepository struct {
	mu sync.RWMutex

	registrations map[string]*model.Registration
	regOrder      []string

	registrants map[string]*model.Registrant
	order       []string

	waitlist      map[string]*model.WaitlistEntry
	waitlistOrder []string
}

// NewMemoryRepository создаёт хранилище, заполненное загруженными данными.
func NewMemoryRepository(data *seed.Data) *MemoryRepository {
	r := &MemoryRepository{
		registrations: make(map[string]*model.Registration),
		registrants:   make(map[string]*model.Registrant),
		waitlist:      make(map[string]*model.WaitlistEntry),
	}
	if data == nil {
		return r
	}

	for _, reg := range data.Registrations {
		r.registrations[reg.Title] = reg.Clone()
		r.regOrder = append(r.regOrder, reg.Title)
	}
	for _, rt := range data.Registrants {
		r.registrants[rt.ID] = rt.Clone()
		r.order = append(r.order, rt.ID)
	}
	for _, e := range data.Waitlist {
		c := *e
		r.waitlist[e.ID] = &c
		r.waitlistOrder = append(r.waitlistOrder, e.ID)
	}
	return r
}

// Close освобождает ресурсы хранилища.
func (r *MemoryRepository) Close() error {
	return nil
}

// ListRegistrations возвращает копии всех наборов в порядке загрузки.
func (r *MemoryRepository) ListRegistrations(ctx context.Context) ([]*model.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*model.Registration, 0, len(r.regOrder))
	for _, title := range r.regOrder {
		res = append(res, r.registrations[title].Clone())
	}
	return res, nil
}

// GetRegistration возвращает копию набора по названию.
func (r *MemoryRepository) GetRegistration(ctx context.Context, title string) (*model.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.registrations[title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistrationNotFound, title)
	}
	return reg.Clone(), nil
}

// UpdateRegistration применяет fn к копии набора и сохраняет её, если fn не вернула ошибку.
func (r *MemoryRepository) UpdateRegistration(ctx context.Context, title string, fn func(*model.Registration) error) (*model.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registrations[title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistrationNotFound, title)
	}

	next := reg.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.registrations[title] = next
	return next.Clone(), nil
}

// ListRegistrants возвращает копии всех регистрантов в порядке загрузки.
func (r *MemoryRepository) ListRegistrants(ctx context.Context) ([]*model.Registrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*model.Registrant, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.registrants[id].Clone())
	}
	return res, nil
}

// GetRegistrant возвращает копию регистранта по идентификатору.
func (r *MemoryRepository) GetRegistrant(ctx context.Context, id string) (*model.Registrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.registrants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistrantNotFound, id)
	}
	return rt.Clone(), nil
}

// UpdateRegistrant применяет fn к копии регистранта и атомарно заменяет запись при успехе.
func (r *MemoryRepository) UpdateRegistrant(ctx context.Context, id string, fn func(*model.Registrant) error) (*model.Registrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.registrants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistrantNotFound, id)
	}

	next := rt.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.registrants[id] = next
	return next.Clone(), nil
}

// UpdateEachRegistrant применяет fn к копии каждого регистранта и сохраняет
// те копии, для которых fn вернула true. Возвращает число сохранённых записей.
func (r *MemoryRepository) UpdateEachRegistrant(ctx context.Context, fn func(*model.Registrant) bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for _, id := range r.order {
		next := r.registrants[id].Clone()
		if fn(next) {
			r.registrants[id] = next
			changed++
		}
	}
	return changed, nil
}

// ListWaitlist возвращает копии записей листа ожидания. Пустая программа означает все наборы.
func (r *MemoryRepository) ListWaitlist(ctx context.Context, program string) ([]*model.WaitlistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*model.WaitlistEntry, 0)
	for _, id := range r.waitlistOrder {
		e := r.waitlist[id]
		if program != "" && e.Program != program {
			continue
		}
		c := *e
		res = append(res, &c)
	}
	return res, nil
}

// UpdateWaitlistEntry применяет fn к копии записи листа ожидания и сохраняет её при успехе.
func (r *MemoryRepository) UpdateWaitlistEntry(ctx context.Context, id string, fn func(*model.WaitlistEntry) error) (*model.WaitlistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.waitlist[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	next := *e
	if err := fn(&next); err != nil {
		return nil, err
	}
	r.waitlist[id] = &next
	res := next
	return &res, nil
}

// UpdateWaitlist применяет fn к копиям записей с указанными идентификаторами и сохраняет их.
// Если хотя бы один идентификатор неизвестен, изменения не выполняются.
func (r *MemoryRepository) UpdateWaitlist(ctx context.Context, ids []string, fn func([]*model.WaitlistEntry) int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*model.WaitlistEntry, 0, len(ids))
	for _, id := range slices.Compact(slices.Sorted(slices.Values(ids))) {
		e, ok := r.waitlist[id]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		c := *e
		entries = append(entries, &c)
	}

	changed := fn(entries)
	for _, e := range entries {
		r.waitlist[e.ID] = e
	}
	return changed, nil
}
