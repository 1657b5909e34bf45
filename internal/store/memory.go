package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process Repository used for development and tests.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]*User
	userOrder []string
	editais   map[string]*Edital
	order     []string
	simulados []SimuladoResult
	config    *SystemConfig
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*User),
		editais: make(map[string]*Edital),
	}
}

func (m *Memory) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, ErrConflict)
	}
	for _, existing := range m.users {
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("email %s: %w", u.Email, ErrConflict)
		}
	}
	m.users[u.ID] = &u
	m.userOrder = append(m.userOrder, u.ID)
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if u, ok := m.users[id]; ok {
		return *u, nil
	}
	return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

func (m *Memory) UpdateUser(_ context.Context, id string, mutate func(*User) error) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	u := *cur
	if err := mutate(&u); err != nil {
		return User{}, err
	}
	u.ID = id
	m.users[id] = &u
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		out = append(out, *m.users[id])
	}
	return out, nil
}

func (m *Memory) AddXP(_ context.Context, userID string, delta int) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.XP += delta
	return *u, nil
}

func (m *Memory) SaveEdital(_ context.Context, e Edital) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.editais[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	cp := e.Clone()
	m.editais[e.ID] = &cp
	return nil
}

func (m *Memory) GetEdital(_ context.Context, id string) (Edital, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.editais[id]; ok {
		return e.Clone(), nil
	}
	return Edital{}, fmt.Errorf("edital %s: %w", id, ErrNotFound)
}

func (m *Memory) UpdateEdital(_ context.Context, id string, mutate func(*Edital) error) (Edital, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.editais[id]
	if !ok {
		return Edital{}, fmt.Errorf("edital %s: %w", id, ErrNotFound)
	}
	e := cur.Clone()
	if err := mutate(&e); err != nil {
		return Edital{}, err
	}
	e.ID = id
	stored := e.Clone()
	m.editais[id] = &stored
	return e, nil
}

func (m *Memory) ListEditais(_ context.Context, userID string) ([]Edital, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Edital, 0)
	for _, id := range m.order {
		if e := m.editais[id]; e.UserID == userID {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (m *Memory) AddSimuladoResult(_ context.Context, r SimuladoResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.simulados = append([]SimuladoResult{r}, m.simulados...)
	return nil
}

func (m *Memory) ListSimuladoResults(_ context.Context, userID string) ([]SimuladoResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SimuladoResult, 0)
	for _, r := range m.simulados {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) GetConfig(_ context.Context) (SystemConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return DefaultConfig(), nil
	}
	return *m.config, nil
}

func (m *Memory) SaveConfig(_ context.Context, cfg SystemConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = &cfg
	return nil
}

func (m *Memory) UpdateConfig(_ context.Context, mutate func(*SystemConfig) error) (SystemConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := DefaultConfig()
	if m.config != nil {
		cfg = *m.config
	}
	if err := mutate(&cfg); err != nil {
		return SystemConfig{}, err
	}
	m.config = &cfg
	return cfg, nil
}

func (m *Memory) Counts(_ context.Context) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := Counts{
		Users:     len(m.users),
		Editais:   len(m.editais),
		Simulados: len(m.simulados),
	}
	for _, u := range m.users {
		if u.SubscriptionStatus == SubscriptionActive {
			c.ActiveSubscriptions++
		}
		if u.Banned {
			c.BannedUsers++
		}
	}
	return c, nil
}
