package migration

import (
	"context"
	"fmt"
)

// Strategy brings one set of tables up to date.
type Strategy interface {
	Name() string
	Migrate(ctx context.Context) error
}

// Manager runs strategies in order and stops at the first failure.
type Manager struct {
	strategies []Strategy
}

func NewManager(strategies ...Strategy) *Manager {
	return &Manager{strategies: strategies}
}

func (m *Manager) Add(s Strategy) {
	m.strategies = append(m.strategies, s)
}

func (m *Manager) Run(ctx context.Context) error {
	if m == nil {
		return nil
	}
	for _, s := range m.strategies {
		if s == nil {
			continue
		}
		if err := s.Migrate(ctx); err != nil {
			return fmt.Errorf("migration %s: %w", s.Name(), err)
		}
	}
	return nil
}
