// Package registry holds the in-memory activity registry.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"example.com/extracurricular/internal/domain"
)

var _ domain.Registry = (*Memory)(nil)

// Memory stores activities in process memory. A single RWMutex guards the
// whole map so every read-modify-write of a roster is serialised.
type Memory struct {
	mu         sync.RWMutex
	seed       []domain.Activity
	activities map[string]*domain.Activity
}

// NewMemory constructs a registry populated with the given seed activities.
func NewMemory(seed []domain.Activity) *Memory {
	m := &Memory{seed: make([]domain.Activity, 0, len(seed))}
	for _, activity := range seed {
		m.seed = append(m.seed, activity.Clone())
	}
	m.Reset()
	return m
}

// Reset discards every roster change and restores the seed state.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activities = make(map[string]*domain.Activity, len(m.seed))
	for _, activity := range m.seed {
		clone := activity.Clone()
		m.activities[clone.Name] = &clone
	}
}

// List implements domain.Registry.
func (m *Memory) List(ctx context.Context) (map[string]domain.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]domain.Activity, len(m.activities))
	for name, activity := range m.activities {
		out[name] = activity.Clone()
	}
	return out, nil
}

// Get returns the named activity, or nil when it does not exist.
func (m *Memory) Get(ctx context.Context, name string) (*domain.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	activity, ok := m.activities[name]
	if !ok {
		return nil, nil
	}
	clone := activity.Clone()
	return &clone, nil
}

// AddParticipant appends email to the roster of the named activity.
func (m *Memory) AddParticipant(ctx context.Context, name, email string, policy domain.CapacityPolicy) (domain.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, ok := m.activities[name]
	if !ok {
		return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrActivityNotFound, name)
	}
	if activity.HasParticipant(email) {
		return domain.Activity{}, fmt.Errorf("%w: %s in %q", domain.ErrAlreadyRegistered, email, name)
	}
	if policy == domain.CapacityEnforced && activity.AvailableSpots() <= 0 {
		return domain.Activity{}, fmt.Errorf("%w: %q has %d of %d places taken",
			domain.ErrActivityFull, name, len(activity.Participants), activity.MaxParticipants)
	}

	activity.Participants = append(activity.Participants, email)
	return activity.Clone(), nil
}

// RemoveParticipant deletes email from the roster, keeping the order of the rest.
func (m *Memory) RemoveParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, ok := m.activities[name]
	if !ok {
		return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrActivityNotFound, name)
	}
	idx := slices.Index(activity.Participants, email)
	if idx < 0 {
		return domain.Activity{}, fmt.Errorf("%w: %s in %q", domain.ErrNotRegistered, email, name)
	}

	activity.Participants = slices.Delete(activity.Participants, idx, idx+1)
	return activity.Clone(), nil
}
