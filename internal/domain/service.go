// Package domain defines the business logic for activity sign-ups.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/observability"
)

var (
	// ErrActivityNotFound is returned when no activity has the requested name.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadyRegistered is returned when the email is already on the roster.
	ErrAlreadyRegistered = errors.New("student already signed up")
	// ErrNotRegistered is returned when unregistering an email that is not on the roster.
	ErrNotRegistered = errors.New("student not signed up")
	// ErrActivityFull is returned on signup when capacity is enforced and the roster is full.
	ErrActivityFull = errors.New("activity is full")
)

// CapacityPolicy controls whether signup checks max participants.
type CapacityPolicy int

const (
	// CapacityUnbounded appends regardless of max participants.
	CapacityUnbounded CapacityPolicy = iota
	// CapacityEnforced rejects signups once the roster reaches max participants.
	CapacityEnforced
)

func (p CapacityPolicy) String() string {
	if p == CapacityEnforced {
		return "enforced"
	}
	return "unbounded"
}

// Registry captures the guarded roster operations. Implementations must apply
// each mutation atomically and return the activity as it stands afterwards.
type Registry interface {
	List(ctx context.Context) (map[string]Activity, error)
	Get(ctx context.Context, name string) (*Activity, error)
	AddParticipant(ctx context.Context, name, email string, policy CapacityPolicy) (Activity, error)
	RemoveParticipant(ctx context.Context, name, email string) (Activity, error)
}

// EventPublisher receives registration events after a roster change is applied.
type EventPublisher interface {
	Publish(ctx context.Context, event RegistrationEvent) error
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithCapacityPolicy overrides the default unbounded signup policy.
func WithCapacityPolicy(policy CapacityPolicy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithLogger sets the logger used to report publishing failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service orchestrates sign-up workflows over a Registry.
type Service struct {
	registry Registry
	events   EventPublisher
	policy   CapacityPolicy
	logger   *zap.Logger
	now      func() time.Time
}

// NewService constructs a Service. A nil publisher discards events.
func NewService(registry Registry, events EventPublisher, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		events:   events,
		policy:   CapacityUnbounded,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns a snapshot of every activity keyed by name.
func (s *Service) ListActivities(ctx context.Context) (map[string]Activity, error) {
	return s.registry.List(ctx)
}

// GetActivity fetches a single activity by name.
func (s *Service) GetActivity(ctx context.Context, name string) (*Activity, error) {
	activity, err := s.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// Signup adds email to the named activity and returns a confirmation message.
func (s *Service) Signup(ctx context.Context, name, email string) (string, error) {
	activity, err := s.registry.AddParticipant(ctx, name, email, s.policy)
	if err != nil {
		observability.RecordRejection("signup", rejectionReason(err))
		return "", err
	}

	now := s.now()
	observability.RecordSignup(activity.Name, len(activity.Participants), now)
	s.publish(ctx, RegistrationSignedUp, activity, email, now)

	return fmt.Sprintf("Signed up %s for %s", email, activity.Name), nil
}

// Unregister removes email from the named activity and returns a confirmation message.
func (s *Service) Unregister(ctx context.Context, name, email string) (string, error) {
	activity, err := s.registry.RemoveParticipant(ctx, name, email)
	if err != nil {
		observability.RecordRejection("unregister", rejectionReason(err))
		return "", err
	}

	now := s.now()
	observability.RecordUnregister(activity.Name, len(activity.Participants), now)
	s.publish(ctx, RegistrationUnregistered, activity, email, now)

	return fmt.Sprintf("Unregistered %s from %s", email, activity.Name), nil
}

// SyncRosterMetrics sets the participant gauges from the current registry contents.
func (s *Service) SyncRosterMetrics(ctx context.Context) error {
	activities, err := s.registry.List(ctx)
	if err != nil {
		return err
	}
	for name, activity := range activities {
		observability.SetRosterSize(name, len(activity.Participants))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, kind RegistrationEventType, activity Activity, email string, at time.Time) {
	if s.events == nil {
		return
	}
	event := RegistrationEvent{
		ID:               uuid.NewString(),
		Type:             kind,
		Activity:         activity.Name,
		Email:            email,
		ParticipantCount: len(activity.Participants),
		OccurredAt:       at,
	}
	// The roster change is already applied; a lost event must not fail the request.
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("registration event not published",
			zap.String("event_type", string(kind)),
			zap.String("activity", activity.Name),
			zap.Error(err),
		)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrActivityNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrActivityFull):
		return "full"
	default:
		return "error"
	}
}
