package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/uep/eventcheckin/pkg/auth"
	"github.com/uep/eventcheckin/pkg/events"
	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/services/events/internal/domain"
	"github.com/uep/eventcheckin/services/events/internal/repository"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrForbidden         = errors.New("not an organizer of this event")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrAlreadyOrganizer  = errors.New("user already organizes this event")
	ErrUnknownUser       = errors.New("user not found")
	ErrEventFull         = errors.New("event has reached its attendee limit")
)

type EventService interface {
	CreateEvent(ctx context.Context, actor domain.Actor, req *domain.CreateEventRequest) (*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	ListOrganizerEvents(ctx context.Context, actor domain.Actor) ([]domain.Event, error)
	AddOrganizer(ctx context.Context, actor domain.Actor, eventID, userID string) error
	Register(ctx context.Context, actor domain.Actor, eventID string) (*domain.Registration, error)
	ListRegistrations(ctx context.Context, actor domain.Actor) ([]domain.Registration, error)
	ListBusinessModels(ctx context.Context) ([]domain.Lookup, error)
}

type eventService struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	publisher        events.Publisher
}

func NewEventService(
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	publisher events.Publisher,
) EventService {
	return &eventService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		publisher:        publisher,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, actor domain.Actor, req *domain.CreateEventRequest) (*domain.Event, error) {
	event, err := s.eventRepo.Create(ctx, actor.UserID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	logger.InfoContext(ctx, "Event created", "event_id", event.ID, "creator_id", actor.UserID)
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	return s.eventRepo.List(ctx, filter)
}

func (s *eventService) ListOrganizerEvents(ctx context.Context, actor domain.Actor) ([]domain.Event, error) {
	return s.eventRepo.ListForOrganizer(ctx, actor.UserID)
}

// AddOrganizer enrols userID as co-organizer. Only an existing organizer of
// the event, or an admin, may do this.
func (s *eventService) AddOrganizer(ctx context.Context, actor domain.Actor, eventID, userID string) error {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}
	if err := authorizeOrganizer(ctx, s.eventRepo, actor, eventID); err != nil {
		return err
	}

	err := s.eventRepo.AddOrganizer(ctx, eventID, userID)
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrAlreadyOrganizer
	}
	if errors.Is(err, repository.ErrUnknownReference) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("failed to add organizer: %w", err)
	}
	return nil
}

func (s *eventService) Register(ctx context.Context, actor domain.Actor, eventID string) (*domain.Registration, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	reg, err := s.registrationRepo.Register(ctx, eventID, actor.UserID)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrAlreadyRegistered
	case errors.Is(err, repository.ErrEventFull):
		return nil, ErrEventFull
	case errors.Is(err, repository.ErrUnknownReference):
		return nil, ErrUnknownUser
	case err != nil:
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	evt := events.RegistrationCreatedEvent{
		EventID:      reg.EventID,
		EventName:    reg.EventName,
		UserID:       reg.UserID,
		UserEmail:    actor.Email,
		RegisteredAt: reg.RegisteredAt,
	}
	if err := s.publisher.Publish(ctx, events.RegistrationCreated, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish registration created event", logger.Err(err), "event_id", eventID)
	}

	return reg, nil
}

func (s *eventService) ListRegistrations(ctx context.Context, actor domain.Actor) ([]domain.Registration, error) {
	return s.registrationRepo.ListByUser(ctx, actor.UserID)
}

func (s *eventService) ListBusinessModels(ctx context.Context) ([]domain.Lookup, error) {
	return s.eventRepo.ListBusinessModels(ctx)
}

// authorizeOrganizer lets admins through and requires everyone else to have
// created or been enrolled in the event.
func authorizeOrganizer(ctx context.Context, repo repository.EventRepository, actor domain.Actor, eventID string) error {
	if actor.Role == auth.RoleAdmin {
		return nil
	}
	ok, err := repo.IsOrganizer(ctx, eventID, actor.UserID)
	if err != nil {
		return fmt.Errorf("failed to check organizer: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
