package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uep/eventcheckin/pkg/auth"
	"github.com/uep/eventcheckin/pkg/events"
	"github.com/uep/eventcheckin/services/events/internal/domain"
	"github.com/uep/eventcheckin/services/events/internal/repository"
)

func newEventFixture() (*mockEventRepo, *mockRegistrationRepo, *mockPublisher, EventService) {
	evRepo := newMockEventRepo(&domain.Event{ID: eventID, Name: "Feria", CreatorID: organizerID})
	regRepo := newMockRegistrationRepo(t0)
	pub := &mockPublisher{}
	return evRepo, regRepo, pub, NewEventService(evRepo, regRepo, pub)
}

func TestRegister_PublishesConfirmation(t *testing.T) {
	_, regRepo, pub, svc := newEventFixture()

	reg, err := svc.Register(context.Background(), student(studentID), eventID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRegistered, reg.Status)
	assert.Equal(t, 1, regRepo.mutations)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, events.RegistrationCreated, pub.msgs[0].subject)
	evt := pub.msgs[0].data.(events.RegistrationCreatedEvent)
	assert.Equal(t, "s@uep.edu", evt.UserEmail)
	assert.Equal(t, "Feria", evt.EventName)
}

func TestRegister_Errors(t *testing.T) {
	t.Run("twice", func(t *testing.T) {
		_, _, _, svc := newEventFixture()
		_, err := svc.Register(context.Background(), student(studentID), eventID)
		require.NoError(t, err)
		_, err = svc.Register(context.Background(), student(studentID), eventID)
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
	})

	t.Run("full", func(t *testing.T) {
		_, regRepo, pub, svc := newEventFixture()
		regRepo.full = true
		_, err := svc.Register(context.Background(), student(studentID), eventID)
		assert.ErrorIs(t, err, ErrEventFull)
		assert.Empty(t, pub.msgs)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, regRepo, _, svc := newEventFixture()
		_, err := svc.Register(context.Background(), student(studentID), otherEvent)
		assert.ErrorIs(t, err, ErrEventNotFound)
		assert.Equal(t, 0, regRepo.mutations)
	})

	t.Run("store failure", func(t *testing.T) {
		evRepo, _, _, svc := newEventFixture()
		evRepo.getErr = errors.New("timeout")
		_, err := svc.Register(context.Background(), student(studentID), eventID)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrEventNotFound)
	})
}

func TestAddOrganizer(t *testing.T) {
	evRepo, _, _, svc := newEventFixture()

	require.NoError(t, svc.AddOrganizer(context.Background(), organizer(), eventID, student2ID))
	assert.Equal(t, []string{student2ID}, evRepo.added)

	err := svc.AddOrganizer(context.Background(), organizer(), eventID, student2ID)
	assert.ErrorIs(t, err, ErrAlreadyOrganizer)

	stranger := domain.Actor{UserID: studentID, Role: auth.RoleOrganizer}
	err = svc.AddOrganizer(context.Background(), stranger, eventID, studentID)
	assert.ErrorIs(t, err, ErrForbidden)

	admin := domain.Actor{UserID: "admin", Role: auth.RoleAdmin}
	evRepo.addErr = repository.ErrUnknownReference
	err = svc.AddOrganizer(context.Background(), admin, eventID, "nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestListOrganizerEvents_IncludesEnrolled(t *testing.T) {
	_, _, _, svc := newEventFixture()
	require.NoError(t, svc.AddOrganizer(context.Background(), organizer(), eventID, student2ID))

	evs, err := svc.ListOrganizerEvents(context.Background(), domain.Actor{UserID: student2ID, Role: auth.RoleOrganizer})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, eventID, evs[0].ID)
}

func TestGetEvent_NotFound(t *testing.T) {
	_, _, _, svc := newEventFixture()
	_, err := svc.GetEvent(context.Background(), otherEvent)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
