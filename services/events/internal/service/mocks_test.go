package service

import (
	"context"
	"sync"
	"time"

	"github.com/uep/eventcheckin/services/events/internal/domain"
	"github.com/uep/eventcheckin/services/events/internal/repository"
)

type mockEventRepo struct {
	events     map[string]*domain.Event
	organizers map[string]bool // eventID|userID
	added      []string
	addErr     error
	getErr     error
}

func newMockEventRepo(evs ...*domain.Event) *mockEventRepo {
	m := &mockEventRepo{events: map[string]*domain.Event{}, organizers: map[string]bool{}}
	for _, e := range evs {
		m.events[e.ID] = e
		m.organizers[e.ID+"|"+e.CreatorID] = true
	}
	return m
}

func (m *mockEventRepo) Create(_ context.Context, creatorID string, req *domain.CreateEventRequest) (*domain.Event, error) {
	e := &domain.Event{ID: "new-event", Name: req.Name, CreatorID: creatorID}
	m.events[e.ID] = e
	return e, nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.events[id], nil
}

func (m *mockEventRepo) List(context.Context, domain.EventFilter) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, nil
}

func (m *mockEventRepo) ListForOrganizer(_ context.Context, userID string) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range m.events {
		if m.organizers[e.ID+"|"+userID] {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEventRepo) IsOrganizer(_ context.Context, eventID, userID string) (bool, error) {
	return m.organizers[eventID+"|"+userID], nil
}

func (m *mockEventRepo) AddOrganizer(_ context.Context, eventID, userID string) error {
	if m.addErr != nil {
		return m.addErr
	}
	if m.organizers[eventID+"|"+userID] {
		return repository.ErrDuplicate
	}
	m.organizers[eventID+"|"+userID] = true
	m.added = append(m.added, userID)
	return nil
}

func (m *mockEventRepo) ListBusinessModels(context.Context) ([]domain.Lookup, error) {
	return []domain.Lookup{{ID: 1, Name: "Social"}}, nil
}

// mockRegistrationRepo counts mutations so tests can assert that rejected
// scans never reach the store.
type mockRegistrationRepo struct {
	regs      map[string]*domain.Registration
	eventName string
	mutations int
	full      bool
	err       error
	at        time.Time
}

func newMockRegistrationRepo(at time.Time) *mockRegistrationRepo {
	return &mockRegistrationRepo{regs: map[string]*domain.Registration{}, eventName: "Feria", at: at}
}

func (m *mockRegistrationRepo) seed(eventID, userID string, status domain.RegistrationStatus) {
	reg := &domain.Registration{EventID: eventID, UserID: userID, Status: status, RegisteredAt: m.at, EventName: m.eventName}
	if status == domain.StatusAttended {
		at := m.at
		reg.AttendedAt = &at
	}
	m.regs[eventID+"|"+userID] = reg
}

func (m *mockRegistrationRepo) Register(_ context.Context, eventID, userID string) (*domain.Registration, error) {
	m.mutations++
	if m.err != nil {
		return nil, m.err
	}
	if m.full {
		return nil, repository.ErrEventFull
	}
	if _, ok := m.regs[eventID+"|"+userID]; ok {
		return nil, repository.ErrDuplicate
	}
	m.seed(eventID, userID, domain.StatusRegistered)
	return m.regs[eventID+"|"+userID], nil
}

func (m *mockRegistrationRepo) Get(_ context.Context, eventID, userID string) (*domain.Registration, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.regs[eventID+"|"+userID], nil
}

func (m *mockRegistrationRepo) ListByUser(_ context.Context, userID string) ([]domain.Registration, error) {
	var out []domain.Registration
	for _, r := range m.regs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRegistrationRepo) MarkAttended(_ context.Context, eventID, userID string) (*domain.Registration, error) {
	m.mutations++
	if m.err != nil {
		return nil, m.err
	}
	reg, ok := m.regs[eventID+"|"+userID]
	if !ok || reg.Status == domain.StatusAttended {
		return nil, nil
	}
	at := m.at
	reg.Status = domain.StatusAttended
	reg.AttendedAt = &at
	cp := *reg
	return &cp, nil
}

func (m *mockRegistrationRepo) CountByStatus(_ context.Context, eventID string) (map[string]int, error) {
	counts := map[string]int{}
	for _, r := range m.regs {
		if eventID == "" || r.EventID == eventID {
			counts[string(r.Status)]++
		}
	}
	return counts, nil
}

type mockCheckInRepo struct {
	rows      map[string]bool
	mutations int
	err       error
	at        time.Time
}

func (m *mockCheckInRepo) Create(_ context.Context, eventID, userID, source string) (*domain.CheckIn, error) {
	m.mutations++
	if m.err != nil {
		return nil, m.err
	}
	if m.rows == nil {
		m.rows = map[string]bool{}
	}
	if m.rows[eventID+"|"+userID] {
		return nil, repository.ErrDuplicate
	}
	m.rows[eventID+"|"+userID] = true
	return &domain.CheckIn{
		ID: int64(len(m.rows)), EventID: eventID, UserID: userID, CheckinTime: m.at,
		Method: domain.CheckinMethodQR, Status: domain.CheckinStatusPresent, Valid: true,
		Source: source, EventName: "Feria",
	}, nil
}

func (m *mockCheckInRepo) CountByStatus(context.Context, string) (map[string]int, error) {
	return map[string]int{domain.CheckinStatusPresent: len(m.rows)}, nil
}

type published struct {
	subject string
	data    any
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, published{subject: subject, data: data})
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.msgs {
		out = append(out, p.subject)
	}
	return out
}

type countingObserver map[string]int

func (c countingObserver) ObserveScan(outcome string) { c[outcome]++ }
