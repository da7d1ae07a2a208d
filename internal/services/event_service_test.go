package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thriftup/backend/internal/marketerrors"
	"github.com/thriftup/backend/internal/models"
)

// memoryEventStore mirrors the transactional semantics of the GORM event
// store: the attendee row and attendee_count move together under one lock.
type memoryEventStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]*models.Event
	attendees []models.EventAttendee
}

func newMemoryEventStore(events ...*models.Event) *memoryEventStore {
	s := &memoryEventStore{events: make(map[uuid.UUID]*models.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *memoryEventStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, marketerrors.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memoryEventStore) ListUpcoming(ctx context.Context, limit int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.Status == models.EventStatusUpcoming {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memoryEventStore) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.OrganizerID == organizerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memoryEventStore) CreateEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *memoryEventStore) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EventAttendee
	for _, a := range s.attendees {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryEventStore) ListUserRSVPs(ctx context.Context, userID uuid.UUID) ([]models.EventAttendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EventAttendee
	for _, a := range s.attendees {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryEventStore) AddAttendee(ctx context.Context, eventID, userID uuid.UUID) (*models.EventAttendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, marketerrors.ErrEventNotFound
	}
	for _, a := range s.attendees {
		if a.EventID == eventID && a.UserID == userID {
			return nil, marketerrors.ErrAlreadyAttending
		}
	}
	if e.IsFull() {
		return nil, marketerrors.ErrEventFull
	}

	attendee := models.EventAttendee{
		ID:        uuid.New(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	s.attendees = append(s.attendees, attendee)
	e.AttendeeCount++
	return &attendee, nil
}

func (s *memoryEventStore) RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return marketerrors.ErrEventNotFound
	}
	for i, a := range s.attendees {
		if a.EventID == eventID && a.UserID == userID {
			s.attendees = append(s.attendees[:i], s.attendees[i+1:]...)
			if e := s.events[eventID]; e.AttendeeCount > 0 {
				e.AttendeeCount--
			}
			return nil
		}
	}
	return marketerrors.ErrNotAttending
}

func upcomingEvent(organizerID uuid.UUID, capacity int) *models.Event {
	return &models.Event{
		ID:          uuid.New(),
		OrganizerID: organizerID,
		Title:       "Neighborhood Swap Meet",
		Location:    "Riverside Park",
		EventDate:   time.Now().Add(72 * time.Hour),
		Capacity:    capacity,
		Status:      models.EventStatusUpcoming,
	}
}

func TestJoin_IncrementsAttendeeCount(t *testing.T) {
	ctx := context.Background()
	event := upcomingEvent(uuid.New(), 10)
	memStore := newMemoryEventStore(event)
	svc := NewEventService(memStore)

	user := uuid.New()
	attendee, err := svc.Join(ctx, event.ID, user)
	require.NoError(t, err)
	assert.Equal(t, event.ID, attendee.EventID)
	assert.Equal(t, user, attendee.UserID)

	updated, _ := memStore.GetEvent(ctx, event.ID)
	assert.Equal(t, 1, updated.AttendeeCount)
}

func TestJoin_EventFull(t *testing.T) {
	ctx := context.Background()
	event := upcomingEvent(uuid.New(), 2)
	memStore := newMemoryEventStore(event)
	svc := NewEventService(memStore)

	_, err := svc.Join(ctx, event.ID, uuid.New())
	require.NoError(t, err)
	_, err = svc.Join(ctx, event.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.Join(ctx, event.ID, uuid.New())
	assert.ErrorIs(t, err, marketerrors.ErrEventFull)

	// Capacity rejections never move the counter
	updated, _ := memStore.GetEvent(ctx, event.ID)
	assert.Equal(t, 2, updated.AttendeeCount)
}

func TestJoin_AlreadyAttending(t *testing.T) {
	ctx := context.Background()
	event := upcomingEvent(uuid.New(), 10)
	memStore := newMemoryEventStore(event)
	svc := NewEventService(memStore)

	user := uuid.New()
	_, err := svc.Join(ctx, event.ID, user)
	require.NoError(t, err)

	_, err = svc.Join(ctx, event.ID, user)
	assert.ErrorIs(t, err, marketerrors.ErrAlreadyAttending)

	updated, _ := memStore.GetEvent(ctx, event.ID)
	assert.Equal(t, 1, updated.AttendeeCount)
}

func TestJoin_UnknownEvent(t *testing.T) {
	svc := NewEventService(newMemoryEventStore())

	_, err := svc.Join(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, marketerrors.ErrEventNotFound)
}

func TestCancel_DecrementsAttendeeCount(t *testing.T) {
	ctx := context.Background()
	event := upcomingEvent(uuid.New(), 10)
	memStore := newMemoryEventStore(event)
	svc := NewEventService(memStore)

	user, other := uuid.New(), uuid.New()
	_, err := svc.Join(ctx, event.ID, user)
	require.NoError(t, err)
	_, err = svc.Join(ctx, event.ID, other)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, event.ID, user))

	updated, _ := memStore.GetEvent(ctx, event.ID)
	assert.Equal(t, 1, updated.AttendeeCount)

	attendees, err := svc.ListAttendees(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 1)
	assert.Equal(t, other, attendees[0].UserID)

	// A freed spot can be taken again
	_, err = svc.Join(ctx, event.ID, user)
	assert.NoError(t, err)
}

func TestCancel_NotAttending(t *testing.T) {
	event := upcomingEvent(uuid.New(), 10)
	svc := NewEventService(newMemoryEventStore(event))

	err := svc.Cancel(context.Background(), event.ID, uuid.New())
	assert.ErrorIs(t, err, marketerrors.ErrNotAttending)
}

func TestCreateEvent_Validation(t *testing.T) {
	svc := NewEventService(newMemoryEventStore())
	valid := CreateEventInput{
		Title:     "Clothing Swap",
		Location:  "Community Hall",
		EventDate: time.Now().Add(48 * time.Hour),
		Capacity:  30,
	}

	tests := []struct {
		name   string
		mutate func(*CreateEventInput)
	}{
		{"missing title", func(i *CreateEventInput) { i.Title = "" }},
		{"missing date", func(i *CreateEventInput) { i.EventDate = time.Time{} }},
		{"zero capacity", func(i *CreateEventInput) { i.Capacity = 0 }},
		{"negative capacity", func(i *CreateEventInput) { i.Capacity = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			_, err := svc.CreateEvent(context.Background(), uuid.New(), input)
			assert.ErrorIs(t, err, marketerrors.ErrInvalidInput)
		})
	}
}

func TestCreateEvent_Defaults(t *testing.T) {
	memStore := newMemoryEventStore()
	svc := NewEventService(memStore)

	organizer := uuid.New()
	event, err := svc.CreateEvent(context.Background(), organizer, CreateEventInput{
		Title:     "Repair Cafe",
		EventDate: time.Now().Add(24 * time.Hour),
		Capacity:  15,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusUpcoming, event.Status)
	assert.Equal(t, 0, event.AttendeeCount)
	assert.Equal(t, organizer, event.OrganizerID)
}
