/**
 * @description
 * Service layer for community events and RSVP.
 * Join and cancel are delegated to the store's transactional writes so the
 * attendee row and the attendee_count counter never drift apart.
 *
 * @dependencies
 * - backend/internal/store
 * - backend/internal/models
 */

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thriftup/backend/internal/marketerrors"
	"github.com/thriftup/backend/internal/models"
	"github.com/thriftup/backend/internal/store"
)

// UpcomingEventLimit caps the public event listing
const UpcomingEventLimit = 50

// CreateEventInput carries the event creation form
type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	EventDate   time.Time
	Capacity    int
}

type EventService struct {
	Store store.EventStore
}

func NewEventService(s store.EventStore) *EventService {
	return &EventService{Store: s}
}

// CreateEvent validates the form and persists the event
func (s *EventService) CreateEvent(ctx context.Context, organizerID uuid.UUID, input CreateEventInput) (*models.Event, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", marketerrors.ErrInvalidInput)
	}
	if input.EventDate.IsZero() {
		return nil, fmt.Errorf("%w: event date is required", marketerrors.ErrInvalidInput)
	}
	if input.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", marketerrors.ErrInvalidInput)
	}

	event := &models.Event{
		OrganizerID:   organizerID,
		Title:         input.Title,
		Description:   input.Description,
		Location:      input.Location,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		EventDate:     input.EventDate,
		Capacity:      input.Capacity,
		AttendeeCount: 0,
		Status:        models.EventStatusUpcoming,
	}
	if err := s.Store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

// GetEvent returns one event
func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.Store.GetEvent(ctx, id)
}

// ListUpcoming returns upcoming events, soonest first
func (s *EventService) ListUpcoming(ctx context.Context) ([]models.Event, error) {
	return s.Store.ListUpcoming(ctx, UpcomingEventLimit)
}

// ListByOrganizer returns an organizer's events for the dashboard
func (s *EventService) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit int) ([]models.Event, error) {
	return s.Store.ListByOrganizer(ctx, organizerID, limit)
}

// ListAttendees returns the RSVP list for an event, oldest first
func (s *EventService) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	if _, err := s.Store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.Store.ListAttendees(ctx, eventID)
}

// ListUserRSVPs returns the events a user has joined
func (s *EventService) ListUserRSVPs(ctx context.Context, userID uuid.UUID) ([]models.EventAttendee, error) {
	return s.Store.ListUserRSVPs(ctx, userID)
}

// Join RSVPs the user to the event. Fails with ErrEventFull at capacity and
// ErrAlreadyAttending on a duplicate join.
func (s *EventService) Join(ctx context.Context, eventID, userID uuid.UUID) (*models.EventAttendee, error) {
	return s.Store.AddAttendee(ctx, eventID, userID)
}

// Cancel removes the user's RSVP. Fails with ErrNotAttending when there is
// no RSVP to remove.
func (s *EventService) Cancel(ctx context.Context, eventID, userID uuid.UUID) error {
	return s.Store.RemoveAttendee(ctx, eventID, userID)
}
