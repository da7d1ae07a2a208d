/**
 * @description
 * GORM-backed EventStore.
 * RSVP writes pair the event_attendees row with the events.attendee_count
 * counter inside one transaction, with the event row locked for the capacity
 * check.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn: unique-violation detection for double RSVPs
 * - backend/internal/models
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/thriftup/backend/internal/marketerrors"
	"github.com/thriftup/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEventStore implements EventStore on PostgreSQL
type GormEventStore struct {
	db *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

func (s *GormEventStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketerrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (s *GormEventStore) ListUpcoming(ctx context.Context, limit int) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("status = ?", models.EventStatusUpcoming).
		Order("event_date ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *GormEventStore) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit int) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID).
		Order("event_date ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *GormEventStore) CreateEvent(ctx context.Context, event *models.Event) error {
	return s.db.WithContext(ctx).Create(event).Error
}

func (s *GormEventStore) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.EventAttendee, error) {
	var attendees []models.EventAttendee
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&attendees).Error
	if err != nil {
		return nil, err
	}
	return attendees, nil
}

func (s *GormEventStore) ListUserRSVPs(ctx context.Context, userID uuid.UUID) ([]models.EventAttendee, error) {
	var attendees []models.EventAttendee
	err := s.db.WithContext(ctx).
		Preload("Event").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&attendees).Error
	if err != nil {
		return nil, err
	}
	return attendees, nil
}

// AddAttendee joins the event. Capacity is checked against the locked event
// row, so two concurrent joins cannot both squeeze past a single free slot.
func (s *GormEventStore) AddAttendee(ctx context.Context, eventID, userID uuid.UUID) (*models.EventAttendee, error) {
	attendee := &models.EventAttendee{
		EventID: eventID,
		UserID:  userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, "id = ?", eventID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return marketerrors.ErrEventNotFound
			}
			return err
		}

		if event.IsFull() {
			return marketerrors.ErrEventFull
		}

		if err := tx.Create(attendee).Error; err != nil {
			if isUniqueViolation(err) {
				return marketerrors.ErrAlreadyAttending
			}
			return err
		}

		return tx.Model(&models.Event{}).
			Where("id = ?", eventID).
			Updates(map[string]interface{}{
				"attendee_count": gorm.Expr("attendee_count + 1"),
				"updated_at":     time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return attendee, nil
}

// RemoveAttendee cancels the RSVP and decrements the counter by exactly one
func (s *GormEventStore) RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ? AND user_id = ?", eventID, userID).
			Delete(&models.EventAttendee{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return marketerrors.ErrNotAttending
		}

		return tx.Model(&models.Event{}).
			Where("id = ? AND attendee_count > 0", eventID).
			Updates(map[string]interface{}{
				"attendee_count": gorm.Expr("attendee_count - 1"),
				"updated_at":     time.Now(),
			}).Error
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
