/**
 * @description
 * Event and EventAttendee database models.
 * Maps to the 'events' and 'event_attendees' tables in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventStatus defines the lifecycle of a community event
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Event represents a community event with a bounded attendee list.
// attendee_count mirrors the number of event_attendees rows; both are
// maintained in the same transaction.
type Event struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	OrganizerID   uuid.UUID   `gorm:"type:uuid;not null;index:idx_events_organizer" json:"organizer_id"`
	Title         string      `gorm:"size:255;not null" json:"title"`
	Description   string      `json:"description"`
	Location      string      `gorm:"size:255" json:"location"`
	Latitude      *float64    `json:"latitude,omitempty"`
	Longitude     *float64    `json:"longitude,omitempty"`
	EventDate     time.Time   `gorm:"column:event_date;index" json:"event_date"`
	Capacity      int         `gorm:"not null" json:"capacity"`
	AttendeeCount int         `gorm:"column:attendee_count;default:0" json:"attendee_count"`
	Status        EventStatus `gorm:"size:16;default:'upcoming';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Organizer *User `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
}

// TableName overrides the table name used by Event to `events`
func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}

// IsFull reports whether the event has reached capacity
func (e *Event) IsFull() bool {
	return e.AttendeeCount >= e.Capacity
}

// EventAttendee is one RSVP row. A user can hold at most one per event.
type EventAttendee struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_attendees_event_user" json:"event_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_attendees_event_user" json:"user_id"`
	Attended  bool      `gorm:"default:false" json:"attended"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName overrides the table name used by EventAttendee to `event_attendees`
func (EventAttendee) TableName() string {
	return "event_attendees"
}

func (a *EventAttendee) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
