/**
 * @description
 * Event API Handlers.
 * Event browsing, creation, and the RSVP join/cancel pair.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/thriftup/backend/internal/services"
	"gorm.io/gorm"
)

type EventHandler struct {
	DB      *gorm.DB
	Service *services.EventService
}

func NewEventHandler(db *gorm.DB, service *services.EventService) *EventHandler {
	return &EventHandler{
		DB:      db,
		Service: service,
	}
}

// CreateEventRequest defines the payload for creating an event
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	EventDate   time.Time `json:"event_date"`
	Capacity    int       `json:"capacity"`
}

// ListEvents returns upcoming events, soonest first
// GET /api/v1/events
func (h *EventHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.Service.ListUpcoming(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": events})
}

// GetEvent returns one event
// GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event id"})
	}

	event, err := h.Service.GetEvent(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": event})
}

// ListAttendees returns the RSVP list for an event
// GET /api/v1/events/:id/attendees
func (h *EventHandler) ListAttendees(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event id"})
	}

	attendees, err := h.Service.ListAttendees(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": attendees})
}

// CreateEvent creates an event for the authenticated organizer
// POST /api/v1/events
func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	var req CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	event, err := h.Service.CreateEvent(c.Context(), user.ID, services.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		EventDate:   req.EventDate,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": event})
}

// Join RSVPs the authenticated user to the event
// POST /api/v1/events/:id/rsvp
func (h *EventHandler) Join(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event id"})
	}

	attendee, err := h.Service.Join(c.Context(), id, user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": attendee})
}

// Cancel removes the authenticated user's RSVP
// DELETE /api/v1/events/:id/rsvp
func (h *EventHandler) Cancel(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event id"})
	}

	if err := h.Service.Cancel(c.Context(), id, user.ID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"status": "cancelled"})
}

// MyEvents returns the authenticated user's RSVPs with event details
// GET /api/v1/user/events
func (h *EventHandler) MyEvents(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	rsvps, err := h.Service.ListUserRSVPs(c.Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": rsvps})
}
