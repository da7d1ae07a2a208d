/**
 * @description
 * Shared handler helpers: resolving the authenticated user's profile row and
 * mapping service errors to HTTP statuses.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/marketerrors
 * - gorm.io/gorm
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/thriftup/backend/internal/api/middleware"
	"github.com/thriftup/backend/internal/logger"
	"github.com/thriftup/backend/internal/marketerrors"
	"github.com/thriftup/backend/internal/models"
	"gorm.io/gorm"
)

// currentUser resolves the authenticated request to its users row.
// Returns ErrUserNotFound when the token is valid but the profile was never
// synced.
func currentUser(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	authID, err := middleware.GetAuthID(c)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := db.Where("auth_id = ?", authID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, marketerrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// errorStatus maps a service error to its HTTP status
func errorStatus(err error) int {
	switch {
	case errors.Is(err, marketerrors.ErrAuctionNotFound),
		errors.Is(err, marketerrors.ErrListingNotFound),
		errors.Is(err, marketerrors.ErrEventNotFound),
		errors.Is(err, marketerrors.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, marketerrors.ErrNotListingOwner):
		return fiber.StatusForbidden
	case errors.Is(err, marketerrors.ErrBidTooLow),
		errors.Is(err, marketerrors.ErrAuctionEnded),
		errors.Is(err, marketerrors.ErrAuctionNotStarted),
		errors.Is(err, marketerrors.ErrSelfBid),
		errors.Is(err, marketerrors.ErrNoBuyNowPrice),
		errors.Is(err, marketerrors.ErrEventFull),
		errors.Is(err, marketerrors.ErrAlreadyAttending),
		errors.Is(err, marketerrors.ErrNotAttending),
		errors.Is(err, marketerrors.ErrInvalidInput):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the error response. Validation and not-found errors
// carry their specific message; anything else is logged and surfaced as a
// generic failure.
func respondError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Something went wrong"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
