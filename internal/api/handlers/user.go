/**
 * @description
 * User API Handlers.
 * Handles profile synchronization against the identity provider, profile
 * retrieval, and the seller dashboard summary.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - gorm.io/gorm
 */

package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/thriftup/backend/internal/api/middleware"
	"github.com/thriftup/backend/internal/logger"
	"github.com/thriftup/backend/internal/models"
	"github.com/thriftup/backend/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dashboardSectionSize caps each recent-activity section on the dashboard
const dashboardSectionSize = 5

type UserHandler struct {
	DB       *gorm.DB
	Auctions *services.AuctionService
	Events   *services.EventService
}

func NewUserHandler(db *gorm.DB, auctions *services.AuctionService, events *services.EventService) *UserHandler {
	return &UserHandler{
		DB:       db,
		Auctions: auctions,
		Events:   events,
	}
}

// SyncUserRequest defines payload for syncing the profile after signup/login
type SyncUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// SyncUser ensures the user's profile row exists in the database
// POST /api/v1/user/sync
func (h *UserHandler) SyncUser(c *fiber.Ctx) error {
	// 1. Get identity from context
	authID, err := middleware.GetAuthID(c)
	if err != nil {
		logger.Error("SyncUser: Failed to get auth ID from context: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	// 2. Parse Body
	var req SyncUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("SyncUser: Failed to parse request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = username
	}

	// 3. Upsert profile keyed on the provider subject
	now := time.Now()
	user := models.User{
		AuthID:   authID,
		Email:    req.Email,
		Username: username,
		FullName: fullName,
	}

	updates := map[string]interface{}{
		"email":      req.Email,
		"updated_at": now,
	}
	if username != "" {
		updates["username"] = username
		updates["full_name"] = fullName
	}

	result := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth_id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&user)
	if result.Error != nil {
		logger.Error("SyncUser: Database error during upsert: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sync user"})
	}

	// 4. Fetch full profile to return
	var synced models.User
	if err := h.DB.Where("auth_id = ?", authID).First(&synced).Error; err != nil {
		logger.Error("SyncUser: Failed to fetch user after upsert: %v", err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found after sync"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch synced user"})
	}

	return c.Status(fiber.StatusOK).JSON(synced)
}

// GetMe returns the current authenticated user's profile
// GET /api/v1/user/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// Dashboard returns the user's recent listings, auctions, and events
// GET /api/v1/user/dashboard
func (h *UserHandler) Dashboard(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	var listings []models.Listing
	err = h.DB.Where("user_id = ? AND is_auction = ?", user.ID, false).
		Order("created_at DESC").
		Limit(dashboardSectionSize).
		Find(&listings).Error
	if err != nil {
		return respondError(c, err)
	}

	auctions, err := h.Auctions.ListBySeller(c.Context(), user.ID, dashboardSectionSize)
	if err != nil {
		return respondError(c, err)
	}

	events, err := h.Events.ListByOrganizer(c.Context(), user.ID, dashboardSectionSize)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":     user,
		"listings": listings,
		"auctions": auctions,
		"events":   events,
	})
}
