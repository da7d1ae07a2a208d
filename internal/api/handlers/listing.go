/**
 * @description
 * Listing API Handlers.
 * Marketplace browsing and listing creation are plain pass-through CRUD, so
 * these handlers talk to GORM directly.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - gorm.io/gorm
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thriftup/backend/internal/models"
	"gorm.io/gorm"
)

// listingPageSize caps marketplace browse results
const listingPageSize = 50

type ListingHandler struct {
	DB *gorm.DB
}

func NewListingHandler(db *gorm.DB) *ListingHandler {
	return &ListingHandler{DB: db}
}

// CreateListingRequest defines the payload for creating a listing
type CreateListingRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Condition   string          `json:"condition"`
	ImageURLs   []string        `json:"image_urls"`
}

// ListListings returns non-auction listings filtered by category and status
// GET /api/v1/listings
func (h *ListingHandler) ListListings(c *fiber.Ctx) error {
	status := c.Query("status", string(models.ListingStatusActive))
	category := c.Query("category")

	query := h.DB.Where("status = ? AND is_auction = ?", status, false)
	if category != "" && category != "all" {
		query = query.Where("category = ?", category)
	}

	var listings []models.Listing
	if err := query.Order("created_at DESC").Limit(listingPageSize).Find(&listings).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": listings})
}

// GetListing returns one listing with its seller profile
// GET /api/v1/listings/:id
func (h *ListingHandler) GetListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing id"})
	}

	var listing models.Listing
	if err := h.DB.Preload("User").First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listing not found"})
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": listing})
}

// CreateListing creates a marketplace listing for the authenticated user
// POST /api/v1/listings
func (h *ListingHandler) CreateListing(c *fiber.Ctx) error {
	// 1. Resolve authenticated user
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	// 2. Parse Body
	var req CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}
	if !req.Price.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must be positive"})
	}

	// 3. Insert
	listing := models.Listing{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Condition:   req.Condition,
		ImageURLs:   req.ImageURLs,
		Status:      models.ListingStatusActive,
		IsAuction:   false,
	}
	if err := h.DB.Create(&listing).Error; err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": listing})
}
