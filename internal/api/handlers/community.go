/**
 * @description
 * Community API Handlers.
 * The discussion feed is pure pass-through CRUD: list posts, create post.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - gorm.io/gorm
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/thriftup/backend/internal/models"
	"gorm.io/gorm"
)

// postPageSize caps the community feed
const postPageSize = 50

type CommunityHandler struct {
	DB *gorm.DB
}

func NewCommunityHandler(db *gorm.DB) *CommunityHandler {
	return &CommunityHandler{DB: db}
}

// CreatePostRequest defines the payload for creating a post
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ListPosts returns the community feed, newest first
// GET /api/v1/posts
func (h *CommunityHandler) ListPosts(c *fiber.Ctx) error {
	var posts []models.CommunityPost
	err := h.DB.Preload("User").
		Order("created_at DESC").
		Limit(postPageSize).
		Find(&posts).Error
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": posts})
}

// CreatePost creates a discussion thread for the authenticated user
// POST /api/v1/posts
func (h *CommunityHandler) CreatePost(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return respondError(c, err)
	}

	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if req.Title == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and content are required"})
	}

	post := models.CommunityPost{
		UserID:  user.ID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := h.DB.Create(&post).Error; err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": post})
}
