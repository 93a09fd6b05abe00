package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"selfpaced/backend/config"
	"selfpaced/backend/middleware"
	"selfpaced/backend/models"
	"selfpaced/backend/repository"
	"selfpaced/backend/utils"
)

type UserController struct {
	DB   *gorm.DB
	Repo *repository.ProgressRepository
	Cfg  *config.Config
}

func NewUserController(db *gorm.DB, repo *repository.ProgressRepository, cfg *config.Config) *UserController {
	return &UserController{DB: db, Repo: repo, Cfg: cfg}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile data with enrollment and progress summary
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	if claims == nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := uc.DB.First(&user, claims.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	completed, err := uc.Repo.Fetch(c.UserContext(), user.Email)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	// Формируем ответ без чувствительных данных
	profile := fiber.Map{
		"id":         user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
		"completed":  len(completed.CompletedKeys()),
	}

	enrollment, err := uc.Repo.Enrollment(c.UserContext(), user.Email)
	switch {
	case err == nil:
		profile["enrolled_at"] = enrollment.EnrolledAt
	case !errors.Is(err, repository.ErrEnrollmentNotFound):
		return utils.InternalServerError(c, "Could not load enrollment")
	}

	return utils.Success(c, fiber.StatusOK, profile)
}
