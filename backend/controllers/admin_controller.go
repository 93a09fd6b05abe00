package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"selfpaced/backend/config"
	"selfpaced/backend/metrics"
	"selfpaced/backend/middleware"
	"selfpaced/backend/progress"
	"selfpaced/backend/repository"
	"selfpaced/backend/utils"
)

type AdminController struct {
	Repo   *repository.ProgressRepository
	Cfg    *config.Config
	Logger *zap.Logger
}

func NewAdminController(repo *repository.ProgressRepository, cfg *config.Config, logger *zap.Logger) *AdminController {
	return &AdminController{Repo: repo, Cfg: cfg, Logger: logger}
}

type ModuleOverrideRequest struct {
	Email     string `json:"email" validate:"required,email"`
	ModuloNum *int   `json:"moduloNum" validate:"required,min=0"`
	Unlock    bool   `json:"unlock"`
}

type EnrollmentRequest struct {
	Email      string    `json:"email" validate:"required,email"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// SetModuleOverride godoc
// @Summary Unlock or re-lock a module for a user
// @Tags admin
// @Accept json
// @Produce json
// @Param request body ModuleOverrideRequest true "Override"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/progress [post]
func (ac *AdminController) SetModuleOverride(c *fiber.Ctx) error {
	var req ModuleOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	req.Email = progress.NormalizeEmail(req.Email)
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if *req.ModuloNum >= ac.Cfg.ModuleCount {
		return utils.BadRequest(c, "moduloNum is out of range")
	}

	admin := middleware.Claims(c).Email
	if err := ac.Repo.SetOverride(c.UserContext(), req.Email, *req.ModuloNum, req.Unlock, admin); err != nil {
		ac.Logger.Error("set override", zap.String("email", req.Email), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
		})
	}

	action := "lock"
	if req.Unlock {
		action = "unlock"
	}
	metrics.OverrideWrites.WithLabelValues(action).Inc()
	ac.Logger.Info("module override",
		zap.String("email", req.Email),
		zap.Int("modulo", *req.ModuloNum),
		zap.String("action", action),
		zap.String("admin", admin),
	)

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// GetUserProgress returns everything stored for one email, for support staff.
func (ac *AdminController) GetUserProgress(c *fiber.Ctx) error {
	email := progress.NormalizeEmail(c.Query("email"))
	if email == "" {
		return utils.BadRequest(c, "email is required")
	}

	m, err := ac.Repo.Fetch(c.UserContext(), email)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}
	overrides, err := ac.Repo.Overrides(c.UserContext(), email)
	if err != nil {
		return utils.InternalServerError(c, "Could not load overrides")
	}

	data := fiber.Map{
		"email":     email,
		"progress":  m,
		"overrides": overrides,
	}

	enrollment, err := ac.Repo.Enrollment(c.UserContext(), email)
	switch {
	case err == nil:
		data["enrolledAt"] = enrollment.EnrolledAt
	case !errors.Is(err, repository.ErrEnrollmentNotFound):
		return utils.InternalServerError(c, "Could not load enrollment")
	}

	return utils.Success(c, fiber.StatusOK, data)
}

// SetEnrollment moves the date the unlock schedule is anchored to.
func (ac *AdminController) SetEnrollment(c *fiber.Ctx) error {
	var req EnrollmentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	req.Email = progress.NormalizeEmail(req.Email)
	errs := utils.ValidateStruct(req)
	if req.EnrolledAt.IsZero() {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["enrolledAt"] = "this field is required"
	}
	if errs != nil {
		return utils.ValidationError(c, errs)
	}

	if err := ac.Repo.SetEnrollment(c.UserContext(), req.Email, req.EnrolledAt); err != nil {
		ac.Logger.Error("set enrollment", zap.String("email", req.Email), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
