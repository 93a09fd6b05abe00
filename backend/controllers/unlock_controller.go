package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"selfpaced/backend/config"
	"selfpaced/backend/progress"
	"selfpaced/backend/repository"
	"selfpaced/backend/utils"
)

type UnlockController struct {
	Repo   *repository.ProgressRepository
	Cfg    *config.Config
	Logger *zap.Logger
	Now    func() time.Time
}

func NewUnlockController(repo *repository.ProgressRepository, cfg *config.Config, logger *zap.Logger) *UnlockController {
	return &UnlockController{Repo: repo, Cfg: cfg, Logger: logger, Now: time.Now}
}

// GetUnlockStatus godoc
// @Summary Module unlock schedule
// @Description Computes which modules are open for an email from its enrollment date, the unlock cadence and admin overrides
// @Tags progress
// @Produce json
// @Param email query string true "User email"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} map[string]interface{}
// @Router /unlock-status [get]
func (uc *UnlockController) GetUnlockStatus(c *fiber.Ctx) error {
	email := progress.NormalizeEmail(c.Query("email"))
	if email == "" {
		return utils.BadRequest(c, "email is required")
	}
	if !callerMayAccess(c, email) {
		return utils.Forbidden(c, "Token does not match email")
	}

	enrollment, err := uc.Repo.Enrollment(c.UserContext(), email)
	if errors.Is(err, repository.ErrEnrollmentNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Enrollment not found",
		})
	}
	if err != nil {
		uc.Logger.Error("get enrollment", zap.String("email", email), zap.Error(err))
		return utils.InternalServerError(c, "Could not load enrollment")
	}

	overrides, err := uc.Repo.Overrides(c.UserContext(), email)
	if err != nil {
		uc.Logger.Error("get overrides", zap.String("email", email), zap.Error(err))
		return utils.InternalServerError(c, "Could not load overrides")
	}

	modulos := uc.Cfg.UnlockPolicy().Schedule(enrollment.EnrolledAt, uc.Cfg.ModuleCount, overrides, uc.Now())
	return c.JSON(fiber.Map{
		"success": true,
		"modulos": modulos,
	})
}
