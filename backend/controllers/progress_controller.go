package controllers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"selfpaced/backend/config"
	"selfpaced/backend/metrics"
	"selfpaced/backend/middleware"
	"selfpaced/backend/models"
	"selfpaced/backend/progress"
	"selfpaced/backend/repository"
	"selfpaced/backend/utils"
)

type ProgressController struct {
	Repo   *repository.ProgressRepository
	Cfg    *config.Config
	Logger *zap.Logger
}

func NewProgressController(repo *repository.ProgressRepository, cfg *config.Config, logger *zap.Logger) *ProgressController {
	return &ProgressController{Repo: repo, Cfg: cfg, Logger: logger}
}

type SyncProgressRequest struct {
	Email    string                 `json:"email" validate:"required,email"`
	Progress progress.CompletionMap `json:"progress"`
}

// GetSyncProgress godoc
// @Summary Get completion map
// @Description Returns the stored completion map for an email; unknown emails get an empty map
// @Tags progress
// @Produce json
// @Param email query string true "User email"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Router /sync-progress [get]
func (pc *ProgressController) GetSyncProgress(c *fiber.Ctx) error {
	email := progress.NormalizeEmail(c.Query("email"))
	if email == "" {
		return utils.BadRequest(c, "email is required")
	}
	if !callerMayAccess(c, email) {
		return utils.Forbidden(c, "Token does not match email")
	}

	m, err := pc.Repo.Fetch(c.UserContext(), email)
	if err != nil {
		metrics.SyncReads.WithLabelValues("error").Inc()
		pc.Logger.Error("fetch progress", zap.String("email", email), zap.Error(err))
		return utils.InternalServerError(c, "Could not load progress")
	}

	metrics.SyncReads.WithLabelValues("ok").Inc()
	return c.JSON(fiber.Map{
		"progress": m,
	})
}

// PostSyncProgress godoc
// @Summary Push completion map
// @Description Merges the pushed map into the stored one; completions are never cleared
// @Tags progress
// @Accept json
// @Produce json
// @Param request body SyncProgressRequest true "Email and completion map"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /sync-progress [post]
func (pc *ProgressController) PostSyncProgress(c *fiber.Ctx) error {
	var req SyncProgressRequest
	if err := c.BodyParser(&req); err != nil {
		metrics.SyncWrites.WithLabelValues("invalid").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Cannot parse JSON",
		})
	}

	req.Email = progress.NormalizeEmail(req.Email)
	if errs := utils.ValidateStruct(req); errs != nil {
		metrics.SyncWrites.WithLabelValues("invalid").Inc()
		return utils.ValidationError(c, errs)
	}
	if !callerMayAccess(c, req.Email) {
		return utils.Forbidden(c, "Token does not match email")
	}

	if err := pc.Repo.Merge(c.UserContext(), req.Email, req.Progress); err != nil {
		metrics.SyncWrites.WithLabelValues("error").Inc()
		pc.Logger.Error("merge progress", zap.String("email", req.Email), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
		})
	}

	metrics.SyncWrites.WithLabelValues("ok").Inc()
	metrics.SyncedKeys.Observe(float64(len(req.Progress)))
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// callerMayAccess lets anonymous callers through; a token must belong to the
// email or to an admin.
func callerMayAccess(c *fiber.Ctx, email string) bool {
	claims := middleware.Claims(c)
	if claims == nil {
		return true
	}
	return progress.NormalizeEmail(claims.Email) == email || claims.Role == models.RoleAdmin
}
