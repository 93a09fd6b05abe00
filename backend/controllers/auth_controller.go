package controllers

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"

	"selfpaced/backend/config"
	"selfpaced/backend/models"
	"selfpaced/backend/progress"
	"selfpaced/backend/repository"
	"selfpaced/backend/utils"
)

type AuthController struct {
	DB   *gorm.DB
	Repo *repository.ProgressRepository
	Cfg  *config.Config
}

func NewAuthController(db *gorm.DB, repo *repository.ProgressRepository, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Repo: repo, Cfg: cfg}
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// [+] Register godoc
// @Summary Register a new user
// @Description Creates a new user account and enrolls it in the self-paced course
// @Tags auth
// @Accept json
// @Produce json
// @Param user body CredentialsRequest true "User registration data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input CredentialsRequest
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	input.Email = progress.NormalizeEmail(input.Email)
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	user := models.User{
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
	}
	if ac.Cfg.IsAdminEmail(user.Email) {
		user.Role = models.RoleAdmin
	}

	// Create user
	if err := ac.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Could not create user",
		})
	}

	// Keep an existing enrollment (e.g. set by an admin before sign-up)
	if _, err := ac.Repo.Enrollment(c.UserContext(), user.Email); errors.Is(err, repository.ErrEnrollmentNotFound) {
		if err := ac.Repo.SetEnrollment(c.UserContext(), user.Email, time.Now()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not enroll user",
			})
		}
	}

	return ac.respondWithToken(c, &user)
}

// [+] Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input CredentialsRequest
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	// Find user
	var user models.User
	if err := ac.DB.Where("email = ?", progress.NormalizeEmail(input.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	return ac.respondWithToken(c, &user)
}

// Me reports the identity behind the request. Anonymous callers get
// authenticated=false rather than an error.
func (ac *AuthController) Me(c *fiber.Ctx) error {
	claims, err := utils.ExtractClaimsFromToken(c, ac.Cfg)
	if err != nil {
		return c.JSON(progress.Identity{})
	}
	return c.JSON(progress.Identity{
		Authenticated: true,
		Email:         progress.NormalizeEmail(claims.Email),
	})
}

func (ac *AuthController) respondWithToken(c *fiber.Ctx, user *models.User) error {
	// Generate JWT token
	token, err := utils.GenerateJWTToken(user.ID, user.Email, user.Role, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
