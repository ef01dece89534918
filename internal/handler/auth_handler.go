package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"coffeeshop-service/internal/model"
	"coffeeshop-service/pkg/database"
	"coffeeshop-service/pkg/jwtutil"
	"coffeeshop-service/pkg/logger"
	"coffeeshop-service/pkg/validate"
	"coffeeshop-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterRequest defines the payload for account registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// LoginRequest defines the payload for credential verification
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new user account with a hashed password
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	// Roles are stored upper-case regardless of how the client spells them
	req.Role = strings.ToUpper(req.Role)
	if req.Role == "" {
		req.Role = model.RoleUser
	}

	if err := validate.Struct(&req); err != nil {
		log.Warn("Invalid registration data", zap.Error(err))
		prometheus.RecordAuthError("invalid_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Check if the username is already taken
	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	database.GetDB().Model(&model.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		log.Warn("Username already taken", zap.String("username", req.Username))
		prometheus.RecordAuthError("username_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "User with this username already exists"})
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     req.Role,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		// A concurrent registration can slip past the Count pre-check and
		// land on the unique username index instead
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			log.Warn("Username already taken", zap.String("username", req.Username))
			prometheus.RecordAuthError("username_already_exists")
			return c.JSON(http.StatusConflict, echo.Map{"error": "User with this username already exists"})
		}
		log.Error("Failed to create user", zap.Error(result.Error))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("User registered",
		zap.String("username", user.Username),
		zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

// Login verifies credentials and issues a signed token carrying id and role.
// Bad username and bad password produce the same response body so accounts
// cannot be enumerated.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("username = ?", req.Username).First(&user)
	if result.Error != nil {
		log.Warn("Login failed: user not found", zap.String("username", req.Username))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid username or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Login failed: wrong password", zap.String("username", req.Username))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid username or password"})
	}

	token, err := jwtutil.GenerateToken(user.ID, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.IncreaseActiveTokens()

	log.Info("User logged in",
		zap.String("username", user.Username),
		zap.String("role", user.Role))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"token":   token,
		"role":    user.Role,
	})
}

// Logout acknowledges the end of a session. Tokens are stateless, so the
// presented token stays valid until it expires.
func Logout(c echo.Context) error {
	log := logger.FromContext(c)

	userID, _ := c.Get("user_id").(uint)
	log.Info("User logged out", zap.Uint("user_id", userID))

	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}
