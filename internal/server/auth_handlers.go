package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"echoverse/internal/i18n"
	"echoverse/internal/middleware"
	"echoverse/internal/models"
	"echoverse/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// localized builds an AppError whose message is translated for the request.
func localized(code, lang, key string) *models.AppError {
	return &models.AppError{Code: code, Message: i18n.T(lang, key)}
}

// Signup handles POST /api/auth/signup. The account starts unverified; a
// verification link is emailed and login is refused until it is used.
func (s *Server) Signup(c *fiber.Ctx) error {
	lang := requestLang(c)

	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := validation.ValidateName(req.Name); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			localized("VALIDATION_ERROR", lang, "invalid_email"))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if req.Password != req.PasswordConfirm {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Passwords do not match"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.userRepo.GetByEmail(c.Context(), email)
	if err != nil {
		return models.RespondError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			localized("CONFLICT", lang, "email_registered"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleMember,
	}
	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		return models.RespondError(c, createErr)
	}

	token, err := s.tokenRepo.Issue(c.Context(), user.ID,
		models.TokenPurposeVerifyEmail, "", models.VerifyTokenTTL)
	if err != nil {
		return models.RespondError(c, err)
	}

	verifyURL := fmt.Sprintf("%s/api/auth/verify/%s", s.config.BaseURL, token.Token)
	if mailErr := s.mailer.SendVerificationEmail(user.Email, user.Name, verifyURL); mailErr != nil {
		// The account exists either way; the user can ask for a new link.
		middleware.Logger.WarnContext(c.UserContext(), "verification email failed",
			slog.Any("user_id", user.ID), slog.String("error", mailErr.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": i18n.T(lang, "signup_success"),
		"user":    user,
	})
}

// VerifyEmail handles GET /api/auth/verify/:token
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	lang := requestLang(c)

	token, err := s.tokenRepo.Consume(c.Context(), c.Params("token"), models.TokenPurposeVerifyEmail)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "INVALID_TOKEN" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				localized("INVALID_TOKEN", lang, "invalid_link"))
		}
		return models.RespondError(c, err)
	}

	if err := s.userRepo.SetVerified(c.Context(), token.UserID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": i18n.T(lang, "email_verified")})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	lang := requestLang(c)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			localized("UNAUTHORIZED", lang, "user_not_found"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			localized("UNAUTHORIZED", lang, "invalid_credentials"))
	}

	if !user.IsVerified {
		return models.RespondWithError(c, fiber.StatusForbidden,
			localized("FORBIDDEN", lang, "email_not_verified"))
	}
	if user.IsBlocked {
		return models.RespondWithError(c, fiber.StatusForbidden,
			localized("FORBIDDEN", lang, "account_blocked"))
	}

	token, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout. The token's JTI is blacklisted in
// Redis until its natural expiry so it cannot be replayed.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	exp, _ := c.Locals("exp").(int64)

	if jti != "" && s.redis != nil {
		ttl := time.Until(time.Unix(exp, 0))
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl).Err(); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token blacklist failed",
				slog.String("error", err.Error()))
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// ForgotPassword handles POST /api/auth/forgot-password. The response does
// not reveal whether the address is registered.
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	lang := requestLang(c)

	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondError(c, err)
	}
	if user != nil && !user.IsBlocked {
		token, issueErr := s.tokenRepo.Issue(c.Context(), user.ID,
			models.TokenPurposeResetPassword, "", models.ResetTokenTTL)
		if issueErr != nil {
			return models.RespondError(c, issueErr)
		}
		resetURL := fmt.Sprintf("%s/reset-password/%s", s.config.BaseURL, token.Token)
		if mailErr := s.mailer.SendPasswordResetEmail(user.Email, user.Name, resetURL); mailErr != nil {
			middleware.Logger.WarnContext(c.UserContext(), "password reset email failed",
				slog.Any("user_id", user.ID), slog.String("error", mailErr.Error()))
		}
	}

	return c.JSON(fiber.Map{"message": i18n.T(lang, "password_reset_sent")})
}

// ResetPassword handles POST /api/auth/reset-password/:token
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	lang := requestLang(c)

	var req struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if req.Password != req.PasswordConfirm {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Passwords do not match"))
	}

	token, err := s.tokenRepo.Consume(c.Context(), c.Params("token"), models.TokenPurposeResetPassword)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "INVALID_TOKEN" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				localized("INVALID_TOKEN", lang, "invalid_link"))
		}
		return models.RespondError(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if err := s.userRepo.UpdatePassword(c.Context(), token.UserID, string(hashedPassword)); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": i18n.T(lang, "password_updated")})
}

// ChangePassword handles POST /api/auth/change-password. The password is
// not changed inline; a reset link is mailed to the account's address and
// the change goes through the same token path as forgot-password.
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	lang := requestLang(c)
	userID := c.Locals("userID").(uint)

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.tokenRepo.Issue(c.Context(), user.ID,
		models.TokenPurposeResetPassword, "", models.ResetTokenTTL)
	if err != nil {
		return models.RespondError(c, err)
	}
	resetURL := fmt.Sprintf("%s/reset-password/%s", s.config.BaseURL, token.Token)
	if mailErr := s.mailer.SendPasswordResetEmail(user.Email, user.Name, resetURL); mailErr != nil {
		middleware.Logger.WarnContext(c.UserContext(), "password change email failed",
			slog.Any("user_id", user.ID), slog.String("error", mailErr.Error()))
	}

	return c.JSON(fiber.Map{"message": i18n.T(lang, "password_reset_sent")})
}

// RequestEmailChange handles POST /api/auth/change-email. The new address
// only takes effect once the link mailed to it is confirmed.
func (s *Server) RequestEmailChange(c *fiber.Ctx) error {
	lang := requestLang(c)
	userID := c.Locals("userID").(uint)

	var req struct {
		NewEmail string `json:"new_email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateEmail(req.NewEmail); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			localized("VALIDATION_ERROR", lang, "invalid_email"))
	}

	newEmail := strings.ToLower(strings.TrimSpace(req.NewEmail))
	existing, err := s.userRepo.GetByEmail(c.Context(), newEmail)
	if err != nil {
		return models.RespondError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			localized("CONFLICT", lang, "email_registered"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.tokenRepo.Issue(c.Context(), userID,
		models.TokenPurposeChangeEmail, newEmail, models.VerifyTokenTTL)
	if err != nil {
		return models.RespondError(c, err)
	}

	confirmURL := fmt.Sprintf("%s/api/auth/confirm-email/%s", s.config.BaseURL, token.Token)
	if mailErr := s.mailer.SendEmailChangeEmail(newEmail, user.Name, confirmURL); mailErr != nil {
		middleware.Logger.WarnContext(c.UserContext(), "email change email failed",
			slog.Any("user_id", userID), slog.String("error", mailErr.Error()))
	}

	return c.JSON(fiber.Map{"message": i18n.T(lang, "email_change_sent")})
}

// ConfirmEmailChange handles GET /api/auth/confirm-email/:token
func (s *Server) ConfirmEmailChange(c *fiber.Ctx) error {
	lang := requestLang(c)

	_, err := s.tokenRepo.ConsumeEmailChange(c.Context(), c.Params("token"))
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case "INVALID_TOKEN":
				return models.RespondWithError(c, fiber.StatusBadRequest,
					localized("INVALID_TOKEN", lang, "invalid_link"))
			case "CONFLICT":
				return models.RespondWithError(c, fiber.StatusConflict,
					localized("CONFLICT", lang, "email_registered"))
			}
		}
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": i18n.T(lang, "email_updated")})
}

// generateToken creates a JWT token for the given user
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10), // Subject (user ID as string)
		"name": user.Name,                               // Display name (cached in token)
		"role": user.Role,                               // Role (cached; DB re-checked on admin routes)
		"iss":  "echoverse-api",                         // Issuer
		"aud":  "echoverse-client",                      // Audience
		"exp":  now.Add(time.Hour * 24 * 7).Unix(),      // Expiration (7 days)
		"iat":  now.Unix(),                              // Issued at
		"nbf":  now.Unix(),                              // Not before
		"jti":  s.generateJTI(),                         // JWT ID (unique identifier)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
