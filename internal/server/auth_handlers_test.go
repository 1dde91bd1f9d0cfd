package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"echoverse/internal/i18n"
	"echoverse/internal/models"

	"github.com/gofiber/fiber/v2"
)

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func lastURLSegment(url string) string {
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

func newAuthApp(s *Server) *fiber.App {
	app := fiber.New()
	app.Post("/api/auth/signup", s.Signup)
	app.Get("/api/auth/verify/:token", s.VerifyEmail)
	app.Post("/api/auth/login", s.Login)
	app.Post("/api/auth/forgot-password", s.ForgotPassword)
	app.Post("/api/auth/reset-password/:token", s.ResetPassword)
	app.Get("/api/auth/confirm-email/:token", s.ConfirmEmailChange)
	return app
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	t.Parallel()
	s, mailer, _ := setupTestServer(t)
	app := newAuthApp(s)

	signupBody := map[string]string{
		"name":             "Nina Echo",
		"email":            "Nina@Example.com",
		"password":         "hunter22",
		"password_confirm": "hunter22",
	}
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/signup", signupBody))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}

	var user models.User
	if err := s.db.Where("email = ?", "nina@example.com").First(&user).Error; err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if user.IsVerified {
		t.Error("account must start unverified")
	}
	if len(mailer.verifications) != 1 {
		t.Fatalf("expected 1 verification email, got %d", len(mailer.verifications))
	}

	loginBody := map[string]string{"email": "nina@example.com", "password": "hunter22"}

	t.Run("login before verification", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", loginBody))
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})

	token := lastURLSegment(mailer.verifications[0])
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/verify/"+token, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d", resp.StatusCode)
	}

	t.Run("login after verification", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", loginBody))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var body struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Token == "" {
			t.Error("expected a JWT in the response")
		}
		if body.User.Email != "nina@example.com" {
			t.Errorf("unexpected user in response: %s", body.User.Email)
		}
	})

	t.Run("verification link is single use", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/verify/"+token, nil))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for spent link, got %d", resp.StatusCode)
		}
	})

	t.Run("duplicate signup", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/signup", signupBody))
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected 409, got %d", resp.StatusCode)
		}
	})
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()
	s, _, _ := setupTestServer(t)
	app := newAuthApp(s)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"name": "Ok Name", "email": "nope", "password": "hunter22", "password_confirm": "hunter22"}},
		{"short password", map[string]string{"name": "Ok Name", "email": "a@b.com", "password": "abc", "password_confirm": "abc"}},
		{"mismatched confirmation", map[string]string{"name": "Ok Name", "email": "a@b.com", "password": "hunter22", "password_confirm": "hunter23"}},
		{"short name", map[string]string{"name": "X", "email": "a@b.com", "password": "hunter22", "password_confirm": "hunter22"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/signup", tt.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestSignupLocalizedError(t *testing.T) {
	t.Parallel()
	s, _, _ := setupTestServer(t)
	app := newAuthApp(s)

	req := jsonRequest(http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Ok Name", "email": "nope", "password": "hunter22", "password_confirm": "hunter22",
	})
	req.Header.Set("X-Language", "dk")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != i18n.T("dk", "invalid_email") {
		t.Errorf("expected Danish message, got %q", body.Error)
	}
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()
	s, _, _ := setupTestServer(t)
	app := newAuthApp(s)
	user := createVerifiedUser(t, s, "loginfail", "hunter22")

	t.Run("unknown email", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/login",
			map[string]string{"email": "ghost@example.com", "password": "hunter22"}))
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/login",
			map[string]string{"email": user.Email, "password": "wrong"}))
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("blocked account", func(t *testing.T) {
		if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_blocked", true).Error; err != nil {
			t.Fatalf("block: %v", err)
		}
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/login",
			map[string]string{"email": user.Email, "password": "hunter22"}))
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()
	s, mailer, _ := setupTestServer(t)
	app := newAuthApp(s)
	user := createVerifiedUser(t, s, "resetter", "oldpass1")

	t.Run("unknown address gets the same answer", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/forgot-password",
			map[string]string{"email": "ghost@example.com"}))
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if len(mailer.resets) != 0 {
			t.Error("no email should go out for an unknown address")
		}
	})

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/forgot-password",
		map[string]string{"email": user.Email}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forgot: expected 200, got %d", resp.StatusCode)
	}
	if len(mailer.resets) != 1 {
		t.Fatalf("expected 1 reset email, got %d", len(mailer.resets))
	}

	token := lastURLSegment(mailer.resets[0])
	resp, _ = app.Test(jsonRequest(http.MethodPost, "/api/auth/reset-password/"+token,
		map[string]string{"password": "newpass1", "password_confirm": "newpass1"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", resp.StatusCode)
	}

	t.Run("new password works", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/login",
			map[string]string{"email": user.Email, "password": "newpass1"}))
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("reset link is single use", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/reset-password/"+token,
			map[string]string{"password": "another1", "password_confirm": "another1"}))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestEmailChangeFlow(t *testing.T) {
	t.Parallel()
	s, mailer, _ := setupTestServer(t)
	user := createVerifiedUser(t, s, "movingon", "hunter22")

	app := fiber.New()
	app.Post("/api/auth/change-email", func(c *fiber.Ctx) error {
		c.Locals("userID", user.ID)
		return s.RequestEmailChange(c)
	})
	app.Get("/api/auth/confirm-email/:token", s.ConfirmEmailChange)

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/change-email",
		map[string]string{"new_email": "newhome@example.com"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("request change: expected 200, got %d", resp.StatusCode)
	}
	if len(mailer.emailChanges) != 1 {
		t.Fatalf("expected 1 change email, got %d", len(mailer.emailChanges))
	}

	token := lastURLSegment(mailer.emailChanges[0])

	t.Run("conflict at confirmation time", func(t *testing.T) {
		squatter := createVerifiedUser(t, s, "squatter", "hunter22")
		if err := s.db.Model(&models.User{}).Where("id = ?", squatter.ID).
			Update("email", "newhome@example.com").Error; err != nil {
			t.Fatalf("claim address: %v", err)
		}
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/confirm-email/"+token, nil))
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected 409, got %d", resp.StatusCode)
		}

		// free the address again; the token survived the conflict
		if err := s.db.Model(&models.User{}).Where("id = ?", squatter.ID).
			Update("email", "squatter@example.com").Error; err != nil {
			t.Fatalf("release address: %v", err)
		}
	})

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/confirm-email/"+token, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}
	var updated models.User
	if err := s.db.First(&updated, user.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if updated.Email != "newhome@example.com" {
		t.Errorf("expected new email applied, got %s", updated.Email)
	}
}

func TestChangePasswordMailsResetLink(t *testing.T) {
	t.Parallel()
	s, mailer, _ := setupTestServer(t)
	user := createVerifiedUser(t, s, "rotator", "hunter22")

	app := fiber.New()
	app.Post("/api/auth/change-password", func(c *fiber.Ctx) error {
		c.Locals("userID", user.ID)
		return s.ChangePassword(c)
	})
	app.Post("/api/auth/reset-password/:token", s.ResetPassword)

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/change-password", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d", resp.StatusCode)
	}
	if len(mailer.resets) != 1 {
		t.Fatalf("expected 1 reset email, got %d", len(mailer.resets))
	}

	// The mailed link goes through the regular reset path.
	token := lastURLSegment(mailer.resets[0])
	resp, _ = app.Test(jsonRequest(http.MethodPost, "/api/auth/reset-password/"+token,
		map[string]string{"password": "hunter33", "password_confirm": "hunter33"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", resp.StatusCode)
	}
}
