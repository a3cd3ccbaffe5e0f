package handlers

import (
	"crypto/subtle"
	"errors"

	"pointjournaliere/internal/adapters/http/middleware"
	"pointjournaliere/internal/core/domain"
	"pointjournaliere/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// AuthHandler handles the Google sign-in callback
type AuthHandler struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// GoogleCallback verifies the posted ID token and loads the session context
// @Summary Google sign-in callback
// @Description Receives the Google ID token (credential) and starts the form session
// @Tags Auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param credential formData string true "Google ID token"
// @Param g_csrf_token formData string true "Double-submit CSRF token"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /auth/google [post]
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	cookie := c.Cookies(csrfCookie)
	field := c.FormValue(csrfCookie)
	if cookie == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(field)) != 1 {
		return response.BadRequest(c, "Failed to verify double submit cookie")
	}

	credential := utils.CopyString(c.FormValue("credential"))
	if credential == "" {
		return response.BadRequest(c, "Credential is required")
	}

	session := middleware.SessionFrom(c)
	if err := session.SignIn(c.UserContext(), credential); err != nil {
		if errors.Is(err, domain.ErrInvalidCredential) {
			return response.Error(c, fiber.StatusUnauthorized, domain.DisplayMessage(err))
		}
		return sessionError(c, err)
	}

	return response.Success(c, "Signed in", session.Snapshot())
}
