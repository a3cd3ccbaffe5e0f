package middleware

import (
	"log"
	"time"

	"pointjournaliere/internal/config"
	"pointjournaliere/internal/core/services"
	"pointjournaliere/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localsSession   = "session"
	localsSessionID = "sessionID"
)

// Session binds the request to the controller of its browser session.
// A missing, expired or forged cookie starts a new session.
func Session(cfg *config.Config, registry *services.SessionRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sessionID string
		reissue := true

		if raw := c.Cookies(cfg.Session.CookieName); raw != "" {
			claims, err := jwt.ValidateSessionToken(raw, cfg.Session.Secret)
			if err == nil && claims.ExpiresAt != nil {
				sessionID = claims.SessionID
				// renew once half of the lifetime is gone
				reissue = time.Until(claims.ExpiresAt.Time) < cfg.Session.IdleTTL/2
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		controller, created := registry.GetOrCreate(sessionID)
		if created {
			log.Printf("🆕 Session started: %s", sessionID)
		}

		if reissue {
			token, err := jwt.GenerateSessionToken(sessionID, cfg.Session.Secret, cfg.Session.IdleTTL)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Failed to issue session")
			}
			c.Cookie(&fiber.Cookie{
				Name:     cfg.Session.CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(cfg.Session.IdleTTL.Seconds()),
				Secure:   cfg.Cookie.Secure,
				HTTPOnly: true,
				SameSite: cfg.Cookie.SameSite,
				Domain:   cfg.Cookie.Domain,
			})
		}

		c.Locals(localsSession, controller)
		c.Locals(localsSessionID, sessionID)
		return c.Next()
	}
}

// SessionFrom returns the controller bound by Session
func SessionFrom(c *fiber.Ctx) *services.SessionController {
	controller, _ := c.Locals(localsSession).(*services.SessionController)
	return controller
}

// SessionIDFrom returns the session id bound by Session
func SessionIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localsSessionID).(string)
	return id
}
