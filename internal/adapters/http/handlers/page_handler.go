package handlers

import (
	"bytes"
	"log"
	"time"

	"pointjournaliere/internal/adapters/http/middleware"
	"pointjournaliere/internal/adapters/http/views"
	"pointjournaliere/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// csrfCookie is the double-submit cookie checked by the sign-in callback
const csrfCookie = "g_csrf_token"

// PageHandler renders the single page of the application
type PageHandler struct {
	cfg *config.Config
	now func() time.Time
}

// NewPageHandler creates a new page handler
func NewPageHandler(cfg *config.Config, now func() time.Time) *PageHandler {
	if now == nil {
		now = time.Now
	}
	return &PageHandler{cfg: cfg, now: now}
}

// Index renders the screen matching the session state
// @Summary Form page
// @Description Renders sign-in, loading, access denied or the daily form
// @Tags Page
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router / [get]
func (h *PageHandler) Index(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	snap := session.Snapshot()
	snap.Notice = session.TakeNotice()

	if c.Cookies(csrfCookie) == "" {
		c.Cookie(&fiber.Cookie{
			Name:     csrfCookie,
			Value:    uuid.NewString(),
			Path:     "/",
			Secure:   h.cfg.Cookie.Secure,
			SameSite: fiber.CookieSameSiteStrictMode,
			Domain:   h.cfg.Cookie.Domain,
		})
	}

	page := views.Build(snap, h.now(), views.Options{
		ClientID: h.cfg.Google.ClientID,
		LoginURI: "/auth/google",
	})

	var buf bytes.Buffer
	if err := views.Render(&buf, page); err != nil {
		log.Printf("❌ Failed to render %s page: %v", page.Kind, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
