package handlers

import (
	"errors"
	"log"

	"pointjournaliere/internal/adapters/http/middleware"
	"pointjournaliere/internal/core/domain"
	"pointjournaliere/internal/core/services"
	"pointjournaliere/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// SessionHandler exposes the form session intents as a JSON API
type SessionHandler struct{}

// NewSessionHandler creates a new session handler
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// EditFieldRequest represents the field edit body
type EditFieldRequest struct {
	Value string `json:"value"`
}

// SubmitResponse is returned by a successful submit
type SubmitResponse struct {
	Result  *domain.SubmitResult `json:"result"`
	Session services.Snapshot    `json:"session"`
}

// SwitchAccountResponse carries the account the page must also revoke with Google
type SwitchAccountResponse struct {
	RevokeEmail string            `json:"revokeEmail,omitempty"`
	Session     services.Snapshot `json:"session"`
}

// Get returns the session state
// @Summary Get session
// @Description Returns the form session state of the browser
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response{data=services.Snapshot}
// @Router /api/v1/session [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	return response.Success(c, "Session", middleware.SessionFrom(c).Snapshot())
}

// Refresh reloads the context of the signed-in user
// @Summary Refresh context
// @Description Fetches the authorization context again. Unsaved edits are reset.
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response{data=services.Snapshot}
// @Failure 502 {object} response.Response
// @Router /api/v1/session/refresh [post]
func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if err := session.LoadContext(c.UserContext()); err != nil {
		return sessionError(c, err)
	}
	return response.Success(c, "Context loaded", session.Snapshot())
}

// EditField stores one amount
// @Summary Edit field
// @Description Stores the raw amount typed for a service and stamps its edit time
// @Tags Session
// @Accept json
// @Produce json
// @Param serviceId path string true "Service ID"
// @Param body body EditFieldRequest true "Raw input"
// @Success 200 {object} response.Response{data=services.Snapshot}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/session/fields/{serviceId} [put]
func (h *SessionHandler) EditField(c *fiber.Ctx) error {
	var req EditFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := middleware.SessionFrom(c)
	if err := session.EditField(utils.CopyString(c.Params("serviceId")), req.Value); err != nil {
		return sessionError(c, err)
	}
	return response.Success(c, "Field updated", session.Snapshot())
}

// Submit validates and sends the filled amounts
// @Summary Submit amounts
// @Description Validates every field in context order and sends the batch to the backend
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response{data=SubmitResponse}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/session/submit [post]
func (h *SessionHandler) Submit(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	result, err := session.Submit(c.UserContext())
	if err != nil {
		return sessionError(c, err)
	}
	return response.Success(c, "Submitted", SubmitResponse{
		Result:  result,
		Session: session.Snapshot(),
	})
}

// SwitchAccount clears the session and revokes the previous account
// @Summary Switch account
// @Description Drops token, context and fields. The server forgets the previous binding in the background
// @Description and returns its email so the page can revoke it with Google Identity Services.
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response{data=SwitchAccountResponse}
// @Router /api/v1/session/switch-account [post]
func (h *SessionHandler) SwitchAccount(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	email := session.SwitchAccount(c.UserContext())
	return response.Success(c, "Signed out", SwitchAccountResponse{
		RevokeEmail: email,
		Session:     session.Snapshot(),
	})
}

// sessionError maps controller errors to HTTP answers
func sessionError(c *fiber.Ctx, err error) error {
	var validation *domain.ValidationError
	var rejection *domain.BackendRejection

	switch {
	case errors.As(err, &validation):
		return response.UnprocessableEntity(c, validation.Error())
	case errors.As(err, &rejection):
		return response.BadGateway(c, rejection.Error())
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, domain.ErrMalformedResponse):
		return response.BadGateway(c, domain.DisplayMessage(err))
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrNotAuthorized):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrUnknownService):
		return response.NotFound(c, err.Error())
	default:
		log.Printf("❌ Unexpected session error: %v", err)
		return response.InternalServerError(c, "Internal Server Error")
	}
}
