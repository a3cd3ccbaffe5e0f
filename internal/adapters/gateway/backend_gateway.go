package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pointjournaliere/internal/core/domain"
	"pointjournaliere/internal/pkg/metrics"
)

// Backend actions
const (
	ActionGetContext = "getContext"
	ActionSubmit     = "submit"
)

// contentType keeps the request "simple" for Apps Script web apps (no CORS preflight)
const contentType = "text/plain;charset=utf-8"

// BackendConfig holds backend gateway configuration
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// BackendGateway posts JSON actions to the single backend endpoint
type BackendGateway struct {
	config  BackendConfig
	client  *http.Client
	metrics *metrics.Metrics
}

// ContextRequest is the getContext body
type ContextRequest struct {
	Action  string `json:"action"`
	IDToken string `json:"id_token"`
}

// SubmitRequest is the submit body
type SubmitRequest struct {
	Action  string              `json:"action"`
	IDToken string              `json:"id_token"`
	Items   []domain.SubmitItem `json:"items"`
}

type contextResponse struct {
	Authorized     *bool            `json:"authorized"`
	CentreName     string           `json:"centreName"`
	Email          string           `json:"email"`
	NomUtilisateur string           `json:"nomUtilisateur"`
	Services       []domain.Service `json:"services"`
}

type submitResponse struct {
	OK      *bool  `json:"ok"`
	Error   string `json:"error"`
	Saved   int    `json:"saved"`
	DateUTC string `json:"dateUtc"`
	TimeUTC string `json:"timeUtc"`
}

// NewBackendGateway creates a new backend gateway
func NewBackendGateway(cfg BackendConfig, m *metrics.Metrics) *BackendGateway {
	return &BackendGateway{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
	}
}

// GetContext fetches the authorization context of the signed-in user
func (g *BackendGateway) GetContext(ctx context.Context, idToken string) (*domain.Context, error) {
	var resp contextResponse
	req := ContextRequest{Action: ActionGetContext, IDToken: idToken}
	if err := g.send(ctx, ActionGetContext, req, &resp); err != nil {
		return nil, err
	}
	if resp.Authorized == nil {
		g.metrics.ObserveGateway(ActionGetContext, metrics.OutcomeMalformed)
		return nil, fmt.Errorf("%w: missing authorized flag", domain.ErrMalformedResponse)
	}

	g.metrics.ObserveGateway(ActionGetContext, metrics.OutcomeOK)
	return &domain.Context{
		Authorized:     *resp.Authorized,
		CentreName:     resp.CentreName,
		Email:          resp.Email,
		NomUtilisateur: resp.NomUtilisateur,
		Services:       resp.Services,
	}, nil
}

// Submit sends the filled amounts. An ok:false answer is returned as a result, not an error.
func (g *BackendGateway) Submit(ctx context.Context, idToken string, items []domain.SubmitItem) (*domain.SubmitResult, error) {
	var resp submitResponse
	req := SubmitRequest{Action: ActionSubmit, IDToken: idToken, Items: items}
	if req.Items == nil {
		req.Items = []domain.SubmitItem{}
	}
	if err := g.send(ctx, ActionSubmit, req, &resp); err != nil {
		return nil, err
	}
	if resp.OK == nil {
		g.metrics.ObserveGateway(ActionSubmit, metrics.OutcomeMalformed)
		return nil, fmt.Errorf("%w: missing ok flag", domain.ErrMalformedResponse)
	}

	outcome := metrics.OutcomeOK
	if !*resp.OK {
		outcome = metrics.OutcomeRejected
	}
	g.metrics.ObserveGateway(ActionSubmit, outcome)

	return &domain.SubmitResult{
		OK:      *resp.OK,
		Error:   resp.Error,
		Saved:   resp.Saved,
		DateUTC: resp.DateUTC,
		TimeUTC: resp.TimeUTC,
	}, nil
}

// send performs one POST exchange and decodes the JSON answer into out
func (g *BackendGateway) send(ctx context.Context, action string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.ObserveGateway(action, metrics.OutcomeNetwork)
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		g.metrics.ObserveGateway(action, metrics.OutcomeNetwork)
		return fmt.Errorf("%w: read response: %v", domain.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.metrics.ObserveGateway(action, metrics.OutcomeNetwork)
		return fmt.Errorf("%w: backend answered %d", domain.ErrNetwork, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		g.metrics.ObserveGateway(action, metrics.OutcomeMalformed)
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
