package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pointjournaliere/internal/core/domain"
	"pointjournaliere/internal/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

// Submit results reported to metrics
const (
	submitAccepted = "accepted"
	submitInvalid  = "invalid"
	submitRejected = "rejected"
	submitFailed   = "failed"
)

// SessionController owns the form session of one browser session:
// authentication, context, per-field edits, validation, submit and reset.
type SessionController struct {
	identity IdentityProvider
	gateway  Gateway
	receipts ReceiptRecorder
	metrics  *metrics.Metrics
	now      func() time.Time

	mu         sync.Mutex
	state      domain.State
	loading    bool
	submitting bool
	generation uint64
	lastError  string
	notice     string

	submits singleflight.Group
	revokes sync.WaitGroup
}

// ControllerOption customises a SessionController
type ControllerOption func(*SessionController)

// WithClock replaces time.Now
func WithClock(now func() time.Time) ControllerOption {
	return func(c *SessionController) {
		c.now = now
	}
}

// WithReceiptRecorder records accepted submissions
func WithReceiptRecorder(r ReceiptRecorder) ControllerOption {
	return func(c *SessionController) {
		if r != nil {
			c.receipts = r
		}
	}
}

// WithMetrics reports gateway and submit outcomes
func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *SessionController) {
		c.metrics = m
	}
}

// NewSessionController creates an unauthenticated session
func NewSessionController(identity IdentityProvider, gateway Gateway, opts ...ControllerOption) *SessionController {
	c := &SessionController{
		identity: identity,
		gateway:  gateway,
		receipts: NopReceiptRecorder{},
		now:      time.Now,
		state:    domain.Unauthenticated{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot is a copy of the session state, safe to render
type Snapshot struct {
	Phase      domain.Phase                 `json:"phase"`
	Loading    bool                         `json:"loading"`
	Submitting bool                         `json:"submitting"`
	Context    *domain.Context              `json:"context,omitempty"`
	Fields     map[string]domain.FieldState `json:"fields"`
	Error      string                       `json:"error,omitempty"`
	Notice     string                       `json:"notice,omitempty"`
}

// HasToken reports whether the user completed sign-in
func (s Snapshot) HasToken() bool {
	return s.Phase != "" && s.Phase != domain.PhaseUnauthenticated
}

// Services returns the services the form shows
func (s Snapshot) Services() []domain.Service {
	return s.Context.VisibleServices()
}

// Snapshot returns the current state
func (c *SessionController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:      c.state.Phase(),
		Loading:    c.loading,
		Submitting: c.submitting,
		Context:    domain.ContextOf(c.state).Clone(),
		Fields:     map[string]domain.FieldState{},
		Error:      c.lastError,
		Notice:     c.notice,
	}
	if st, ok := c.state.(domain.Authorized); ok {
		snap.Fields = domain.CloneFields(st.Fields)
	}
	return snap
}

// TakeNotice returns the pending notice and clears it
func (c *SessionController) TakeNotice() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	notice := c.notice
	c.notice = ""
	return notice
}

// SignIn verifies a credential with the identity provider and starts the session
func (c *SessionController) SignIn(ctx context.Context, credential string) error {
	identity, err := c.identity.SignIn(ctx, credential)
	if err != nil {
		c.setError(err)
		return err
	}
	log.Printf("🔑 Signed in: %s", identity.Email)
	return c.OnIdentityToken(ctx, identity.Token)
}

// OnIdentityToken stores a fresh identity token and loads its context.
// Whatever the previous state was, it is replaced.
func (c *SessionController) OnIdentityToken(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrInvalidCredential
	}

	c.mu.Lock()
	c.state = domain.ContextLoading{Token: token}
	c.lastError = ""
	c.mu.Unlock()

	return c.LoadContext(ctx)
}

// LoadContext fetches the context for the current token. It does nothing without a token.
// Only the response to the latest request is applied; older ones are dropped.
func (c *SessionController) LoadContext(ctx context.Context) error {
	c.mu.Lock()
	token := domain.TokenOf(c.state)
	if token == "" {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.loading = true
	c.lastError = ""
	c.mu.Unlock()

	loaded, err := c.gateway.GetContext(ctx, token)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.metrics.IncrementStaleResponses()
		log.Printf("⚠️ Dropped context response #%d (latest is #%d)", gen, c.generation)
		return nil
	}
	c.loading = false

	if err != nil {
		c.lastError = domain.DisplayMessage(err)
		log.Printf("❌ Context load failed: %v", err)
		return err
	}

	if loaded.Authorized {
		c.state = domain.Authorized{
			Token:   token,
			Context: loaded,
			Fields:  domain.ResetFields(loaded.Services),
		}
	} else {
		c.state = domain.Unauthorized{Token: token, Context: loaded}
	}
	return nil
}

// EditField stores the raw input of one field and stamps its edit time.
// Values are not validated here.
func (c *SessionController) EditField(serviceID, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.state.(domain.Authorized)
	if !ok {
		return c.stateErrorLocked()
	}
	field, ok := st.Fields[serviceID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownService, serviceID)
	}

	at := c.now().UnixMilli()
	if field.FilledAt != nil && *field.FilledAt > at {
		at = *field.FilledAt
	}
	field.Amount = domain.ParseAmount(raw)
	field.FilledAt = &at
	st.Fields[serviceID] = field
	return nil
}

// Submit validates every field and sends the batch. Concurrent calls share a single
// in-flight submission and all receive its result.
func (c *SessionController) Submit(ctx context.Context) (*domain.SubmitResult, error) {
	v, err, shared := c.submits.Do("submit", func() (interface{}, error) {
		return c.submit(ctx)
	})
	if shared {
		log.Printf("ℹ️ Submit joined an in-flight submission")
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.SubmitResult), nil
}

func (c *SessionController) submit(ctx context.Context) (*domain.SubmitResult, error) {
	c.mu.Lock()
	c.lastError = ""
	st, ok := c.state.(domain.Authorized)
	if !ok {
		err := c.stateErrorLocked()
		c.mu.Unlock()
		return nil, err
	}
	services := st.Context.Services
	if err := domain.ValidateFields(services, st.Fields); err != nil {
		c.lastError = err.Error()
		c.mu.Unlock()
		c.metrics.IncrementValidationFailures()
		c.metrics.ObserveSubmit(submitInvalid)
		return nil, err
	}
	items := domain.BuildItems(services, st.Fields)
	token := st.Token
	submitted := st.Context
	c.submitting = true
	c.mu.Unlock()

	result, err := c.gateway.Submit(ctx, token, items)
	if err == nil && !result.OK {
		err = &domain.BackendRejection{Message: result.Error}
	}

	c.mu.Lock()
	c.submitting = false
	current := domain.TokenOf(c.state) == token
	if err != nil {
		if current {
			c.lastError = domain.DisplayMessage(err)
		}
		c.mu.Unlock()
		var rejection *domain.BackendRejection
		if errors.As(err, &rejection) {
			c.metrics.ObserveSubmit(submitRejected)
		} else {
			c.metrics.ObserveSubmit(submitFailed)
		}
		log.Printf("❌ Submit failed: %v", err)
		return nil, err
	}
	if cur, ok := c.state.(domain.Authorized); ok && current {
		for id, f := range cur.Fields {
			f.FilledAt = nil
			cur.Fields[id] = f
		}
		c.notice = fmt.Sprintf("Enregistré: %d ligne(s) - %s %s UTC", result.Saved, result.DateUTC, result.TimeUTC)
	}
	c.mu.Unlock()

	c.metrics.ObserveSubmit(submitAccepted)
	log.Printf("✅ Submitted %d item(s) for %s (saved %d)", len(items), submitted.CentreName, result.Saved)

	receipt := domain.Receipt{
		Email:      submitted.Email,
		CentreName: submitted.CentreName,
		Saved:      result.Saved,
		DateUTC:    result.DateUTC,
		TimeUTC:    result.TimeUTC,
		ItemCount:  len(items),
	}
	if err := c.receipts.Record(ctx, receipt); err != nil {
		log.Printf("⚠️ Failed to record submission receipt: %v", err)
	}

	if current {
		// the submission is accepted even if the refresh fails; the error stays visible
		_ = c.LoadContext(ctx)
	}
	return result, nil
}

// SwitchAccount clears the whole session and asks the identity provider to revoke the
// last known account in the background. It returns that account's email, empty when
// none was known.
func (c *SessionController) SwitchAccount(ctx context.Context) string {
	c.mu.Lock()
	var email string
	if cx := domain.ContextOf(c.state); cx != nil {
		email = cx.Email
	}
	c.state = domain.Unauthenticated{}
	c.generation++
	c.loading = false
	c.lastError = ""
	c.notice = ""
	c.mu.Unlock()

	if email == "" {
		return ""
	}

	c.revokes.Add(1)
	go func() {
		defer c.revokes.Done()
		if err := c.identity.Revoke(context.WithoutCancel(ctx), email); err != nil {
			log.Printf("⚠️ Revoke failed for %s: %v", email, err)
			return
		}
		log.Printf("👋 Revoked account binding: %s", email)
	}()
	return email
}

// Wait blocks until background revocations are done
func (c *SessionController) Wait() {
	c.revokes.Wait()
}

func (c *SessionController) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = domain.DisplayMessage(err)
}

func (c *SessionController) stateErrorLocked() error {
	if _, ok := c.state.(domain.Unauthenticated); ok {
		return domain.ErrNotAuthenticated
	}
	return domain.ErrNotAuthorized
}
