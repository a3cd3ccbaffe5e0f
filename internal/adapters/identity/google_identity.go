package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"pointjournaliere/internal/core/domain"

	"github.com/coreos/go-oidc/v3/oidc"
)

// GoogleIssuer is used when no issuer is configured
const GoogleIssuer = "https://accounts.google.com"

// GoogleConfig holds Google Identity Services configuration
type GoogleConfig struct {
	ClientID  string
	IssuerURL string
	Timeout   time.Duration
}

// GoogleIdentity verifies Google ID tokens and keeps the account bindings of this server.
// The page revokes the account on Google's side with google.accounts.id.revoke.
type GoogleIdentity struct {
	verifier *oidc.IDTokenVerifier

	mu       sync.Mutex
	bindings map[string]string // email -> last verified ID token
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewGoogleIdentity discovers the issuer configuration and builds a verifier for clientID
func NewGoogleIdentity(ctx context.Context, cfg GoogleConfig) (*GoogleIdentity, error) {
	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = GoogleIssuer
	}
	client := &http.Client{Timeout: cfg.Timeout}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return NewGoogleIdentityWithVerifier(verifier), nil
}

// NewGoogleIdentityWithVerifier builds the adapter around an existing verifier
func NewGoogleIdentityWithVerifier(verifier *oidc.IDTokenVerifier) *GoogleIdentity {
	return &GoogleIdentity{
		verifier: verifier,
		bindings: make(map[string]string),
	}
}

// SignIn verifies the ID token posted by the sign-in button
func (g *GoogleIdentity) SignIn(ctx context.Context, credential string) (*domain.Identity, error) {
	if credential == "" {
		return nil, domain.ErrInvalidCredential
	}

	token, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredential, domain.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
	}

	var claims googleClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: claims extraction failed: %v", domain.ErrInvalidCredential, err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email missing or not verified", domain.ErrInvalidCredential)
	}

	g.mu.Lock()
	g.bindings[strings.ToLower(claims.Email)] = credential
	g.mu.Unlock()

	return &domain.Identity{
		Token:     credential,
		Subject:   token.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		ExpiresAt: token.Expiry,
	}, nil
}

// Revoke forgets the token remembered for email. Unknown emails are ignored.
func (g *GoogleIdentity) Revoke(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := strings.ToLower(email)
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.bindings, key)
	return nil
}

// Bound reports whether a verified token is remembered for email
func (g *GoogleIdentity) Bound(email string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.bindings[strings.ToLower(email)]
	return ok
}
