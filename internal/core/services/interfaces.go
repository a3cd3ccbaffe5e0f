package services

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks IdentityProvider,Gateway,ReceiptRecorder

import (
	"context"

	"pointjournaliere/internal/core/domain"
)

// IdentityProvider wraps the external sign-in provider
type IdentityProvider interface {
	// SignIn verifies the credential posted back by the sign-in widget
	SignIn(ctx context.Context, credential string) (*domain.Identity, error)
	// Revoke drops the provider binding of an account
	Revoke(ctx context.Context, email string) error
}

// Gateway sends actions to the remote backend
type Gateway interface {
	GetContext(ctx context.Context, idToken string) (*domain.Context, error)
	Submit(ctx context.Context, idToken string, items []domain.SubmitItem) (*domain.SubmitResult, error)
}

// ReceiptRecorder keeps a trace of accepted submissions
type ReceiptRecorder interface {
	Record(ctx context.Context, receipt domain.Receipt) error
}

// NopReceiptRecorder discards receipts
type NopReceiptRecorder struct{}

// Record does nothing
func (NopReceiptRecorder) Record(context.Context, domain.Receipt) error { return nil }
