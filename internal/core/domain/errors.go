package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNetwork           = errors.New("backend unreachable")
	ErrMalformedResponse = errors.New("malformed backend response")
	ErrTokenExpired      = errors.New("token expired")
)

// Session errors
var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrUnknownService    = errors.New("unknown service")
	ErrInvalidCredential = errors.New("invalid identity credential")
)

// GenericBackendError is shown when the backend rejects a request without a message
const GenericBackendError = "Erreur"

// ValidationError is a local field validation failure; it never reaches the network
type ValidationError struct {
	ServiceID  string
	NomService string
	Message    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewInvalidAmountError reports an unset, non-numeric or negative amount
func NewInvalidAmountError(s Service) *ValidationError {
	return &ValidationError{
		ServiceID:  s.ServiceID,
		NomService: s.NomService,
		Message:    fmt.Sprintf("Montant invalide pour: %s", s.NomService),
	}
}

// NewUntouchedFieldError reports a field that was not edited since the last reset
func NewUntouchedFieldError(s Service) *ValidationError {
	return &ValidationError{
		ServiceID:  s.ServiceID,
		NomService: s.NomService,
		Message:    fmt.Sprintf("Veuillez renseigner (modifier) le champ pour: %s", s.NomService),
	}
}

// BackendRejection is an ok:false answer from the backend
type BackendRejection struct {
	Message string
}

func (e *BackendRejection) Error() string {
	if e.Message == "" {
		return GenericBackendError
	}
	return e.Message
}

// DisplayMessage turns any error into the single string shown to the user
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var rejection *BackendRejection
	if errors.As(err, &rejection) {
		return rejection.Error()
	}
	return err.Error()
}
