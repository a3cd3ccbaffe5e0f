package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Service is one billable category of a centre
type Service struct {
	ServiceID  string          `json:"serviceId"`
	NomService string          `json:"nomService"`
	RawID      json.RawMessage `json:"-"` // set when the backend sent a numeric id
}

// Context is the authorization + service list snapshot fetched from the backend
type Context struct {
	Authorized     bool      `json:"authorized"`
	CentreName     string    `json:"centreName"`
	Email          string    `json:"email"`
	NomUtilisateur string    `json:"nomUtilisateur"`
	Services       []Service `json:"services"`
}

// VisibleServices returns the services that can be edited.
// An unauthorized context never exposes its services.
func (c *Context) VisibleServices() []Service {
	if c == nil || !c.Authorized {
		return nil
	}
	return c.Services
}

// Clone returns a deep copy of the context
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	out.Services = append([]Service(nil), c.Services...)
	return &out
}

// Amount is the value typed into a field.
// Set=false is the "unset" sentinel (empty input); a non-numeric input is kept as NaN.
type Amount struct {
	Raw   string  `json:"raw"`
	Value float64 `json:"-"`
	Set   bool    `json:"set"`
}

// ZeroAmount is the value every field starts with after a context load
func ZeroAmount() Amount {
	return Amount{Raw: "0", Value: 0, Set: true}
}

// ParseAmount coerces raw input the way a number field does: empty maps to unset,
// anything that is not a finite decimal number becomes NaN.
func ParseAmount(raw string) Amount {
	trimmed := strings.TrimSpace(raw)
	if raw == "" {
		return Amount{}
	}
	if trimmed == "" {
		return Amount{Raw: raw, Value: 0, Set: true}
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(v, 0) || isWordNumber(trimmed) {
		return Amount{Raw: raw, Value: math.NaN(), Set: true}
	}
	return Amount{Raw: raw, Value: v, Set: true}
}

// isWordNumber rejects the spellings ParseFloat accepts but a number field does not
func isWordNumber(s string) bool {
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return true
	}
	return false
}

// IsNumber reports whether the amount holds a finite number
func (a Amount) IsNumber() bool {
	return a.Set && !math.IsNaN(a.Value) && !math.IsInf(a.Value, 0)
}

// FieldState is the per-service edit record
type FieldState struct {
	Amount   Amount `json:"amount"`
	FilledAt *int64 `json:"filledAt,omitempty"` // epoch ms of the last edit
}

// Touched reports whether the field was edited since the last reset
func (f FieldState) Touched() bool {
	return f.FilledAt != nil
}

// Identity is what the identity provider hands back after a successful sign-in
type Identity struct {
	Token     string
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// SubmitItem is one line of a submission, in context service order
type SubmitItem struct {
	ServiceID string          `json:"serviceId"`
	RawID     json.RawMessage `json:"-"`
	Montant   float64         `json:"montant"`
	FilledAt  int64           `json:"filledAt"`
}

// SubmitResult is the backend answer to a submission
type SubmitResult struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Saved   int    `json:"saved,omitempty"`
	DateUTC string `json:"dateUtc,omitempty"`
	TimeUTC string `json:"timeUtc,omitempty"`
}

// Receipt describes one accepted submission
type Receipt struct {
	Email      string
	CentreName string
	Saved      int
	DateUTC    string
	TimeUTC    string
	ItemCount  int
}
