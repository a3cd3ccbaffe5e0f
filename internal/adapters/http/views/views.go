package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"pointjournaliere/internal/core/services"
)

// Kind names the screen shown for a session
type Kind string

const (
	KindSignIn       Kind = "sign-in"
	KindLoading      Kind = "loading"
	KindAccessDenied Kind = "access-denied"
	KindForm         Kind = "form"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Options carries the values the sign-in affordance needs
type Options struct {
	ClientID string
	LoginURI string
}

// Header is the form header block
type Header struct {
	DateUTC        string
	TimeUTC        string
	CentreName     string
	Email          string
	NomUtilisateur string
	ServiceCount   int
}

// Row is one amount input
type Row struct {
	ServiceID  string
	NomService string
	Value      string
	Touched    bool
}

// Page is the render model of one screen
type Page struct {
	Kind        Kind
	ClientID    string
	LoginURI    string
	Error       string
	Notice      string
	Submitting  bool
	Header      Header
	Rows        []Row
	SubmitLabel string
}

// Select picks the screen for snap. The first matching rule wins.
func Select(snap services.Snapshot) Kind {
	switch {
	case !snap.HasToken():
		return KindSignIn
	case snap.Loading && snap.Context == nil:
		return KindLoading
	case snap.Context != nil && !snap.Context.Authorized:
		return KindAccessDenied
	default:
		return KindForm
	}
}

// Build turns snap into a page. Date and time are taken from now at render time.
func Build(snap services.Snapshot, now time.Time, opts Options) Page {
	page := Page{
		Kind:       Select(snap),
		ClientID:   opts.ClientID,
		LoginURI:   opts.LoginURI,
		Error:      snap.Error,
		Notice:     snap.Notice,
		Submitting: snap.Submitting,
	}
	if page.Kind != KindForm {
		return page
	}

	utc := now.UTC()
	list := snap.Services()
	page.Header = Header{
		DateUTC:      utc.Format("2006-01-02"),
		TimeUTC:      utc.Format("15:04:05"),
		ServiceCount: len(list),
	}
	if snap.Context != nil {
		page.Header.CentreName = snap.Context.CentreName
		page.Header.Email = snap.Context.Email
		page.Header.NomUtilisateur = snap.Context.NomUtilisateur
	}

	page.Rows = make([]Row, 0, len(list))
	for _, s := range list {
		row := Row{ServiceID: s.ServiceID, NomService: s.NomService}
		if f, ok := snap.Fields[s.ServiceID]; ok {
			row.Value = f.Amount.Raw
			row.Touched = f.Touched()
		}
		page.Rows = append(page.Rows, row)
	}
	page.SubmitLabel = fmt.Sprintf("Soumettre (%d services)", len(list))
	return page
}

// Render writes page as HTML
func Render(w io.Writer, page Page) error {
	return pageTemplate.ExecuteTemplate(w, "page", page)
}
