package web

import (
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/decoryard/decoryard/internal/auth"
	"github.com/decoryard/decoryard/internal/lifecycle"
	"github.com/decoryard/decoryard/internal/model"
	webembed "github.com/decoryard/decoryard/web"
)

// APIClient is the deployment API surface the console pages use: everything
// the lifecycle controller needs plus the catalog operations.
// *client.Client satisfies it.
type APIClient interface {
	lifecycle.API
	CreateItem(ctx context.Context, item *model.Item) (*model.Item, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) (*model.Item, error)
	UploadItemPhoto(ctx context.Context, id string, photo io.Reader) error
	ItemPhoto(ctx context.Context, id string) ([]byte, string, error)
}

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"statusName": func(status string) string {
			switch status {
			case model.ItemStatusActive:
				return "Active"
			case model.ItemStatusDamaged:
				return "Damaged"
			case model.ItemStatusRetired:
				return "Retired"
			case model.StatusNotStarted:
				return "Not started"
			case model.StatusInProgress:
				return "In progress"
			case model.StatusCompleted:
				return "Completed"
			default:
				return status
			}
		},
		"setupDuration": lifecycle.FormatSetupDuration,
		"seasons":       func() []string { return model.Seasons },
		"zones":         func() []string { return model.Zones },
		"currentYear":   func() int { return time.Now().Year() },
		"contains": func(list []string, v string) bool {
			for _, s := range list {
				if s == v {
					return true
				}
			}
			return false
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"items.html",
		"item_detail.html",
		"gallery.html",
		"statistics.html",
		"deployments.html",
		"builder.html",
		"review.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title string
	User  *auth.Claims
	Flash *Flash
}

// Server holds all dependencies for page handlers. The API field is the
// deployment API client (remote or standalone); the DB is only for console
// users and sessions.
type Server struct {
	DB         *sql.DB
	Templates  *Templates
	JWTSecret  string
	API        APIClient
	Controller *lifecycle.Controller
}
