package web

import (
	"database/sql"
	"net/http"

	"github.com/decoryard/decoryard/internal/lifecycle"
	webembed "github.com/decoryard/decoryard/web"
)

// NewRouter creates the console page router with all routes registered.
func NewRouter(db *sql.DB, jwtSecret string, api APIClient, controller *lifecycle.Controller) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:         db,
		Templates:  templates,
		JWTSecret:  jwtSecret,
		API:        api,
		Controller: controller,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Dashboard)))

	mux.Handle("GET /items", cookieAuth(http.HandlerFunc(s.ItemsPage)))
	mux.Handle("POST /items", cookieAuth(http.HandlerFunc(s.ItemCreateSubmit)))
	mux.Handle("GET /items/{id}", cookieAuth(http.HandlerFunc(s.ItemDetailPage)))
	mux.Handle("POST /items/{id}", cookieAuth(http.HandlerFunc(s.ItemUpdateSubmit)))
	mux.Handle("POST /items/{id}/photo", cookieAuth(http.HandlerFunc(s.ItemPhotoSubmit)))
	mux.Handle("GET /items/{id}/photo", cookieAuth(http.HandlerFunc(s.ItemPhotoGet)))

	mux.Handle("GET /gallery", cookieAuth(http.HandlerFunc(s.GalleryPage)))
	mux.Handle("GET /statistics", cookieAuth(http.HandlerFunc(s.StatisticsPage)))

	mux.Handle("GET /deployments", cookieAuth(http.HandlerFunc(s.DeploymentsPage)))
	mux.Handle("POST /deployments", cookieAuth(http.HandlerFunc(s.DeploymentCreateSubmit)))
	mux.Handle("POST /deployments/{id}/start", cookieAuth(http.HandlerFunc(s.DeploymentStartSubmit)))
	mux.Handle("GET /deployments/{id}/review", cookieAuth(http.HandlerFunc(s.DeploymentReviewPage)))
	mux.Handle("POST /deployments/{id}/complete", cookieAuth(http.HandlerFunc(s.DeploymentCompleteSubmit)))

	mux.Handle("GET /builder", cookieAuth(http.HandlerFunc(s.BuilderPage)))
	mux.Handle("POST /builder/zone", cookieAuth(http.HandlerFunc(s.BuilderZoneSubmit)))
	mux.Handle("POST /builder/workflow/open", cookieAuth(http.HandlerFunc(s.WorkflowOpenSubmit)))
	mux.Handle("POST /builder/workflow/cancel", cookieAuth(http.HandlerFunc(s.WorkflowCancelSubmit)))
	mux.Handle("POST /builder/workflow/source", cookieAuth(http.HandlerFunc(s.WorkflowSourceSubmit)))
	mux.Handle("POST /builder/workflow/destination", cookieAuth(http.HandlerFunc(s.WorkflowDestinationSubmit)))
	mux.Handle("POST /builder/workflow/illuminate", cookieAuth(http.HandlerFunc(s.WorkflowIlluminateSubmit)))
	mux.Handle("POST /builder/workflow/notes", cookieAuth(http.HandlerFunc(s.WorkflowNotesSubmit)))
	mux.Handle("POST /builder/session/start", cookieAuth(http.HandlerFunc(s.SessionStartSubmit)))
	mux.Handle("POST /builder/session/end", cookieAuth(http.HandlerFunc(s.SessionEndSubmit)))

	mux.Handle("GET /events/timer", cookieAuth(http.HandlerFunc(s.TimerStream)))

	return mux, nil
}
