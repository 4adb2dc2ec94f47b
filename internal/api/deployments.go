package api

import (
	"database/sql"
	"errors"
	"io"
	"net/http"

	"github.com/decoryard/decoryard/internal/model"
	"github.com/decoryard/decoryard/internal/store"
)

// DeploymentsHandler handles deployment lifecycle endpoints.
type DeploymentsHandler struct {
	DB *sql.DB
}

type createDeploymentRequest struct {
	Year   int    `json:"year"`
	Season string `json:"season"`
	Zone   string `json:"zone"`
}

type addConnectionRequest struct {
	FromItemID  string   `json:"from_item_id"`
	FromPort    string   `json:"from_port"`
	ToItemID    string   `json:"to_item_id"`
	ToPort      string   `json:"to_port"`
	Illuminates []string `json:"illuminates"`
	Notes       string   `json:"notes"`
}

type sessionRequest struct {
	Notes string `json:"notes"`
}

// List handles GET /deployments. The optional status query parameter
// filters by lifecycle status.
func (h *DeploymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	deployments, err := store.ListDeployments(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list deployments")
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := []model.Deployment{}
		for _, d := range deployments {
			if d.Status == status {
				filtered = append(filtered, d)
			}
		}
		deployments = filtered
	}
	if deployments == nil {
		deployments = []model.Deployment{}
	}
	jsonData(w, http.StatusOK, deployments)
}

// Create handles POST /deployments.
func (h *DeploymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeploymentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Year < 2000 || req.Year > 2100 {
		jsonError(w, http.StatusBadRequest, "invalid year")
		return
	}
	if !model.ValidSeason(req.Season) {
		jsonError(w, http.StatusBadRequest, "invalid season")
		return
	}
	if req.Zone == "" {
		req.Zone = model.DefaultZone
	}
	if !model.ValidZone(req.Zone) {
		jsonError(w, http.StatusBadRequest, "invalid zone")
		return
	}

	existing, err := store.GetDeployment(r.Context(), h.DB, store.DeploymentID(req.Year, req.Season))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to check deployment")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "deployment already exists")
		return
	}

	d, err := store.CreateDeployment(r.Context(), h.DB, req.Year, req.Season, req.Zone)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create deployment")
		return
	}
	jsonData(w, http.StatusCreated, d)
}

// Get handles GET /deployments/{id}.
func (h *DeploymentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := store.GetDeployment(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get deployment")
		return
	}
	if d == nil {
		jsonError(w, http.StatusNotFound, "deployment not found")
		return
	}
	jsonData(w, http.StatusOK, d)
}

// StartSetup handles POST /deployments/{id}/start-setup.
func (h *DeploymentsHandler) StartSetup(w http.ResponseWriter, r *http.Request) {
	d, err := store.StartSetup(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, http.StatusNotFound, "deployment not found")
		case errors.Is(err, store.ErrBadStatus):
			jsonError(w, http.StatusConflict, "setup already started")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to start setup")
		}
		return
	}
	jsonData(w, http.StatusOK, d)
}

// AddLocation handles POST /deployments/{id}/locations. A zone is added at
// most once per deployment.
func (h *DeploymentsHandler) AddLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zone string `json:"zone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidZone(req.Zone) {
		jsonError(w, http.StatusBadRequest, "invalid zone")
		return
	}

	d, err := store.GetDeployment(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get deployment")
		return
	}
	if d == nil {
		jsonError(w, http.StatusNotFound, "deployment not found")
		return
	}
	for _, loc := range d.Locations {
		if loc.Name == req.Zone {
			jsonData(w, http.StatusOK, d)
			return
		}
	}

	if err := store.AddLocation(r.Context(), h.DB, d.ID, req.Zone); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to add location")
		return
	}

	d, err = store.GetDeployment(r.Context(), h.DB, d.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get deployment")
		return
	}
	jsonData(w, http.StatusOK, d)
}

// Review handles GET /deployments/{id}/review.
func (h *DeploymentsHandler) Review(w http.ResponseWriter, r *http.Request) {
	review, err := store.ReviewData(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "deployment not found")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to build review")
		return
	}
	jsonData(w, http.StatusOK, review)
}

// CompleteSetup handles POST /deployments/{id}/complete-setup.
func (h *DeploymentsHandler) CompleteSetup(w http.ResponseWriter, r *http.Request) {
	count, err := store.CompleteSetup(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, http.StatusNotFound, "deployment not found")
		case errors.Is(err, store.ErrBadStatus):
			jsonError(w, http.StatusConflict, "deployment is not in progress")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to complete setup")
		}
		return
	}
	jsonData(w, http.StatusOK, map[string]int{"items_deployed": count})
}

// AddConnection handles POST /deployments/{id}/locations/{zone}/connections.
// Port conflicts and cross-zone item reuse both surface as the wire message
// "Connection Creation Failed"; the console rewrites it for the operator.
func (h *DeploymentsHandler) AddConnection(w http.ResponseWriter, r *http.Request) {
	var req addConnectionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FromItemID == "" || req.FromPort == "" || req.ToItemID == "" || req.ToPort == "" {
		jsonError(w, http.StatusBadRequest, "from_item_id, from_port, to_item_id, and to_port are required")
		return
	}

	conn, err := store.AddConnection(r.Context(), h.DB, r.PathValue("id"), r.PathValue("zone"), &model.Connection{
		FromItemID:  req.FromItemID,
		FromPort:    req.FromPort,
		ToItemID:    req.ToItemID,
		ToPort:      req.ToPort,
		Illuminates: req.Illuminates,
		Notes:       req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, http.StatusNotFound, "deployment, location, or item not found")
		case errors.Is(err, store.ErrPortInUse), errors.Is(err, store.ErrAlreadyDeployed):
			jsonError(w, http.StatusBadRequest, "Connection Creation Failed")
		case errors.Is(err, store.ErrBadStatus):
			jsonError(w, http.StatusConflict, "deployment is not in progress")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to create connection")
		}
		return
	}
	jsonData(w, http.StatusCreated, conn)
}

// StartSession handles POST /deployments/{id}/locations/{zone}/sessions.
// The body is optional; an empty body starts a session with no notes.
func (h *DeploymentsHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil && err != io.EOF {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := store.StartSession(r.Context(), h.DB, r.PathValue("id"), r.PathValue("zone"), req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, http.StatusNotFound, "deployment or location not found")
		case errors.Is(err, store.ErrSessionActive):
			jsonError(w, http.StatusConflict, "a session is already active in this zone")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to start session")
		}
		return
	}
	jsonData(w, http.StatusCreated, map[string]any{"session": session})
}

// EndSession handles POST /deployments/{id}/locations/{zone}/sessions/{sid}/end.
func (h *DeploymentsHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil && err != io.EOF {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := store.EndSession(r.Context(), h.DB,
		r.PathValue("id"), r.PathValue("zone"), r.PathValue("sid"), req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, store.ErrSessionEnded):
			jsonError(w, http.StatusConflict, "session already ended")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to end session")
		}
		return
	}
	jsonData(w, http.StatusOK, map[string]any{"session": session})
}
