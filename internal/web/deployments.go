package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/decoryard/decoryard/internal/builder"
	"github.com/decoryard/decoryard/internal/client"
	"github.com/decoryard/decoryard/internal/lifecycle"
	"github.com/decoryard/decoryard/internal/model"
)

// DeploymentsPage handles GET /deployments: the create form plus the list of
// deployments still being set up.
func (s *Server) DeploymentsPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	deployments, err := s.Controller.LoadInProgress(r.Context())
	loadError := ""
	if err != nil {
		slog.Error("failed to load deployments", "error", err)
		loadError = "Could not load deployments."
	}

	s.Templates.Render(w, "deployments.html", &struct {
		PageData
		Deployments []model.Deployment
		LoadError   string
	}{
		PageData:    PageData{Title: "Deployments", User: claims, Flash: popFlash(w, r)},
		Deployments: deployments,
		LoadError:   loadError,
	})
}

// DeploymentCreateSubmit handles POST /deployments.
func (s *Server) DeploymentCreateSubmit(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.FormValue("year"))
	season := r.FormValue("season")
	zone := r.FormValue("zone")

	if season == "" || zone == "" {
		setFlash(w, "error", "Pick a season and a zone.")
		http.Redirect(w, r, "/deployments", http.StatusSeeOther)
		return
	}

	d, err := s.Controller.CreateDeployment(r.Context(), year, season, zone)
	if err != nil {
		setFlash(w, "error", err.Error())
		http.Redirect(w, r, "/deployments", http.StatusSeeOther)
		return
	}

	setFlash(w, "success", "Deployment "+d.ID+" created.")
	http.Redirect(w, r, "/deployments", http.StatusSeeOther)
}

// DeploymentStartSubmit handles POST /deployments/{id}/start. The confirm()
// gate lives in the page; by the time this runs the operator already agreed.
// Setup starts and the first Front Yard session opens, then the builder view
// takes over.
func (s *Server) DeploymentStartSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.Controller.StartSetup(r.Context(), id); err != nil {
		setFlash(w, "error", err.Error())
		http.Redirect(w, r, "/deployments", http.StatusSeeOther)
		return
	}

	setFlash(w, "success", "Setup started.")
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// DeploymentReviewPage handles GET /deployments/{id}/review.
func (s *Server) DeploymentReviewPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	review, err := s.Controller.ReviewAndFinish(r.Context(), id)
	if err != nil {
		setFlash(w, "error", err.Error())
		http.Redirect(w, r, "/deployments", http.StatusSeeOther)
		return
	}

	s.Templates.Render(w, "review.html", &struct {
		PageData
		Review *model.ReviewSummary
	}{
		PageData: PageData{Title: "Review " + id, User: claims, Flash: popFlash(w, r)},
		Review:   review,
	})
}

// DeploymentCompleteSubmit handles POST /deployments/{id}/complete. The
// review page disables this action while the deployment has no connections;
// the check is repeated here against the server's review data.
func (s *Server) DeploymentCompleteSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	review, err := s.Controller.ReviewAndFinish(r.Context(), id)
	if err != nil {
		setFlash(w, "error", err.Error())
		http.Redirect(w, r, "/deployments", http.StatusSeeOther)
		return
	}
	if !review.CanFinish() {
		setFlash(w, "error", "A deployment with no connections cannot be finished.")
		http.Redirect(w, r, "/deployments/"+id+"/review", http.StatusSeeOther)
		return
	}

	count, err := s.Controller.CompleteSetup(r.Context(), id)
	if err != nil {
		setFlash(w, "error", err.Error())
		http.Redirect(w, r, "/deployments/"+id+"/review", http.StatusSeeOther)
		return
	}

	setFlash(w, "success", "Deployment completed: "+strconv.Itoa(count)+" items deployed.")
	http.Redirect(w, r, "/deployments", http.StatusSeeOther)
}

// builderPageData is everything builder.html needs for one render.
type builderPageData struct {
	PageData
	Session     *lifecycle.BuilderSession
	Location    *model.Location
	Step        builder.Step
	Candidates  []model.Item
	Classes     []string
	Types       []string
	PickedClass string
	PickedType  string
	SourceID    string
	SourcePort  string
	DestID      string
	Notes       string
	Illuminates []string
	Names       map[string]string
	Elapsed     string
}

// BuilderPage handles GET /builder. Optional deployment and zone query
// parameters load a deployment into the builder first.
func (s *Server) BuilderPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	if id := r.URL.Query().Get("deployment"); id != "" {
		zone := r.URL.Query().Get("zone")
		if zone == "" {
			zone = model.DefaultZone
		}
		if _, err := s.Controller.LoadDeploymentIntoBuilder(r.Context(), id, zone); err != nil {
			setFlash(w, "error", err.Error())
			http.Redirect(w, r, "/deployments", http.StatusSeeOther)
			return
		}
	}

	session := s.Controller.Session()
	if session == nil {
		setFlash(w, "info", "Load a deployment into the builder first.")
		http.Redirect(w, r, "/deployments", http.StatusSeeOther)
		return
	}

	names := make(map[string]string, len(session.Catalog))
	for _, item := range session.Catalog {
		names[item.ID] = item.ShortName
	}

	data := &builderPageData{
		PageData:    PageData{Title: "Builder — " + session.Deployment.ID, User: claims, Flash: popFlash(w, r)},
		Session:     session,
		Location:    session.Location(),
		Step:        session.Workflow.Step(),
		Notes:       session.Workflow.Notes(),
		Illuminates: session.Workflow.Illuminates(),
		Names:       names,
		Elapsed:     s.Controller.Timer().Elapsed(),
	}
	data.SourceID, data.SourcePort = session.Workflow.Source()
	data.DestID, _ = session.Workflow.Destination()

	switch data.Step {
	case builder.StepSelectingSource:
		data.Candidates = session.Workflow.SourceCandidates()
	case builder.StepSelectingDestination:
		data.Classes = session.Workflow.DestinationClasses()
		data.PickedClass = r.URL.Query().Get("class")
		data.PickedType = r.URL.Query().Get("type")
		if data.PickedClass != "" {
			data.Types = session.Workflow.DestinationTypes(data.PickedClass)
		}
		if data.PickedClass != "" && data.PickedType != "" {
			data.Candidates = session.Workflow.DestinationCandidates(data.PickedClass, data.PickedType)
		}
	case builder.StepSelectingIllumination:
		data.Candidates = session.Workflow.IlluminationCandidates()
	}

	s.Templates.Render(w, "builder.html", data)
}

// BuilderZoneSubmit handles POST /builder/zone.
func (s *Server) BuilderZoneSubmit(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Controller.SwitchZone(r.Context(), r.FormValue("zone")); err != nil {
		setFlash(w, "error", err.Error())
	}
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// workflow returns the active workflow or redirects to the deployments page.
func (s *Server) workflow(w http.ResponseWriter, r *http.Request) *builder.Workflow {
	session := s.Controller.Session()
	if session == nil {
		setFlash(w, "error", "No deployment loaded in the builder.")
		http.Redirect(w, r, "/deployments", http.StatusSeeOther)
		return nil
	}
	return session.Workflow
}

// WorkflowOpenSubmit handles POST /builder/workflow/open.
func (s *Server) WorkflowOpenSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.Begin(); err != nil {
		setFlash(w, "error", "Finish the current connection first.")
	}
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// WorkflowCancelSubmit handles POST /builder/workflow/cancel.
func (s *Server) WorkflowCancelSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	wf.Reset()
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// WorkflowSourceSubmit handles POST /builder/workflow/source.
func (s *Server) WorkflowSourceSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.SelectSource(r.FormValue("item_id")); err != nil {
		setFlash(w, "error", "This item has no available port.")
	}
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// WorkflowDestinationSubmit handles POST /builder/workflow/destination.
func (s *Server) WorkflowDestinationSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}
	if err := wf.SelectDestination(r.FormValue("item_id")); err != nil {
		setFlash(w, "error", err.Error())
	}
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// WorkflowIlluminateSubmit handles POST /builder/workflow/illuminate.
// action=toggle checks/unchecks one target; confirm and cancel both advance
// to notes, cancel clearing the selection.
func (s *Server) WorkflowIlluminateSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}

	var err error
	switch r.FormValue("action") {
	case "confirm":
		err = wf.ConfirmIllumination()
	case "cancel":
		err = wf.CancelIllumination()
	default:
		err = wf.ToggleIllumination(r.FormValue("item_id"))
	}
	if err != nil {
		setFlash(w, "error", err.Error())
	}
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// WorkflowNotesSubmit handles POST /builder/workflow/notes. Both "Skip" and
// "Confirm" submit the connection; a failed submit keeps the collected state
// so the operator can retry from the notes step.
func (s *Server) WorkflowNotesSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.workflow(w, r)
	if wf == nil {
		return
	}

	if r.FormValue("action") != "skip" {
		if err := wf.SetNotes(r.FormValue("notes")); err != nil {
			setFlash(w, "error", err.Error())
			http.Redirect(w, r, "/builder", http.StatusSeeOther)
			return
		}
	}

	if _, err := s.Controller.SubmitConnection(r.Context()); err != nil {
		message := err.Error()
		if errors.Is(err, client.ErrItemUnavailable) {
			message = "This item cannot be added. It may already be deployed in another zone."
		}
		setFlash(w, "error", message)
		http.Redirect(w, r, "/builder", http.StatusSeeOther)
		return
	}

	setFlash(w, "success", "Connection added.")
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// SessionStartSubmit handles POST /builder/session/start.
func (s *Server) SessionStartSubmit(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Controller.StartWorkSession(r.Context(), r.FormValue("notes")); err != nil {
		setFlash(w, "error", err.Error())
	} else {
		setFlash(w, "success", "Session started.")
	}
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// SessionEndSubmit handles POST /builder/session/end.
func (s *Server) SessionEndSubmit(w http.ResponseWriter, r *http.Request) {
	work, err := s.Controller.EndWorkSession(r.Context(), r.FormValue("notes"))
	if err != nil {
		setFlash(w, "error", err.Error())
	} else {
		setFlash(w, "success", "Session ended after "+lifecycle.FormatSetupDuration(work.DurationMinutes)+".")
	}
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}
