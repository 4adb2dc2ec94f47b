// Package lifecycle drives deployments through their setup: creation,
// start-setup, the connection builder, work sessions, review, and
// completion. All mutations go through the API client; the controller owns
// one explicit builder session instead of module-level globals.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/decoryard/decoryard/internal/builder"
	"github.com/decoryard/decoryard/internal/model"
)

// ErrNoActiveBuilder is returned when an operation needs a loaded builder
// session and none is active.
var ErrNoActiveBuilder = errors.New("no active builder session")

// API is the slice of the deployment API the controller needs.
// *client.Client satisfies it.
type API interface {
	ListItems(ctx context.Context, status, class string) ([]model.Item, error)
	GetDeployment(ctx context.Context, id string) (*model.Deployment, error)
	ListDeployments(ctx context.Context, status string) ([]model.Deployment, error)
	CreateDeployment(ctx context.Context, year int, season, zone string) (*model.Deployment, error)
	StartSetup(ctx context.Context, id string) (*model.Deployment, error)
	AddZone(ctx context.Context, id, zone string) (*model.Deployment, error)
	AddConnection(ctx context.Context, deploymentID, zone string, conn *model.Connection) (*model.Connection, error)
	StartSession(ctx context.Context, deploymentID, zone, notes string) (*model.WorkSession, error)
	EndSession(ctx context.Context, deploymentID, zone, sessionID, notes string) (*model.WorkSession, error)
	GetReviewData(ctx context.Context, id string) (*model.ReviewSummary, error)
	CompleteSetup(ctx context.Context, id string) (int, error)
}

// BuilderSession is the state of one open builder view: which deployment and
// zone are being worked on, the catalog, the active work session, and the
// connection workflow.
type BuilderSession struct {
	Deployment  *model.Deployment
	Zone        string
	Catalog     []model.Item
	WorkSession *model.WorkSession
	Workflow    *builder.Workflow
}

// Location returns the session's zone data from the loaded deployment.
func (s *BuilderSession) Location() *model.Location {
	for i := range s.Deployment.Locations {
		if s.Deployment.Locations[i].Name == s.Zone {
			return &s.Deployment.Locations[i]
		}
	}
	return nil
}

// Controller orchestrates the deployment lifecycle. Safe for concurrent use.
type Controller struct {
	api    API
	timer  *SessionTimer
	logger *slog.Logger

	mu      sync.Mutex
	session *BuilderSession
}

// NewController creates a controller over the given API client.
func NewController(api API, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		api:    api,
		timer:  NewSessionTimer(),
		logger: logger,
	}
}

// Timer exposes the session timer for the UI's elapsed-time stream.
func (c *Controller) Timer() *SessionTimer { return c.timer }

// Session returns the active builder session, or nil.
func (c *Controller) Session() *BuilderSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// CreateDeployment validates the season and zone and creates the deployment.
func (c *Controller) CreateDeployment(ctx context.Context, year int, season, zone string) (*model.Deployment, error) {
	if !model.ValidSeason(season) {
		return nil, fmt.Errorf("invalid season %q", season)
	}
	if zone == "" {
		zone = model.DefaultZone
	}
	if !model.ValidZone(zone) {
		return nil, fmt.Errorf("invalid zone %q", zone)
	}
	return c.api.CreateDeployment(ctx, year, season, zone)
}

// LoadInProgress returns the deployments still being set up: status
// not_started or in_progress.
func (c *Controller) LoadInProgress(ctx context.Context) ([]model.Deployment, error) {
	deployments, err := c.api.ListDeployments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("loading deployments: %w", err)
	}

	active := []model.Deployment{}
	for _, d := range deployments {
		if d.Status == model.StatusNotStarted || d.Status == model.StatusInProgress {
			active = append(active, d)
		}
	}
	return active, nil
}

// StartSetup transitions a deployment into setup and immediately starts the
// first work session in the default zone, then loads the builder for it. The
// server is authoritative; if the session call fails after start-setup
// succeeded no rollback is attempted.
func (c *Controller) StartSetup(ctx context.Context, id string) (*BuilderSession, error) {
	if _, err := c.api.StartSetup(ctx, id); err != nil {
		return nil, fmt.Errorf("starting setup: %w", err)
	}

	if _, err := c.api.StartSession(ctx, id, model.DefaultZone, "Initial setup session"); err != nil {
		return nil, fmt.Errorf("starting initial session: %w", err)
	}

	return c.LoadDeploymentIntoBuilder(ctx, id, model.DefaultZone)
}

// LoadDeploymentIntoBuilder fetches the catalog and the deployment, locates
// the zone, and seeds the builder session. A missing deployment or zone is a
// hard error, not an empty view.
func (c *Controller) LoadDeploymentIntoBuilder(ctx context.Context, id, zone string) (*BuilderSession, error) {
	catalog, err := c.api.ListItems(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	deployment, err := c.api.GetDeployment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading deployment %s: %w", id, err)
	}

	session := &BuilderSession{
		Deployment: deployment,
		Zone:       zone,
		Catalog:    catalog,
		Workflow:   builder.New(deployment, zone, catalog),
	}
	loc := session.Location()
	if loc == nil {
		return nil, fmt.Errorf("zone %q in deployment %s: not found", zone, id)
	}
	session.WorkSession = loc.ActiveSession()

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if session.WorkSession != nil {
		c.timer.Start(session.WorkSession.StartTime)
	} else {
		c.timer.Stop()
	}
	return session, nil
}

// ReloadDeploymentData re-fetches the active session's deployment and
// catalog after a mutation, keeping the view consistent with the server.
// Without an active session it warns and no-ops.
func (c *Controller) ReloadDeploymentData(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		c.logger.Warn("reload requested without an active builder session")
		return nil
	}

	catalog, err := c.api.ListItems(ctx, "", "")
	if err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}
	deployment, err := c.api.GetDeployment(ctx, session.Deployment.ID)
	if err != nil {
		return fmt.Errorf("reloading deployment: %w", err)
	}

	c.mu.Lock()
	session.Deployment = deployment
	session.Catalog = catalog
	session.Workflow.Refresh(deployment, catalog)
	if loc := session.Location(); loc != nil {
		session.WorkSession = loc.ActiveSession()
	} else {
		session.WorkSession = nil
	}
	active := session.WorkSession
	c.mu.Unlock()

	if active != nil {
		if !c.timer.Running() {
			c.timer.Start(active.StartTime)
		}
	} else {
		c.timer.Stop()
	}
	return nil
}

// SwitchZone moves the builder session to another zone of the loaded
// deployment, creating the zone on the deployment if needed.
func (c *Controller) SwitchZone(ctx context.Context, zone string) (*BuilderSession, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, ErrNoActiveBuilder
	}
	if !model.ValidZone(zone) {
		return nil, fmt.Errorf("invalid zone %q", zone)
	}

	if session.Location() == nil || zone != session.Zone {
		if _, err := c.api.AddZone(ctx, session.Deployment.ID, zone); err != nil {
			return nil, fmt.Errorf("adding zone: %w", err)
		}
	}
	return c.LoadDeploymentIntoBuilder(ctx, session.Deployment.ID, zone)
}

// StartWorkSession begins a session in the active builder zone and starts
// the timer.
func (c *Controller) StartWorkSession(ctx context.Context, notes string) (*model.WorkSession, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, ErrNoActiveBuilder
	}

	work, err := c.api.StartSession(ctx, session.Deployment.ID, session.Zone, notes)
	if err != nil {
		return nil, err
	}

	c.timer.Start(work.StartTime)
	if err := c.ReloadDeploymentData(ctx); err != nil {
		c.logger.Warn("reload after session start failed", "error", err)
	}
	return work, nil
}

// EndWorkSession closes the active session and stops the timer.
func (c *Controller) EndWorkSession(ctx context.Context, notes string) (*model.WorkSession, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, ErrNoActiveBuilder
	}
	if session.WorkSession == nil {
		return nil, errors.New("no active work session")
	}

	work, err := c.api.EndSession(ctx, session.Deployment.ID, session.Zone, session.WorkSession.ID, notes)
	if err != nil {
		return nil, err
	}

	c.timer.Stop()
	if err := c.ReloadDeploymentData(ctx); err != nil {
		c.logger.Warn("reload after session end failed", "error", err)
	}
	return work, nil
}

// SubmitConnection submits the builder workflow's collected connection and
// reloads deployment data on success.
func (c *Controller) SubmitConnection(ctx context.Context) (*model.Connection, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, ErrNoActiveBuilder
	}

	created, err := session.Workflow.Submit(ctx, c.api)
	if err != nil {
		return nil, err
	}
	if err := c.ReloadDeploymentData(ctx); err != nil {
		c.logger.Warn("reload after connection failed", "error", err)
	}
	return created, nil
}

// ReviewAndFinish returns the server-computed review summary, annotated with
// whether any zone still has an open work session. Finishing stays disabled
// while total_connections is zero.
func (c *Controller) ReviewAndFinish(ctx context.Context, id string) (*model.ReviewSummary, error) {
	review, err := c.api.GetReviewData(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading review: %w", err)
	}

	deployment, err := c.api.GetDeployment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading deployment: %w", err)
	}
	for _, loc := range deployment.Locations {
		if loc.ActiveSession() != nil {
			review.HasActiveSession = true
			break
		}
	}
	return review, nil
}

// CompleteSetup finishes the deployment and reports how many unique items
// were deployed. The builder session is cleared when it belonged to the
// completed deployment.
func (c *Controller) CompleteSetup(ctx context.Context, id string) (int, error) {
	count, err := c.api.CompleteSetup(ctx, id)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.session != nil && c.session.Deployment.ID == id {
		c.session = nil
		c.timer.Stop()
	}
	c.mu.Unlock()

	return count, nil
}
