package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decoryard/decoryard/internal/model"
)

// fakeAPI is an in-memory deployment API for controller tests.
type fakeAPI struct {
	items       []model.Item
	deployments map[string]*model.Deployment
	review      *model.ReviewSummary

	startSetupCalls   int
	startSessionCalls int
	completeCalls     int
	sessionNotes      []string

	failStartSession bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		items: []model.Item{
			{ID: "CORD-1", Class: "Accessory", ClassType: "Cord", FemaleEnds: 2, MaleEnds: 1, Status: model.ItemStatusActive},
			{ID: "INF-1", Class: "Decoration", ClassType: "Inflatable", MaleEnds: 1, PowerInlet: true, Status: model.ItemStatusActive},
		},
		deployments: make(map[string]*model.Deployment),
	}
}

func (f *fakeAPI) addDeployment(id, status string, zones ...string) *model.Deployment {
	d := &model.Deployment{ID: id, Status: status}
	for _, z := range zones {
		d.Locations = append(d.Locations, model.Location{Name: z})
	}
	f.deployments[id] = d
	return d
}

func (f *fakeAPI) ListItems(context.Context, string, string) ([]model.Item, error) {
	return f.items, nil
}

func (f *fakeAPI) GetDeployment(_ context.Context, id string) (*model.Deployment, error) {
	d, ok := f.deployments[id]
	if !ok {
		return nil, errors.New("deployment not found")
	}
	copied := *d
	return &copied, nil
}

func (f *fakeAPI) ListDeployments(context.Context, string) ([]model.Deployment, error) {
	var out []model.Deployment
	for _, d := range f.deployments {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeAPI) CreateDeployment(_ context.Context, year int, season, zone string) (*model.Deployment, error) {
	d := f.addDeployment("new", model.StatusNotStarted, zone)
	d.Year = year
	d.Season = season
	return d, nil
}

func (f *fakeAPI) StartSetup(_ context.Context, id string) (*model.Deployment, error) {
	f.startSetupCalls++
	d, ok := f.deployments[id]
	if !ok {
		return nil, errors.New("deployment not found")
	}
	now := time.Now()
	d.Status = model.StatusInProgress
	d.SetupStartedAt = &now
	return d, nil
}

func (f *fakeAPI) AddZone(_ context.Context, id, zone string) (*model.Deployment, error) {
	d := f.deployments[id]
	for _, loc := range d.Locations {
		if loc.Name == zone {
			return d, nil
		}
	}
	d.Locations = append(d.Locations, model.Location{Name: zone})
	return d, nil
}

func (f *fakeAPI) AddConnection(_ context.Context, id, zone string, conn *model.Connection) (*model.Connection, error) {
	d := f.deployments[id]
	for i := range d.Locations {
		if d.Locations[i].Name == zone {
			created := *conn
			created.ID = "conn-1"
			d.Locations[i].Connections = append(d.Locations[i].Connections, created)
			d.Locations[i].ItemsDeployed = model.ItemsDeployedIn(d.Locations[i].Connections)
			return &created, nil
		}
	}
	return nil, errors.New("location not found")
}

func (f *fakeAPI) StartSession(_ context.Context, id, zone, notes string) (*model.WorkSession, error) {
	f.startSessionCalls++
	f.sessionNotes = append(f.sessionNotes, notes)
	if f.failStartSession {
		return nil, errors.New("session refused")
	}
	d := f.deployments[id]
	session := model.WorkSession{ID: "ws-1", StartTime: time.Now(), Notes: notes}
	for i := range d.Locations {
		if d.Locations[i].Name == zone {
			d.Locations[i].WorkSessions = append(d.Locations[i].WorkSessions, session)
		}
	}
	return &session, nil
}

func (f *fakeAPI) EndSession(_ context.Context, id, zone, sessionID, _ string) (*model.WorkSession, error) {
	d := f.deployments[id]
	now := time.Now()
	for i := range d.Locations {
		if d.Locations[i].Name != zone {
			continue
		}
		for j := range d.Locations[i].WorkSessions {
			if d.Locations[i].WorkSessions[j].ID == sessionID {
				d.Locations[i].WorkSessions[j].EndTime = &now
				return &d.Locations[i].WorkSessions[j], nil
			}
		}
	}
	return nil, errors.New("session not found")
}

func (f *fakeAPI) GetReviewData(_ context.Context, id string) (*model.ReviewSummary, error) {
	if f.review != nil {
		return f.review, nil
	}
	return &model.ReviewSummary{DeploymentID: id}, nil
}

func (f *fakeAPI) CompleteSetup(_ context.Context, id string) (int, error) {
	f.completeCalls++
	d, ok := f.deployments[id]
	if !ok {
		return 0, errors.New("deployment not found")
	}
	d.Status = model.StatusCompleted
	return 2, nil
}

func TestCreateDeploymentValidation(t *testing.T) {
	c := NewController(newFakeAPI(), nil)
	ctx := context.Background()

	_, err := c.CreateDeployment(ctx, 2025, "Easter", "Front Yard")
	assert.Error(t, err, "unknown season")

	_, err = c.CreateDeployment(ctx, 2025, "Halloween", "Roof")
	assert.Error(t, err, "unknown zone")

	d, err := c.CreateDeployment(ctx, 2025, "Halloween", "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultZone, d.Locations[0].Name, "empty zone defaults")
}

func TestLoadInProgressFilters(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2024-halloween", model.StatusCompleted, "Front Yard")
	api.addDeployment("2025-halloween", model.StatusInProgress, "Front Yard")
	api.addDeployment("2025-christmas", model.StatusNotStarted, "Front Yard")

	c := NewController(api, nil)
	active, err := c.LoadInProgress(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, d := range active {
		assert.NotEqual(t, model.StatusCompleted, d.Status)
	}
}

func TestStartSetupAutoStartsFrontYardSession(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2025-halloween", model.StatusNotStarted, "Front Yard")

	c := NewController(api, nil)
	session, err := c.StartSetup(context.Background(), "2025-halloween")
	require.NoError(t, err)

	assert.Equal(t, 1, api.startSetupCalls)
	assert.Equal(t, 1, api.startSessionCalls)
	assert.Equal(t, []string{"Initial setup session"}, api.sessionNotes)

	assert.Equal(t, "Front Yard", session.Zone)
	require.NotNil(t, session.WorkSession)
	assert.True(t, c.Timer().Running())
	assert.Equal(t, model.StatusInProgress, session.Deployment.Status)
}

func TestStartSetupSessionFailureSurfaces(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2025-halloween", model.StatusNotStarted, "Front Yard")
	api.failStartSession = true

	c := NewController(api, nil)
	_, err := c.StartSetup(context.Background(), "2025-halloween")
	require.Error(t, err)
	assert.Nil(t, c.Session(), "no builder session on failure")
}

func TestLoadDeploymentIntoBuilderNotFound(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2025-halloween", model.StatusInProgress, "Front Yard")
	c := NewController(api, nil)
	ctx := context.Background()

	_, err := c.LoadDeploymentIntoBuilder(ctx, "2030-easter", "Front Yard")
	assert.Error(t, err, "missing deployment is a hard error")

	_, err = c.LoadDeploymentIntoBuilder(ctx, "2025-halloween", "Side Yard")
	assert.Error(t, err, "missing zone is a hard error")
}

func TestReloadWithoutSessionIsNoop(t *testing.T) {
	c := NewController(newFakeAPI(), nil)
	assert.NoError(t, c.ReloadDeploymentData(context.Background()))
}

func TestSubmitConnectionReloads(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2025-halloween", model.StatusInProgress, "Front Yard")

	c := NewController(api, nil)
	ctx := context.Background()
	session, err := c.LoadDeploymentIntoBuilder(ctx, "2025-halloween", "Front Yard")
	require.NoError(t, err)

	w := session.Workflow
	require.NoError(t, w.Begin())
	require.NoError(t, w.SelectSource("CORD-1"))
	require.NoError(t, w.SelectDestination("INF-1"))

	created, err := c.SubmitConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "conn-1", created.ID)

	// The reload made the new connection visible to the builder view.
	loc := c.Session().Location()
	require.Len(t, loc.Connections, 1)
	assert.Equal(t, []string{"CORD-1", "INF-1"}, loc.ItemsDeployed)
}

func TestWorkSessionLifecycle(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2025-halloween", model.StatusInProgress, "Front Yard")

	c := NewController(api, nil)
	ctx := context.Background()
	_, err := c.LoadDeploymentIntoBuilder(ctx, "2025-halloween", "Front Yard")
	require.NoError(t, err)
	assert.False(t, c.Timer().Running())

	work, err := c.StartWorkSession(ctx, "evening shift")
	require.NoError(t, err)
	assert.True(t, c.Timer().Running())
	assert.Equal(t, "ws-1", work.ID)
	require.NotNil(t, c.Session().WorkSession)

	ended, err := c.EndWorkSession(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, ended.EndTime)
	assert.False(t, c.Timer().Running(), "ending the session stops the timer")
	assert.Nil(t, c.Session().WorkSession)
}

func TestReviewAndFinish(t *testing.T) {
	api := newFakeAPI()
	d := api.addDeployment("2025-halloween", model.StatusInProgress, "Front Yard")
	api.review = &model.ReviewSummary{
		DeploymentID:     "2025-halloween",
		TotalConnections: 0,
	}

	c := NewController(api, nil)
	ctx := context.Background()

	review, err := c.ReviewAndFinish(ctx, "2025-halloween")
	require.NoError(t, err)
	assert.False(t, review.CanFinish(), "zero connections cannot finish")
	assert.False(t, review.HasActiveSession)

	d.Locations[0].WorkSessions = []model.WorkSession{{ID: "ws-1", StartTime: time.Now()}}
	api.review.TotalConnections = 3

	review, err = c.ReviewAndFinish(ctx, "2025-halloween")
	require.NoError(t, err)
	assert.True(t, review.CanFinish())
	assert.True(t, review.HasActiveSession)
}

func TestCompleteSetupClearsBuilderSession(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2025-halloween", model.StatusInProgress, "Front Yard")

	c := NewController(api, nil)
	ctx := context.Background()
	_, err := c.LoadDeploymentIntoBuilder(ctx, "2025-halloween", "Front Yard")
	require.NoError(t, err)

	count, err := c.CompleteSetup(ctx, "2025-halloween")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Nil(t, c.Session())
	assert.False(t, c.Timer().Running())
}

func TestSwitchZoneCreatesZone(t *testing.T) {
	api := newFakeAPI()
	api.addDeployment("2025-halloween", model.StatusInProgress, "Front Yard")

	c := NewController(api, nil)
	ctx := context.Background()
	_, err := c.LoadDeploymentIntoBuilder(ctx, "2025-halloween", "Front Yard")
	require.NoError(t, err)

	session, err := c.SwitchZone(ctx, "Back Yard")
	require.NoError(t, err)
	assert.Equal(t, "Back Yard", session.Zone)
	assert.Len(t, session.Deployment.Locations, 2)

	_, err = c.SwitchZone(ctx, "Attic")
	assert.Error(t, err, "unknown zone")
}
