package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decoryard/decoryard/internal/api"
	"github.com/decoryard/decoryard/internal/db"
	"github.com/decoryard/decoryard/internal/model"
)

func newStandaloneClient(t *testing.T) *Client {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(api.NewRouter(database))
	t.Cleanup(server.Close)
	return New(server.URL)
}

func createItem(t *testing.T, c *Client, shortName, class, classType string, femaleEnds, maleEnds int) *model.Item {
	t.Helper()
	item, err := c.CreateItem(context.Background(), &model.Item{
		ShortName:  shortName,
		Class:      class,
		ClassType:  classType,
		FemaleEnds: femaleEnds,
		MaleEnds:   maleEnds,
	})
	require.NoError(t, err)
	return item
}

func TestItemsRoundTrip(t *testing.T) {
	c := newStandaloneClient(t)
	ctx := context.Background()

	item := createItem(t, c, "Witch Animatronic", "Decoration", "Animatronic", 0, 1)
	require.NotEmpty(t, item.ID)
	assert.Equal(t, model.ItemStatusActive, item.Status)

	fetched, err := c.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Witch Animatronic", fetched.ShortName)

	fetched.Notes = "Motor squeaks in cold weather"
	updated, err := c.UpdateItem(ctx, fetched)
	require.NoError(t, err)
	assert.Equal(t, "Motor squeaks in cold weather", updated.Notes)

	items, err := c.ListItems(ctx, model.ItemStatusActive, "Decoration")
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = c.GetItem(ctx, "INF-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeploymentFlow(t *testing.T) {
	c := newStandaloneClient(t)
	ctx := context.Background()

	cord := createItem(t, c, "50ft Cord", "Accessory", "Cord", 2, 1)
	santa := createItem(t, c, "Santa Inflatable", "Decoration", "Inflatable", 0, 1)

	d, err := c.CreateDeployment(ctx, 2025, "Christmas", "Front Yard")
	require.NoError(t, err)
	assert.Equal(t, "2025-christmas", d.ID)
	assert.Equal(t, model.StatusNotStarted, d.Status)

	d, err = c.StartSetup(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, d.Status)
	require.NotNil(t, d.SetupStartedAt)

	session, err := c.StartSession(ctx, d.ID, "Front Yard", "Initial setup session")
	require.NoError(t, err)
	assert.Equal(t, "Initial setup session", session.Notes)

	conn, err := c.AddConnection(ctx, d.ID, "Front Yard", &model.Connection{
		FromItemID: cord.ID,
		FromPort:   "Female_1",
		ToItemID:   santa.ID,
		ToPort:     "Male_1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, conn.ID)

	review, err := c.GetReviewData(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, review.TotalConnections)
	assert.Equal(t, 2, review.TotalUniqueItems)
	assert.True(t, review.CanFinish())

	ended, err := c.EndSession(ctx, d.ID, "Front Yard", session.ID, "")
	require.NoError(t, err)
	require.NotNil(t, ended.EndTime)

	count, err := c.CompleteSetup(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddConnectionRewritesFailureMessage(t *testing.T) {
	c := newStandaloneClient(t)
	ctx := context.Background()

	strip := createItem(t, c, "Power Strip", "Accessory", "Adapter", 4, 1)
	backCord := createItem(t, c, "Back Yard Cord", "Accessory", "Cord", 2, 1)
	a := createItem(t, c, "Pumpkin A", "Decoration", "Inflatable", 0, 1)
	b := createItem(t, c, "Pumpkin B", "Decoration", "Inflatable", 0, 1)

	d, err := c.CreateDeployment(ctx, 2025, "Halloween", "Front Yard")
	require.NoError(t, err)
	_, err = c.StartSetup(ctx, d.ID)
	require.NoError(t, err)

	_, err = c.AddConnection(ctx, d.ID, "Front Yard", &model.Connection{
		FromItemID: strip.ID, FromPort: "Female_1", ToItemID: a.ID, ToPort: "Male_1",
	})
	require.NoError(t, err)

	// Same source port again: the wire error is rewritten for the operator.
	_, err = c.AddConnection(ctx, d.ID, "Front Yard", &model.Connection{
		FromItemID: strip.ID, FromPort: "Female_1", ToItemID: b.ID, ToPort: "Male_1",
	})
	assert.ErrorIs(t, err, ErrItemUnavailable)

	// Same item in a second zone.
	_, err = c.AddZone(ctx, d.ID, "Back Yard")
	require.NoError(t, err)
	_, err = c.AddConnection(ctx, d.ID, "Back Yard", &model.Connection{
		FromItemID: backCord.ID, FromPort: "Female_1", ToItemID: b.ID, ToPort: "Male_1",
	})
	require.NoError(t, err)

	_, err = c.AddConnection(ctx, d.ID, "Front Yard", &model.Connection{
		FromItemID: strip.ID, FromPort: "Female_2", ToItemID: b.ID, ToPort: "Male_1",
	})
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestAcceptsBarePayloads(t *testing.T) {
	// Some API deployments return the payload without the envelope.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items":
			json.NewEncoder(w).Encode([]model.Item{{ID: "INF-1", ShortName: "Bare Ghost"}})
		case "/deployments/2025-halloween/review":
			json.NewEncoder(w).Encode(model.ReviewSummary{
				DeploymentID:     "2025-halloween",
				TotalConnections: 3,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL)
	ctx := context.Background()

	items, err := c.ListItems(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bare Ghost", items[0].ShortName)

	review, err := c.GetReviewData(ctx, "2025-halloween")
	require.NoError(t, err)
	assert.Equal(t, 3, review.TotalConnections)
}

func TestAcceptsMessageErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Connection Creation Failed",
		})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.AddConnection(context.Background(), "2025-halloween", "Front Yard", &model.Connection{
		FromItemID: "A", FromPort: "Female_1", ToItemID: "B", ToPort: "Male_1",
	})
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestSessionResponseShapes(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 10, 4, 9, 30, 0, 0, time.UTC)

	// The documented shape wraps the session in a "session" key.
	wrapped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"session": model.WorkSession{ID: "ws-7", StartTime: start, Notes: "remote"},
			},
		})
	}))
	defer wrapped.Close()

	session, err := New(wrapped.URL).StartSession(ctx, "2025-halloween", "Front Yard", "remote")
	require.NoError(t, err)
	assert.Equal(t, "ws-7", session.ID)
	assert.True(t, session.StartTime.Equal(start), "start_time = %v", session.StartTime)

	// A bare session payload still decodes.
	bare := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.WorkSession{ID: "ws-8", StartTime: start, DurationSeconds: 90})
	}))
	defer bare.Close()

	ended, err := New(bare.URL).EndSession(ctx, "2025-halloween", "Front Yard", "ws-8", "")
	require.NoError(t, err)
	assert.Equal(t, "ws-8", ended.ID)
	assert.Equal(t, 90, ended.DurationSeconds)
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := New(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListItems(ctx, "", "")
	assert.ErrorIs(t, err, context.Canceled)
}
