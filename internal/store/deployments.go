package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/decoryard/decoryard/internal/model"
)

// DeploymentID builds the human-readable deployment identifier,
// e.g. "2025-halloween".
func DeploymentID(year int, season string) string {
	return fmt.Sprintf("%d-%s", year, strings.ToLower(strings.ReplaceAll(season, " ", "-")))
}

// CreateDeployment creates a deployment with one initial zone.
func CreateDeployment(ctx context.Context, db *sql.DB, year int, season, zone string) (*model.Deployment, error) {
	id := DeploymentID(year, season)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO deployments (id, year, season) VALUES (?, ?, ?)`,
		id, year, season,
	)
	if err != nil {
		return nil, fmt.Errorf("creating deployment %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO deployment_locations (deployment_id, name, position) VALUES (?, ?, 0)`,
		id, zone,
	)
	if err != nil {
		return nil, fmt.Errorf("creating deployment location: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing deployment: %w", err)
	}

	return GetDeployment(ctx, db, id)
}

// AddLocation adds a zone to an existing deployment.
func AddLocation(ctx context.Context, db *sql.DB, deploymentID, zone string) error {
	var max sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM deployment_locations WHERE deployment_id = ?`,
		deploymentID,
	).Scan(&max)
	if err != nil {
		return fmt.Errorf("finding location position: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO deployment_locations (deployment_id, name, position) VALUES (?, ?, ?)`,
		deploymentID, zone, max.Int64+1,
	)
	if err != nil {
		return fmt.Errorf("adding location: %w", err)
	}
	return nil
}

// GetDeployment returns a deployment with all locations, connections, and
// work sessions assembled. Returns nil if not found.
func GetDeployment(ctx context.Context, db *sql.DB, id string) (*model.Deployment, error) {
	d := &model.Deployment{}
	err := db.QueryRowContext(ctx,
		`SELECT id, year, season, status, setup_started_at, setup_completed_at, created_at
		 FROM deployments WHERE id = ?`, id,
	).Scan(&d.ID, &d.Year, &d.Season, &d.Status, &d.SetupStartedAt, &d.SetupCompletedAt, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting deployment: %w", err)
	}

	if err := loadLocations(ctx, db, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDeployments returns all deployments, newest first, fully assembled.
func ListDeployments(ctx context.Context, db *sql.DB) ([]model.Deployment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, year, season, status, setup_started_at, setup_completed_at, created_at
		 FROM deployments ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		var d model.Deployment
		if err := rows.Scan(&d.ID, &d.Year, &d.Season, &d.Status,
			&d.SetupStartedAt, &d.SetupCompletedAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning deployment: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range deployments {
		if err := loadLocations(ctx, db, &deployments[i]); err != nil {
			return nil, err
		}
	}
	return deployments, nil
}

// loadLocations fills a deployment's locations with their connections and
// work sessions. ItemsDeployed is derived from the connections.
func loadLocations(ctx context.Context, db *sql.DB, d *model.Deployment) error {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM deployment_locations WHERE deployment_id = ? ORDER BY position`,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	d.Locations = nil
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.Name); err != nil {
			return fmt.Errorf("scanning location: %w", err)
		}
		d.Locations = append(d.Locations, loc)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range d.Locations {
		loc := &d.Locations[i]

		loc.Connections, err = listConnections(ctx, db, d.ID, loc.Name)
		if err != nil {
			return err
		}
		loc.ItemsDeployed = model.ItemsDeployedIn(loc.Connections)

		loc.WorkSessions, err = listSessions(ctx, db, d.ID, loc.Name)
		if err != nil {
			return err
		}
	}
	return nil
}

func listConnections(ctx context.Context, db *sql.DB, deploymentID, location string) ([]model.Connection, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, from_item_id, from_port, to_item_id, to_port, illuminates, notes, connected_at
		 FROM connections WHERE deployment_id = ? AND location_name = ?
		 ORDER BY connected_at, id`,
		deploymentID, location,
	)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	conns := []model.Connection{}
	for rows.Next() {
		var c model.Connection
		var illuminates, notes sql.NullString
		if err := rows.Scan(&c.ID, &c.FromItemID, &c.FromPort, &c.ToItemID, &c.ToPort,
			&illuminates, &notes, &c.ConnectedAt); err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		c.Notes = notes.String
		if illuminates.String != "" {
			if err := json.Unmarshal([]byte(illuminates.String), &c.Illuminates); err != nil {
				return nil, fmt.Errorf("decoding illuminates for %s: %w", c.ID, err)
			}
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// StartSetup transitions a deployment from not_started to in_progress and
// stamps setup_started_at.
func StartSetup(ctx context.Context, db *sql.DB, id string) (*model.Deployment, error) {
	d, err := GetDeployment(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("deployment %s: %w", id, ErrNotFound)
	}
	if d.Status != model.StatusNotStarted {
		return nil, fmt.Errorf("deployment %s is %s: %w", id, d.Status, ErrBadStatus)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE deployments SET status = ?, setup_started_at = ? WHERE id = ?`,
		model.StatusInProgress, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("starting setup: %w", err)
	}

	return GetDeployment(ctx, db, id)
}

// AddConnection validates and records one connection in a zone. The endpoint
// items (and any illuminated items) must not already be deployed in a
// different zone of this deployment, or in another in-progress deployment.
func AddConnection(ctx context.Context, db *sql.DB, deploymentID, location string, c *model.Connection) (*model.Connection, error) {
	d, err := GetDeployment(ctx, db, deploymentID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("deployment %s: %w", deploymentID, ErrNotFound)
	}
	if d.Status != model.StatusInProgress {
		return nil, fmt.Errorf("deployment %s is %s: %w", deploymentID, d.Status, ErrBadStatus)
	}

	var loc *model.Location
	for i := range d.Locations {
		if d.Locations[i].Name == location {
			loc = &d.Locations[i]
			break
		}
	}
	if loc == nil {
		return nil, fmt.Errorf("location %s: %w", location, ErrNotFound)
	}

	for _, id := range []string{c.FromItemID, c.ToItemID} {
		item, err := GetItem(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
	}

	// Source port must be free.
	for _, existing := range loc.Connections {
		if existing.FromItemID == c.FromItemID && existing.FromPort == c.FromPort {
			return nil, fmt.Errorf("port %s on %s: %w", c.FromPort, c.FromItemID, ErrPortInUse)
		}
	}

	// No item may be wired into two zones.
	involved := append([]string{c.FromItemID, c.ToItemID}, c.Illuminates...)
	for _, itemID := range involved {
		other, err := itemDeployedElsewhere(ctx, db, d, location, itemID)
		if err != nil {
			return nil, err
		}
		if other != "" {
			return nil, fmt.Errorf("item %s is in %s: %w", itemID, other, ErrAlreadyDeployed)
		}
	}

	c.ID = uuid.NewString()
	c.ConnectedAt = time.Now().UTC()

	var illuminates any
	if len(c.Illuminates) > 0 {
		data, err := json.Marshal(c.Illuminates)
		if err != nil {
			return nil, fmt.Errorf("encoding illuminates: %w", err)
		}
		illuminates = string(data)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO connections (id, deployment_id, location_name, from_item_id, from_port,
		                          to_item_id, to_port, illuminates, notes, connected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, deploymentID, location, c.FromItemID, c.FromPort,
		c.ToItemID, c.ToPort, illuminates, c.Notes, c.ConnectedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}
	return c, nil
}

// itemDeployedElsewhere returns the name of the zone (possibly in another
// in-progress deployment) where the item is already wired, or "".
func itemDeployedElsewhere(ctx context.Context, db *sql.DB, d *model.Deployment, currentLocation, itemID string) (string, error) {
	for _, loc := range d.Locations {
		if loc.Name == currentLocation {
			continue
		}
		for _, deployed := range loc.ItemsDeployed {
			if deployed == itemID {
				return loc.Name, nil
			}
		}
	}

	var other sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT c.location_name FROM connections c
		 JOIN deployments d ON d.id = c.deployment_id
		 WHERE c.deployment_id != ? AND d.status = ?
		   AND (c.from_item_id = ? OR c.to_item_id = ?)
		 LIMIT 1`,
		d.ID, model.StatusInProgress, itemID, itemID,
	).Scan(&other)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking item usage: %w", err)
	}
	return other.String, nil
}

// ReviewData computes the setup summary for a deployment.
func ReviewData(ctx context.Context, db *sql.DB, id string) (*model.ReviewSummary, error) {
	d, err := GetDeployment(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("deployment %s: %w", id, ErrNotFound)
	}

	review := &model.ReviewSummary{
		DeploymentID:   d.ID,
		Season:         d.Season,
		Year:           d.Year,
		SetupStartedAt: d.SetupStartedAt,
	}

	uniqueItems := make(map[string]bool)
	for _, loc := range d.Locations {
		for _, itemID := range loc.ItemsDeployed {
			uniqueItems[itemID] = true
		}
		review.TotalConnections += len(loc.Connections)
		review.Locations = append(review.Locations, model.LocationSummary{
			Name:             loc.Name,
			UniqueItemsCount: len(loc.ItemsDeployed),
			ConnectionsCount: len(loc.Connections),
		})
	}
	review.TotalUniqueItems = len(uniqueItems)

	if d.SetupStartedAt != nil {
		end := time.Now()
		if d.SetupCompletedAt != nil {
			end = *d.SetupCompletedAt
		}
		review.SetupDurationMinutes = int(end.Sub(*d.SetupStartedAt) / time.Minute)
	}
	return review, nil
}

// CompleteSetup finishes a deployment: any still-open work sessions are
// ended, the status becomes completed, and the number of unique items
// deployed across all zones is returned.
func CompleteSetup(ctx context.Context, db *sql.DB, id string) (int, error) {
	d, err := GetDeployment(ctx, db, id)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, fmt.Errorf("deployment %s: %w", id, ErrNotFound)
	}
	if d.Status != model.StatusInProgress {
		return 0, fmt.Errorf("deployment %s is %s: %w", id, d.Status, ErrBadStatus)
	}

	uniqueItems := make(map[string]bool)
	for _, loc := range d.Locations {
		for _, itemID := range loc.ItemsDeployed {
			uniqueItems[itemID] = true
		}
	}

	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE work_sessions SET end_time = ? WHERE deployment_id = ? AND end_time IS NULL`,
		now, id,
	)
	if err != nil {
		return 0, fmt.Errorf("ending open sessions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE deployments SET status = ?, setup_completed_at = ? WHERE id = ?`,
		model.StatusCompleted, now, id,
	)
	if err != nil {
		return 0, fmt.Errorf("completing setup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing completion: %w", err)
	}
	return len(uniqueItems), nil
}
