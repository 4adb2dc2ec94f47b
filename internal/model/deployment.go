package model

import (
	"sort"
	"time"
)

// Deployment represents one seasonal installation effort.
type Deployment struct {
	ID               string     `json:"id"`
	Year             int        `json:"year"`
	Season           string     `json:"season"`
	Status           string     `json:"status"`
	SetupStartedAt   *time.Time `json:"setup_started_at,omitempty"`
	SetupCompletedAt *time.Time `json:"setup_completed_at,omitempty"`
	Locations        []Location `json:"locations"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Deployment statuses. Transitions are not_started → in_progress → completed;
// completed is terminal.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Seasons selectable when creating a deployment.
var Seasons = []string{"Halloween", "Christmas"}

// Zones are the named physical areas a deployment can cover.
var Zones = []string{"Front Yard", "Side Yard", "Back Yard"}

// DefaultZone is where the first work session starts when setup begins.
const DefaultZone = "Front Yard"

// ValidSeason reports whether season is a known season.
func ValidSeason(season string) bool {
	for _, s := range Seasons {
		if s == season {
			return true
		}
	}
	return false
}

// ValidZone reports whether zone is a known zone name.
func ValidZone(zone string) bool {
	for _, z := range Zones {
		if z == zone {
			return true
		}
	}
	return false
}

// Location is a named zone within a deployment.
type Location struct {
	Name          string        `json:"name"`
	Connections   []Connection  `json:"connections"`
	ItemsDeployed []string      `json:"items_deployed"`
	WorkSessions  []WorkSession `json:"work_sessions"`
}

// ActiveSession returns the location's work session with no end time, or nil.
// The server guarantees at most one.
func (l *Location) ActiveSession() *WorkSession {
	for i := range l.WorkSessions {
		if l.WorkSessions[i].EndTime == nil {
			return &l.WorkSessions[i]
		}
	}
	return nil
}

// Connection is one wired link between an output port of one item and an
// input port of another, within one zone. Immutable once created.
type Connection struct {
	ID          string    `json:"id"`
	FromItemID  string    `json:"from_item_id"`
	FromPort    string    `json:"from_port"`
	ToItemID    string    `json:"to_item_id"`
	ToPort      string    `json:"to_port"`
	Illuminates []string  `json:"illuminates,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// WorkSession is a bounded period of hands-on setup work in one zone.
// EndTime is nil while the session is active.
type WorkSession struct {
	ID              string     `json:"id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
}

// ItemsDeployedIn derives the set of item IDs wired into the given
// connections: both endpoints plus any illuminated items, sorted.
func ItemsDeployedIn(conns []Connection) []string {
	seen := make(map[string]bool)
	for _, c := range conns {
		seen[c.FromItemID] = true
		seen[c.ToItemID] = true
		for _, id := range c.Illuminates {
			seen[id] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReviewSummary is the server-computed setup summary shown before finishing
// a deployment.
type ReviewSummary struct {
	DeploymentID         string            `json:"deployment_id"`
	Season               string            `json:"season"`
	Year                 int               `json:"year"`
	SetupStartedAt       *time.Time        `json:"setup_started_at,omitempty"`
	SetupDurationMinutes int               `json:"setup_duration_minutes"`
	TotalUniqueItems     int               `json:"total_unique_items"`
	TotalConnections     int               `json:"total_connections"`
	Locations            []LocationSummary `json:"locations"`

	// HasActiveSession is detected client-side from the raw deployment,
	// not part of the review payload.
	HasActiveSession bool `json:"-"`
}

// CanFinish reports whether the deployment may be completed. A deployment
// with zero connections must not be finishable.
func (r *ReviewSummary) CanFinish() bool {
	return r.TotalConnections > 0
}

// LocationSummary is the per-zone slice of a ReviewSummary.
type LocationSummary struct {
	Name             string `json:"name"`
	UniqueItemsCount int    `json:"unique_items_count"`
	ConnectionsCount int    `json:"connections_count"`
}
