// Package builder implements the guided connection workflow: pick a source
// item and port, pick a destination, optionally pick illumination targets,
// enter notes, submit. The workflow is an explicit state machine; every
// transition is testable without HTTP or HTML.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/decoryard/decoryard/internal/model"
	"github.com/decoryard/decoryard/internal/ports"
)

// Step is the workflow's current position.
type Step string

const (
	StepIdle                  Step = "idle"
	StepSelectingSource       Step = "selecting_source"
	StepSelectingDestination  Step = "selecting_destination"
	StepSelectingIllumination Step = "selecting_illumination"
	StepEnteringNotes         Step = "entering_notes"
	StepSubmitting            Step = "submitting"
)

// maxIlluminates caps how many items one spotlight connection may light.
const maxIlluminates = 2

var (
	// ErrWorkflowActive is returned when Begin is called while a workflow
	// is already underway.
	ErrWorkflowActive = errors.New("a connection workflow is already active")

	// ErrWrongStep is returned when an operation does not apply to the
	// workflow's current step.
	ErrWrongStep = errors.New("operation not valid in current step")

	// ErrSubmitInFlight is returned when a second submit is attempted
	// before the first resolves.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// ConnectionCreator persists one connection. *client.Client satisfies it.
type ConnectionCreator interface {
	AddConnection(ctx context.Context, deploymentID, zone string, conn *model.Connection) (*model.Connection, error)
}

// Workflow collects one connection definition for a deployment zone. A
// mutex serializes transitions: page handlers hit the shared workflow from
// independent request goroutines.
type Workflow struct {
	mu sync.Mutex

	deployment *model.Deployment
	zone       string
	catalog    []model.Item

	step        Step
	sourceID    string
	sourcePort  string
	destID      string
	destPort    string
	illuminates []string
	notes       string

	inFlight bool
}

// New creates an idle workflow for one zone of a deployment. The catalog is
// the full item list; the deployment provides the zone's existing
// connections and the cross-zone deployment map.
func New(deployment *model.Deployment, zone string, catalog []model.Item) *Workflow {
	return &Workflow{
		deployment: deployment,
		zone:       zone,
		catalog:    catalog,
		step:       StepIdle,
	}
}

// Step returns the workflow's current step.
func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Active reports whether a workflow is underway.
func (w *Workflow) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step != StepIdle
}

// Source returns the chosen source item ID and port.
func (w *Workflow) Source() (string, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sourceID, w.sourcePort
}

// Destination returns the chosen destination item ID and port.
func (w *Workflow) Destination() (string, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destID, w.destPort
}

// Illuminates returns the currently selected illumination targets.
func (w *Workflow) Illuminates() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.illuminates...)
}

// Notes returns the entered notes.
func (w *Workflow) Notes() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notes
}

// zoneConnections returns the existing connections of the workflow's zone.
func (w *Workflow) zoneConnections() []model.Connection {
	for _, loc := range w.deployment.Locations {
		if loc.Name == w.zone {
			return loc.Connections
		}
	}
	return nil
}

func (w *Workflow) item(id string) *model.Item {
	for i := range w.catalog {
		if w.catalog[i].ID == id {
			return &w.catalog[i]
		}
	}
	return nil
}

// Begin opens the source selector. Opening a second workflow while one is
// active is refused.
func (w *Workflow) Begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepIdle {
		return ErrWorkflowActive
	}
	w.step = StepSelectingSource
	return nil
}

// SourceCandidates returns the items offered as connection sources. For the
// zone's first connection these are all active catalog items with a free
// female port that are not already wired into another zone. Once the zone
// has connections, only items already wired here are offered, most recently
// connected first.
func (w *Workflow) SourceCandidates() []model.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	conns := w.zoneConnections()

	if len(conns) == 0 {
		var candidates []model.Item
		for _, item := range w.catalog {
			if item.Status != model.ItemStatusActive {
				continue
			}
			if !ports.HasAvailable(&item, conns, ports.Female) {
				continue
			}
			if ports.DeployedElsewhere(w.deployment, w.zone, item.ID) {
				continue
			}
			candidates = append(candidates, item)
		}
		return candidates
	}

	// Rank wired items by the index of their most recent connection.
	lastTouched := make(map[string]int)
	for i, c := range conns {
		for _, id := range append([]string{c.FromItemID, c.ToItemID}, c.Illuminates...) {
			lastTouched[id] = i
		}
	}

	var candidates []model.Item
	for id := range lastTouched {
		item := w.item(id)
		if item == nil {
			continue
		}
		if ports.HasAvailable(item, conns, ports.Female) {
			candidates = append(candidates, *item)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return lastTouched[candidates[i].ID] > lastTouched[candidates[j].ID]
	})
	return candidates
}

// SelectSource picks the source item and auto-assigns its first available
// female port. If the item has no free port the workflow stays in
// SelectingSource and the error is surfaced as a toast.
func (w *Workflow) SelectSource(itemID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelectingSource {
		return ErrWrongStep
	}
	item := w.item(itemID)
	if item == nil {
		return fmt.Errorf("item %s not in catalog", itemID)
	}

	port, err := ports.FirstAvailable(item, w.zoneConnections(), ports.Female)
	if err != nil {
		return err
	}

	w.sourceID = itemID
	w.sourcePort = port
	w.step = StepSelectingDestination
	return nil
}

// DestinationClasses returns the class options for the cascading filter.
func (w *Workflow) DestinationClasses() []string {
	return model.Classes
}

// DestinationTypes returns the type options for a class.
func (w *Workflow) DestinationTypes(class string) []string {
	return model.TypesForClass(class)
}

// DestinationCandidates filters the catalog for the chosen class and type.
// Decorations and lights draw power, so they need a power inlet and must not
// already be deployed anywhere in this deployment; accessories extend the
// chain, so they need a free male port.
func (w *Workflow) DestinationCandidates(class, classType string) []model.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	conns := w.zoneConnections()

	var candidates []model.Item
	for _, item := range w.catalog {
		if item.Status != model.ItemStatusActive || item.ID == w.sourceID {
			continue
		}
		if item.Class != class || item.ClassType != classType {
			continue
		}

		switch class {
		case model.ClassAccessory:
			if !ports.HasAvailable(&item, conns, ports.Male) {
				continue
			}
		default:
			if !item.PowerInlet {
				continue
			}
			if ports.DeployedZone(w.deployment, item.ID) != "" {
				continue
			}
		}
		candidates = append(candidates, item)
	}
	return candidates
}

// SelectDestination picks the destination item. The destination port is
// always Male_1 by convention. Spot lights continue to illumination
// selection; everything else goes straight to notes.
func (w *Workflow) SelectDestination(itemID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelectingDestination {
		return ErrWrongStep
	}
	item := w.item(itemID)
	if item == nil {
		return fmt.Errorf("item %s not in catalog", itemID)
	}

	w.destID = itemID
	w.destPort = ports.Name(ports.Male, 1)

	if item.ClassType == model.TypeSpotLight {
		w.step = StepSelectingIllumination
		return nil
	}
	w.illuminates = []string{}
	w.step = StepEnteringNotes
	return nil
}

// IlluminationCandidates returns the items a spotlight may light: inflatables
// and static props already deployed in this zone.
func (w *Workflow) IlluminationCandidates() []model.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	var loc *model.Location
	for i := range w.deployment.Locations {
		if w.deployment.Locations[i].Name == w.zone {
			loc = &w.deployment.Locations[i]
			break
		}
	}
	if loc == nil {
		return nil
	}

	var candidates []model.Item
	for _, id := range loc.ItemsDeployed {
		item := w.item(id)
		if item != nil && model.Illuminatable(item.ClassType) {
			candidates = append(candidates, *item)
		}
	}
	return candidates
}

// ToggleIllumination checks or unchecks an illumination target. A third
// selection is silently reverted, keeping exactly two checked.
func (w *Workflow) ToggleIllumination(itemID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelectingIllumination {
		return ErrWrongStep
	}
	for i, id := range w.illuminates {
		if id == itemID {
			w.illuminates = append(w.illuminates[:i], w.illuminates[i+1:]...)
			return nil
		}
	}
	if len(w.illuminates) >= maxIlluminates {
		return nil
	}
	w.illuminates = append(w.illuminates, itemID)
	return nil
}

// ConfirmIllumination keeps the current selection and moves on to notes.
func (w *Workflow) ConfirmIllumination() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelectingIllumination {
		return ErrWrongStep
	}
	if w.illuminates == nil {
		w.illuminates = []string{}
	}
	w.step = StepEnteringNotes
	return nil
}

// CancelIllumination clears the selection and moves on to notes.
func (w *Workflow) CancelIllumination() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelectingIllumination {
		return ErrWrongStep
	}
	w.illuminates = []string{}
	w.step = StepEnteringNotes
	return nil
}

// SetNotes records the free-text notes. Valid while entering notes,
// including a retry after a failed submit.
func (w *Workflow) SetNotes(notes string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepEnteringNotes {
		return ErrWrongStep
	}
	w.notes = notes
	return nil
}

// Payload builds the connection to submit.
func (w *Workflow) Payload() *model.Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.payload()
}

func (w *Workflow) payload() *model.Connection {
	return &model.Connection{
		FromItemID:  w.sourceID,
		FromPort:    w.sourcePort,
		ToItemID:    w.destID,
		ToPort:      w.destPort,
		Illuminates: w.illuminates,
		Notes:       w.notes,
	}
}

// Submit persists the collected connection. On success the workflow resets
// to idle; on failure it returns to entering notes with all collected state
// intact so the user can retry. Only one submission may be in flight: the
// mutex is released during the API call, so a concurrent Submit observes
// inFlight and is refused.
func (w *Workflow) Submit(ctx context.Context, api ConnectionCreator) (*model.Connection, error) {
	w.mu.Lock()
	if w.step != StepEnteringNotes && w.step != StepSubmitting {
		w.mu.Unlock()
		return nil, ErrWrongStep
	}
	if w.inFlight {
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	w.step = StepSubmitting
	w.inFlight = true
	deploymentID, zone, payload := w.deployment.ID, w.zone, w.payload()
	w.mu.Unlock()

	created, err := api.AddConnection(ctx, deploymentID, zone, payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil {
		w.step = StepEnteringNotes
		return nil, err
	}

	w.reset()
	return created, nil
}

// Reset abandons the workflow and returns to idle.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

func (w *Workflow) reset() {
	w.step = StepIdle
	w.sourceID = ""
	w.sourcePort = ""
	w.destID = ""
	w.destPort = ""
	w.illuminates = nil
	w.notes = ""
}

// Refresh swaps in reloaded deployment data without disturbing the current
// step, keeping candidate lists consistent with the server after a mutation.
func (w *Workflow) Refresh(deployment *model.Deployment, catalog []model.Item) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deployment = deployment
	w.catalog = catalog
}
