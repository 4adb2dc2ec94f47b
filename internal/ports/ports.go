// Package ports derives electrical port availability for catalog items. A
// port is not stored anywhere; it is named Female_N or Male_N from the item's
// port counts, and occupied once a connection references it.
package ports

import (
	"errors"
	"fmt"

	"github.com/decoryard/decoryard/internal/model"
)

// ErrNoAvailablePort is returned when an item has no free port of the
// required gender.
var ErrNoAvailablePort = errors.New("no available port")

// Gender of an electrical port.
type Gender string

const (
	Female Gender = "Female"
	Male   Gender = "Male"
)

// Name builds a port name from gender and 1-based index, e.g. "Female_1".
func Name(gender Gender, index int) string {
	return fmt.Sprintf("%s_%d", gender, index)
}

// total returns how many ports of a gender an item has.
func total(item *model.Item, gender Gender) int {
	if gender == Female {
		return item.FemaleEnds
	}
	return item.MaleEnds
}

// used collects the ports of an item already referenced by connections.
// Female ports are consumed as from_port, male ports as to_port.
func used(conns []model.Connection, itemID string, gender Gender) map[string]bool {
	occupied := make(map[string]bool)
	for _, c := range conns {
		if gender == Female && c.FromItemID == itemID {
			occupied[c.FromPort] = true
		}
		if gender == Male && c.ToItemID == itemID {
			occupied[c.ToPort] = true
		}
	}
	return occupied
}

// Available returns the item's free ports of a gender, in ascending index
// order.
func Available(item *model.Item, conns []model.Connection, gender Gender) []string {
	occupied := used(conns, item.ID, gender)
	var free []string
	for i := 1; i <= total(item, gender); i++ {
		if name := Name(gender, i); !occupied[name] {
			free = append(free, name)
		}
	}
	return free
}

// Count returns how many ports of a gender are still free on the item.
func Count(item *model.Item, conns []model.Connection, gender Gender) int {
	return len(Available(item, conns, gender))
}

// HasAvailable reports whether the item has at least one free port of the
// gender.
func HasAvailable(item *model.Item, conns []model.Connection, gender Gender) bool {
	return Count(item, conns, gender) > 0
}

// FirstAvailable returns the lowest-numbered free port of a gender, or
// ErrNoAvailablePort.
func FirstAvailable(item *model.Item, conns []model.Connection, gender Gender) (string, error) {
	free := Available(item, conns, gender)
	if len(free) == 0 {
		return "", fmt.Errorf("item %s: %w", item.ID, ErrNoAvailablePort)
	}
	return free[0], nil
}

// DeployedZone returns the name of the zone within the deployment that
// already deploys the item, or "" when the item is not wired anywhere.
func DeployedZone(d *model.Deployment, itemID string) string {
	for _, loc := range d.Locations {
		for _, deployed := range loc.ItemsDeployed {
			if deployed == itemID {
				return loc.Name
			}
		}
	}
	return ""
}

// DeployedElsewhere reports whether the item is wired into a zone other than
// the given one.
func DeployedElsewhere(d *model.Deployment, currentZone, itemID string) bool {
	zone := DeployedZone(d, itemID)
	return zone != "" && zone != currentZone
}
