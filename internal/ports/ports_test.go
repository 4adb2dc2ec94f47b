package ports

import (
	"errors"
	"testing"

	"github.com/decoryard/decoryard/internal/model"
)

func TestAvailableOrdering(t *testing.T) {
	item := &model.Item{ID: "CORD-1", FemaleEnds: 3, MaleEnds: 1}
	conns := []model.Connection{
		{FromItemID: "CORD-1", FromPort: "Female_2", ToItemID: "INF-1", ToPort: "Male_1"},
	}

	free := Available(item, conns, Female)
	want := []string{"Female_1", "Female_3"}
	if len(free) != len(want) {
		t.Fatalf("got %v, want %v", free, want)
	}
	for i := range want {
		if free[i] != want[i] {
			t.Errorf("free[%d] = %q, want %q", i, free[i], want[i])
		}
	}
}

func TestFirstAvailableAscending(t *testing.T) {
	item := &model.Item{ID: "ADPT-1", FemaleEnds: 4}

	port, err := FirstAvailable(item, nil, Female)
	if err != nil {
		t.Fatal(err)
	}
	if port != "Female_1" {
		t.Errorf("port = %q, want Female_1", port)
	}

	conns := []model.Connection{
		{FromItemID: "ADPT-1", FromPort: "Female_1"},
		{FromItemID: "ADPT-1", FromPort: "Female_2"},
	}
	port, err = FirstAvailable(item, conns, Female)
	if err != nil {
		t.Fatal(err)
	}
	if port != "Female_3" {
		t.Errorf("port = %q, want Female_3", port)
	}
}

func TestFirstAvailableExhausted(t *testing.T) {
	item := &model.Item{ID: "PLUG-1", FemaleEnds: 1}
	conns := []model.Connection{
		{FromItemID: "PLUG-1", FromPort: "Female_1"},
	}

	if _, err := FirstAvailable(item, conns, Female); err == nil {
		t.Fatal("expected error for exhausted ports")
	} else if !errors.Is(err, ErrNoAvailablePort) {
		t.Errorf("err = %v, want ErrNoAvailablePort", err)
	}
}

func TestZeroPortsNeverAvailable(t *testing.T) {
	item := &model.Item{ID: "INF-1", FemaleEnds: 0, MaleEnds: 1}

	if HasAvailable(item, nil, Female) {
		t.Error("item with zero female ends must have no female ports")
	}
	if !HasAvailable(item, nil, Male) {
		t.Error("expected one free male port")
	}
}

func TestMalePortsConsumedAsDestination(t *testing.T) {
	item := &model.Item{ID: "INF-1", MaleEnds: 1}
	conns := []model.Connection{
		{FromItemID: "CORD-1", FromPort: "Female_1", ToItemID: "INF-1", ToPort: "Male_1"},
	}

	if HasAvailable(item, conns, Male) {
		t.Error("Male_1 should be occupied as to_port")
	}
	// Being a connection source does not consume male ports.
	if Count(item, conns, Male) != 0 {
		t.Errorf("count = %d, want 0", Count(item, conns, Male))
	}
}

func TestDeployedZone(t *testing.T) {
	d := &model.Deployment{
		Locations: []model.Location{
			{Name: "Front Yard", ItemsDeployed: []string{"INF-1", "CORD-1"}},
			{Name: "Back Yard", ItemsDeployed: []string{"SPOT-1"}},
		},
	}

	if zone := DeployedZone(d, "SPOT-1"); zone != "Back Yard" {
		t.Errorf("zone = %q, want Back Yard", zone)
	}
	if zone := DeployedZone(d, "ANIM-9"); zone != "" {
		t.Errorf("zone = %q, want empty", zone)
	}
	if !DeployedElsewhere(d, "Front Yard", "SPOT-1") {
		t.Error("SPOT-1 is deployed in another zone")
	}
	if DeployedElsewhere(d, "Front Yard", "INF-1") {
		t.Error("INF-1 is deployed in the current zone")
	}
}
