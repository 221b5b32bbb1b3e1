package session

import (
	"testing"
	"time"

	"github.com/ccmonitor/server/pkg/monitor"
)

func TestRegistryAddRemoveList(t *testing.T) {
	r := NewRegistry()
	r.Add(&Info{ID: "a", ComputerID: 1, CommonName: "Agent A", ConnectedAt: time.Now()})
	r.Add(&Info{ID: "b", ComputerID: 2, CommonName: "Agent B", ConnectedAt: time.Now().Add(time.Second)})

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("got %d sessions, want 2", len(list))
	}
	if list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("expected oldest-first ordering, got %#v", list)
	}

	r.Remove("a")
	list = r.List()
	if len(list) != 1 || list[0].ID != "b" {
		t.Errorf("got %#v, want only session b", list)
	}
}

func TestRegistryUpdateSize(t *testing.T) {
	r := NewRegistry()
	r.Add(&Info{ID: "a", ComputerID: 1})
	r.UpdateSize("a", monitor.Size{Width: 40, Height: 13})

	list := r.List()
	if list[0].Size != (monitor.Size{Width: 40, Height: 13}) {
		t.Errorf("got size %#v, want {40 13}", list[0].Size)
	}
}

func TestRegistryUpdateSizeOnUnknownIDIsNoop(t *testing.T) {
	r := NewRegistry()
	r.UpdateSize("missing", monitor.Size{Width: 10, Height: 10})
	if len(r.List()) != 0 {
		t.Error("updating an unknown session id should not create one")
	}
}
