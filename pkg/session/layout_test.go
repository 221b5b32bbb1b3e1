package session

import (
	"testing"

	"github.com/ccmonitor/server/pkg/inventory"
	"github.com/ccmonitor/server/pkg/monitor"
)

func TestRenderRowsFormatsRates(t *testing.T) {
	view := inventory.ReportView{
		Rates: []inventory.Rate{{Name: "iron", RatePerSecond: 0.8}},
	}
	rows := renderRows(view)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

func TestRenderRowsFormatsStorage(t *testing.T) {
	view := inventory.ReportView{
		StorageItems: []inventory.Item{{Name: "iron", Count: 42}},
	}
	rows := renderRows(view)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

func TestRenderRowsEmptyView(t *testing.T) {
	if rows := renderRows(inventory.ReportView{}); rows != nil {
		t.Errorf("got %#v, want nil", rows)
	}
}

func TestDrawListFrameProducesWireEvents(t *testing.T) {
	backend := monitor.NewBackend(monitor.Size{Width: 20, Height: 6})
	defer backend.Close()

	if err := drawListFrame(backend, "Agent", []string{"iron   4.0/s"}); err != nil {
		t.Fatalf("drawListFrame: %v", err)
	}

	var sawClear, sawText bool
	for {
		select {
		case e := <-backend.Events():
			switch e.(type) {
			case monitor.ClearScreen:
				sawClear = true
			case monitor.WriteText:
				sawText = true
			}
			continue
		default:
		}
		break
	}
	if !sawClear {
		t.Error("expected a ClearScreen event")
	}
	if !sawText {
		t.Error("expected at least one WriteText event")
	}
}

func TestDrawListFrameHandlesUndersizedMonitor(t *testing.T) {
	backend := monitor.NewBackend(monitor.Size{Width: 1, Height: 1})
	defer backend.Close()

	if err := drawListFrame(backend, "Agent", []string{"row"}); err != nil {
		t.Fatalf("drawListFrame on a 1x1 monitor should not error: %v", err)
	}
}
