// Package inventory implements the process-wide InventoryAggregator: it
// ingests periodic inventory snapshot reports from remote agents and
// answers sliding-window throughput and storage queries.
package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InventoryType tags a Report as one of Input, Output, or Storage.
type InventoryType interface {
	inventoryType()
	// Equal reports whether two InventoryType values are the "same regime"
	// for the purposes of the aggregator's scan — it does not need to
	// compare destination/source strings, only the variant itself, per
	// spec.md §4.4 ("the agent reconfigured; don't mix regimes").
	Equal(InventoryType) bool
}

// Input means the inventory drains into Destination; item counts are items
// passed through per snapshot interval.
type Input struct {
	Destination string `json:"destination"`
}

// Output means the inventory is filled from Source; item counts are items
// passed through per snapshot interval.
type Output struct {
	Source string `json:"source"`
}

// Storage means counts are an instantaneous inventory snapshot.
type Storage struct{}

func (Input) inventoryType()   {}
func (Output) inventoryType()  {}
func (Storage) inventoryType() {}

func (Input) Equal(o InventoryType) bool   { _, ok := o.(Input); return ok }
func (Output) Equal(o InventoryType) bool  { _, ok := o.(Output); return ok }
func (Storage) Equal(o InventoryType) bool { _, ok := o.(Storage); return ok }

// Item is one inventory slot's contents.
type Item struct {
	Slot  int64  `json:"slot"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Report is one inventory_report payload from one agent.
type Report struct {
	CommonName     string
	ComputerID     int64
	PeripheralName string
	InventoryType  InventoryType
	Items          []Item
}

// reportWire mirrors the JSON shape of Report, with InventoryType expanded
// to its three possible concrete shapes for (un)marshaling.
type reportWire struct {
	CommonName     string `json:"common_name"`
	ComputerID     int64  `json:"computer_id"`
	Inventory      []Item `json:"inventory"`
	PeripheralName string `json:"peripheral_name"`
	InventoryType  json.RawMessage `json:"inventory_type"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	typeJSON, err := marshalInventoryType(r.InventoryType)
	if err != nil {
		return nil, err
	}
	return json.Marshal(reportWire{
		CommonName:     r.CommonName,
		ComputerID:     r.ComputerID,
		Inventory:      r.Items,
		PeripheralName: r.PeripheralName,
		InventoryType:  typeJSON,
	})
}

func marshalInventoryType(t InventoryType) ([]byte, error) {
	switch v := t.(type) {
	case Input:
		return json.Marshal(struct {
			Input Input `json:"input"`
		}{v})
	case Output:
		return json.Marshal(struct {
			Output Output `json:"output"`
		}{v})
	case Storage, nil:
		return []byte(`"storage"`), nil
	default:
		return nil, fmt.Errorf("inventory: unknown inventory type %T", t)
	}
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var wire reportWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	itype, err := unmarshalInventoryType(wire.InventoryType)
	if err != nil {
		return err
	}
	r.CommonName = wire.CommonName
	r.ComputerID = wire.ComputerID
	r.PeripheralName = wire.PeripheralName
	r.Items = wire.Inventory
	r.InventoryType = itype
	return nil
}

func unmarshalInventoryType(data json.RawMessage) (InventoryType, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte(`"storage"`)) {
		return Storage{}, nil
	}
	var tagged struct {
		Input  *Input  `json:"input"`
		Output *Output `json:"output"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("inventory: malformed inventory_type: %w", err)
	}
	switch {
	case tagged.Input != nil:
		return *tagged.Input, nil
	case tagged.Output != nil:
		return *tagged.Output, nil
	default:
		return nil, fmt.Errorf("inventory: unrecognized inventory_type shape")
	}
}
