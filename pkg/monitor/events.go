package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ccmonitor/server/pkg/inventory"
)

// WireEvent is the outbound command alphabet sent to a monitor. Every
// variant marshals to JSON in Rust-serde-style externally tagged form:
// a bare string for zero-payload variants ("HideCursor"), or a
// single-key object for carrying ones ({"SetCursorPosition":{"x":3,"y":7}}).
type WireEvent interface {
	wireEvent()
}

type (
	// HideCursor hides the monitor's text cursor.
	HideCursor struct{}
	// ShowCursor shows the monitor's text cursor.
	ShowCursor struct{}
	// ClearLine clears the cursor's current line.
	ClearLine struct{}
	// ClearScreen clears the whole monitor.
	ClearScreen struct{}
)

// SetCursorPosition moves the cursor to an absolute position.
type SetCursorPosition struct {
	Position Position
}

// SetTextColor sets the foreground color used by subsequent WriteText.
type SetTextColor struct {
	Color Color
}

// SetBackgroundColor sets the background color used by subsequent WriteText.
type SetBackgroundColor struct {
	Color Color
}

// WriteText writes a run of already codepage-encoded bytes starting at the
// cursor, advancing the cursor past them.
type WriteText struct {
	Bytes []byte
}

func (HideCursor) wireEvent()         {}
func (ShowCursor) wireEvent()         {}
func (ClearLine) wireEvent()          {}
func (ClearScreen) wireEvent()        {}
func (SetCursorPosition) wireEvent()  {}
func (SetTextColor) wireEvent()       {}
func (SetBackgroundColor) wireEvent() {}
func (WriteText) wireEvent()          {}

func (HideCursor) MarshalJSON() ([]byte, error)  { return []byte(`"HideCursor"`), nil }
func (ShowCursor) MarshalJSON() ([]byte, error)  { return []byte(`"ShowCursor"`), nil }
func (ClearLine) MarshalJSON() ([]byte, error)   { return []byte(`"ClearLine"`), nil }
func (ClearScreen) MarshalJSON() ([]byte, error) { return []byte(`"ClearScreen"`), nil }

func (e SetCursorPosition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SetCursorPosition Position `json:"SetCursorPosition"`
	}{e.Position})
}

func (e SetTextColor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SetTextColor Color `json:"SetTextColor"`
	}{e.Color})
}

func (e SetBackgroundColor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SetBackgroundColor Color `json:"SetBackgroundColor"`
	}{e.Color})
}

// MarshalJSON encodes WriteText's payload so the JSON itself stays ASCII:
// bytes in 0x20..=0x7E (other than the characters JSON always escapes) pass
// through literally; every other byte value is escaped as \u00XX, per
// spec.md §6.
func (e WriteText) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"WriteText":"`)
	for _, b := range e.Bytes {
		switch {
		case b == '"' || b == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case b >= 0x20 && b <= 0x7E:
			buf.WriteByte(b)
		default:
			fmt.Fprintf(&buf, `\u%04x`, b)
		}
	}
	buf.WriteString(`"}`)
	return buf.Bytes(), nil
}

// InputEvent is what the socket delivers inbound.
type InputEvent interface {
	inputEvent()
}

// Resize reports the monitor's current size, e.g. after a physical resize
// in-game.
type Resize struct {
	Size Size
}

// Register is the mandatory first inbound message of a session: the
// monitor's handshake.
type Register struct {
	Size       Size   `json:"size"`
	ComputerID int64  `json:"computer_id"`
	CommonName string `json:"common_name"`
}

// InventorySnapshot wraps one inventory report from an agent.
type InventorySnapshot struct {
	Report inventory.Report
}

func (Resize) inputEvent()            {}
func (Register) inputEvent()          {}
func (InventorySnapshot) inputEvent() {}

// MarshalJSON is provided for Register so tests (and any debug tooling)
// can serialize the handshake the same way the wire format expects it,
// even though the server's normal job is to unmarshal it, not emit it.
func (r Register) MarshalJSON() ([]byte, error) {
	type alias Register
	return json.Marshal(struct {
		Register alias `json:"inventory_register"`
	}{alias(r)})
}

// inputEnvelope mirrors the externally tagged shape of inbound messages:
// exactly one of these fields is present per message.
type inputEnvelope struct {
	MonitorResize     *Size             `json:"monitor_resize"`
	InventoryRegister *Register         `json:"inventory_register"`
	InventoryReport   *inventory.Report `json:"inventory_report"`
}

// ParseInputEvent decodes one inbound JSON text message into its InputEvent.
func ParseInputEvent(data []byte) (InputEvent, error) {
	var env inputEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("monitor: malformed input message: %w", err)
	}
	switch {
	case env.MonitorResize != nil:
		return Resize{Size: *env.MonitorResize}, nil
	case env.InventoryRegister != nil:
		return *env.InventoryRegister, nil
	case env.InventoryReport != nil:
		return InventorySnapshot{Report: *env.InventoryReport}, nil
	default:
		return nil, fmt.Errorf("monitor: unrecognized input message shape")
	}
}
