package monitor

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ccmonitor/server/pkg/codepage"
)

// ErrInternalChannelClosed is returned by Backend operations once the
// session has ended: the Writer loop has exited and nothing will ever
// drain the event channel again. The render loop treats this the same
// way as TransportGone (spec.md §7).
var ErrInternalChannelClosed = errors.New("monitor: backend event channel closed")

// ErrUnsupported is returned by the capabilities CC:Tweaked monitors do not
// offer: clear_after_cursor, clear_until_newline, clear_before_cursor,
// window_size, get_cursor_position.
var ErrUnsupported = errors.New("monitor: capability not supported by CC:Tweaked monitors")

// Update is one immediate-mode cell write: draw this Cell at (X, Y).
type Update struct {
	X, Y int
	Cell Cell
}

// FailurePolicy controls what Draw does when it meets a character with no
// codepage mapping. This deployment pins AbortFrame (spec.md §4.2 choice
// (a)): stop processing the current frame but keep the connection.
type FailurePolicy int

const (
	// AbortFrame stops the current Draw call and returns the translation
	// error to the caller; the connection is left open for the next tick.
	AbortFrame FailurePolicy = iota
	// SubstituteReplacement writes the replacement byte 0x7F (▒) in place
	// of the untranslatable character and continues the frame.
	SubstituteReplacement
)

// Backend is the per-session immediate-mode rendering backend. It consumes
// (x, y, cell) updates and emits the minimal WireEvent sequence that
// reproduces them, coalescing cursor moves, color changes, and text runs.
//
// Every Backend operation takes the Backend's own mutex, which serializes
// the render loop's draw calls against size updates from the reader loop.
type Backend struct {
	mu   sync.Mutex
	size Size

	lastPos    Position
	havePos    bool
	fg, bg     Color
	pending    []byte
	failPolicy FailurePolicy

	events chan WireEvent
	done   chan struct{}
	once   sync.Once
}

// NewBackend creates a Backend for a freshly handshaked session of the
// given size, defaulting to the AbortFrame failure policy.
func NewBackend(size Size) *Backend {
	return &Backend{
		size:       size,
		fg:         White,
		bg:         Black,
		events:     make(chan WireEvent, 256),
		done:       make(chan struct{}),
		failPolicy: AbortFrame,
	}
}

// SetFailurePolicy overrides the untranslatable-character policy. Deployed
// servers pick one policy and keep it; the default test suite pins
// AbortFrame.
func (b *Backend) SetFailurePolicy(p FailurePolicy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPolicy = p
}

// Events returns the channel the Writer loop drains WireEvents from.
func (b *Backend) Events() <-chan WireEvent {
	return b.events
}

// Close ends the session from the backend's point of view: any in-flight
// or future send blocks on b.done instead of the (possibly full, possibly
// permanently undrained) events channel, so draw calls fail fast with
// ErrInternalChannelClosed rather than leaking a goroutine. Safe to call
// more than once and from any goroutine.
func (b *Backend) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Backend) send(e WireEvent) error {
	select {
	case <-b.done:
		return ErrInternalChannelClosed
	default:
	}
	select {
	case b.events <- e:
		return nil
	case <-b.done:
		return ErrInternalChannelClosed
	}
}

// Size returns the last Size received.
func (b *Backend) Size() Size {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// SetSize updates the current size, driven by an inbound resize event.
func (b *Backend) SetSize(s Size) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = s
}

// Draw consumes cell updates in stream order and emits the coalesced
// WireEvent sequence described by spec.md §4.2. It stops at the first
// untranslatable character under AbortFrame, leaving any already-emitted
// events sent and any coalesced pending text unflushed for the caller to
// flush() or discard on the next clear().
func (b *Backend) Draw(updates []Update) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range updates {
		if err := b.drawOneLocked(u); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) drawOneLocked(u Update) error {
	adjacent := b.havePos && u.X == b.lastPos.X+1 && u.Y == b.lastPos.Y
	if !adjacent {
		if err := b.flushLocked(); err != nil {
			return err
		}
		if err := b.send(SetCursorPosition{Position: Position{X: u.X, Y: u.Y}}); err != nil {
			return err
		}
	}
	b.lastPos = Position{X: u.X, Y: u.Y}
	b.havePos = true

	fg := effectiveFg(u.Cell.Fg)
	bg := effectiveBg(u.Cell.Bg)
	if u.Cell.Fg != ColorReset && !u.Cell.Fg.Valid() {
		logColorCoercion("foreground", u.Cell.Fg, fg)
	}
	if u.Cell.Bg != ColorReset && !u.Cell.Bg.Valid() {
		logColorCoercion("background", u.Cell.Bg, bg)
	}
	if fg != b.fg || bg != b.bg {
		if err := b.flushLocked(); err != nil {
			return err
		}
		if err := b.send(SetTextColor{Color: fg}); err != nil {
			return err
		}
		if err := b.send(SetBackgroundColor{Color: bg}); err != nil {
			return err
		}
		b.fg, b.bg = fg, bg
	}

	encoded, err := codepage.EncodeRune(u.Cell.Char)
	if err != nil {
		if b.failPolicy == SubstituteReplacement {
			encoded = 0x7F
		} else {
			return fmt.Errorf("monitor: draw at (%d,%d): %w", u.X, u.Y, err)
		}
	}
	b.pending = append(b.pending, encoded)
	return nil
}

// flushLocked emits the coalesced WriteText buffer, if any. Caller must
// hold b.mu.
func (b *Backend) flushLocked() error {
	if len(b.pending) == 0 {
		return nil
	}
	text := b.pending
	b.pending = nil
	return b.send(WriteText{Bytes: text})
}

// Flush emits any pending coalesced WriteText buffer. The draw algorithm
// never auto-flushes at the end of a stream; callers (the render loop)
// must call Flush once a frame is complete.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// Clear emits ClearScreen and discards any pending coalesced text.
func (b *Backend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	b.havePos = false
	return b.send(ClearScreen{})
}

// ClearLine emits ClearLine.
func (b *Backend) ClearLine() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.send(ClearLine{})
}

// HideCursor emits HideCursor.
func (b *Backend) HideCursor() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.send(HideCursor{})
}

// ShowCursor emits ShowCursor.
func (b *Backend) ShowCursor() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.send(ShowCursor{})
}

// SetCursorPosition flushes pending text and emits an explicit cursor move,
// for callers that need to position the cursor outside of Draw (e.g. the
// render loop positioning a title).
func (b *Backend) SetCursorPosition(p Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.flushLocked(); err != nil {
		return err
	}
	b.lastPos = p
	b.havePos = true
	return b.send(SetCursorPosition{Position: p})
}

// ClearAfterCursor is not supported by CC:Tweaked monitors.
func (b *Backend) ClearAfterCursor() error { return ErrUnsupported }

// ClearUntilNewline is not supported by CC:Tweaked monitors.
func (b *Backend) ClearUntilNewline() error { return ErrUnsupported }

// ClearBeforeCursor is not supported by CC:Tweaked monitors.
func (b *Backend) ClearBeforeCursor() error { return ErrUnsupported }

// WindowSize is not supported by CC:Tweaked monitors; callers must use
// Size() instead.
func (b *Backend) WindowSize() (Size, error) { return Size{}, ErrUnsupported }

// GetCursorPosition is not supported by CC:Tweaked monitors.
func (b *Backend) GetCursorPosition() (Position, error) { return Position{}, ErrUnsupported }

// logColorCoercion is called whenever an out-of-range color is coerced so
// operators can see it happened without failing the draw (spec.md §7:
// ColorOutOfRange is coerced, never fatal).
func logColorCoercion(role string, got Color, coerced Color) {
	log.Printf("[Monitor] color out of range for %s: %v coerced to %v", role, got, coerced)
}
