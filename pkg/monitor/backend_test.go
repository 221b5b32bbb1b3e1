package monitor

import "testing"

func drain(t *testing.T, b *Backend) []WireEvent {
	t.Helper()
	var out []WireEvent
	for {
		select {
		case e := <-b.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func cell(ch rune, fg, bg Color) Cell {
	return Cell{Char: ch, Fg: fg, Bg: bg}
}

// S1: trivial frame.
func TestDrawTrivialFrame(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	if err := b.Draw([]Update{{X: 0, Y: 0, Cell: cell('H', White, Black)}}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	events := drain(t, b)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %#v", len(events), events)
	}
	pos, ok := events[0].(SetCursorPosition)
	if !ok || pos.Position != (Position{X: 0, Y: 0}) {
		t.Errorf("event[0] = %#v, want SetCursorPosition(0,0)", events[0])
	}
	text, ok := events[1].(WriteText)
	if !ok || string(text.Bytes) != "H" {
		t.Errorf("event[1] = %#v, want WriteText(\"H\")", events[1])
	}
}

// S2: row run.
func TestDrawRowRunCoalesces(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	updates := []Update{
		{X: 0, Y: 0, Cell: cell('H', White, Black)},
		{X: 1, Y: 0, Cell: cell('i', White, Black)},
		{X: 2, Y: 0, Cell: cell('!', White, Black)},
	}
	if err := b.Draw(updates); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	events := drain(t, b)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %#v", len(events), events)
	}
	if text, ok := events[1].(WriteText); !ok || string(text.Bytes) != "Hi!" {
		t.Errorf("event[1] = %#v, want WriteText(\"Hi!\")", events[1])
	}
}

// S3: color split.
func TestDrawColorSplit(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	updates := []Update{
		{X: 0, Y: 0, Cell: cell('A', White, Black)},
		{X: 1, Y: 0, Cell: cell('B', Red, Black)},
		{X: 2, Y: 0, Cell: cell('C', Red, Black)},
	}
	if err := b.Draw(updates); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	events := drain(t, b)
	want := []WireEvent{
		SetCursorPosition{Position{0, 0}},
		WriteText{[]byte("A")},
		SetTextColor{Red},
		SetBackgroundColor{Black},
		WriteText{[]byte("BC")},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %#v", len(events), len(want), events)
	}
	for i := range want {
		if !equalEvent(events[i], want[i]) {
			t.Errorf("event[%d] = %#v, want %#v", i, events[i], want[i])
		}
	}
}

// S4: non-adjacent cells force an explicit cursor move.
func TestDrawNonAdjacent(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	updates := []Update{
		{X: 0, Y: 0, Cell: cell('X', White, Black)},
		{X: 5, Y: 0, Cell: cell('Y', White, Black)},
	}
	if err := b.Draw(updates); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	events := drain(t, b)
	want := []WireEvent{
		SetCursorPosition{Position{0, 0}},
		WriteText{[]byte("X")},
		SetCursorPosition{Position{5, 0}},
		WriteText{[]byte("Y")},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %#v", len(events), len(want), events)
	}
	for i := range want {
		if !equalEvent(events[i], want[i]) {
			t.Errorf("event[%d] = %#v, want %#v", i, events[i], want[i])
		}
	}
}

func TestDrawDoesNotAutoFlush(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	if err := b.Draw([]Update{{X: 0, Y: 0, Cell: cell('H', White, Black)}}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	events := drain(t, b)
	for _, e := range events {
		if _, ok := e.(WriteText); ok {
			t.Fatal("Draw must not auto-flush pending text")
		}
	}
}

func TestDrawCoercesOutOfRangeColor(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	// Start from Red/Blue so the coerced White/Black is a change the backend
	// must emit (it starts out at White/Black already).
	updates := []Update{
		{X: 0, Y: 0, Cell: cell('A', Red, Blue)},
		{X: 1, Y: 0, Cell: cell('H', Color(999), Color(-1))},
	}
	if err := b.Draw(updates); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var sawFg, sawBg bool
	for _, e := range drain(t, b) {
		if c, ok := e.(SetTextColor); ok {
			sawFg = c.Color == White
		}
		if c, ok := e.(SetBackgroundColor); ok {
			sawBg = c.Color == Black
		}
	}
	if !sawFg || !sawBg {
		t.Error("out-of-range colors should coerce to White/Black, never fail the draw")
	}
}

func TestDrawSubstitutePolicy(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	b.SetFailurePolicy(SubstituteReplacement)
	if err := b.Draw([]Update{{X: 0, Y: 0, Cell: cell('\U0001F600', White, Black)}}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, e := range drain(t, b) {
		if text, ok := e.(WriteText); ok && string(text.Bytes) == "\x7F" {
			return
		}
	}
	t.Error("expected substituted 0x7F byte under SubstituteReplacement policy")
}

func TestDrawAbortFramePolicy(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	err := b.Draw([]Update{{X: 0, Y: 0, Cell: cell('\U0001F600', White, Black)}})
	if err == nil {
		t.Fatal("expected an error under the default AbortFrame policy")
	}
}

func TestUnsupportedCapabilities(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	if err := b.ClearAfterCursor(); err != ErrUnsupported {
		t.Errorf("ClearAfterCursor: got %v, want ErrUnsupported", err)
	}
	if err := b.ClearUntilNewline(); err != ErrUnsupported {
		t.Errorf("ClearUntilNewline: got %v, want ErrUnsupported", err)
	}
	if err := b.ClearBeforeCursor(); err != ErrUnsupported {
		t.Errorf("ClearBeforeCursor: got %v, want ErrUnsupported", err)
	}
	if _, err := b.WindowSize(); err != ErrUnsupported {
		t.Errorf("WindowSize: got %v, want ErrUnsupported", err)
	}
	if _, err := b.GetCursorPosition(); err != ErrUnsupported {
		t.Errorf("GetCursorPosition: got %v, want ErrUnsupported", err)
	}
}

func TestCloseFailsPendingSend(t *testing.T) {
	b := NewBackend(Size{Width: 80, Height: 25})
	b.Close()
	err := b.HideCursor()
	if err != ErrInternalChannelClosed {
		t.Errorf("got %v, want ErrInternalChannelClosed", err)
	}
}

func equalEvent(a, b WireEvent) bool {
	switch av := a.(type) {
	case SetCursorPosition:
		bv, ok := b.(SetCursorPosition)
		return ok && av == bv
	case SetTextColor:
		bv, ok := b.(SetTextColor)
		return ok && av == bv
	case SetBackgroundColor:
		bv, ok := b.(SetBackgroundColor)
		return ok && av == bv
	case WriteText:
		bv, ok := b.(WriteText)
		return ok && string(av.Bytes) == string(bv.Bytes)
	default:
		return false
	}
}
