// Package session implements the SessionCoordinator: the reader/writer/
// render-loop trio that owns one monitor's WebSocket connection, plus the
// process-wide registry of live sessions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ccmonitor/server/pkg/inventory"
	"github.com/ccmonitor/server/pkg/monitor"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192

	// DefaultRateWindow is the render loop's query window fixed by
	// spec.md §4.3. A server operator may override it per-deployment via
	// internal/config; NewCoordinator falls back to this when given 0.
	DefaultRateWindow = 5 * time.Minute
	// tickInterval is the render loop's cadence, fixed by spec.md §4.3.
	tickInterval = 1 * time.Second
)

// Coordinator owns one WebSocket connection end to end: handshake, the
// reader loop, the writer loop, and the render loop, racing the writer's
// hangup signal so no stale tick fires after the socket dies.
type Coordinator struct {
	conn       *websocket.Conn
	aggregator *inventory.Aggregator
	registry   *Registry
	rateWindow time.Duration

	id         string
	computerID int64
	commonName string
	backend    *monitor.Backend

	done       chan struct{}
	doneOnce   sync.Once
	hangup     chan struct{}
	hangupOnce sync.Once
}

// NewCoordinator creates a Coordinator for a freshly upgraded connection.
// Run must be called to drive the session; it blocks until the session
// ends. rateWindow is the render loop's aggregator query window; 0 falls
// back to DefaultRateWindow.
func NewCoordinator(conn *websocket.Conn, aggregator *inventory.Aggregator, registry *Registry, rateWindow time.Duration) *Coordinator {
	if rateWindow <= 0 {
		rateWindow = DefaultRateWindow
	}
	return &Coordinator{
		conn:       conn,
		aggregator: aggregator,
		registry:   registry,
		rateWindow: rateWindow,
		id:         uuid.NewString(),
		done:       make(chan struct{}),
		hangup:     make(chan struct{}),
	}
}

func (c *Coordinator) closeDone()   { c.doneOnce.Do(func() { close(c.done) }) }
func (c *Coordinator) closeHangup() { c.hangupOnce.Do(func() { close(c.hangup) }) }

// Run performs the handshake, then drives the reader loop in the calling
// goroutine while the writer and render loops run in their own. It
// returns once the session has fully ended and been unregistered.
func (c *Coordinator) Run(ctx context.Context) error {
	c.conn.SetReadLimit(maxMessageSize)

	reg, err := c.handshake()
	if err != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "expected registration"))
		c.conn.Close()
		return err
	}

	c.computerID = reg.ComputerID
	c.commonName = reg.CommonName
	c.backend = monitor.NewBackend(reg.Size)
	c.registry.Add(&Info{
		ID:          c.id,
		ComputerID:  c.computerID,
		CommonName:  c.commonName,
		Size:        reg.Size,
		ConnectedAt: time.Now(),
	})
	log.Printf("[Session %s] registered computer %d (%q) size %dx%d",
		c.id, c.computerID, c.commonName, reg.Size.Width, reg.Size.Height)

	defer func() {
		c.registry.Remove(c.id)
		c.backend.Close()
		c.conn.Close()
		log.Printf("[Session %s] closed", c.id)
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[Session %s] failed to set read deadline: %v", c.id, err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		c.renderLoop(ctx)
	}()

	c.readLoop()
	c.closeDone()
	wg.Wait()
	return nil
}

// handshake reads and validates the mandatory first inbound message
// (spec.md §4.3): it MUST be a Register event.
func (c *Coordinator) handshake() (monitor.Register, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return monitor.Register{}, fmt.Errorf("session: handshake read: %w", err)
	}
	event, err := monitor.ParseInputEvent(data)
	if err != nil {
		return monitor.Register{}, fmt.Errorf("session: expected registration: %w", err)
	}
	reg, ok := event.(monitor.Register)
	if !ok {
		return monitor.Register{}, fmt.Errorf("session: expected registration, got %T", event)
	}
	return reg, nil
}

// readLoop drives all inbound traffic after the handshake. It exits on any
// read error: a Close frame (normal, going-away or no status), an abnormal
// closure, a stream reset or other non-close read error end it silently;
// only a Close frame with any other code is logged.
func (c *Coordinator) readLoop() {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) {
				log.Printf("[Session %s] read error: %v", c.id, err)
			}
			return
		}

		if messageType == websocket.BinaryMessage {
			log.Printf("[Session %s] ignoring unexpected binary frame (%d bytes)", c.id, len(data))
			continue
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := monitor.ParseInputEvent(data)
		if err != nil {
			log.Printf("[Session %s] malformed input: %v", c.id, err)
			continue
		}

		switch e := event.(type) {
		case monitor.Resize:
			c.backend.SetSize(e.Size)
			c.registry.UpdateSize(c.id, e.Size)
		case monitor.InventorySnapshot:
			c.aggregator.Ingest(e.Report)
		case monitor.Register:
			log.Printf("[Session %s] ignoring duplicate registration", c.id)
		}
	}
}

// writeLoop drains the backend's WireEvent channel onto the socket and
// keeps the connection alive with periodic pings. On exit it signals the
// render loop via the hangup channel.
func (c *Coordinator) writeLoop(ctx context.Context) {
	defer c.closeHangup()
	defer c.closeDone()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.backend.Events():
			if err := c.writeEvent(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) writeEvent(event monitor.WireEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Session %s] failed to serialize event: %v", c.id, err)
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if strings.Contains(err.Error(), "closed connection") {
			return err
		}
		log.Printf("[Session %s] write error: %v", c.id, err)
		return err
	}
	return nil
}

// renderLoop ticks every second, queries the aggregator, and draws a
// frame. It races the writer's hangup signal so no stale tick fires after
// the socket dies (spec.md §4.3, §5).
func (c *Coordinator) renderLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.renderTick()
		case <-c.hangup:
			return
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) renderTick() {
	view, ok := c.aggregator.GetReport(c.computerID, c.rateWindow)
	if !ok {
		return
	}

	rows := renderRows(view)
	if err := drawListFrame(c.backend, c.commonName, rows); err != nil {
		if errors.Is(err, monitor.ErrInternalChannelClosed) {
			return
		}
		log.Printf("[Session %s] render error: %v", c.id, err)
	}
}
