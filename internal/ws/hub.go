package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	diag "github.com/coreman2200/funtimes-twinkle/internal/diagnostics"
	"github.com/coreman2200/funtimes-twinkle/internal/twinkle"
)

// Hooks are the actions the control socket may trigger. Each must be safe
// to call from an HTTP goroutine.
type Hooks struct {
	PressLeft  func()
	PressRight func()
	RunTest    func(name string) error
}

// Hub is the live monitor: it streams frames and diagnostics to websocket
// clients and serves health and control endpoints. It only ever sees copies
// of the engine state handed over by Publish.
type Hub struct {
	mu        sync.Mutex
	hooks     Hooks
	log       zerolog.Logger
	startTime time.Time

	snap        twinkle.Snapshot
	rgb         []byte
	frameID     uint64
	flushErrors uint64
	timing      Timing

	// Throttle limits how often frames are broadcast; ticks in between are
	// still recorded for /health.
	Throttle time.Duration
	lastEmit time.Time

	clients     map[*client]bool
	diagClients map[*client]bool
	upgrader    websocket.Upgrader
}

// Timing is how long the last tick spent stepping and flushing, in ms.
type Timing struct {
	StepMS  float64 `json:"step_ms"`
	FlushMS float64 `json:"flush_ms"`
}

// sendQueue is how many messages a slow client may lag before new ones are
// dropped for it.
const sendQueue = 8

// client is one websocket peer. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(h Hooks, logger zerolog.Logger) *Hub {
	return &Hub{
		hooks:       h,
		log:         logger,
		startTime:   time.Now(),
		Throttle:    50 * time.Millisecond,
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Routes mounts the monitor endpoints on mux.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/control", h.HandleControlWS)
	mux.HandleFunc("/health", h.HandleHealth)
}

// Publish records the state after a tick and queues the frame for every
// client when the throttle allows it. It never waits on the network.
func (h *Hub) Publish(snap twinkle.Snapshot, rgb []byte, t Timing) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = snap
	h.rgb = rgb
	h.timing = t
	h.frameID++

	now := time.Now()
	if h.lastEmit.Add(h.Throttle).After(now) {
		return
	}
	h.lastEmit = now
	h.broadcastFrame()
}

func (h *Hub) CountFlushError() {
	h.mu.Lock()
	h.flushErrors++
	h.mu.Unlock()
}

func (h *Hub) PushDiag(d diag.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fanOut(h.diagClients, b)
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	h.mu.Lock()
	h.clients[c] = true
	if b, err := json.Marshal(h.health()); err == nil {
		c.send <- b
	}
	h.mu.Unlock()
	go h.writer(c, h.clients)
	go h.drain(c, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	h.mu.Lock()
	h.diagClients[c] = true
	h.mu.Unlock()
	go h.writer(c, h.diagClients)
	go h.drain(c, h.diagClients)
}

// fanOut queues b for every client in set, dropping it for clients whose
// queue is full. Must be called with h.mu held.
func (h *Hub) fanOut(set map[*client]bool, b []byte) {
	for c := range set {
		select {
		case c.send <- b:
		default:
			h.log.Debug().Str("peer", c.conn.RemoteAddr().String()).Msg("client lagging; message dropped")
		}
	}
}

// writer sends queued messages until the queue is closed or a write fails.
func (h *Hub) writer(c *client, set map[*client]bool) {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Msg("write to client")
			h.remove(c, set)
			return
		}
	}
}

// drain reads until the peer goes away, then forgets it.
func (h *Hub) drain(c *client, set map[*client]bool) {
	defer h.remove(c, set)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// remove drops c from set and closes it. Safe to call more than once.
func (h *Hub) remove(c *client, set map[*client]bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	c.conn.Close()
}

type controlMsg struct {
	Press   string `json:"press,omitempty"` // "left" | "right"
	RunTest string `json:"runTest,omitempty"`
}

func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug().Err(err).Msg("bad control message")
			continue
		}
		h.applyControl(msg)

		h.mu.Lock()
		resp := h.health()
		h.mu.Unlock()
		b, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (h *Hub) applyControl(msg controlMsg) {
	switch msg.Press {
	case "":
	case "left":
		if h.hooks.PressLeft != nil {
			h.hooks.PressLeft()
		}
	case "right":
		if h.hooks.PressRight != nil {
			h.hooks.PressRight()
		}
	default:
		h.log.Warn().Str("press", msg.Press).Msg("unknown button")
	}

	if msg.RunTest != "" && h.hooks.RunTest != nil {
		if err := h.hooks.RunTest(msg.RunTest); err != nil {
			h.PushDiag(diag.New(diag.Warn, diag.TestUnknown, "Unknown test name").With("name", msg.RunTest))
		}
	}
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := h.health()
	h.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type health struct {
	twinkle.Snapshot
	Timing
	FrameID     uint64  `json:"frame_id"`
	UptimeS     float64 `json:"uptime_s"`
	FlushErrors uint64  `json:"flush_errors"`
}

// health must be called with h.mu held.
func (h *Hub) health() health {
	return health{
		Snapshot:    h.snap,
		Timing:      h.timing,
		FrameID:     h.frameID,
		UptimeS:     time.Since(h.startTime).Seconds(),
		FlushErrors: h.flushErrors,
	}
}

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	Tick    uint64 `json:"tick"`
	RGB     []byte `json:"rgb"`
}

// broadcastFrame must be called with h.mu held.
func (h *Hub) broadcastFrame() {
	if len(h.clients) == 0 {
		return
	}
	b, err := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: h.frameID, Tick: h.snap.Tick, RGB: h.rgb})
	if err != nil {
		return
	}
	h.fanOut(h.clients, b)
}
