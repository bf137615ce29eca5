package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
)

const (
	defaultWriteTimeout = 5 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = 30 * time.Second
	maxMessageSize      = 4096
)

// Submitter accepts commands for the pipeline, normally *pipeline.Orchestrator
type Submitter interface {
	Submit(cmd pipeline.Command) error
}

// WithLogger sets the logger for the hub
func WithLogger(logger *slog.Logger) func(*Hub) {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithWriteTimeout bounds every write to a client. Clients that cannot keep
// up within the timeout are dropped.
func WithWriteTimeout(d time.Duration) func(*Hub) {
	return func(h *Hub) {
		h.writeTimeout = d
	}
}

// WithMetrics registers the hub collectors with reg
func WithMetrics(reg prometheus.Registerer) func(*Hub) {
	return func(h *Hub) {
		factory := promauto.With(reg)
		h.clientsGauge = factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "spectrum",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected websocket clients",
		})
		h.droppedTotal = factory.NewCounter(prometheus.CounterOpts{
			Namespace: "spectrum",
			Subsystem: "stream",
			Name:      "dropped_clients_total",
			Help:      "Clients dropped after a failed write",
		})
	}
}

// Hub is a pipeline presenter broadcasting every emission as JSON to the
// connected websocket clients. Messages from clients are decoded into
// pipeline commands and submitted.
type Hub struct {
	upgrader     websocket.Upgrader
	submitter    atomic.Pointer[Submitter]
	writeTimeout time.Duration

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex // Each connection has its own write mutex

	clientsGauge prometheus.Gauge
	droppedTotal prometheus.Counter

	logger *slog.Logger
}

// NewHub creates a hub without a submitter; client commands are rejected
// until SetSubmitter is called
func NewHub(options ...func(*Hub)) *Hub {
	h := Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16384,
			CheckOrigin: func(r *http.Request) bool {
				return true // The analyzer is meant for local networks
			},
		},
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[*websocket.Conn]*sync.Mutex),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&h)
	}

	return &h
}

// SetSubmitter sets where client commands go
func (h *Hub) SetSubmitter(s Submitter) {
	h.submitter.Store(&s)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and serves the client until
// it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(fmt.Sprintf("upgrading connection: %s", err.Error()), slog.String("remote", r.RemoteAddr))
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	if h.clientsGauge != nil {
		h.clientsGauge.Inc()
	}
	h.clientsMu.Unlock()

	h.logger.Info("client connected", slog.String("remote", r.RemoteAddr), slog.Int("clients", count))

	h.handleClient(conn)
}

// Present broadcasts the emission to every client
func (h *Hub) Present(_ context.Context, e *pipeline.Emission) error {
	payload, err := json.Marshal(frameMessage{Type: messageFrame, Data: e})
	if err != nil {
		return fmt.Errorf("encoding emission: %w", err)
	}

	h.broadcast(payload)
	return nil
}

// Report broadcasts a pipeline event to every client
func (h *Hub) Report(_ context.Context, ev pipeline.Event) {
	msg := eventMessage{Type: messageEvent, Kind: string(ev.Kind)}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn(fmt.Sprintf("encoding event: %s", err.Error()))
		return
	}

	h.broadcast(payload)
}

// Close disconnects all clients
func (h *Hub) Close() error {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for conn, writeMu := range h.clients {
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		writeMu.Unlock()

		_ = conn.Close()
		delete(h.clients, conn)
		if h.clientsGauge != nil {
			h.clientsGauge.Dec()
		}
	}

	return nil
}

func (h *Hub) broadcast(payload []byte) {
	// Copy the client list so slow writes do not hold clientsMu
	h.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	writeMutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, writeMu := range h.clients {
		conns = append(conns, conn)
		writeMutexes = append(writeMutexes, writeMu)
	}
	h.clientsMu.RUnlock()

	var failed []*websocket.Conn
	for i, conn := range conns {
		if err := h.write(conn, writeMutexes[i], payload); err != nil {
			h.logger.Debug(fmt.Sprintf("dropping client: %s", err.Error()), slog.String("remote", conn.RemoteAddr().String()))
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		if h.remove(conn) && h.droppedTotal != nil {
			h.droppedTotal.Inc()
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, writeMu *sync.Mutex, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// remove unregisters and closes a client, reporting whether it was still registered
func (h *Hub) remove(conn *websocket.Conn) bool {
	h.clientsMu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	count := len(h.clients)
	h.clientsMu.Unlock()

	if !ok {
		return false
	}

	_ = conn.Close()
	if h.clientsGauge != nil {
		h.clientsGauge.Dec()
	}
	h.logger.Info("client disconnected", slog.Int("clients", count))
	return true
}

func (h *Hub) writeMutex(conn *websocket.Conn) (*sync.Mutex, bool) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	writeMu, ok := h.clients[conn]
	return writeMu, ok
}

func (h *Hub) handleClient(conn *websocket.Conn) {
	defer h.remove(conn)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.ping(conn, done)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(fmt.Sprintf("reading client message: %s", err.Error()))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if err = h.submit(message); err != nil {
			h.reject(conn, err)
		}
	}
}

func (h *Hub) submit(message []byte) error {
	cmd, err := DecodeCommand(message)
	if err != nil {
		return err
	}

	s := h.submitter.Load()
	if s == nil {
		return fmt.Errorf("pipeline is not accepting commands")
	}
	return (*s).Submit(cmd)
}

func (h *Hub) reject(conn *websocket.Conn, err error) {
	writeMu, ok := h.writeMutex(conn)
	if !ok {
		return
	}

	payload, _ := json.Marshal(eventMessage{Type: messageError, Error: err.Error()})
	if wErr := h.write(conn, writeMu, payload); wErr != nil {
		h.logger.Debug(fmt.Sprintf("replying to client: %s", wErr.Error()))
	}
}

func (h *Hub) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu, ok := h.writeMutex(conn)
			if !ok {
				return
			}

			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout))
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
