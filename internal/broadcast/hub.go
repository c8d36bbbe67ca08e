package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollpulse/internal/adapter/metrics"
	"github.com/pscheid92/pollpulse/internal/domain"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// Notification events pushed to observers.
const (
	// EventPollsUpdated carries no payload; observers re-fetch the list.
	EventPollsUpdated = "pollsUpdated"
	// EventVotesUpdated carries a poll ID and its fresh results.
	EventVotesUpdated = "votesUpdated"
	// EventPollsData is the full snapshot sent in reply to a client's
	// "getPolls" request.
	EventPollsData = "pollsData"
)

type envelope struct {
	Event   string         `json:"event"`
	PollID  string         `json:"pollId,omitempty"`
	Results domain.Results `json:"results,omitempty"`
	Polls   any            `json:"polls,omitempty"`
}

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	data []byte
}

type sendCmd struct {
	baseHubCmd
	connection *websocket.Conn
	data       []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub fans notifications out to every connected observer. A single
// goroutine owns the client set; all access goes through the command
// channel, so no locking is needed.
type Hub struct {
	cmdCh      chan hubCmd
	clients    map[*websocket.Conn]*clientWriter
	clock      clockwork.Clock
	maxClients int
	wsMetrics  *metrics.WebSocketMetrics
	done       chan struct{}
}

// NewHub creates a hub and starts its goroutine.
// maxClients caps concurrent connections (prevents resource exhaustion).
// wsMetrics may be nil.
func NewHub(clock clockwork.Clock, maxClients int, wsMetrics *metrics.WebSocketMetrics) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clients:    make(map[*websocket.Conn]*clientWriter),
		clock:      clock,
		maxClients: maxClients,
		wsMetrics:  wsMetrics,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds an observer connection. Returns an error if the
// connection cap is reached or the hub is stopped.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	select {
	case h.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}:
	case <-h.done:
		_ = conn.Close()
		return fmt.Errorf("hub is stopped")
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-h.done:
		_ = conn.Close()
		return fmt.Errorf("hub is stopped")
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes an observer connection. No-op once the hub is
// stopped; handleStop already closed every connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.cmdCh <- unregisterCmd{connection: conn}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected observers, or -1 on timeout.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- clientCountCmd{replyChannel: replyCh}:
	case <-h.done:
		return 0
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-h.done:
		return 0
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// PublishPollsUpdated notifies all observers that the poll set changed.
func (h *Hub) PublishPollsUpdated() {
	h.broadcast(envelope{Event: EventPollsUpdated})
}

// PublishVotesUpdated pushes fresh results for one poll to all observers.
func (h *Hub) PublishVotesUpdated(pollID uuid.UUID, results domain.Results) {
	h.broadcast(envelope{Event: EventVotesUpdated, PollID: pollID.String(), Results: results})
}

// SendPollSnapshot sends the full poll list to a single observer, in
// reply to its snapshot request.
func (h *Hub) SendPollSnapshot(conn *websocket.Conn, polls any) {
	data, err := json.Marshal(envelope{Event: EventPollsData, Polls: polls})
	if err != nil {
		slog.Error("Failed to marshal poll snapshot", "error", err)
		return
	}
	select {
	case h.cmdCh <- sendCmd{connection: conn, data: data}:
	case <-h.done:
	}
}

// Stop shuts down the hub, closing all observer connections. Blocks
// until the hub goroutine exits or the stop timeout is reached. Safe to
// call more than once.
func (h *Hub) Stop() {
	select {
	case h.cmdCh <- stopCmd{}:
	case <-h.done:
		return
	}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Broadcast hub stopped")
	case <-timer.Chan():
		slog.Warn("Broadcast hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) broadcast(env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "event", env.Event, "error", err)
		return
	}
	select {
	case h.cmdCh <- broadcastCmd{data: data}:
	case <-h.done:
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.connection)
		case broadcastCmd:
			h.handleBroadcast(c.data)
		case sendCmd:
			h.handleSend(c)
		case clientCountCmd:
			c.replyChannel <- len(h.clients)
		case stopCmd:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting observer: connection cap reached", "max_clients", h.maxClients)
		_ = c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients (%d) reached", h.maxClients)
		return
	}

	h.clients[c.connection] = newClientWriter(c.connection, h.clock)
	if h.wsMetrics != nil {
		h.wsMetrics.ActiveConnections.Inc()
	}
	slog.Debug("Observer registered", "total_clients", len(h.clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	if h.wsMetrics != nil {
		h.wsMetrics.ActiveConnections.Dec()
	}
	slog.Debug("Observer unregistered", "total_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendChannel <- data:
			if h.wsMetrics != nil {
				h.wsMetrics.MessagesPublished.Inc()
			}
		default:
			// client is not keeping up, mark for removal
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow observer")
		if h.wsMetrics != nil {
			h.wsMetrics.SlowClientsDropped.Inc()
		}
		h.handleUnregister(conn)
	}
}

func (h *Hub) handleSend(c sendCmd) {
	cw, exists := h.clients[c.connection]
	if !exists {
		return
	}

	select {
	case cw.sendChannel <- c.data:
		if h.wsMetrics != nil {
			h.wsMetrics.MessagesPublished.Inc()
		}
	default:
		slog.Warn("Dropping snapshot for slow observer")
	}
}

func (h *Hub) handleStop() {
	for conn, cw := range h.clients {
		cw.stopGraceful("server shutting down")
		delete(h.clients, conn)
	}
	if h.wsMetrics != nil {
		h.wsMetrics.ActiveConnections.Set(0)
	}
}
