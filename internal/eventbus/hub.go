// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package eventbus

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/qrcall/internal/logging"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Event types carried over the signaling socket.
const (
	EventJoinUser     = "join-user"
	EventIncomingCall = "incoming-call"
	EventCallAccepted = "call-accepted"
	EventCallRejected = "call-rejected"
	EventCallEnded    = "call-ended"
	EventPing         = "ping"
	EventPong         = "pong"
)

// Message is one signaling event on the wire.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// roomMessage pairs an event with its destination room.
type roomMessage struct {
	room string
	msg  Message
}

// joinRequest moves a client into a room.
type joinRequest struct {
	client *Client
	room   string
}

// Hub routes signaling events to clients grouped by room. Rooms are keyed by
// participant identity: each authenticated user and each anonymous caller
// joins its own room, and call lifecycle events are published to the room of
// the participant they concern.
//
// All room mutations and deliveries happen on the single RunWithContext
// loop, so events published to one room are delivered in publish order.
type Hub struct {
	rooms      map[string]map[*Client]struct{}
	membership map[*Client]string
	publish    chan roomMessage
	join       chan joinRequest
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		membership: make(map[*Client]string),
		publish:    make(chan roomMessage, 256),
		join:       make(chan joinRequest, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// Designed for use with suture supervision: when the context is canceled all
// connected clients are closed and the method returns ctx.Err().
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister/join)
// - Priority 3: Published events
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		case req := <-h.join:
			h.joinRoom(req.client, req.room)
			continue
		default:
		}

		// Priority 3: Deliver published events or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case req := <-h.join:
			h.joinRoom(req.client, req.room)

		case rm := <-h.publish:
			h.deliver(rm)
		}
	}
}

// Publish queues an event for every client in room. It never blocks: when
// the publish queue is full the event is dropped and logged, matching the
// best-effort contract of the signaling socket (persisted call state remains
// the source of truth).
func (h *Hub) Publish(room, eventType string, data interface{}) {
	rm := roomMessage{room: room, msg: Message{Type: eventType, Data: data}}
	select {
	case h.publish <- rm:
	default:
		logging.Warn().
			Str("room", room).
			Str("event", eventType).
			Msg("publish queue full, dropping event")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.membership[client] = ""
	h.mu.Unlock()
	logging.Info().Int("total_clients", h.ClientCount()).Msg("signaling client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.membership[client]
	if ok {
		delete(h.membership, client)
		h.leaveRoomLocked(client, room)
		close(client.send)
	}
	h.mu.Unlock()
	if ok {
		logging.Info().Int("total_clients", h.ClientCount()).Msg("signaling client disconnected")
	}
}

// joinRoom moves client into room, leaving any previous room first. A client
// is in at most one room at a time.
func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	prev, ok := h.membership[client]
	if !ok {
		// Unregistered before the join was processed.
		h.mu.Unlock()
		return
	}
	if prev != "" {
		h.leaveRoomLocked(client, prev)
	}
	h.membership[client] = room
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.mu.Unlock()
	logging.Debug().Str("room", room).Msg("signaling client joined room")
}

func (h *Hub) leaveRoomLocked(client *Client, room string) {
	if room == "" {
		return
	}
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// deliver sends a message to all clients in the destination room in a
// deterministic order.
// DETERMINISM: Sorts clients by ID to ensure consistent delivery order.
func (h *Hub) deliver(rm roomMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[rm.room]
	if len(members) == 0 {
		logging.Debug().
			Str("room", rm.room).
			Str("event", rm.msg.Type).
			Msg("no clients in room, event dropped")
		return
	}

	clients := make([]*Client, 0, len(members))
	for client := range members {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- rm.msg:
		default:
			// Channel full or closed, mark for removal
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.membership, client)
		h.leaveRoomLocked(client, rm.room)
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()
	logging.Info().
		Str("component", "signaling-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("signaling hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients closes all connected clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.membership))
	for client := range h.membership {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.membership, client)
	}
	h.rooms = make(map[string]map[*Client]struct{})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.membership)
}

// RoomSize returns the number of clients currently in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
