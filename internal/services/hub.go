package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"crown-voting-backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ResultsMessage is a WebSocket message pushed to live-results subscribers.
type ResultsMessage struct {
	Type     string          `json:"type"`
	Category models.Category `json:"category,omitempty"`
	Data     interface{}     `json:"data,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// subscriber serializes writes to one connection: gorilla/websocket allows
// at most one concurrent writer per connection, and broadcasts run on the
// request goroutines that committed the votes.
type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// ResultsHub manages WebSocket subscribers of the live results feed. Every
// committed vote triggers a broadcast of the affected categories' fresh
// aggregates.
type ResultsHub struct {
	mu            sync.RWMutex
	connections   map[string]*subscriber
	resultService *ResultService
}

// NewResultsHub creates a new results hub
func NewResultsHub(resultService *ResultService) *ResultsHub {
	return &ResultsHub{
		connections:   make(map[string]*subscriber),
		resultService: resultService,
	}
}

// Register registers a new subscriber connection and returns its id.
func (h *ResultsHub) Register(conn *websocket.Conn) string {
	id := uuid.New().String()

	h.mu.Lock()
	h.connections[id] = &subscriber{conn: conn}
	h.mu.Unlock()

	log.Info().Str("conn_id", id).Msg("Results subscriber registered")
	return id
}

// Unregister removes a subscriber connection.
func (h *ResultsHub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, exists := h.connections[id]; exists {
		sub.conn.Close()
		delete(h.connections, id)
		log.Info().Str("conn_id", id).Msg("Results subscriber unregistered")
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *ResultsHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Send writes a message to one subscriber. Writes to the same connection
// are serialized by the subscriber's mutex.
func (h *ResultsHub) Send(id string, message ResultsMessage) error {
	h.mu.RLock()
	sub, exists := h.connections[id]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("subscriber %s is not connected", id)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := sub.write(data); err != nil {
		h.Unregister(id)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// BroadcastCategories pushes the fresh aggregates of the given categories to
// every subscriber. Called after a vote commits, when the caches have
// already been invalidated.
func (h *ResultsHub) BroadcastCategories(ctx context.Context, categories ...models.Category) {
	if h.SubscriberCount() == 0 {
		return
	}

	for _, category := range categories {
		result, err := h.resultService.ResultsForCategory(ctx, category)
		if err != nil {
			log.Error().Err(err).Str("category", string(category)).Msg("Failed to load results for broadcast")
			continue
		}
		h.broadcast(ResultsMessage{
			Type:     "results_updated",
			Category: category,
			Data:     result,
		})
	}
}

func (h *ResultsHub) broadcast(message ResultsMessage) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.Send(id, message); err != nil {
			log.Error().Err(err).Str("conn_id", id).Msg("Failed to push results update")
		}
	}
}
