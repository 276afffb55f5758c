package handlers

import (
	"net/http"

	"crown-voting-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ResultsWSHandler serves the live results feed over WebSocket. Subscribers
// get a full snapshot on connect and per-category updates as votes commit.
type ResultsWSHandler struct {
	hub           *services.ResultsHub
	resultService *services.ResultService
}

// NewResultsWSHandler creates a new results WebSocket handler
func NewResultsWSHandler(hub *services.ResultsHub, resultService *services.ResultService) *ResultsWSHandler {
	return &ResultsWSHandler{
		hub:           hub,
		resultService: resultService,
	}
}

// HandleResults handles GET /ws/results
func (h *ResultsWSHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	id := h.hub.Register(conn)
	defer h.hub.Unregister(id)

	// Initial snapshot so a dashboard can render immediately.
	results, err := h.resultService.AllResults(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load results snapshot")
	} else {
		if err := h.hub.Send(id, services.ResultsMessage{Type: "results_snapshot", Data: results}); err != nil {
			log.Error().Err(err).Str("conn_id", id).Msg("Failed to send results snapshot")
			return
		}
	}

	// The feed is push-only; drain the connection until the client leaves.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("conn_id", id).Msg("WebSocket error")
			}
			break
		}
	}
}
