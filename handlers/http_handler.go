package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"crawl-backend/game"
	"crawl-backend/leaderboard"
	webrtcManager "crawl-backend/webrtc"
)

// preflight sets the CORS headers and answers OPTIONS requests. It reports
// whether the request was fully handled.
func preflight(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

type LeaderboardHandler struct {
	service *leaderboard.Service
}

func NewLeaderboardHandler(service *leaderboard.Service) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// ServeHTTP answers GET /leaderboard. A degraded answer is still a 200.
func (h *LeaderboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Top(r.Context()))
}

type RoomsHandler struct {
	gameManager *game.Manager
}

func NewRoomsHandler(gameManager *game.Manager) *RoomsHandler {
	return &RoomsHandler{gameManager: gameManager}
}

func (h *RoomsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.gameManager.Rooms.Rooms()})
}

// Health reports liveness plus connection, peer and room counts.
func Health(gameManager *game.Manager, webrtcMgr *webrtcManager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clients := gameManager.Registry.Snapshot()
		transports := make(map[string]int)
		for _, c := range clients {
			transports[c.Transport]++
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"connections": len(clients),
			"transports":  transports,
			"peers":       webrtcMgr.Len(),
			"rooms":       len(gameManager.Rooms.Rooms()),
		})
	}
}
