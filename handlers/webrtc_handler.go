package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"crawl-backend/auth"
	"crawl-backend/game"
	"crawl-backend/models"
	webrtcManager "crawl-backend/webrtc"
)

type WebRTCHandler struct {
	gameManager   *game.Manager
	webrtcManager *webrtcManager.Manager
}

// NewWebRTCHandler routes DataChannel traffic into the game manager.
func NewWebRTCHandler(gameManager *game.Manager, webrtcMgr *webrtcManager.Manager) *WebRTCHandler {
	webrtcMgr.OnMessage = gameManager.HandleFrame
	webrtcMgr.OnClose = gameManager.Disconnect
	return &WebRTCHandler{
		gameManager:   gameManager,
		webrtcManager: webrtcMgr,
	}
}

type offerRequest struct {
	Codec string `json:"codec"`
	Offer struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"offer"`
}

type answerResponse struct {
	ConnectionID string            `json:"connectionId"`
	Answer       map[string]string `json:"answer"`
}

// HandleOffer handles WebRTC offer from client
func (h *WebRTCHandler) HandleOffer(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req offerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Offer.SDP == "" {
		http.Error(w, "Offer SDP is required", http.StatusBadRequest)
		return
	}

	client := models.NewClient(req.Codec, "webrtc")
	peer, err := h.webrtcManager.CreatePeerConnection(client)
	if err != nil {
		http.Error(w, "Failed to create peer connection: "+err.Error(), http.StatusInternalServerError)
		return
	}

	answer, err := h.webrtcManager.Answer(r.Context(), peer, req.Offer.SDP)
	if err != nil {
		log.Printf("WebRTC negotiation for %s failed: %v", client.ID, err)
		h.webrtcManager.RemovePeer(client.ID)
		http.Error(w, "Failed to negotiate", http.StatusInternalServerError)
		return
	}

	h.gameManager.Attach(client)
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		h.gameManager.JoinWithClaims(client, claims)
	}

	writeJSON(w, http.StatusOK, answerResponse{
		ConnectionID: client.ID,
		Answer: map[string]string{
			"type": answer.Type.String(),
			"sdp":  answer.SDP,
		},
	})
}
