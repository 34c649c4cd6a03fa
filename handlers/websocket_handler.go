package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"crawl-backend/auth"
	"crawl-backend/game"
	"crawl-backend/models"
	"crawl-backend/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type WebSocketHandler struct {
	gameManager *game.Manager

	// A connection that sends nothing, pongs included, within pongWait is
	// dropped.
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewWebSocketHandler(gameManager *game.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		gameManager: gameManager,
		pongWait:    pongWait,
		pingPeriod:  pingPeriod,
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := h.gameManager.Connect(r.URL.Query().Get("codec"), "websocket")
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		h.gameManager.JoinWithClaims(client, claims)
	}

	go h.writePump(client, conn)
	h.readPump(client, conn)
}

func (h *WebSocketHandler) readPump(client *models.Client, conn *websocket.Conn) {
	defer func() {
		h.gameManager.Disconnect(client)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		client.Touch()
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for %s: %v", client.ID, err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
		h.gameManager.HandleFrame(client, message)
	}
}

// writePump sends one frame per queued message; msgpack clients get binary
// frames.
func (h *WebSocketHandler) writePump(client *models.Client, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	frameType := websocket.TextMessage
	if protocol.CodecFor(client.Codec).Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case <-client.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(frameType, message); err != nil {
				client.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
		}
	}
}
