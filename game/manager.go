package game

import (
	"context"
	"log"

	"crawl-backend/auth"
	"crawl-backend/constants"
	"crawl-backend/models"
	"crawl-backend/protocol"
	"crawl-backend/registry"
)

// ScoreSink receives final and periodic player scores.
type ScoreSink interface {
	Submit(name string, score int) bool
}

type Manager struct {
	Registry *registry.Service
	Rooms    *Store
	Scores   ScoreSink
	Tokens   *auth.Issuer
	cfg      Config
}

// NewManager wires a registry and a room store together. Rooms tick until
// ctx is cancelled. scores and tokens may be nil.
func NewManager(ctx context.Context, cfg Config, scores ScoreSink, tokens *auth.Issuer) *Manager {
	reg := registry.NewService()
	gm := &Manager{
		Registry: reg,
		Rooms:    NewStore(ctx, cfg, reg),
		Scores:   scores,
		Tokens:   tokens,
		cfg:      cfg,
	}
	gm.Rooms.OnTick = gm.handleTick
	gm.Rooms.OnSessionLost = gm.sessionLost
	return gm
}

// Connect registers a new transport session and greets it.
func (gm *Manager) Connect(codec, transport string) *models.Client {
	client := models.NewClient(codec, transport)
	gm.Attach(client)
	return client
}

// Attach registers a client created by a transport and greets it.
func (gm *Manager) Attach(client *models.Client) {
	gm.Registry.Register(client)
	sendMessage(client, protocol.Connected{Type: constants.MSG_CONNECTED, ConnectionID: client.ID})
	log.Printf("Client %s connected over %s (%s)", client.ID, client.Transport, client.Codec)
}

// Disconnect tears down a session. Safe to call more than once.
func (gm *Manager) Disconnect(client *models.Client) {
	gm.Rooms.RemovePlayer(client.ID)
	client.Close()
}

func (gm *Manager) Wait() {
	gm.Rooms.Wait()
}

func (gm *Manager) World() protocol.World {
	return protocol.World{Width: gm.cfg.Width, Height: gm.cfg.Height}
}
