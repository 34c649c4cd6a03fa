package game

import (
	"log"

	"crawl-backend/constants"
	"crawl-backend/models"
	"crawl-backend/protocol"
	"crawl-backend/registry"
)

// frameCache encodes a payload at most once per codec.
type frameCache struct {
	payload any
	frames  map[string][]byte
}

func newFrameCache(payload any) *frameCache {
	return &frameCache{payload: payload, frames: make(map[string][]byte, 2)}
}

func (fc *frameCache) frame(codecName string) []byte {
	if data, ok := fc.frames[codecName]; ok {
		return data
	}
	data, err := protocol.CodecFor(codecName).Marshal(fc.payload)
	if err != nil {
		log.Printf("Failed to encode %T as %s: %v", fc.payload, codecName, err)
	}
	fc.frames[codecName] = data
	return data
}

func fanOut(members []registry.Member, payload any) {
	fc := newFrameCache(payload)
	for _, m := range members {
		if data := fc.frame(m.Client.Codec); data != nil {
			if !m.Client.Enqueue(data) {
				log.Printf("Dropping slow client %s from room broadcast", m.Client.ID)
			}
		}
	}
}

func sendMessage(client *models.Client, payload any) bool {
	data, err := protocol.CodecFor(client.Codec).Marshal(payload)
	if err != nil {
		log.Printf("Failed to encode %T for %s: %v", payload, client.ID, err)
		return false
	}
	return client.Enqueue(data)
}

func (gm *Manager) handleTick(room *Room, res *TickResult) {
	gm.broadcastTick(room.ID, res)

	if gm.Scores != nil {
		for _, s := range res.Scores {
			// Generated names stay out of the global table.
			if s.Anonymous {
				continue
			}
			gm.Scores.Submit(s.DisplayName, s.Score)
		}
	}
	if res.RejectedHints > 0 {
		log.Printf("Room %s rejected %d collision hints on tick %d", room.ID, res.RejectedHints, res.Snapshot.Tick)
	}
}

// broadcastTick sends the tick's events to the room, then the snapshot.
// Nothing here blocks on a slow connection.
func (gm *Manager) broadcastTick(roomID string, res *TickResult) {
	members := gm.Registry.Members(roomID)

	for _, e := range res.Eliminations {
		client, ok := gm.Registry.PlayerConn(roomID, e.PlayerID)
		if !ok {
			continue
		}
		sendMessage(client, protocol.PlayerEliminated{
			Type:         constants.MSG_PLAYER_ELIMINATED,
			PlayerID:     e.PlayerID,
			EliminatedBy: e.EliminatedBy,
			Reason:       e.Reason,
		})
		sendMessage(client, protocol.SetSpectator{Type: constants.MSG_SET_SPECTATOR, PlayerID: e.PlayerID})
	}
	for _, c := range res.Collected {
		fanOut(members, protocol.ItemCollected{Type: constants.MSG_ITEM_COLLECTED, PlayerID: c.PlayerID, ItemID: c.ItemID})
	}
	fanOut(members, res.Snapshot)
}

func (gm *Manager) sessionLost(b registry.Binding) {
	client, ok := gm.Registry.Get(b.ConnID)
	if !ok {
		return
	}
	log.Printf("Client %s lost player %s in room %s", b.ConnID, b.PlayerID, b.RoomID)
	sendError(client, constants.ERR_SESSION_EXPIRED, "session expired, join again")
}
