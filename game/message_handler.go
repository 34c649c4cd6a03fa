package game

import (
	"errors"
	"log"

	"crawl-backend/auth"
	"crawl-backend/constants"
	"crawl-backend/models"
	"crawl-backend/protocol"
)

// HandleFrame decodes one inbound frame from any transport and applies it.
// Bad frames are dropped; the connection stays open.
func (gm *Manager) HandleFrame(client *models.Client, data []byte) {
	client.Touch()

	msg, err := protocol.Decode(protocol.CodecFor(client.Codec), data)
	if err != nil {
		log.Printf("Dropping frame from %s: %v", client.ID, err)
		sendError(client, constants.ERR_MALFORMED, err.Error())
		return
	}
	gm.handleMessage(client, msg)
}

func (gm *Manager) handleMessage(client *models.Client, msg protocol.ClientMessage) {
	var err error
	switch m := msg.(type) {
	case protocol.JoinRoom:
		gm.joinRoom(client, m.ResumeToken)
	case protocol.SetPlayerInfo:
		err = gm.Rooms.SetPlayerInfo(client.ID, m.DisplayName, m.SkinRef)
	case protocol.ChangeDirection:
		err = gm.Rooms.ApplyIntent(client.ID, directionIntent(m.Direction))
	case protocol.BoostStart:
		err = gm.Rooms.ApplyIntent(client.ID, boostIntent(true))
	case protocol.BoostStop:
		err = gm.Rooms.ApplyIntent(client.ID, boostIntent(false))
	case protocol.EliminationHint:
		err = gm.Rooms.SubmitHint(client.ID, hintEliminated, m.EliminatedBy)
	case protocol.EatHint:
		err = gm.Rooms.SubmitHint(client.ID, hintEat, m.EatenPlayer)
	case protocol.Pong:
	}

	if errors.Is(err, ErrNotBound) {
		log.Printf("Client %s sent %s outside a room", client.ID, msg.ClientMessageType())
		sendError(client, constants.ERR_NOT_IN_ROOM, "join a room first")
	}
}

// joinRoom resumes the session named by token when it is still valid and
// falls back to a fresh placement otherwise.
func (gm *Manager) joinRoom(client *models.Client, token string) {
	if token == "" || gm.Tokens == nil {
		gm.JoinWithClaims(client, nil)
		return
	}
	claims, err := gm.Tokens.Validate(token)
	if err != nil {
		log.Printf("Client %s sent a bad resume token: %v", client.ID, err)
		sendError(client, constants.ERR_SESSION_EXPIRED, "session expired, joining a new room")
	}
	gm.JoinWithClaims(client, claims)
}

// JoinWithClaims puts an unbound client back into the slot claims name, or
// into a fresh one when claims is nil or the slot is gone. A bound client
// keeps its room.
func (gm *Manager) JoinWithClaims(client *models.Client, claims *auth.Claims) {
	if _, bound := gm.Registry.Lookup(client.ID); !bound && claims != nil {
		err := gm.Rooms.Resume(client.ID, claims.RoomID, claims.PlayerID)
		if err == nil {
			gm.sendJoined(client, claims.RoomID, claims.PlayerID, true)
			return
		}
		log.Printf("Client %s could not resume: %v", client.ID, err)
		sendError(client, constants.ERR_SESSION_EXPIRED, "session expired, joining a new room")
	}

	roomID, playerID, err := gm.Rooms.JoinRoom(client.ID)
	if err != nil {
		log.Printf("Client %s could not join a room: %v", client.ID, err)
		if errors.Is(err, ErrNoRoomAvailable) {
			sendError(client, constants.ERR_NO_ROOM_AVAILABLE, "all rooms are full")
		}
		return
	}
	gm.sendJoined(client, roomID, playerID, false)
}

func (gm *Manager) sendJoined(client *models.Client, roomID, playerID string, resumed bool) {
	msg := protocol.JoinedRoom{
		Type:     constants.MSG_JOINED_ROOM,
		RoomID:   roomID,
		PlayerID: playerID,
		Resumed:  resumed,
		World:    gm.World(),
	}
	if gm.Tokens != nil {
		token, err := gm.Tokens.Issue(roomID, playerID)
		if err != nil {
			log.Printf("Failed to issue resume token for %s: %v", playerID, err)
		}
		msg.ResumeToken = token
	}
	sendMessage(client, msg)
}

func sendError(client *models.Client, code, message string) {
	sendMessage(client, protocol.Error{Type: constants.MSG_ERROR, Code: code, Message: message})
}
