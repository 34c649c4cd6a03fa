package game

import (
	"crawl-backend/models"
)

// SubmitIntent merges an intent into the player's slot. Fields set in a
// later intent win until the next tick drains the slot.
func (r *Room) SubmitIntent(playerID string, in models.Intent) {
	v, _ := r.intents.LoadOrStore(playerID, &intentSlot{})
	slot := v.(*intentSlot)
	for {
		old := slot.latest.Load()
		merged := in.Over(old)
		if slot.latest.CompareAndSwap(old, &merged) {
			return
		}
	}
}

func directionIntent(dir models.Vec) models.Intent {
	return models.Intent{Direction: &dir}
}

func boostIntent(on bool) models.Intent {
	return models.Intent{Boost: &on}
}

// ApplyIntent records the connection's latest input for its player.
func (s *Store) ApplyIntent(connID string, in models.Intent) error {
	room, b, err := s.bound(connID)
	if err != nil {
		return err
	}
	room.SubmitIntent(b.PlayerID, in)
	return nil
}

// SubmitHint forwards a client collision claim to the room, which checks it
// against its own state on the next tick.
func (s *Store) SubmitHint(connID string, kind hintKind, otherPlayerID string) error {
	room, b, err := s.bound(connID)
	if err != nil {
		return err
	}
	room.SubmitHint(b.PlayerID, kind, otherPlayerID)
	return nil
}
