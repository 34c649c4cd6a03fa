package game

import (
	"log"

	"crawl-backend/constants"
	"crawl-backend/models"
)

func headsCollide(a, b *models.Player) bool {
	return a.Position.Dist(b.Position) < a.HeadRadius()+b.HeadRadius()
}

// hitsBody reports whether a's head touches any of b's trailing segments.
func hitsBody(a, b *models.Player) bool {
	reach := a.HeadRadius() + b.SegmentRadius()
	for _, s := range b.Segments {
		if a.Position.Dist(s.Vec) < reach {
			return true
		}
	}
	return false
}

// eliminates returns the reason killer's body or head would eliminate
// victim in the current state, or "" when it would not.
func eliminates(victim, killer *models.Player) string {
	if victim == killer || victim.Spectator || killer.Spectator {
		return ""
	}
	if headsCollide(victim, killer) && len(victim.Segments) <= len(killer.Segments) {
		return constants.REASON_HEAD_ON
	}
	if hitsBody(victim, killer) {
		return constants.REASON_BODY
	}
	return ""
}

// resolveCollisionsLocked marks every elimination against the pre-collision
// state and applies them afterwards, so the outcome does not depend on the
// order pairs are checked in. Equal-length head-on collisions eliminate
// both players.
func (r *Room) resolveCollisionsLocked(active []*models.Player, res *TickResult) {
	marked := make(map[string]Elimination)
	order := make([]string, 0)
	mark := func(victim, killer *models.Player, reason string) {
		if _, done := marked[victim.ID]; done {
			return
		}
		marked[victim.ID] = Elimination{PlayerID: victim.ID, EliminatedBy: killer.ID, Reason: reason}
		order = append(order, victim.ID)
	}

	for i, a := range active {
		for _, b := range active[i+1:] {
			if !headsCollide(a, b) {
				continue
			}
			la, lb := len(a.Segments), len(b.Segments)
			if la <= lb {
				mark(a, b, constants.REASON_HEAD_ON)
			}
			if lb <= la {
				mark(b, a, constants.REASON_HEAD_ON)
			}
		}
	}
	for _, a := range active {
		for _, b := range active {
			if a != b && hitsBody(a, b) {
				mark(a, b, constants.REASON_BODY)
			}
		}
	}

	for _, id := range order {
		e := marked[id]
		r.eliminateLocked(r.players[id], e, res)
	}
}

func (r *Room) eliminateLocked(p *models.Player, e Elimination, res *TickResult) {
	if p == nil || p.Spectator {
		return
	}
	res.Scores = append(res.Scores, scoreOf(p))
	p.Spectator = true
	p.Segments = []models.Segment{}
	p.Direction = models.Vec{}
	p.Boosting = false
	p.BoostTicks = 0
	r.intents.Delete(p.ID)
	res.Eliminations = append(res.Eliminations, e)
	log.Printf("Player %s eliminated by %s (%s) in room %s", e.PlayerID, e.EliminatedBy, e.Reason, r.ID)
}

// verifyHintsLocked re-runs the collision check for each client claim. A
// claim is honoured only when the server state agrees; a claim about an
// elimination the tick already applied is accepted as-is.
func (r *Room) verifyHintsLocked(hints []hint, res *TickResult) {
	for _, h := range hints {
		victimID, killerID := h.reporter, h.other
		if h.kind == hintEat {
			victimID, killerID = h.other, h.reporter
		}
		victim, ok1 := r.players[victimID]
		killer, ok2 := r.players[killerID]
		if !ok1 || !ok2 {
			res.RejectedHints++
			log.Printf("Rejected hint from %s in room %s: unknown player", h.reporter, r.ID)
			continue
		}
		if victim.Spectator && alreadyEliminatedBy(res, victimID, killerID) {
			continue
		}
		reason := eliminates(victim, killer)
		if reason == "" {
			res.RejectedHints++
			log.Printf("Rejected hint from %s in room %s: %s not eliminated by %s", h.reporter, r.ID, victimID, killerID)
			continue
		}
		r.eliminateLocked(victim, Elimination{PlayerID: victimID, EliminatedBy: killerID, Reason: reason}, res)
	}
}

func alreadyEliminatedBy(res *TickResult, victimID, killerID string) bool {
	for _, e := range res.Eliminations {
		if e.PlayerID == victimID && e.EliminatedBy == killerID {
			return true
		}
	}
	return false
}
