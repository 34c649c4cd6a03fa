package game

import (
	"log"
	"math"
	"sort"
	"time"

	"crawl-backend/constants"
	"crawl-backend/models"
	"crawl-backend/protocol"
)

type Elimination struct {
	PlayerID     string
	EliminatedBy string
	Reason       string
}

type Collected struct {
	PlayerID string
	ItemID   string
}

// TickResult is everything a tick produced for the broadcast layer and the
// store.
type TickResult struct {
	Snapshot      protocol.UpdateEntities
	Eliminations  []Elimination
	Collected     []Collected
	Released      []string // players whose room slot is free again
	Expired       []string // reattach requests for players already gone
	Scores        []models.LeaderboardEntry
	RejectedHints int
}

// Tick advances the room by one step.
func (r *Room) Tick(now time.Time) *TickResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &TickResult{}
	hints := r.applyCommandsLocked(res)
	r.reapDetachedLocked(now, res)
	r.drainIntentsLocked()

	active := r.activePlayersLocked()
	prevHeads := r.movePlayersLocked(active)
	shiftSegments(active, prevHeads)
	consumed := r.collectItemsLocked(active, prevHeads, res)
	r.resolveCollisionsLocked(active, res)
	r.verifyHintsLocked(hints, res)
	r.replenishItemsLocked(consumed)

	r.tick++
	r.leaderboard = r.rankPlayersLocked()
	if r.cfg.SubmitEvery > 0 && r.tick%r.cfg.SubmitEvery == 0 {
		res.Scores = append(res.Scores, r.leaderboard...)
	}
	res.Snapshot = r.snapshotLocked(now)
	return res
}

func (r *Room) applyCommandsLocked(res *TickResult) []hint {
	var hints []hint
	for _, c := range r.drainCommands() {
		switch c.kind {
		case cmdReserveSeat:
			r.seats[c.playerID] = struct{}{}
		case cmdAddPlayer:
			if _, exists := r.players[c.playerID]; exists {
				continue
			}
			if _, seated := r.seats[c.playerID]; !seated {
				log.Printf("Ignoring spawn of %s in room %s: seat already released", c.playerID, r.ID)
				continue
			}
			r.addPlayerLocked(c.playerID, c.name, c.skinRef)
		case cmdRemovePlayer:
			r.removePlayerLocked(c.playerID, res)
		case cmdDetachPlayer:
			p, ok := r.players[c.playerID]
			if !ok {
				delete(r.seats, c.playerID)
				res.Released = append(res.Released, c.playerID)
				continue
			}
			p.Detached = true
			p.Direction = models.Vec{}
			p.Boosting = false
			r.detached[c.playerID] = c.deadline
			r.intents.Delete(c.playerID)
		case cmdReattachPlayer:
			p, ok := r.players[c.playerID]
			if !ok {
				res.Expired = append(res.Expired, c.playerID)
				continue
			}
			p.Detached = false
			delete(r.detached, c.playerID)
		case cmdHint:
			hints = append(hints, c.hint)
		}
	}
	return hints
}

func (r *Room) addPlayerLocked(playerID, name, skinRef string) {
	r.nextJoin++
	anonymous := name == ""
	if anonymous {
		name = "Player_" + shortID(playerID)
	}
	r.players[playerID] = &models.Player{
		ID:          playerID,
		Position:    r.spawnPointLocked(),
		Color:       constants.PLAYER_COLORS[int(r.nextJoin-1)%len(constants.PLAYER_COLORS)],
		DisplayName: name,
		SkinRef:     skinRef,
		Anonymous:   anonymous,
		Segments:    []models.Segment{},
		JoinSeq:     r.nextJoin,
	}
	log.Printf("Player %s (%s) spawned in room %s", playerID, name, r.ID)
}

func (r *Room) removePlayerLocked(playerID string, res *TickResult) {
	if p, ok := r.players[playerID]; ok {
		if !p.Spectator {
			res.Scores = append(res.Scores, scoreOf(p))
		}
		delete(r.players, playerID)
		log.Printf("Player %s removed from room %s", playerID, r.ID)
	}
	delete(r.detached, playerID)
	delete(r.seats, playerID)
	r.intents.Delete(playerID)
	res.Released = append(res.Released, playerID)
}

func (r *Room) reapDetachedLocked(now time.Time, res *TickResult) {
	if len(r.detached) == 0 {
		return
	}
	expired := make([]string, 0)
	for id, deadline := range r.detached {
		if now.After(deadline) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	for _, id := range expired {
		r.removePlayerLocked(id, res)
	}
}

func (r *Room) drainIntentsLocked() {
	r.intents.Range(func(k, v any) bool {
		p, ok := r.players[k.(string)]
		if !ok {
			r.intents.Delete(k)
			return true
		}
		in := v.(*intentSlot).latest.Swap(nil)
		if in == nil || p.Spectator || p.Detached {
			return true
		}
		if in.Direction != nil {
			p.Direction = *in.Direction
		}
		if in.Boost != nil {
			p.Boosting = *in.Boost
		}
		return true
	})
}

// movePlayersLocked advances every head and returns the pre-move heads.
func (r *Room) movePlayersLocked(active []*models.Player) map[string]models.Vec {
	prev := make(map[string]models.Vec, len(active))
	for _, p := range active {
		prev[p.ID] = p.Position
		if p.Direction.IsZero() {
			continue
		}
		speed := r.cfg.BaseSpeed
		if p.Boosting && p.ItemsEaten > constants.BOOST_MIN_ITEMS {
			speed *= r.cfg.BoostFactor
			p.BoostTicks++
			if p.BoostTicks >= constants.BOOST_DRAIN_TICKS {
				p.BoostTicks = 0
				p.ItemsEaten--
			}
		} else {
			p.BoostTicks = 0
		}
		p.Position = r.applyEdgeLocked(p.Position.Add(p.Direction.Scale(speed)))
	}
	return prev
}

func (r *Room) applyEdgeLocked(v models.Vec) models.Vec {
	if r.cfg.EdgePolicy == constants.EDGE_WRAP {
		return models.Vec{X: wrap(v.X, r.cfg.Width), Y: wrap(v.Y, r.cfg.Height)}
	}
	return models.Vec{X: clamp(v.X, 0, r.cfg.Width), Y: clamp(v.Y, 0, r.cfg.Height)}
}

// shiftSegments moves every segment into its predecessor's prior position.
func shiftSegments(active []*models.Player, prevHeads map[string]models.Vec) {
	for _, p := range active {
		head := prevHeads[p.ID]
		if len(p.Segments) == 0 || head == p.Position {
			continue
		}
		prior := make([]models.Segment, len(p.Segments))
		copy(prior, p.Segments)
		p.Segments[0].Vec = head
		for i := 1; i < len(p.Segments); i++ {
			p.Segments[i].Vec = prior[i-1].Vec
		}
	}
}

func (r *Room) snapshotLocked(now time.Time) protocol.UpdateEntities {
	players := make(map[string]models.Player, len(r.players))
	for id, p := range r.players {
		players[id] = p.Clone()
	}
	sorted := r.sortedItemsLocked()
	items := make([]models.Item, len(sorted))
	for i, it := range sorted {
		items[i] = *it
	}
	leaderboard := make([]models.LeaderboardEntry, len(r.leaderboard))
	copy(leaderboard, r.leaderboard)

	return protocol.UpdateEntities{
		Type:            constants.MSG_UPDATE_ENTITIES,
		RoomID:          r.ID,
		Tick:            r.tick,
		Players:         players,
		Items:           items,
		Leaderboard:     leaderboard,
		ServerTimestamp: now.UnixMilli(),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func wrap(v, size float64) float64 {
	m := math.Mod(v, size)
	if m < 0 {
		m += size
	}
	return m
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
