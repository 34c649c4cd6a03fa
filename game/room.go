package game

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"crawl-backend/models"
)

type commandKind int

const (
	cmdReserveSeat commandKind = iota
	cmdAddPlayer
	cmdRemovePlayer
	cmdDetachPlayer
	cmdReattachPlayer
	cmdHint
)

type hintKind int

const (
	hintEliminated hintKind = iota // reporter claims it was eliminated by other
	hintEat                        // reporter claims it eliminated other
)

type hint struct {
	kind     hintKind
	reporter string
	other    string
}

// command is a membership change applied at the next tick boundary.
type command struct {
	kind     commandKind
	playerID string
	name     string
	skinRef  string
	deadline time.Time
	hint     hint
}

type intentSlot struct {
	latest atomic.Pointer[models.Intent]
}

type RoomInfo struct {
	ID         string `json:"id"`
	Players    int    `json:"players"`
	Spectators int    `json:"spectators"`
	Items      int    `json:"items"`
	Tick       uint64 `json:"tick"`
}

// Room is one isolated simulation. The tick is the only writer of player
// and item state; connection handlers only append commands and replace
// intent slots.
type Room struct {
	ID  string
	cfg Config

	mu          sync.Mutex
	players     map[string]*models.Player
	items       map[string]*models.Item
	detached    map[string]time.Time
	seats       map[string]struct{} // player ids the store handed a slot to
	leaderboard []models.LeaderboardEntry
	tick        uint64
	nextJoin    uint64
	nextItem    uint64
	rng         *rand.Rand

	cmdMu sync.Mutex
	cmds  []command

	intents sync.Map // playerID -> *intentSlot
}

// NewRoom creates a room with a full item population. The seed drives every
// random placement in the room.
func NewRoom(id string, cfg Config, seed int64) *Room {
	r := &Room{
		ID:       id,
		cfg:      cfg,
		players:  make(map[string]*models.Player),
		items:    make(map[string]*models.Item),
		detached: make(map[string]time.Time),
		seats:    make(map[string]struct{}),
		rng:      rand.New(rand.NewSource(seed)),
	}
	r.mu.Lock()
	r.resetItemsLocked()
	r.mu.Unlock()
	return r
}

// Run ticks the room until ctx is cancelled.
func (r *Room) Run(ctx context.Context, onTick func(*Room, *TickResult)) {
	ticker := time.NewTicker(r.cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			res := r.safeTick(now)
			if res != nil && onTick != nil {
				onTick(r, res)
			}
		}
	}
}

func (r *Room) safeTick(now time.Time) (res *TickResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Room %s tick panicked: %v, resetting items", r.ID, rec)
			r.mu.Lock()
			r.resetItemsLocked()
			r.mu.Unlock()
			res = nil
		}
	}()
	return r.Tick(now)
}

func (r *Room) enqueue(c command) {
	r.cmdMu.Lock()
	r.cmds = append(r.cmds, c)
	r.cmdMu.Unlock()
}

func (r *Room) drainCommands() []command {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	cmds := r.cmds
	r.cmds = nil
	return cmds
}

// Reserve opens a seat for playerID. AddPlayer only spawns seated players,
// so a spawn queued after the seat was released does nothing.
func (r *Room) Reserve(playerID string) {
	r.enqueue(command{kind: cmdReserveSeat, playerID: playerID})
}

// AddPlayer queues the creation of a seated player. A second call for the
// same id is ignored.
func (r *Room) AddPlayer(playerID, displayName, skinRef string) {
	r.enqueue(command{kind: cmdAddPlayer, playerID: playerID, name: displayName, skinRef: skinRef})
}

func (r *Room) RemovePlayer(playerID string) {
	r.enqueue(command{kind: cmdRemovePlayer, playerID: playerID})
}

// DetachPlayer keeps the player in the room, frozen, until deadline.
func (r *Room) DetachPlayer(playerID string, deadline time.Time) {
	r.enqueue(command{kind: cmdDetachPlayer, playerID: playerID, deadline: deadline})
}

func (r *Room) ReattachPlayer(playerID string) {
	r.enqueue(command{kind: cmdReattachPlayer, playerID: playerID})
}

func (r *Room) SubmitHint(reporter string, kind hintKind, other string) {
	r.enqueue(command{kind: cmdHint, hint: hint{kind: kind, reporter: reporter, other: other}})
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := RoomInfo{ID: r.ID, Items: len(r.items), Tick: r.tick}
	for _, p := range r.players {
		if p.Spectator {
			info.Spectators++
		} else {
			info.Players++
		}
	}
	return info
}

// Player returns a copy of one player.
func (r *Room) Player(playerID string) (models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return models.Player{}, false
	}
	return p.Clone(), true
}

func (r *Room) sortedPlayersLocked() []*models.Player {
	players := make([]*models.Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].JoinSeq < players[j].JoinSeq })
	return players
}

func (r *Room) activePlayersLocked() []*models.Player {
	all := r.sortedPlayersLocked()
	active := all[:0]
	for _, p := range all {
		if !p.Spectator {
			active = append(active, p)
		}
	}
	return active
}

func (r *Room) sortedItemsLocked() []*models.Item {
	items := make([]*models.Item, 0, len(r.items))
	for _, it := range r.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items
}
