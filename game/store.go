package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"crawl-backend/registry"
)

var (
	ErrNoRoomAvailable   = errors.New("no room available")
	ErrNotBound          = errors.New("connection is not in a room")
	ErrSessionExpired    = errors.New("session expired")
	ErrUnknownConnection = errors.New("unknown connection")
)

type roomEntry struct {
	room    *Room
	members map[string]struct{} // player ids holding a slot, detached ones included
	cancel  context.CancelFunc
}

// Store owns the room lifecycle: placement, capacity and teardown once the
// last member is released.
type Store struct {
	cfg Config
	reg *registry.Service
	ctx context.Context

	mu      deadlock.Mutex
	rooms   map[string]*roomEntry
	order   []string
	created int64

	wg sync.WaitGroup

	// OnTick receives every tick result before slots are released.
	OnTick func(*Room, *TickResult)
	// OnSessionLost fires for a connection bound to a player the room no
	// longer holds. The binding is already gone when it runs.
	OnSessionLost func(registry.Binding)
}

// NewStore creates a store whose rooms tick until ctx is cancelled. The
// store takes over the registry's OnUnbind hook.
func NewStore(ctx context.Context, cfg Config, reg *registry.Service) *Store {
	s := &Store{
		cfg:   cfg,
		reg:   reg,
		ctx:   ctx,
		rooms: make(map[string]*roomEntry),
		order: make([]string, 0),
	}
	reg.OnUnbind = s.handleUnbind
	return s
}

// JoinRoom places a connection in the oldest room with a free slot, creating
// a room when every room is full. A connection that is already bound keeps
// its room.
func (s *Store) JoinRoom(connID string) (roomID, playerID string, err error) {
	if b, ok := s.reg.Lookup(connID); ok {
		return b.RoomID, b.PlayerID, nil
	}
	if _, ok := s.reg.Get(connID); !ok {
		return "", "", ErrUnknownConnection
	}

	playerID = uuid.New().String()

	s.mu.Lock()
	entry := s.pickRoomLocked()
	if entry == nil {
		if len(s.rooms) >= s.cfg.MaxRooms {
			s.mu.Unlock()
			return "", "", fmt.Errorf("%w: %d rooms open", ErrNoRoomAvailable, s.cfg.MaxRooms)
		}
		entry = s.createRoomLocked()
	}
	entry.members[playerID] = struct{}{}
	entry.room.Reserve(playerID)
	roomID = entry.room.ID
	s.mu.Unlock()

	if !s.reg.Bind(connID, roomID, playerID) {
		entry.room.RemovePlayer(playerID)
		s.release(roomID, []string{playerID})
		return "", "", ErrUnknownConnection
	}
	log.Printf("Connection %s joined room %s as player %s", connID, roomID, playerID)
	return roomID, playerID, nil
}

func (s *Store) pickRoomLocked() *roomEntry {
	for _, id := range s.order {
		entry := s.rooms[id]
		if len(entry.members) < s.cfg.Capacity {
			return entry
		}
	}
	return nil
}

func (s *Store) createRoomLocked() *roomEntry {
	s.created++
	seed := time.Now().UnixNano()
	if s.cfg.Seed != 0 {
		seed = s.cfg.Seed + s.created
	}
	room := NewRoom(uuid.New().String(), s.cfg, seed)
	ctx, cancel := context.WithCancel(s.ctx)
	entry := &roomEntry{room: room, members: make(map[string]struct{}), cancel: cancel}
	s.rooms[room.ID] = entry
	s.order = append(s.order, room.ID)

	if s.cfg.TickRate > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			room.Run(ctx, s.afterTick)
		}()
	}
	log.Printf("Room %s created (%d open)", room.ID, len(s.rooms))
	return entry
}

// SetPlayerInfo spawns the connection's player. Only the first call for a
// player has an effect.
func (s *Store) SetPlayerInfo(connID, displayName, skinRef string) error {
	room, b, err := s.bound(connID)
	if err != nil {
		return err
	}
	room.AddPlayer(b.PlayerID, displayName, skinRef)
	return nil
}

// RemovePlayer drops a connection. The player leaves its room at the next
// tick, or after the reconnect grace period when one is configured.
// Calling it again for the same connection does nothing.
func (s *Store) RemovePlayer(connID string) {
	s.reg.Unregister(connID)
}

// Resume rebinds connID to a player still held by its room. A connection
// currently driving that player is taken over.
func (s *Store) Resume(connID, roomID, playerID string) error {
	if _, ok := s.reg.Get(connID); !ok {
		return ErrUnknownConnection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: room %s closed", ErrSessionExpired, roomID)
	}
	if _, held := entry.members[playerID]; !held {
		return fmt.Errorf("%w: player %s left room %s", ErrSessionExpired, playerID, roomID)
	}

	if old, ok := s.reg.PlayerConn(roomID, playerID); ok && old.ID != connID {
		s.reg.Unbind(old.ID)
		old.Close()
		log.Printf("Connection %s took over player %s from %s", connID, playerID, old.ID)
	}
	s.reg.Unbind(connID)
	if !s.reg.Bind(connID, roomID, playerID) {
		return ErrUnknownConnection
	}
	entry.room.ReattachPlayer(playerID)
	log.Printf("Connection %s resumed player %s in room %s", connID, playerID, roomID)
	return nil
}

// handleUnbind runs when the registry drops a bound connection.
func (s *Store) handleUnbind(b registry.Binding) {
	s.mu.Lock()
	entry, ok := s.rooms[b.RoomID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if s.cfg.ReconnectGrace > 0 {
		entry.room.DetachPlayer(b.PlayerID, time.Now().Add(s.cfg.ReconnectGrace))
		return
	}
	entry.room.RemovePlayer(b.PlayerID)
}

func (s *Store) afterTick(room *Room, res *TickResult) {
	if s.OnTick != nil {
		s.OnTick(room, res)
	}
	for _, playerID := range res.Expired {
		if client, ok := s.reg.PlayerConn(room.ID, playerID); ok {
			s.loseSession(registry.Binding{ConnID: client.ID, RoomID: room.ID, PlayerID: playerID})
		}
	}
	s.release(room.ID, res.Released)
}

func (s *Store) loseSession(b registry.Binding) {
	s.reg.Unbind(b.ConnID)
	if s.OnSessionLost != nil {
		s.OnSessionLost(b)
	}
}

// release frees room slots and tears the room down once nobody holds one.
func (s *Store) release(roomID string, playerIDs []string) {
	if len(playerIDs) == 0 {
		return
	}

	s.mu.Lock()
	entry, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	for _, id := range playerIDs {
		delete(entry.members, id)
	}
	if len(entry.members) > 0 {
		s.mu.Unlock()
		return
	}
	s.teardownLocked(entry)
	s.mu.Unlock()

	for _, m := range s.reg.Members(roomID) {
		s.loseSession(registry.Binding{ConnID: m.Client.ID, RoomID: roomID, PlayerID: m.PlayerID})
	}
}

func (s *Store) teardownLocked(entry *roomEntry) {
	entry.cancel()
	delete(s.rooms, entry.room.ID)
	for i, id := range s.order {
		if id == entry.room.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	log.Printf("Room %s closed (%d open)", entry.room.ID, len(s.rooms))
}

func (s *Store) bound(connID string) (*Room, registry.Binding, error) {
	b, ok := s.reg.Lookup(connID)
	if !ok {
		return nil, registry.Binding{}, ErrNotBound
	}
	s.mu.Lock()
	entry, ok := s.rooms[b.RoomID]
	s.mu.Unlock()
	if !ok {
		return nil, b, ErrNotBound
	}
	return entry.room, b, nil
}

func (s *Store) Room(roomID string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	return entry.room, true
}

// Rooms lists open rooms, oldest first.
func (s *Store) Rooms() []RoomInfo {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.order))
	for _, id := range s.order {
		rooms = append(rooms, s.rooms[id].room)
	}
	s.mu.Unlock()

	infos := make([]RoomInfo, len(rooms))
	for i, r := range rooms {
		infos[i] = r.Info()
	}
	return infos
}

// Step ticks every room once. It is how rooms advance when TickRate is zero.
func (s *Store) Step(now time.Time) {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.order))
	for _, id := range s.order {
		rooms = append(rooms, s.rooms[id].room)
	}
	s.mu.Unlock()

	for _, r := range rooms {
		if res := r.safeTick(now); res != nil {
			s.afterTick(r, res)
		}
	}
}

// Wait blocks until every room goroutine has stopped.
func (s *Store) Wait() {
	s.wg.Wait()
}
