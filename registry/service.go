package registry

import (
	"github.com/sasha-s/go-deadlock"

	"crawl-backend/models"
)

// Binding routes a connection to the room and player it drives.
type Binding struct {
	ConnID   string
	RoomID   string
	PlayerID string
}

type Member struct {
	Client   *models.Client
	PlayerID string
}

// Service tracks one live connection per player and the room each one is
// bound to.
type Service struct {
	mu       deadlock.RWMutex
	clients  map[string]*models.Client
	order    []string
	bindings map[string]Binding
	rooms    map[string]map[string]string // roomID -> connID -> playerID

	// OnUnbind fires once per removed binding, outside the lock.
	OnUnbind func(Binding)
}

func NewService() *Service {
	return &Service{
		clients:  make(map[string]*models.Client),
		order:    make([]string, 0),
		bindings: make(map[string]Binding),
		rooms:    make(map[string]map[string]string),
	}
}

func (s *Service) Register(client *models.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[client.ID]; exists {
		return false
	}

	s.clients[client.ID] = client
	s.order = append(s.order, client.ID)
	return true
}

// Bind attaches a registered connection to a room. An existing binding of
// the same connection is replaced.
func (s *Service) Bind(connID, roomID, playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[connID]; !exists {
		return false
	}
	if old, ok := s.bindings[connID]; ok {
		s.dropFromRoomLocked(old)
	}

	b := Binding{ConnID: connID, RoomID: roomID, PlayerID: playerID}
	s.bindings[connID] = b
	if s.rooms[roomID] == nil {
		s.rooms[roomID] = make(map[string]string)
	}
	s.rooms[roomID][connID] = playerID
	return true
}

func (s *Service) Lookup(connID string) (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bindings[connID]
	return b, ok
}

// Unregister forgets a connection. Calling it again is a no-op.
func (s *Service) Unregister(connID string) {
	s.mu.Lock()
	delete(s.clients, connID)
	for i, id := range s.order {
		if id == connID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	b, bound := s.bindings[connID]
	if bound {
		delete(s.bindings, connID)
		s.dropFromRoomLocked(b)
	}
	onUnbind := s.OnUnbind
	s.mu.Unlock()

	if bound && onUnbind != nil {
		onUnbind(b)
	}
}

// Unbind drops a binding without firing OnUnbind; the connection stays
// registered.
func (s *Service) Unbind(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bindings[connID]; ok {
		delete(s.bindings, connID)
		s.dropFromRoomLocked(b)
	}
}

func (s *Service) dropFromRoomLocked(b Binding) {
	members := s.rooms[b.RoomID]
	if members == nil {
		return
	}
	delete(members, b.ConnID)
	if len(members) == 0 {
		delete(s.rooms, b.RoomID)
	}
}

func (s *Service) Get(connID string) (*models.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, exists := s.clients[connID]
	return client, exists
}

// Members lists the live connections bound to a room.
func (s *Service) Members(roomID string) []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.rooms[roomID]
	result := make([]Member, 0, len(members))
	for connID, playerID := range members {
		if client, ok := s.clients[connID]; ok {
			result = append(result, Member{Client: client, PlayerID: playerID})
		}
	}
	return result
}

// PlayerConn returns the connection currently driving a player.
func (s *Service) PlayerConn(roomID, playerID string) (*models.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for connID, pid := range s.rooms[roomID] {
		if pid == playerID {
			client, ok := s.clients[connID]
			return client, ok
		}
	}
	return nil, false
}

func (s *Service) Snapshot() []*models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Client, 0, len(s.order))
	for _, id := range s.order {
		if client, exists := s.clients[id]; exists {
			result = append(result, client)
		}
	}
	return result
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
