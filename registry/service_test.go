package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crawl-backend/models"
)

func newClient(t *testing.T, s *Service) *models.Client {
	t.Helper()
	c := models.NewClient("json", "test")
	require.True(t, s.Register(c))
	return c
}

func TestBindAndLookup(t *testing.T) {
	s := NewService()
	c := newClient(t, s)

	assert.False(t, s.Register(c), "second register must be refused")
	assert.False(t, s.Bind("missing", "r1", "p1"))
	require.True(t, s.Bind(c.ID, "r1", "p1"))

	b, ok := s.Lookup(c.ID)
	require.True(t, ok)
	assert.Equal(t, Binding{ConnID: c.ID, RoomID: "r1", PlayerID: "p1"}, b)

	members := s.Members("r1")
	require.Len(t, members, 1)
	assert.Equal(t, "p1", members[0].PlayerID)

	got, ok := s.PlayerConn("r1", "p1")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestRebindMovesRoom(t *testing.T) {
	s := NewService()
	c := newClient(t, s)

	require.True(t, s.Bind(c.ID, "r1", "p1"))
	require.True(t, s.Bind(c.ID, "r2", "p2"))

	assert.Empty(t, s.Members("r1"))
	assert.Len(t, s.Members("r2"), 1)
}

func TestUnregisterFiresOnceAndIsIdempotent(t *testing.T) {
	s := NewService()
	var fired []Binding
	s.OnUnbind = func(b Binding) { fired = append(fired, b) }

	bound := newClient(t, s)
	loose := newClient(t, s)
	require.True(t, s.Bind(bound.ID, "r1", "p1"))

	s.Unregister(bound.ID)
	s.Unregister(bound.ID)
	s.Unregister(loose.ID)

	require.Len(t, fired, 1)
	assert.Equal(t, "p1", fired[0].PlayerID)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Members("r1"))
}

func TestUnbindKeepsConnection(t *testing.T) {
	s := NewService()
	called := false
	s.OnUnbind = func(Binding) { called = true }

	c := newClient(t, s)
	require.True(t, s.Bind(c.ID, "r1", "p1"))
	s.Unbind(c.ID)

	assert.False(t, called)
	_, bound := s.Lookup(c.ID)
	assert.False(t, bound)
	_, ok := s.Get(c.ID)
	assert.True(t, ok)
}

func TestSnapshotKeepsRegistrationOrder(t *testing.T) {
	s := NewService()
	a := newClient(t, s)
	b := newClient(t, s)
	c := newClient(t, s)
	s.Unregister(b.ID)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, a.ID, snap[0].ID)
	assert.Equal(t, c.ID, snap[1].ID)
}
