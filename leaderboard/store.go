package leaderboard

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sasha-s/go-deadlock"
)

var ErrUnavailable = errors.New("leaderboard store unavailable")

type Entry struct {
	Name      string    `json:"name" msgpack:"name"`
	Score     int       `json:"score" msgpack:"score"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updated_at"`
}

// Store persists the best score per display name.
type Store interface {
	// Merge keeps the higher of the stored and the given score for each
	// name, then trims the table to capacity entries.
	Merge(ctx context.Context, entries []Entry, capacity int) error
	Top(ctx context.Context, n int) ([]Entry, error)
	Close() error
}

// rank orders entries by score, then name, and keeps the first n.
func rank(entries []Entry, n int) []Entry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// MemoryStore keeps scores in process memory. It can be switched
// unavailable to exercise the degraded path.
type MemoryStore struct {
	mu          deadlock.Mutex
	scores      map[string]Entry
	unavailable bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[string]Entry)}
}

func (m *MemoryStore) SetUnavailable(down bool) {
	m.mu.Lock()
	m.unavailable = down
	m.mu.Unlock()
}

func (m *MemoryStore) Merge(ctx context.Context, entries []Entry, capacity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return ErrUnavailable
	}
	for _, e := range entries {
		if cur, ok := m.scores[e.Name]; !ok || e.Score > cur.Score {
			m.scores[e.Name] = e
		}
	}
	if len(m.scores) > capacity {
		all := make([]Entry, 0, len(m.scores))
		for _, e := range m.scores {
			all = append(all, e)
		}
		for _, e := range rank(all, -1)[capacity:] {
			delete(m.scores, e.Name)
		}
	}
	return nil
}

func (m *MemoryStore) Top(ctx context.Context, n int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return nil, ErrUnavailable
	}
	all := make([]Entry, 0, len(m.scores))
	for _, e := range m.scores {
		all = append(all, e)
	}
	return rank(all, n), nil
}

func (m *MemoryStore) Close() error { return nil }
