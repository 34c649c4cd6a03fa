package leaderboard

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	Capacity     = 1000
	TopSize      = 10
	FlushEvery   = 2 * time.Second
	queueSize    = 1024
	queryTimeout = 2 * time.Second

	SourceStore    = "store"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Fallback is served when the store has never answered.
var Fallback = []Entry{
	{Name: "Slinky", Score: 120},
	{Name: "Noodle", Score: 95},
	{Name: "Zigzag", Score: 80},
	{Name: "Coil", Score: 64},
	{Name: "Wiggles", Score: 50},
	{Name: "Sidewinder", Score: 42},
	{Name: "Pretzel", Score: 30},
	{Name: "Scales", Score: 21},
	{Name: "Hiss", Score: 12},
	{Name: "Twig", Score: 5},
}

type Response struct {
	Entries  []Entry `json:"entries"`
	Degraded bool    `json:"degraded"`
	Source   string  `json:"source"`
}

// Service batches score submissions into a Store and answers top-N queries,
// degrading to cached or static data when the store fails.
type Service struct {
	store      Store
	in         chan Entry
	flushEvery time.Duration

	mu       sync.RWMutex
	lastGood []Entry

	dropped atomic.Int64
}

func NewService(store Store, flushEvery time.Duration) *Service {
	if flushEvery <= 0 {
		flushEvery = FlushEvery
	}
	return &Service{
		store:      store,
		in:         make(chan Entry, queueSize),
		flushEvery: flushEvery,
	}
}

// Submit queues a score without blocking. It reports false when the queue
// is full and the score was dropped.
func (s *Service) Submit(name string, score int) bool {
	name = strings.TrimSpace(name)
	if name == "" || score <= 0 {
		return false
	}
	select {
	case s.in <- Entry{Name: name, Score: score, UpdatedAt: time.Now()}:
		return true
	default:
		if n := s.dropped.Add(1); n%100 == 1 {
			log.Printf("Leaderboard queue full, %d scores dropped so far", n)
		}
		return false
	}
}

// Run merges queued scores into the store until ctx is cancelled, then
// flushes what is left.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushEvery)
	defer ticker.Stop()

	pending := make(map[string]Entry)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-s.in:
					keepBest(pending, e)
				default:
					flushCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
					s.flush(flushCtx, pending)
					cancel()
					return
				}
			}
		case e := <-s.in:
			keepBest(pending, e)
		case <-ticker.C:
			s.flush(ctx, pending)
		}
	}
}

func keepBest(pending map[string]Entry, e Entry) {
	if cur, ok := pending[e.Name]; !ok || e.Score > cur.Score {
		pending[e.Name] = e
	}
}

// flush writes the batch; on failure the batch is kept for the next try.
func (s *Service) flush(ctx context.Context, pending map[string]Entry) {
	if len(pending) == 0 {
		return
	}
	batch := make([]Entry, 0, len(pending))
	for _, e := range pending {
		batch = append(batch, e)
	}
	if err := s.store.Merge(ctx, batch, Capacity); err != nil {
		log.Printf("Leaderboard merge of %d scores failed: %v", len(batch), err)
		return
	}
	for k := range pending {
		delete(pending, k)
	}
}

// Top returns the global top scores.
func (s *Service) Top(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entries, err := s.store.Top(ctx, TopSize)
	if err == nil {
		s.mu.Lock()
		s.lastGood = entries
		s.mu.Unlock()
		return Response{Entries: entries, Source: SourceStore}
	}
	log.Printf("Leaderboard query failed, serving degraded data: %v", err)

	s.mu.RLock()
	cached := s.lastGood
	s.mu.RUnlock()
	if cached != nil {
		return Response{Entries: cached, Degraded: true, Source: SourceCache}
	}
	fallback := make([]Entry, len(Fallback))
	copy(fallback, Fallback)
	return Response{Entries: fallback, Degraded: true, Source: SourceFallback}
}

func (s *Service) Close() error {
	return s.store.Close()
}
