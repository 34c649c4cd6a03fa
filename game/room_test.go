package game

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crawl-backend/constants"
	"crawl-backend/models"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickRate = 0
	cfg.ItemTarget = 0
	cfg.ReconnectGrace = 0
	cfg.Seed = 7
	return cfg
}

func addTestPlayer(r *Room, id string, head models.Vec, segments ...models.Vec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextJoin++
	p := &models.Player{
		ID:          id,
		Position:    head,
		Color:       "#ffffff",
		DisplayName: id,
		Segments:    []models.Segment{},
		JoinSeq:     r.nextJoin,
	}
	for _, s := range segments {
		p.Segments = append(p.Segments, models.Segment{Vec: s, Color: p.Color})
	}
	r.players[id] = p
}

func setItems(r *Room, items ...*models.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[string]*models.Item)
	for _, it := range items {
		r.nextItem++
		it.Seq = r.nextItem
		r.items[it.ID] = it
	}
}

func mustPlayer(t *testing.T, r *Room, id string) models.Player {
	t.Helper()
	p, ok := r.Player(id)
	require.True(t, ok, "player %s missing", id)
	return p
}

func trail(head models.Vec, step models.Vec, n int) []models.Vec {
	out := make([]models.Vec, n)
	for i := range out {
		out[i] = head.Add(step.Scale(float64(i + 1)))
	}
	return out
}

func TestNewRoomSeedsItems(t *testing.T) {
	cfg := testConfig()
	cfg.ItemTarget = 50
	r := NewRoom("r", cfg, 1)

	info := r.Info()
	assert.Equal(t, 50, info.Items)
	assert.Zero(t, info.Players)
}

func TestMovementAndSegmentShift(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100}, models.Vec{X: 95, Y: 100}, models.Vec{X: 90, Y: 100})
	r.SubmitIntent("a", directionIntent(models.Vec{X: 1, Y: 0}))

	r.Tick(time.Now())

	p := mustPlayer(t, r, "a")
	assert.Equal(t, models.Vec{X: 105, Y: 100}, p.Position)
	require.Len(t, p.Segments, 2)
	assert.Equal(t, models.Vec{X: 100, Y: 100}, p.Segments[0].Vec)
	assert.Equal(t, models.Vec{X: 95, Y: 100}, p.Segments[1].Vec)
}

func TestStationaryPlayerKeepsSegments(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100}, models.Vec{X: 95, Y: 100})

	r.Tick(time.Now())

	p := mustPlayer(t, r, "a")
	assert.Equal(t, models.Vec{X: 95, Y: 100}, p.Segments[0].Vec)
}

func TestItemPickup(t *testing.T) {
	cfg := testConfig()
	cfg.ItemTarget = 1
	r := NewRoom("r", cfg, 1)
	addTestPlayer(r, "a", models.Vec{X: 50, Y: 50})
	setItems(r, &models.Item{ID: "item-x", Position: models.Vec{X: 55, Y: 50}, Value: constants.ITEM_VALUE_COMMON})

	res := r.Tick(time.Now())

	p := mustPlayer(t, r, "a")
	assert.Equal(t, 1, p.ItemsEaten)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, models.Vec{X: 50, Y: 50}, p.Segments[0].Vec)
	assert.Equal(t, []Collected{{PlayerID: "a", ItemID: "item-x"}}, res.Collected)

	require.Len(t, res.Snapshot.Items, 1)
	assert.NotEqual(t, "item-x", res.Snapshot.Items[0].ID)
}

func TestSeveralItemsInOneTick(t *testing.T) {
	cfg := testConfig()
	cfg.ItemTarget = 3
	r := NewRoom("r", cfg, 1)
	addTestPlayer(r, "a", models.Vec{X: 50, Y: 50}, models.Vec{X: 40, Y: 50})
	setItems(r,
		&models.Item{ID: "i1", Position: models.Vec{X: 52, Y: 50}, Value: 1},
		&models.Item{ID: "i2", Position: models.Vec{X: 50, Y: 53}, Value: 3},
		&models.Item{ID: "far", Position: models.Vec{X: 2000, Y: 2000}, Value: 1},
	)

	r.Tick(time.Now())

	p := mustPlayer(t, r, "a")
	assert.Equal(t, 4, p.ItemsEaten)
	require.Len(t, p.Segments, 3)
	assert.Equal(t, models.Vec{X: 40, Y: 50}, p.Segments[1].Vec)
	assert.Equal(t, models.Vec{X: 40, Y: 50}, p.Segments[2].Vec)
	assert.Equal(t, 3, r.Info().Items)
}

func TestItemPopulationIsRestored(t *testing.T) {
	cfg := testConfig()
	cfg.ItemTarget = 50
	r := NewRoom("r", cfg, 1)
	addTestPlayer(r, "a", models.Vec{X: 1000, Y: 1000})

	items := make([]*models.Item, 0, 50)
	for i := 0; i < 47; i++ {
		items = append(items, &models.Item{ID: fmt.Sprintf("far-%d", i), Position: models.Vec{X: 2500, Y: float64(100 + i*50)}, Value: 1})
	}
	for i := 0; i < 3; i++ {
		items = append(items, &models.Item{ID: fmt.Sprintf("near-%d", i), Position: models.Vec{X: 1000 + float64(i), Y: 1000}, Value: 1})
	}
	setItems(r, items...)

	res := r.Tick(time.Now())

	assert.Len(t, res.Collected, 3)
	require.Len(t, res.Snapshot.Items, 50)
	fresh := 0
	for _, it := range res.Snapshot.Items {
		if len(it.ID) < 4 || it.ID[:4] != "far-" {
			fresh++
		}
		assert.True(t, it.Position.X >= 0 && it.Position.X <= cfg.Width)
		assert.True(t, it.Position.Y >= 0 && it.Position.Y <= cfg.Height)
	}
	assert.Equal(t, 3, fresh)
	assert.Equal(t, 3, mustPlayer(t, r, "a").ItemsEaten)
}

func TestHeadOnShorterPlayerIsEliminated(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 500, Y: 500}, trail(models.Vec{X: 500, Y: 500}, models.Vec{X: -10}, 5)...)
	addTestPlayer(r, "b", models.Vec{X: 515, Y: 500}, trail(models.Vec{X: 515, Y: 500}, models.Vec{X: 10}, 2)...)

	res := r.Tick(time.Now())

	require.Equal(t, []Elimination{{PlayerID: "b", EliminatedBy: "a", Reason: constants.REASON_HEAD_ON}}, res.Eliminations)
	a := mustPlayer(t, r, "a")
	b := mustPlayer(t, r, "b")
	assert.False(t, a.Spectator)
	assert.Len(t, a.Segments, 5)
	assert.True(t, b.Spectator)
	assert.Empty(t, b.Segments)
	assert.True(t, b.Direction.IsZero())
}

func TestHeadOnEqualLengthEliminatesBoth(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 500, Y: 500}, trail(models.Vec{X: 500, Y: 500}, models.Vec{X: -10}, 2)...)
	addTestPlayer(r, "b", models.Vec{X: 510, Y: 500}, trail(models.Vec{X: 510, Y: 500}, models.Vec{X: 10}, 2)...)

	res := r.Tick(time.Now())

	require.Len(t, res.Eliminations, 2)
	assert.True(t, mustPlayer(t, r, "a").Spectator)
	assert.True(t, mustPlayer(t, r, "b").Spectator)
}

func TestRunningIntoBodyIsFatalRegardlessOfLength(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	// a's third segment sits at (200,260).
	addTestPlayer(r, "a", models.Vec{X: 200, Y: 200}, trail(models.Vec{X: 200, Y: 200}, models.Vec{Y: 20}, 3)...)
	addTestPlayer(r, "b", models.Vec{X: 212, Y: 260}, trail(models.Vec{X: 212, Y: 260}, models.Vec{X: 30}, 10)...)

	res := r.Tick(time.Now())

	require.Equal(t, []Elimination{{PlayerID: "b", EliminatedBy: "a", Reason: constants.REASON_BODY}}, res.Eliminations)
	assert.False(t, mustPlayer(t, r, "a").Spectator)
	assert.True(t, mustPlayer(t, r, "b").Spectator)
}

func TestSpectatorsNeitherMoveNorCollide(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 500, Y: 500})
	addTestPlayer(r, "ghost", models.Vec{X: 505, Y: 500})
	r.mu.Lock()
	r.players["ghost"].Spectator = true
	r.mu.Unlock()
	r.SubmitIntent("ghost", directionIntent(models.Vec{X: 1}))

	res := r.Tick(time.Now())

	assert.Empty(t, res.Eliminations)
	assert.Equal(t, models.Vec{X: 505, Y: 500}, mustPlayer(t, r, "ghost").Position)
	require.Len(t, res.Snapshot.Players, 2)
	assert.Len(t, res.Snapshot.Leaderboard, 1)
}

func TestEdgePolicies(t *testing.T) {
	for _, tc := range []struct {
		policy string
		want   models.Vec
	}{
		{constants.EDGE_CLAMP, models.Vec{X: 3000, Y: 100}},
		{constants.EDGE_WRAP, models.Vec{X: 3, Y: 100}},
	} {
		t.Run(tc.policy, func(t *testing.T) {
			cfg := testConfig()
			cfg.EdgePolicy = tc.policy
			r := NewRoom("r", cfg, 1)
			addTestPlayer(r, "a", models.Vec{X: 2998, Y: 100})
			r.SubmitIntent("a", directionIntent(models.Vec{X: 1}))

			r.Tick(time.Now())

			p := mustPlayer(t, r, "a")
			assert.InDelta(t, tc.want.X, p.Position.X, 1e-9)
			assert.InDelta(t, tc.want.Y, p.Position.Y, 1e-9)
		})
	}
}

func TestBoostDrainsItems(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100})
	r.mu.Lock()
	r.players["a"].ItemsEaten = 10
	r.mu.Unlock()
	r.SubmitIntent("a", directionIntent(models.Vec{X: 1}))
	r.SubmitIntent("a", boostIntent(true))

	for i := 0; i < constants.BOOST_DRAIN_TICKS; i++ {
		r.Tick(time.Now())
	}

	p := mustPlayer(t, r, "a")
	assert.Equal(t, 9, p.ItemsEaten)
	assert.InDelta(t, 100+float64(constants.BOOST_DRAIN_TICKS)*10, p.Position.X, 1e-9)
}

func TestBoostNeedsMinimumItems(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100})
	r.mu.Lock()
	r.players["a"].ItemsEaten = constants.BOOST_MIN_ITEMS
	r.mu.Unlock()
	r.SubmitIntent("a", models.Intent{Direction: &models.Vec{X: 1}, Boost: new(bool)})
	r.SubmitIntent("a", boostIntent(true))

	for i := 0; i < 8; i++ {
		r.Tick(time.Now())
	}

	p := mustPlayer(t, r, "a")
	assert.Equal(t, constants.BOOST_MIN_ITEMS, p.ItemsEaten)
	assert.InDelta(t, 140, p.Position.X, 1e-9)
}

func TestLatestIntentWins(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100})

	r.SubmitIntent("a", directionIntent(models.Vec{X: 1}))
	r.SubmitIntent("a", boostIntent(true))
	r.SubmitIntent("a", directionIntent(models.Vec{Y: 1}))
	r.Tick(time.Now())

	p := mustPlayer(t, r, "a")
	assert.Equal(t, models.Vec{X: 100, Y: 105}, p.Position)
	assert.True(t, p.Boosting)
}

func TestAddPlayerFirstWriteWins(t *testing.T) {
	cfg := testConfig()
	cfg.Width, cfg.Height = 500, 400
	r := NewRoom("r", cfg, 1)
	r.Reserve("p-123456789")
	r.Reserve("q")
	r.AddPlayer("p-123456789", "Ann", "skin-1")
	r.AddPlayer("p-123456789", "Bob", "skin-2")
	r.AddPlayer("q", "", "")

	r.Tick(time.Now())

	p := mustPlayer(t, r, "p-123456789")
	assert.Equal(t, "Ann", p.DisplayName)
	assert.Equal(t, "skin-1", p.SkinRef)
	assert.Empty(t, p.Segments)
	assert.Zero(t, p.ItemsEaten)
	assert.True(t, p.Position.X >= 0 && p.Position.X <= cfg.Width)
	assert.True(t, p.Position.Y >= 0 && p.Position.Y <= cfg.Height)
	assert.Equal(t, "Player_q", mustPlayer(t, r, "q").DisplayName)
	assert.NotEqual(t, p.Color, mustPlayer(t, r, "q").Color)
}

func TestLeaderboardOrdering(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	for i, score := range []int{5, 9, 5, 12} {
		id := fmt.Sprintf("p%d", i)
		addTestPlayer(r, id, models.Vec{X: float64(100 + i*200), Y: 100})
		r.mu.Lock()
		r.players[id].ItemsEaten = score
		r.mu.Unlock()
	}
	r.mu.Lock()
	r.players["p3"].Spectator = true
	r.mu.Unlock()

	res := r.Tick(time.Now())

	ids := make([]string, 0)
	for _, e := range res.Snapshot.Leaderboard {
		ids = append(ids, e.PlayerID)
	}
	assert.Equal(t, []string{"p1", "p0", "p2"}, ids)
}

func TestPeriodicScoreSubmission(t *testing.T) {
	cfg := testConfig()
	cfg.SubmitEvery = 2
	r := NewRoom("r", cfg, 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100})

	assert.Empty(t, r.Tick(time.Now()).Scores)
	scores := r.Tick(time.Now()).Scores
	require.Len(t, scores, 1)
	assert.Equal(t, "a", scores[0].PlayerID)
}

func TestHintsAreRevalidated(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100})
	addTestPlayer(r, "b", models.Vec{X: 900, Y: 900})

	r.SubmitHint("a", hintEat, "b")
	r.SubmitHint("b", hintEliminated, "a")
	r.SubmitHint("a", hintEat, "nobody")
	res := r.Tick(time.Now())

	assert.Equal(t, 3, res.RejectedHints)
	assert.Empty(t, res.Eliminations)
	assert.False(t, mustPlayer(t, r, "b").Spectator)
}

func TestHintAgreeingWithTickIsNotDoubleCounted(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 200, Y: 200}, trail(models.Vec{X: 200, Y: 200}, models.Vec{Y: 20}, 3)...)
	addTestPlayer(r, "b", models.Vec{X: 212, Y: 260})

	r.SubmitHint("b", hintEliminated, "a")
	r.SubmitHint("a", hintEat, "b")
	res := r.Tick(time.Now())

	assert.Len(t, res.Eliminations, 1)
	assert.Zero(t, res.RejectedHints)
}

func TestDetachAndReattach(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	now := time.Now()
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100})
	r.SubmitIntent("a", directionIntent(models.Vec{X: 1}))
	r.Tick(now)

	r.DetachPlayer("a", now.Add(time.Second))
	r.SubmitIntent("a", directionIntent(models.Vec{Y: 1}))
	res := r.Tick(now)
	p := mustPlayer(t, r, "a")
	assert.True(t, p.Detached)
	assert.Empty(t, res.Released)
	frozen := p.Position
	r.Tick(now)
	assert.Equal(t, frozen, mustPlayer(t, r, "a").Position)

	r.ReattachPlayer("a")
	r.Tick(now)
	assert.False(t, mustPlayer(t, r, "a").Detached)

	r.DetachPlayer("a", now.Add(time.Second))
	r.Tick(now)
	res = r.Tick(now.Add(2 * time.Second))
	assert.Equal(t, []string{"a"}, res.Released)
	_, ok := r.Player("a")
	assert.False(t, ok)

	r.ReattachPlayer("a")
	res = r.Tick(now)
	assert.Equal(t, []string{"a"}, res.Expired)
}

func TestRemovePlayerReleasesSlot(t *testing.T) {
	r := NewRoom("r", testConfig(), 1)
	addTestPlayer(r, "a", models.Vec{X: 100, Y: 100})
	r.mu.Lock()
	r.players["a"].ItemsEaten = 4
	r.mu.Unlock()

	r.RemovePlayer("a")
	r.RemovePlayer("a")
	res := r.Tick(time.Now())

	assert.Equal(t, []string{"a", "a"}, res.Released)
	require.Len(t, res.Scores, 1)
	assert.Equal(t, 4, res.Scores[0].Score)
	assert.Zero(t, r.Info().Players)
}

func TestPanickingTickResetsItems(t *testing.T) {
	cfg := testConfig()
	cfg.ItemTarget = 5
	r := NewRoom("r", cfg, 1)
	r.mu.Lock()
	r.players["broken"] = nil
	r.items = map[string]*models.Item{}
	r.mu.Unlock()

	assert.Nil(t, r.safeTick(time.Now()))

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Len(t, r.items, 5)
}

func TestTicksAreDeterministic(t *testing.T) {
	run := func() []models.LeaderboardEntry {
		cfg := testConfig()
		cfg.ItemTarget = 80
		cfg.Width, cfg.Height = 600, 600
		r := NewRoom("r", cfg, 99)
		for i := 0; i < 6; i++ {
			r.Reserve(fmt.Sprintf("p%d", i))
			r.AddPlayer(fmt.Sprintf("p%d", i), "", "")
		}
		now := time.UnixMilli(1_700_000_000_000)
		var last *TickResult
		for tick := 0; tick < 200; tick++ {
			for i := 0; i < 6; i++ {
				angle := float64((tick/20+i)%8) * 0.785398
				r.SubmitIntent(fmt.Sprintf("p%d", i), directionIntent(models.Vec{X: math.Cos(angle), Y: math.Sin(angle)}))
			}
			last = r.Tick(now)
		}
		positions := make([]models.LeaderboardEntry, 0)
		for i := 0; i < 6; i++ {
			p := last.Snapshot.Players[fmt.Sprintf("p%d", i)]
			positions = append(positions, models.LeaderboardEntry{PlayerID: fmt.Sprintf("%.6f,%.6f", p.Position.X, p.Position.Y), Score: p.ItemsEaten})
		}
		return append(positions, last.Snapshot.Leaderboard...)
	}

	assert.Equal(t, run(), run())
}

func TestBoundsAndSegmentInvariants(t *testing.T) {
	for _, policy := range []string{constants.EDGE_CLAMP, constants.EDGE_WRAP} {
		t.Run(policy, func(t *testing.T) {
			cfg := testConfig()
			cfg.EdgePolicy = policy
			cfg.Width, cfg.Height = 400, 300
			cfg.ItemTarget = 60
			r := NewRoom("r", cfg, 3)
			for i := 0; i < 5; i++ {
				r.Reserve(fmt.Sprintf("p%d", i))
				r.AddPlayer(fmt.Sprintf("p%d", i), "", "")
			}

			prev := map[string]models.Player{}
			for tick := 0; tick < 300; tick++ {
				for i := 0; i < 5; i++ {
					angle := float64(tick*(i+1)) * 0.1
					r.SubmitIntent(fmt.Sprintf("p%d", i), directionIntent(models.Vec{X: math.Cos(angle), Y: math.Sin(angle)}))
					r.SubmitIntent(fmt.Sprintf("p%d", i), boostIntent(tick%3 == 0))
				}
				res := r.Tick(time.Now())

				for id, p := range res.Snapshot.Players {
					require.True(t, p.Position.X >= 0 && p.Position.X <= cfg.Width, "x out of bounds: %v", p.Position)
					require.True(t, p.Position.Y >= 0 && p.Position.Y <= cfg.Height, "y out of bounds: %v", p.Position)
					if old, ok := prev[id]; ok && !old.Spectator && !p.Spectator {
						require.GreaterOrEqual(t, len(p.Segments), len(old.Segments), "segments shrank for %s", id)
					}
				}
				for _, it := range res.Snapshot.Items {
					require.True(t, it.Position.X >= 0 && it.Position.X <= cfg.Width)
					require.True(t, it.Position.Y >= 0 && it.Position.Y <= cfg.Height)
				}
				require.Len(t, res.Snapshot.Items, cfg.ItemTarget)
				prev = res.Snapshot.Players
			}
		})
	}
}
