package models

import (
	"math"

	"crawl-backend/constants"
)

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec) Scale(k float64) Vec { return Vec{X: v.X * k, Y: v.Y * k} }

func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }

func (v Vec) Dist(o Vec) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }

func (v Vec) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

func (v Vec) Normalized() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return Vec{X: v.X / l, Y: v.Y / l}
}

// Segment is one link of a snake's trailing body.
type Segment struct {
	Vec
	Color string `json:"color"`
}

type Player struct {
	ID          string    `json:"id"`
	Position    Vec       `json:"position"`
	Direction   Vec       `json:"direction"`
	Boosting    bool      `json:"boosting"`
	Color       string    `json:"color"`
	DisplayName string    `json:"displayName"`
	SkinRef     string    `json:"skinRef,omitempty"`
	Segments    []Segment `json:"segments"`
	ItemsEaten  int       `json:"itemEatenCount"`
	Spectator   bool      `json:"spectator"`
	Detached    bool      `json:"detached,omitempty"`
	Anonymous   bool      `json:"-"` // DisplayName was generated
	JoinSeq     uint64    `json:"-"`
	BoostTicks  int       `json:"-"`
}

// HeadRadius is the hitbox radius of the head.
func (p *Player) HeadRadius() float64 { return Radius(p.ItemsEaten) }

// SegmentRadius is the hitbox radius of every body segment.
func (p *Player) SegmentRadius() float64 { return Radius(p.ItemsEaten) }

// Clone returns a deep copy safe to hand outside the room lock.
func (p *Player) Clone() Player {
	cp := *p
	cp.Segments = make([]Segment, len(p.Segments))
	copy(cp.Segments, p.Segments)
	return cp
}

type Item struct {
	ID       string  `json:"id"`
	Position Vec     `json:"position"`
	Value    int     `json:"value"`
	Color    string  `json:"color"`
	Radius   float64 `json:"radius"`
	Seq      uint64  `json:"-"`
}

// Intent is a pending client action. Nil fields mean "no change".
type Intent struct {
	Direction *Vec
	Boost     *bool
}

// Over returns the intent with every field set in i replacing prev.
func (i Intent) Over(prev *Intent) Intent {
	if prev == nil {
		return i
	}
	merged := *prev
	if i.Direction != nil {
		merged.Direction = i.Direction
	}
	if i.Boost != nil {
		merged.Boost = i.Boost
	}
	return merged
}

type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Anonymous   bool   `json:"-"`
}

// Radius maps an item-eaten count to a hitbox radius: constant up to the
// growth threshold, linear after it.
func Radius(itemsEaten int) float64 {
	over := itemsEaten - constants.GROWTH_THRESHOLD
	if over < 0 {
		over = 0
	}
	return constants.BASE_RADIUS + float64(over)*constants.GROWTH_RATE
}
