package game

import (
	"time"

	"crawl-backend/constants"
)

// Config holds the per-room simulation settings shared by every room.
type Config struct {
	Width          float64
	Height         float64
	TickRate       time.Duration // zero disables room goroutines; drive rooms with Store.Step
	Capacity       int
	MaxRooms       int
	ItemTarget     int
	EdgePolicy     string
	ReconnectGrace time.Duration
	BaseSpeed      float64
	BoostFactor    float64
	SubmitEvery    uint64
	Seed           int64 // non-zero seeds every room deterministically
}

func DefaultConfig() Config {
	return Config{
		Width:          constants.WORLD_WIDTH,
		Height:         constants.WORLD_HEIGHT,
		TickRate:       constants.TICK_RATE,
		Capacity:       constants.ROOM_CAPACITY,
		MaxRooms:       constants.MAX_ROOMS,
		ItemTarget:     constants.ITEM_TARGET,
		EdgePolicy:     constants.EDGE_CLAMP,
		ReconnectGrace: constants.RECONNECT_GRACE,
		BaseSpeed:      constants.BASE_SPEED,
		BoostFactor:    constants.BOOST_MULTIPLIER,
		SubmitEvery:    constants.LEADERBOARD_SUBMIT_TICKS,
	}
}
