package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"crawl-backend/constants"
	"crawl-backend/game"
)

// ICE holds the STUN/TURN servers handed to WebRTC peers.
type ICE struct {
	STUNURLs       []string
	TURNURL        string
	TURNUsername   string
	TURNCredential string
}

type Config struct {
	Port          string
	Game          game.Config
	TokenSecret   string
	LeaderboardDB string
	ICE           ICE
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Could not read .env: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a validated Config from a variable lookup.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	g := game.DefaultConfig()
	g.Width = p.float("WORLD_WIDTH", g.Width)
	g.Height = p.float("WORLD_HEIGHT", g.Height)
	g.TickRate = time.Duration(p.int("TICK_RATE_MS", int(g.TickRate/time.Millisecond))) * time.Millisecond
	g.Capacity = p.int("ROOM_CAPACITY", g.Capacity)
	g.MaxRooms = p.int("MAX_ROOMS", g.MaxRooms)
	g.ItemTarget = p.int("ITEM_TARGET", g.ItemTarget)
	g.EdgePolicy = strings.ToLower(p.str("EDGE_POLICY", g.EdgePolicy))
	g.ReconnectGrace = p.duration("RECONNECT_GRACE", g.ReconnectGrace)

	cfg := Config{
		Port:          p.str("PORT", "8080"),
		Game:          g,
		TokenSecret:   p.str("TOKEN_SECRET", ""),
		LeaderboardDB: p.str("LEADERBOARD_DB", ""),
		ICE: ICE{
			STUNURLs:       p.list("STUN_URLS", []string{"stun:stun.l.google.com:19302"}),
			TURNURL:        p.str("TURN_URL", ""),
			TURNUsername:   p.str("TURN_USERNAME", ""),
			TURNCredential: p.str("TURN_CREDENTIAL", ""),
		},
	}
	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	g := c.Game
	switch {
	case g.Width <= 0 || g.Height <= 0:
		return fmt.Errorf("world must be positive, got %gx%g", g.Width, g.Height)
	case g.TickRate <= 0:
		return fmt.Errorf("TICK_RATE_MS must be positive, got %v", g.TickRate)
	case g.Capacity < 1:
		return fmt.Errorf("ROOM_CAPACITY must be at least 1, got %d", g.Capacity)
	case g.MaxRooms < 1:
		return fmt.Errorf("MAX_ROOMS must be at least 1, got %d", g.MaxRooms)
	case g.ItemTarget < 0:
		return fmt.Errorf("ITEM_TARGET must not be negative, got %d", g.ItemTarget)
	case g.EdgePolicy != constants.EDGE_CLAMP && g.EdgePolicy != constants.EDGE_WRAP:
		return fmt.Errorf("EDGE_POLICY must be %q or %q, got %q", constants.EDGE_CLAMP, constants.EDGE_WRAP, g.EdgePolicy)
	case g.ReconnectGrace < 0:
		return fmt.Errorf("RECONNECT_GRACE must not be negative, got %v", g.ReconnectGrace)
	}
	return nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a finite number", key, v))
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
