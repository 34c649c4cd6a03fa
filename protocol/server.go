package protocol

import "crawl-backend/models"

type World struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Connected struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

type JoinedRoom struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	ResumeToken string `json:"resumeToken,omitempty"`
	Resumed     bool   `json:"resumed,omitempty"`
	World       World  `json:"world"`
}

// UpdateEntities is the per-tick room snapshot. Every member of a room
// receives the same payload.
type UpdateEntities struct {
	Type            string                    `json:"type"`
	RoomID          string                    `json:"roomId"`
	Tick            uint64                    `json:"tick"`
	Players         map[string]models.Player  `json:"players"`
	Items           []models.Item             `json:"items"`
	Leaderboard     []models.LeaderboardEntry `json:"leaderboard"`
	ServerTimestamp int64                     `json:"serverTimestamp"`
}

type PlayerEliminated struct {
	Type         string `json:"type"`
	PlayerID     string `json:"playerId"`
	EliminatedBy string `json:"eliminatedBy,omitempty"`
	Reason       string `json:"reason"`
}

type SetSpectator struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type ItemCollected struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	ItemID   string `json:"itemId"`
}

type Ping struct {
	Type string `json:"type"`
	T    int64  `json:"t"`
}

type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
