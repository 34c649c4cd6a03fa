package game

import (
	"sort"

	"crawl-backend/constants"
	"crawl-backend/models"
)

// rankPlayersLocked orders live players by score, earliest joiner first on
// ties.
func (r *Room) rankPlayersLocked() []models.LeaderboardEntry {
	ranked := r.activePlayersLocked()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ItemsEaten != ranked[j].ItemsEaten {
			return ranked[i].ItemsEaten > ranked[j].ItemsEaten
		}
		return ranked[i].JoinSeq < ranked[j].JoinSeq
	})
	if len(ranked) > constants.LEADERBOARD_SIZE {
		ranked = ranked[:constants.LEADERBOARD_SIZE]
	}
	entries := make([]models.LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = scoreOf(p)
	}
	return entries
}

func scoreOf(p *models.Player) models.LeaderboardEntry {
	return models.LeaderboardEntry{PlayerID: p.ID, DisplayName: p.DisplayName, Score: p.ItemsEaten, Anonymous: p.Anonymous}
}
