package game

import (
	"fmt"
	"log"

	"crawl-backend/constants"
	"crawl-backend/models"
)

func (r *Room) spawnItemLocked() *models.Item {
	r.nextItem++
	value := constants.ITEM_VALUE_COMMON
	if r.rng.Float64() < constants.ITEM_RARE_CHANCE {
		value = constants.ITEM_VALUE_RARE
	}
	item := &models.Item{
		ID:       fmt.Sprintf("item-%d", r.nextItem),
		Position: models.Vec{X: r.rng.Float64() * r.cfg.Width, Y: r.rng.Float64() * r.cfg.Height},
		Value:    value,
		Color:    constants.ITEM_COLORS[r.rng.Intn(len(constants.ITEM_COLORS))],
		Radius:   constants.ITEM_RADIUS,
		Seq:      r.nextItem,
	}
	r.items[item.ID] = item
	return item
}

// spawnPointLocked picks a random point inside the world, away from the
// edges when the world is large enough.
func (r *Room) spawnPointLocked() models.Vec {
	pick := func(size float64) float64 {
		margin := constants.SPAWN_MARGIN
		if size <= 2*margin {
			margin = 0
		}
		return margin + r.rng.Float64()*(size-2*margin)
	}
	return models.Vec{X: pick(r.cfg.Width), Y: pick(r.cfg.Height)}
}

// resetItemsLocked replaces the item population with a fresh one.
func (r *Room) resetItemsLocked() {
	r.items = make(map[string]*models.Item, r.cfg.ItemTarget)
	for i := 0; i < r.cfg.ItemTarget; i++ {
		r.spawnItemLocked()
	}
}

// collectItemsLocked awards every item in pickup range and returns how many
// were consumed. Players are visited in join order and items in spawn order.
func (r *Room) collectItemsLocked(active []*models.Player, prevHeads map[string]models.Vec, res *TickResult) int {
	consumed := 0
	items := r.sortedItemsLocked()
	for _, p := range active {
		if p.Detached {
			continue
		}
		reach := p.HeadRadius() + constants.ITEM_PICKUP_MARGIN
		for _, it := range items {
			if _, live := r.items[it.ID]; !live {
				continue
			}
			if p.Position.Dist(it.Position) >= reach {
				continue
			}
			delete(r.items, it.ID)
			consumed++

			tail := models.Segment{Vec: prevHeads[p.ID], Color: p.Color}
			if n := len(p.Segments); n > 0 {
				tail = p.Segments[n-1]
			}
			p.Segments = append(p.Segments, tail)
			p.ItemsEaten += it.Value
			res.Collected = append(res.Collected, Collected{PlayerID: p.ID, ItemID: it.ID})
		}
	}
	return consumed
}

// replenishItemsLocked tops the population back up to the target. A room
// holding more items than the target is in a broken state and is reset.
func (r *Room) replenishItemsLocked(consumed int) {
	if len(r.items) > r.cfg.ItemTarget {
		log.Printf("Room %s holds %d items (target %d), resetting", r.ID, len(r.items), r.cfg.ItemTarget)
		r.resetItemsLocked()
		return
	}
	missing := r.cfg.ItemTarget - len(r.items)
	if missing != consumed {
		log.Printf("Room %s item count drifted: consumed %d, missing %d", r.ID, consumed, missing)
	}
	for i := 0; i < missing; i++ {
		r.spawnItemLocked()
	}
}
