package player

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a player lookup yields no record.
var ErrNotFound = errors.New("player not found")

// Store is the persistence port the engine depends on. The caller owns
// read-modify-write consistency: the world simulator serialises all
// mutations of one player record, so a Save always reflects every prior
// mutation to that object.
type Store interface {
	// Load returns the player with the given id, or ErrNotFound.
	Load(ctx context.Context, id string) (*Player, error)
	// Save persists the full player record.
	Save(ctx context.Context, p *Player) error
	// AddItem increases the player's inventory count for itemID by qty.
	AddItem(ctx context.Context, id, itemID string, qty int) error
	// RemoveItem decreases the inventory count; it fails when the player
	// holds fewer than qty.
	RemoveItem(ctx context.Context, id, itemID string, qty int) error
	// UpdateLocation persists the player's zone and position.
	UpdateLocation(ctx context.Context, id, zoneID string, x, y float64) error
	// UpdateOnlineStatus persists the player's online flag.
	UpdateOnlineStatus(ctx context.Context, id string, online bool) error
	// AddPlaytime accumulates seconds onto the player's playtime counter.
	AddPlaytime(ctx context.Context, id string, seconds int64) error
}
