package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/realmd/internal/game/player"
)

// ErrInsufficientItems is returned when an inventory removal asks for more
// of an item than the player holds.
var ErrInsufficientItems = errors.New("insufficient items")

// PlayerRepository provides player persistence backed by PostgreSQL.
// It implements player.Store.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

const playerColumns = `id, name, level, experience, experience_to_next,
       stat_points, skill_points, gold,
       strength, dexterity, intelligence, vitality, luck,
       current_hp, current_mp, zone_id, x, y,
       online, playtime_seconds, inventory, created_at, updated_at`

// Create inserts a new player record and returns it with timestamps set.
//
// Precondition: p.ID and p.Name must be non-empty and the ID unused.
// Postcondition: Returns the stored player or a non-nil error.
func (r *PlayerRepository) Create(ctx context.Context, p *player.Player) (*player.Player, error) {
	inv := p.Inventory
	if inv == nil {
		inv = map[string]int{}
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO players
			(id, name, level, experience, experience_to_next,
			 stat_points, skill_points, gold,
			 strength, dexterity, intelligence, vitality, luck,
			 current_hp, current_mp, zone_id, x, y,
			 online, playtime_seconds, inventory)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING `+playerColumns,
		p.ID, p.Name, p.Level, p.Experience, p.ExperienceToNext,
		p.StatPoints, p.SkillPoints, p.Gold,
		p.Base.Strength, p.Base.Dexterity, p.Base.Intelligence, p.Base.Vitality, p.Base.Luck,
		p.CurrentHP, p.CurrentMP, p.ZoneID, p.X, p.Y,
		p.Online, p.PlaytimeSeconds, inv,
	)
	out, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("inserting player: %w", err)
	}
	return out, nil
}

// Load retrieves a player by id.
//
// Postcondition: Returns the player with derived stats recomputed, or
// player.ErrNotFound.
func (r *PlayerRepository) Load(ctx context.Context, id string) (*player.Player, error) {
	row := r.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	p, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, player.ErrNotFound
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return p, nil
}

// Save persists the full player record.
//
// Postcondition: Returns nil on success, player.ErrNotFound if no row was
// updated.
func (r *PlayerRepository) Save(ctx context.Context, p *player.Player) error {
	inv := p.Inventory
	if inv == nil {
		inv = map[string]int{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET
			name = $2, level = $3, experience = $4, experience_to_next = $5,
			stat_points = $6, skill_points = $7, gold = $8,
			strength = $9, dexterity = $10, intelligence = $11, vitality = $12, luck = $13,
			current_hp = $14, current_mp = $15, zone_id = $16, x = $17, y = $18,
			online = $19, playtime_seconds = $20, inventory = $21,
			updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Level, p.Experience, p.ExperienceToNext,
		p.StatPoints, p.SkillPoints, p.Gold,
		p.Base.Strength, p.Base.Dexterity, p.Base.Intelligence, p.Base.Vitality, p.Base.Luck,
		p.CurrentHP, p.CurrentMP, p.ZoneID, p.X, p.Y,
		p.Online, p.PlaytimeSeconds, inv,
	)
	if err != nil {
		return fmt.Errorf("saving player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// AddItem increments the player's inventory count for itemID by qty.
//
// Precondition: qty must be > 0.
// Postcondition: Returns nil on success, player.ErrNotFound when the player
// does not exist.
func (r *PlayerRepository) AddItem(ctx context.Context, id, itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("adding item %q: quantity must be positive, got %d", itemID, qty)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET
			inventory = jsonb_set(inventory, ARRAY[$2],
				to_jsonb(COALESCE((inventory->>$2)::bigint, 0) + $3), true),
			updated_at = NOW()
		WHERE id = $1`,
		id, itemID, qty,
	)
	if err != nil {
		return fmt.Errorf("adding item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// RemoveItem decrements the player's inventory count for itemID by qty,
// dropping the key when the count reaches zero.
//
// Precondition: qty must be > 0.
// Postcondition: Returns ErrInsufficientItems when the player holds fewer
// than qty, player.ErrNotFound when the player does not exist.
func (r *PlayerRepository) RemoveItem(ctx context.Context, id, itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("removing item %q: quantity must be positive, got %d", itemID, qty)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET
			inventory = CASE
				WHEN COALESCE((inventory->>$2)::bigint, 0) - $3 <= 0 THEN inventory - $2
				ELSE jsonb_set(inventory, ARRAY[$2],
					to_jsonb(COALESCE((inventory->>$2)::bigint, 0) - $3))
			END,
			updated_at = NOW()
		WHERE id = $1 AND COALESCE((inventory->>$2)::bigint, 0) >= $3`,
		id, itemID, qty,
	)
	if err != nil {
		return fmt.Errorf("removing item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("removing item %q: %w", itemID, err)
		}
		if !exists {
			return player.ErrNotFound
		}
		return fmt.Errorf("removing item %q: %w", itemID, ErrInsufficientItems)
	}
	return nil
}

// UpdateLocation persists the player's zone and position.
func (r *PlayerRepository) UpdateLocation(ctx context.Context, id, zoneID string, x, y float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET zone_id = $2, x = $3, y = $4, updated_at = NOW()
		WHERE id = $1`,
		id, zoneID, x, y,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// UpdateOnlineStatus persists the player's online flag.
func (r *PlayerRepository) UpdateOnlineStatus(ctx context.Context, id string, online bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET online = $2, updated_at = NOW() WHERE id = $1`,
		id, online,
	)
	if err != nil {
		return fmt.Errorf("updating online status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// AddPlaytime accumulates seconds onto the player's playtime counter.
//
// Precondition: seconds must be >= 0.
func (r *PlayerRepository) AddPlaytime(ctx context.Context, id string, seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("adding playtime: seconds must be >= 0, got %d", seconds)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET playtime_seconds = playtime_seconds + $2, updated_at = NOW()
		WHERE id = $1`,
		id, seconds,
	)
	if err != nil {
		return fmt.Errorf("adding playtime: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

func scanPlayer(row pgx.Row) (*player.Player, error) {
	var p player.Player
	err := row.Scan(
		&p.ID, &p.Name, &p.Level, &p.Experience, &p.ExperienceToNext,
		&p.StatPoints, &p.SkillPoints, &p.Gold,
		&p.Base.Strength, &p.Base.Dexterity, &p.Base.Intelligence, &p.Base.Vitality, &p.Base.Luck,
		&p.CurrentHP, &p.CurrentMP, &p.ZoneID, &p.X, &p.Y,
		&p.Online, &p.PlaytimeSeconds, &p.Inventory, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Inventory == nil {
		p.Inventory = make(map[string]int)
	}
	p.Recompute()
	return &p, nil
}
