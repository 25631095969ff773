package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

// ChannelRepository maps each Discord guild to the single text channel it is notified in.
//
// It is safe for use from gateway handler goroutines; [sql.DB] serializes access.
type ChannelRepository struct {
	db *sql.DB
}

// NewChannelRepository creates a new [ChannelRepository] with the given database connection
func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Add registers channel for its guild.
//
// Returns [shared.ErrChannelExists] wrapped with the currently registered channel id when the guild already has one.
func (r *ChannelRepository) Add(ctx context.Context, channel models.Channel) error {
	if channel.GuildID == "" || channel.ChannelID == "" {
		return fmt.Errorf("%w: guild and channel ids are required", shared.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO discord_channels (guild_id, channel_id) VALUES (?, ?) ON CONFLICT(guild_id) DO NOTHING`,
		channel.GuildID, channel.ChannelID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		existing, err := r.Get(ctx, channel.GuildID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", shared.ErrChannelExists, existing.ChannelID)
	}

	return nil
}

// Get returns the channel registered for guildID, or [shared.ErrChannelNotFound].
func (r *ChannelRepository) Get(ctx context.Context, guildID string) (*models.Channel, error) {
	var channel models.Channel

	err := r.db.QueryRowContext(ctx,
		`SELECT guild_id, channel_id FROM discord_channels WHERE guild_id = ?`, guildID,
	).Scan(&channel.GuildID, &channel.ChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: guild %s", shared.ErrChannelNotFound, guildID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query channel: %w", err)
	}

	return &channel, nil
}

// Delete removes the registration for guildID if it points at channelID and reports whether a row was removed.
func (r *ChannelRepository) Delete(ctx context.Context, guildID, channelID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM discord_channels WHERE guild_id = ? AND channel_id = ?`, guildID, channelID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete channel: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows != 0, nil
}

// List retrieves every registered channel ordered by guild id.
func (r *ChannelRepository) List(ctx context.Context) ([]models.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT guild_id, channel_id FROM discord_channels ORDER BY guild_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var channel models.Channel
		if err := rows.Scan(&channel.GuildID, &channel.ChannelID); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return channels, nil
}
