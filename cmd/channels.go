package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/repositories"
	"github.com/desertthunder/spotdiff/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) channelRepository(cmd *cli.Command) (*repositories.ChannelRepository, error) {
	if err := r.configure(cmd); err != nil {
		return nil, err
	}

	db, err := r.store()
	if err != nil {
		return nil, err
	}
	return repositories.NewChannelRepository(db), nil
}

// ChannelsList prints every registered guild channel.
func (r *Runner) ChannelsList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.channelRepository(cmd)
	if err != nil {
		return err
	}

	channels, err := repo.List(ctx)
	if err != nil {
		return err
	}

	if len(channels) == 0 {
		r.writePlain("No channels registered. Type !here in a Discord channel or run 'spotdiff channels add'.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Registered Channels (%d)", len(channels)))
	for _, c := range channels {
		r.writePlain("guild %s → channel %s\n", c.GuildID, c.ChannelID)
	}
	return nil
}

// ChannelsAdd registers a channel for a guild.
func (r *Runner) ChannelsAdd(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.channelRepository(cmd)
	if err != nil {
		return err
	}

	channel := models.Channel{GuildID: cmd.String("guild"), ChannelID: cmd.String("channel")}
	if err := repo.Add(ctx, channel); err != nil {
		if errors.Is(err, shared.ErrChannelExists) {
			return fmt.Errorf("guild %s: %w (remove it first)", channel.GuildID, err)
		}
		return err
	}

	r.logger.Info("registered channel", "guild", channel.GuildID, "channel", channel.ChannelID)
	r.writePlain("✓ Notices for guild %s will be posted to channel %s\n", channel.GuildID, channel.ChannelID)
	return nil
}

// ChannelsRemove unregisters a guild's channel.
func (r *Runner) ChannelsRemove(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.channelRepository(cmd)
	if err != nil {
		return err
	}

	guildID, channelID := cmd.String("guild"), cmd.String("channel")
	removed, err := repo.Delete(ctx, guildID, channelID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: guild %s channel %s", shared.ErrChannelNotFound, guildID, channelID)
	}

	r.logger.Info("unregistered channel", "guild", guildID, "channel", channelID)
	r.writePlain("✓ Removed channel %s for guild %s\n", channelID, guildID)
	return nil
}
