// Discord gateway implementation of [Sink] with the channel registration commands
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiff/internal/formatter"
	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

const (
	// CommandHere registers the current channel for its guild.
	CommandHere = "!here"
	// CommandBye removes the registration of the current channel.
	CommandBye = "!bye"

	maxEmbedFields = 25
)

// ChannelStore is the guild channel registry the bot reads and mutates.
type ChannelStore interface {
	Add(ctx context.Context, channel models.Channel) error
	Get(ctx context.Context, guildID string) (*models.Channel, error)
	Delete(ctx context.Context, guildID, channelID string) (bool, error)
	List(ctx context.Context) ([]models.Channel, error)
}

// messenger is the subset of [discordgo.Session] REST calls the service makes.
type messenger interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// DiscordService posts notices to every registered guild channel.
//
// Gateway handlers run on discordgo's goroutines and touch only the [ChannelStore].
type DiscordService struct {
	session  *discordgo.Session
	api      messenger
	channels ChannelStore
	logger   *log.Logger
}

// NewDiscordService creates a bot session for token. Call [DiscordService.Open] to connect to the gateway.
func NewDiscordService(token string, channels ChannelStore, logger *log.Logger) (*DiscordService, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: discord token is required", shared.ErrMissingCredentials)
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	d := newDiscordService(session, channels, logger)
	d.session = session
	session.AddHandler(d.onMessageCreate)

	return d, nil
}

func newDiscordService(api messenger, channels ChannelStore, logger *log.Logger) *DiscordService {
	if logger == nil {
		logger = log.Default()
	}
	return &DiscordService{api: api, channels: channels, logger: logger}
}

// Name returns the service name
func (d *DiscordService) Name() string {
	return "Discord"
}

// Open connects to the gateway so that commands are received.
func (d *DiscordService) Open() error {
	if d.session == nil {
		return nil
	}
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("%w: discord gateway: %v", shared.ErrServiceUnavailable, err)
	}
	d.logger.Info("connected to discord gateway")
	return nil
}

// Close disconnects from the gateway.
func (d *DiscordService) Close() error {
	if d.session == nil {
		return nil
	}
	return d.session.Close()
}

// Targets lists every registered channel.
func (d *DiscordService) Targets(ctx context.Context) ([]Target, error) {
	channels, err := d.channels.List(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]Target, len(channels))
	for i, c := range channels {
		targets[i] = Target{ID: c.ChannelID, Label: "guild " + c.GuildID}
	}
	return targets, nil
}

// Send posts notice to a single channel as an embed.
func (d *DiscordService) Send(_ context.Context, target Target, notice *formatter.Notice) error {
	if len(notice.Fields) > maxEmbedFields {
		d.logger.Debug("embed truncated", "track", notice.Track.ID, "fields", len(notice.Fields), "duplicates", len(notice.Conflicts))
	}
	if _, err := d.api.ChannelMessageSendEmbed(target.ID, NoticeEmbed(notice)); err != nil {
		return fmt.Errorf("%w: discord channel %s: %v", shared.ErrAPIRequest, target.ID, err)
	}
	return nil
}

// NoticeEmbed converts notice to a Discord embed with at most 25 fields.
//
// When the fields do not fit, whole duplicates are dropped from the end and a closing field counts them.
func NoticeEmbed(notice *formatter.Notice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: notice.Title,
		Color: notice.Color,
	}
	if notice.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: notice.Thumbnail}
	}

	fields, summary := fitEmbedFields(notice)
	for _, f := range fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if summary != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "…", Value: summary})
	}

	return embed
}

// fitEmbedFields returns the fields that fit in one embed, leaving room for a summary of what was cut.
func fitEmbedFields(notice *formatter.Notice) ([]formatter.Field, string) {
	fields := notice.Fields
	if len(fields) <= maxEmbedFields {
		return fields, ""
	}

	keep := maxEmbedFields - 1
	start, n := notice.DuplicatesAt, len(notice.Conflicts)
	if start > 0 && n > 0 && start <= keep && len(fields)-start >= n {
		per := (len(fields) - start) / n
		shown := (keep - start) / per
		return fields[:start+shown*per], fmt.Sprintf("and %d more possible duplicates", n-shown)
	}

	return fields[:keep], fmt.Sprintf("and %d more fields", len(fields)-keep)
}

func (d *DiscordService) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	reply, ok := d.HandleCommand(context.Background(), m.GuildID, m.ChannelID, m.Content, m.Author.Bot)
	if !ok {
		return
	}

	if _, err := d.api.ChannelMessageSend(m.ChannelID, reply); err != nil {
		d.logger.Warn("failed to reply to command", "channel", m.ChannelID, "error", err)
	}
}

// HandleCommand interprets a guild message and returns the reply to post.
//
// Messages from bots, direct messages, and messages not ending in a command are ignored.
// The suffix match lets a command follow a mention of the bot.
func (d *DiscordService) HandleCommand(ctx context.Context, guildID, channelID, content string, fromBot bool) (string, bool) {
	if fromBot || guildID == "" {
		return "", false
	}

	content = strings.TrimSpace(content)
	switch {
	case strings.HasSuffix(content, CommandHere):
		return d.here(ctx, guildID, channelID), true
	case strings.HasSuffix(content, CommandBye):
		return d.bye(ctx, guildID, channelID), true
	default:
		return "", false
	}
}

func (d *DiscordService) here(ctx context.Context, guildID, channelID string) string {
	err := d.channels.Add(ctx, models.Channel{GuildID: guildID, ChannelID: channelID})
	if err == nil {
		d.logger.Info("registered channel", "guild", guildID, "channel", channelID)
		return "Moved in! New tracks will be posted here."
	}

	if !errors.Is(err, shared.ErrChannelExists) {
		d.logger.Error("failed to register channel", "guild", guildID, "channel", channelID, "error", err)
		return "Something went wrong while moving in."
	}

	existing, err := d.channels.Get(ctx, guildID)
	if err != nil {
		d.logger.Error("failed to load registered channel", "guild", guildID, "error", err)
		return "Something went wrong while moving in."
	}

	name := existing.ChannelID
	if ch, err := d.api.Channel(existing.ChannelID); err == nil && ch != nil {
		name = ch.Name
	}

	return fmt.Sprintf("Already living in [#%s].\nMention me there with `%s` to move out.", name, CommandBye)
}

func (d *DiscordService) bye(ctx context.Context, guildID, channelID string) string {
	removed, err := d.channels.Delete(ctx, guildID, channelID)
	if err != nil {
		d.logger.Error("failed to remove channel", "guild", guildID, "channel", channelID, "error", err)
	}
	if !removed {
		return "I don't live here, or something went wrong."
	}

	d.logger.Info("removed channel", "guild", guildID, "channel", channelID)
	return "Goodbye!"
}
