// Package discord connects the command handler to a Discord gateway session
// and delivers notifications as DMs and log channel posts.
package discord

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Clownyz/rentals-bot/internal/bot"
	"github.com/Clownyz/rentals-bot/internal/config"
)

// api is the subset of *discordgo.Session the bot calls.
type api interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

const embedColor = 0x2ecc71

// Bot is a running Discord connection.
type Bot struct {
	session *discordgo.Session
	api     api
	handler *bot.Handler
	cfg     config.Discord

	mu           sync.Mutex
	guilds       map[string]bool
	logChannels  map[string]string // guild ID -> log channel ID
	channelNames map[string]string // channel ID -> name
}

// New creates a session for cfg.Token and registers the event handlers.
// The connection is opened by Open.
func New(cfg config.Discord, handler *bot.Handler) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is not set")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	b := newBot(session, cfg, handler)
	b.session = session
	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	return b, nil
}

func newBot(a api, cfg config.Discord, handler *bot.Handler) *Bot {
	return &Bot{
		api:          a,
		handler:      handler,
		cfg:          cfg,
		guilds:       make(map[string]bool),
		logChannels:  make(map[string]string),
		channelNames: make(map[string]string),
	}
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) addGuild(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guilds[id] = true
}

func (b *Bot) guildIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.guilds))
	for id := range b.guilds {
		ids = append(ids, id)
	}
	return ids
}

// channelName returns the name of a channel, caching lookups.
func (b *Bot) channelName(channelID string) string {
	b.mu.Lock()
	name, ok := b.channelNames[channelID]
	b.mu.Unlock()
	if ok {
		return name
	}

	ch, err := b.api.Channel(channelID)
	if err != nil {
		slog.Warn("channel lookup failed", "channel", channelID, "error", err)
		return ""
	}

	b.mu.Lock()
	b.channelNames[channelID] = ch.Name
	b.mu.Unlock()
	return ch.Name
}

// logChannel returns the ID of the log channel in guildID, or "" if the
// guild has none.
func (b *Bot) logChannel(guildID string) (string, error) {
	b.mu.Lock()
	id, ok := b.logChannels[guildID]
	b.mu.Unlock()
	if ok {
		return id, nil
	}

	channels, err := b.api.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("listing channels of guild %s: %w", guildID, err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == b.cfg.LogChannel {
			id = ch.ID
			break
		}
	}

	b.mu.Lock()
	b.logChannels[guildID] = id
	b.mu.Unlock()
	return id, nil
}

// toMessageSend renders a command response.
func toMessageSend(resp bot.Response) *discordgo.MessageSend {
	if resp.Title == "" && len(resp.Fields) == 0 {
		return &discordgo.MessageSend{Content: resp.Text}
	}

	embed := &discordgo.MessageEmbed{
		Title:       resp.Title,
		Description: resp.Text,
		Color:       embedColor,
	}
	for _, f := range resp.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}
