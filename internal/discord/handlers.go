package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/Clownyz/rentals-bot/internal/bot"
)

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.addGuild(g.ID)
	}
	if err := s.UpdateGameStatus(0, b.cfg.Presence); err != nil {
		slog.Warn("setting presence failed", "error", err)
	}
	slog.Info("discord ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	b.addGuild(g.ID)
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(context.Background(), m.Message)
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handleInteraction(context.Background(), i.Interaction)
}

func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	caller := bot.Caller{UserID: m.Author.ID, IsAdmin: b.isAdmin(m)}

	if len(m.Attachments) > 0 && m.GuildID != "" && b.channelName(m.ChannelID) == b.cfg.ProofsChannel {
		var attachments []bot.Attachment
		for _, a := range m.Attachments {
			attachments = append(attachments, bot.Attachment{URL: a.URL, ContentType: a.ContentType})
		}
		if resp, ok := b.handler.HandleProof(ctx, caller, attachments); ok {
			b.reply(m, resp)
		}
	}

	resp, ok := b.handler.Handle(ctx, caller, m.Content)
	if !ok || resp.Empty() {
		return
	}
	b.reply(m, resp)
}

func (b *Bot) isAdmin(m *discordgo.Message) bool {
	if m.GuildID == "" {
		return false
	}
	perms, err := b.api.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		slog.Warn("permission lookup failed", "user", m.Author.ID, "channel", m.ChannelID, "error", err)
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (b *Bot) reply(m *discordgo.Message, resp bot.Response) {
	send := toMessageSend(resp)
	send.Reference = m.Reference()
	if _, err := b.api.ChannelMessageSendComplex(m.ChannelID, send); err != nil {
		slog.Error("sending reply failed", "channel", m.ChannelID, "error", err)
	}
}

func (b *Bot) handleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	caller := bot.Caller{}
	switch {
	case i.Member != nil:
		caller.IsAdmin = i.Member.Permissions&discordgo.PermissionAdministrator != 0
		if i.Member.User != nil {
			caller.UserID = i.Member.User.ID
		}
	case i.User != nil:
		caller.UserID = i.User.ID
	}

	resp := b.handler.HandleDecision(ctx, caller, i.MessageComponentData().CustomID)

	data := &discordgo.InteractionResponseData{Content: resp.Text}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		slog.Error("responding to interaction failed", "error", err)
	}
}
