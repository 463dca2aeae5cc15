package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Clownyz/rentals-bot/internal/bot"
	"github.com/Clownyz/rentals-bot/internal/notify"
)

// Notify delivers direct messages and log channel posts. Broadcast messages
// are not shown on Discord.
func (b *Bot) Notify(_ context.Context, msg notify.Message) error {
	switch msg.Target.Kind {
	case notify.DirectUser:
		return b.sendDM(msg)
	case notify.LogChannel:
		return b.sendLog(msg)
	default:
		return nil
	}
}

func (b *Bot) sendDM(msg notify.Message) error {
	ch, err := b.api.UserChannelCreate(msg.Target.UserID)
	if err != nil {
		return fmt.Errorf("opening DM with %s: %w", msg.Target.UserID, err)
	}
	if _, err := b.api.ChannelMessageSend(ch.ID, msg.Text); err != nil {
		return fmt.Errorf("sending DM to %s: %w", msg.Target.UserID, err)
	}
	return nil
}

// sendLog posts msg to the log channel of every guild that has one.
func (b *Bot) sendLog(msg notify.Message) error {
	send := &discordgo.MessageSend{Content: msg.Text}
	if len(msg.Attachments) > 0 {
		send.Content += "\n" + strings.Join(msg.Attachments, "\n")
	}
	if msg.ProofID != "" {
		send.Components = reviewButtons(msg.ProofID)
	}

	var errs []error
	for _, guildID := range b.guildIDs() {
		channelID, err := b.logChannel(guildID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if channelID == "" {
			continue
		}
		if _, err := b.api.ChannelMessageSendComplex(channelID, send); err != nil {
			errs = append(errs, fmt.Errorf("posting to log channel %s: %w", channelID, err))
		}
	}
	return errors.Join(errs...)
}

func reviewButtons(proofID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: bot.DecisionID(bot.ActionApprove, proofID),
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: bot.DecisionID(bot.ActionReject, proofID),
				},
			},
		},
	}
}
