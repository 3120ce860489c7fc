package discord

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"

	"github.com/syuvi-tf/syuvi/internal/verify"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

const (
	timeIDMin = 1
	timeIDMax = 999999
)

func (g *Gateway) registerCommands() error {
	minTimeID := float64(timeIDMin)
	managePerm := int64(discordgo.PermissionManageMessages)

	cmd := &discordgo.ApplicationCommand{
		Name:                     "verify",
		Description:              "verify a player's tourney time",
		DefaultMemberPermissions: &managePerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "time_id",
				Description: "from the submitted time's message",
				Required:    true,
				MinValue:    &minTimeID,
				MaxValue:    float64(timeIDMax),
			},
		},
	}
	if _, err := g.session.ApplicationCommandCreate(g.session.State.User.ID, g.cfg.GuildID, cmd); err != nil {
		return fmt.Errorf("registering /verify: %w", err)
	}
	return nil
}

// onInteraction is the outermost dispatch boundary. Anything a handler
// throws is caught here, logged, and turned into a generic reply to the
// pending interaction.
func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name

	defer func() {
		if r := recover(); r != nil {
			g.log.Error("panic in command handler",
				logx.String("command", name), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			g.replyError(i)
		}
	}()

	switch name {
	case "verify":
		g.handleVerify(s, i)
	default:
		g.log.Error("no matching command", logx.String("command", name))
	}
}

func (g *Gateway) handleVerify(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Defer first; verification touches storage and the sheet push can be
	// slow enough to miss the 3s interaction window.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		g.log.Error("verify: defer failed", logx.Err(err))
		return
	}

	timeID := i.ApplicationCommandData().Options[0].IntValue()
	conf, err := g.verifier.Verify(context.Background(), timeID)
	if errors.Is(err, verify.ErrNotFound) {
		g.editReply(i, &discordgo.WebhookEdit{Content: ptr("❌ Couldn't find a time to verify.")})
		return
	}
	if err != nil {
		g.log.Error("verify failed", logx.Int64("time_id", timeID), logx.Err(err))
		g.editReply(i, &discordgo.WebhookEdit{Content: ptr("encountered an error running this command")})
		return
	}

	embed := verifiedEmbed(conf)
	g.editReply(i, &discordgo.WebhookEdit{Embeds: &[]*discordgo.MessageEmbed{embed}})
}

func (g *Gateway) editReply(i *discordgo.InteractionCreate, edit *discordgo.WebhookEdit) {
	if _, err := g.session.InteractionResponseEdit(i.Interaction, edit); err != nil {
		g.log.Error("interaction edit failed", logx.Err(err))
	}
}

// replyError sends the generic failure message to a pending interaction,
// via followup if the interaction was already acknowledged.
func (g *Gateway) replyError(i *discordgo.InteractionCreate) {
	err := g.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "encountered an error running this command",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		_, _ = g.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: "encountered an error running this command",
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	}
}

func ptr[T any](v T) *T { return &v }
