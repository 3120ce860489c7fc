package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/syuvi-tf/syuvi/internal/tourney"
	"github.com/syuvi-tf/syuvi/internal/verify"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

const embedColor = 0xA69ED7

// AnnounceStart posts the tourney start message. Fire-and-forget: a failed
// send is logged, never propagated back to the scheduler.
func (g *Gateway) AnnounceStart(_ context.Context, t *tourney.Tourney) {
	msg := fmt.Sprintf("**The %s tourney has started!** Times are due <t:%d:F> (<t:%d:R>).",
		t.Class, t.EndsAt.Unix(), t.EndsAt.Unix())
	if _, err := g.session.ChannelMessageSend(g.cfg.AnnounceChannelID, msg); err != nil {
		g.log.Error("start announcement failed", logx.Int64("tourney_id", t.ID), logx.Err(err))
	}
}

// AnnounceEnd posts the tourney end message.
func (g *Gateway) AnnounceEnd(_ context.Context, t *tourney.Tourney) {
	msg := fmt.Sprintf("**The %s tourney has ended!** Thanks for playing, results are up on the sheet.", t.Class)
	if _, err := g.session.ChannelMessageSend(g.cfg.AnnounceChannelID, msg); err != nil {
		g.log.Error("end announcement failed", logx.Int64("tourney_id", t.ID), logx.Err(err))
	}
}

// RefreshSignupList re-renders the pinned signups message from the roster.
func (g *Gateway) RefreshSignupList(ctx context.Context, t *tourney.Tourney) {
	if g.cfg.SignupsMessageID == "" {
		return
	}
	signups, err := g.store.Signups(ctx, t.ID)
	if err != nil {
		g.log.Error("signup list refresh: load failed", logx.Int64("tourney_id", t.ID), logx.Err(err))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s Tourney Signups** (react with %s to join!)\n", t.Class, signupEmoji)
	if len(signups) == 0 {
		b.WriteString("*no signups yet*")
	}
	for i, su := range signups {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, su.Player.Name, su.Division)
	}

	if _, err := g.session.ChannelMessageEdit(g.cfg.SignupsChannelID, g.cfg.SignupsMessageID, b.String()); err != nil {
		g.log.Error("signup list refresh: edit failed", logx.Int64("tourney_id", t.ID), logx.Err(err))
	}
}

// verifiedEmbed renders the confirmation for a verified time.
func verifiedEmbed(c *verify.Confirmation) *discordgo.MessageEmbed {
	desc := fmt.Sprintf(
		"TF2PJ | (%s) Verified a %s for <@%s>\non %s\n-# time ID: %d\n\n-# verified: this time was slower than Tempus PR",
		c.Class, c.FormattedTime, c.PlayerDiscordID, c.Map, c.TimeID)
	return &discordgo.MessageEmbed{
		Color:       embedColor,
		Description: desc,
	}
}
