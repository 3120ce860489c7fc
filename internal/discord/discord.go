// Package discord adapts the Discord gateway to the tourney services:
// signup reactions in, announcements and command replies out.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/syuvi-tf/syuvi/internal/store"
	"github.com/syuvi-tf/syuvi/internal/tourney"
	"github.com/syuvi-tf/syuvi/internal/verify"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

const signupEmoji = "✅"

// isSignupReaction reports whether a reaction event targets the signup
// message. An empty configured message id falls back to the whole channel.
func (g *Gateway) isSignupReaction(channelID, messageID, emoji string) bool {
	if channelID != g.cfg.SignupsChannelID || emoji != signupEmoji {
		return false
	}
	return g.cfg.SignupsMessageID == "" || messageID == g.cfg.SignupsMessageID
}

// Config identifies the guild surface the bot works.
type Config struct {
	GuildID           string
	SignupsChannelID  string
	AnnounceChannelID string
	// SignupsMessageID is the pinned message players react to. The signup
	// list refresh edits this message in place.
	SignupsMessageID string
	// DivisionRoles maps division names to guild role ids, used to give
	// rejoining members their roles back.
	DivisionRoles map[string]string
}

// Roster is the roster manager surface the gateway drives.
type Roster interface {
	AddParticipant(ctx context.Context, t *tourney.Tourney, discordID, name string) error
	RemoveParticipant(ctx context.Context, t *tourney.Tourney, discordID string) error
}

// Verifier is the verification workflow surface.
type Verifier interface {
	Verify(ctx context.Context, timeID int64) (*verify.Confirmation, error)
}

// Store is the read slice the gateway needs.
type Store interface {
	ActiveTourney(ctx context.Context) (*tourney.Tourney, error)
	Signups(ctx context.Context, tourneyID int64) ([]store.SignupEntry, error)
	PlayerByDiscordID(ctx context.Context, discordID string) (*tourney.Player, error)
}

type Gateway struct {
	cfg      Config
	session  *discordgo.Session
	roster   Roster
	verifier Verifier
	store    Store
	log      logx.Logger
}

func New(token string, cfg Config, ro Roster, ver Verifier, st Store, log logx.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers

	g := &Gateway{cfg: cfg, session: session, roster: ro, verifier: ver, store: st, log: log}
	session.AddHandler(g.onReady)
	session.AddHandler(g.onReactionAdd)
	session.AddHandler(g.onReactionRemove)
	session.AddHandler(g.onInteraction)
	session.AddHandler(g.onMemberJoin)
	return g, nil
}

// Open connects to the gateway and registers the guild commands.
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	if err := g.registerCommands(); err != nil {
		_ = g.session.Close()
		return err
	}
	return nil
}

func (g *Gateway) Close() error { return g.session.Close() }

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	g.log.Info("discord ready", logx.String("user", r.User.Username))
}

// onReactionAdd signs a user up when they ✅ the signups message. Bots are
// ignored. Duplicate deliveries are harmless: the roster is idempotent.
func (g *Gateway) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if !g.isSignupReaction(r.ChannelID, r.MessageID, r.Emoji.Name) {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}
	ctx := context.Background()

	t, err := g.store.ActiveTourney(ctx)
	if err != nil || t == nil {
		if err != nil {
			g.log.Error("signup reaction: active tourney lookup failed", logx.Err(err))
		}
		return
	}

	name := r.UserID
	if r.Member != nil && r.Member.User != nil {
		name = r.Member.User.Username
	}
	if err := g.roster.AddParticipant(ctx, t, r.UserID, name); err != nil {
		if errors.Is(err, tourney.ErrNoDivision) {
			g.dm(r.UserID, fmt.Sprintf(
				"you don't have a %s division yet, so I can't sign you up. Ask a tourney admin to place you first!",
				t.Class))
			return
		}
		g.log.Error("signup add failed", logx.String("discord_id", r.UserID), logx.Err(err))
	}
}

func (g *Gateway) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if !g.isSignupReaction(r.ChannelID, r.MessageID, r.Emoji.Name) {
		return
	}
	ctx := context.Background()

	t, err := g.store.ActiveTourney(ctx)
	if err != nil || t == nil {
		if err != nil {
			g.log.Error("signup removal: active tourney lookup failed", logx.Err(err))
		}
		return
	}
	if err := g.roster.RemoveParticipant(ctx, t, r.UserID); err != nil {
		g.log.Error("signup removal failed", logx.String("discord_id", r.UserID), logx.Err(err))
	}
}

// onMemberJoin gives a rejoining member their division roles back.
func (g *Gateway) onMemberJoin(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	p, err := g.store.PlayerByDiscordID(context.Background(), m.User.ID)
	if err != nil {
		g.log.Error("member join: player lookup failed", logx.String("discord_id", m.User.ID), logx.Err(err))
		return
	}
	if p == nil {
		return
	}
	for _, div := range []tourney.Division{p.SoldierDivision, p.DemoDivision} {
		if div == "" {
			continue
		}
		roleID, ok := g.cfg.DivisionRoles[string(div)]
		if !ok {
			continue
		}
		if err := g.session.GuildMemberRoleAdd(g.cfg.GuildID, m.User.ID, roleID); err != nil {
			g.log.Warn("member join: role restore failed",
				logx.String("discord_id", m.User.ID), logx.String("division", string(div)), logx.Err(err))
		}
	}
}

func (g *Gateway) dm(userID, content string) {
	ch, err := g.session.UserChannelCreate(userID)
	if err != nil {
		g.log.Warn("dm channel create failed", logx.String("discord_id", userID), logx.Err(err))
		return
	}
	if _, err := g.session.ChannelMessageSend(ch.ID, content); err != nil {
		g.log.Warn("dm send failed", logx.String("discord_id", userID), logx.Err(err))
	}
}
