package discord

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/onnwee/hatewatch/backend/clashapi"
	"github.com/onnwee/hatewatch/backend/store"
)

// API is the slice of *clashapi.Client the command handlers need.
type API interface {
	Player(ctx context.Context, tag string) (*clashapi.Player, error)
	BattleLog(ctx context.Context, tag string) ([]clashapi.Battle, error)
	CurrentRiverRace(ctx context.Context, clanTag string) (*clashapi.RiverRace, error)
}

const handlerTimeout = 15 * time.Second

// Bot owns the Discord session and dispatches slash commands.
type Bot struct {
	session *discordgo.Session
	api     API
	store   *store.Store
	db      *sql.DB
	clanTag string
	tracked map[string]string
}

// NewBot builds a bot around a fresh gateway session. db may be nil; the
// archive-backed parts of command output are skipped without it.
func NewBot(token string, api API, st *store.Store, database *sql.DB, clanTag string, tracked map[string]string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	b := &Bot{
		session: session,
		api:     api,
		store:   st,
		db:      database,
		clanTag: clanTag,
		tracked: tracked,
	}
	session.AddHandler(b.onInteraction)
	return b, nil
}

// Session exposes the underlying gateway session for the announcer.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start opens the gateway and overwrites the registered global commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, "", commandDefinitions()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	slog.Info("discord bot ready",
		slog.String("user", b.session.State.User.Username),
		slog.Int("commands", len(commandDefinitions())),
		slog.String("component", "discord"))
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	tagRequired := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tag",
		Description: "The player's tag (E.G #2ABC)",
		Required:    true,
	}
	tagOptional := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tag",
		Description: "The player's tag (E.G #2ABC)",
	}
	userOptional := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "The Discord user to look up",
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "player",
			Description: "Replies with a Clash Royale player profile",
			Options:     []*discordgo.ApplicationCommandOption{tagRequired},
		},
		{
			Name:        "last-battle",
			Description: "Returns the last Ladder or Ranked match",
			Options:     []*discordgo.ApplicationCommandOption{tagRequired},
		},
		{
			Name:        "record",
			Description: "Displays the recent competitive win/loss record",
			Options:     []*discordgo.ApplicationCommandOption{tagOptional, userOptional},
		},
		{
			Name:        "leaderboard",
			Description: "Displays the current trophy leaderboard of tracked players",
		},
		{
			Name:        "clan-war-battles",
			Description: "Shows clan members and their battles in the current river race",
		},
		{
			Name:        "link",
			Description: "Link a Clash Royale account to a Discord user",
			Options: []*discordgo.ApplicationCommandOption{
				tagRequired,
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The Discord user to link the account to",
				},
			},
		},
		{
			Name:        "unlink",
			Description: "Remove the link between a Clash Royale account and its Discord user",
			Options:     []*discordgo.ApplicationCommandOption{tagRequired},
		},
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	logger := slog.Default().With(slog.String("command", name), slog.String("component", "discord"))

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var err error
	switch name {
	case "player":
		err = b.handlePlayer(ctx, s, i)
	case "last-battle":
		err = b.handleLastBattle(ctx, s, i)
	case "record":
		err = b.handleRecord(ctx, s, i)
	case "leaderboard":
		err = b.handleLeaderboard(ctx, s, i)
	case "clan-war-battles":
		err = b.handleClanWarBattles(ctx, s, i)
	case "link":
		err = b.handleLink(ctx, s, i)
	case "unlink":
		err = b.handleUnlink(ctx, s, i)
	default:
		return
	}
	if err != nil {
		logger.Error("command failed", slog.Any("err", err))
		b.replyText(s, i, "❌ "+err.Error(), true)
	}
}

// replyText responds to an interaction, falling back to a followup when a
// deferred response already went out.
func (b *Bot) replyText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	})
	if err != nil {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content, Flags: flags}); err != nil {
			slog.Warn("interaction reply failed", slog.Any("err", err), slog.String("component", "discord"))
		}
	}
}

func (b *Bot) replyEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
			slog.Warn("interaction reply failed", slog.Any("err", err), slog.String("component", "discord"))
		}
	}
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func userOption(s *discordgo.Session, i *discordgo.InteractionCreate, name string) *discordgo.User {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionUser {
			return opt.UserValue(s)
		}
	}
	return nil
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}
