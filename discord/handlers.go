package discord

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/onnwee/hatewatch/backend/clashapi"
	"github.com/onnwee/hatewatch/backend/db"
	"github.com/onnwee/hatewatch/backend/store"
	"github.com/onnwee/hatewatch/backend/watcher"
)

const (
	embedColor       = 0x0099ff
	leaderboardColor = 0xffd700
	embedFooter      = "Clash Royale Hatewatch Bot"

	invalidTagReply = "❌ Invalid player tag. Use only 0289CGJLPQRUVY characters."
)

func (b *Bot) handlePlayer(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	tag, ok := clashapi.SanitizeTag(stringOption(i, "tag"))
	if !ok {
		b.replyText(s, i, invalidTagReply, true)
		return nil
	}

	player, err := b.api.Player(ctx, tag)
	if err != nil {
		if clashapi.IsNotFound(err) {
			b.replyText(s, i, fmt.Sprintf("⚠️ Player **%s** not found.", tag), true)
			return nil
		}
		return fmt.Errorf("fetch player: %w", err)
	}

	clanName := "No Clan"
	if player.Clan != nil {
		clanName = player.Clan.Name
	}

	embed := &discordgo.MessageEmbed{
		Color:       embedColor,
		Title:       fmt.Sprintf("%s (%s)", player.Name, player.Tag),
		Description: "Clan: " + clanName,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprint(player.ExpLevel), Inline: true},
			{Name: "Trophies", Value: fmt.Sprint(player.Trophies), Inline: true},
			{Name: "Best Trophies", Value: fmt.Sprint(player.BestTrophies), Inline: true},
			{Name: "Wins", Value: fmt.Sprint(player.Wins), Inline: true},
			{Name: "Losses", Value: fmt.Sprint(player.Losses), Inline: true},
			{Name: "3 Crown Wins", Value: fmt.Sprint(player.ThreeCrownWins), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: embedFooter},
	}
	if deck := formatDeck(player.CurrentDeck); deck != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Current Deck", Value: deck})
	}
	b.replyEmbed(s, i, embed)
	return nil
}

func formatDeck(cards []clashapi.Card) string {
	if len(cards) == 0 {
		return ""
	}
	lines := make([]string, 0, len(cards))
	for _, c := range cards {
		lines = append(lines, fmt.Sprintf("**%s** (Lvl %d) | Elixir: %d", c.Name, c.Level, c.ElixirCost))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) handleLastBattle(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	tag, ok := clashapi.SanitizeTag(stringOption(i, "tag"))
	if !ok {
		b.replyText(s, i, invalidTagReply, true)
		return nil
	}

	log, err := b.api.BattleLog(ctx, tag)
	if err != nil {
		if clashapi.IsNotFound(err) {
			b.replyText(s, i, fmt.Sprintf("⚠️ Player **%s** not found.", tag), true)
			return nil
		}
		return fmt.Errorf("fetch battle log: %w", err)
	}

	for _, battle := range log {
		res, relevant, err := watcher.Normalize(battle)
		if err != nil || !relevant {
			continue
		}
		you := battle.Team[0]
		opp := battle.Opponent[0]
		embed := &discordgo.MessageEmbed{
			Color: embedColor,
			Title: fmt.Sprintf("%s vs %s", you.Name, opp.Name),
			Description: fmt.Sprintf("**%s** match: **%s** *%s*",
				res.Mode, res.Outcome, res.Score),
			Fields: []*discordgo.MessageEmbedField{
				{
					Name: you.Name,
					Value: fmt.Sprintf("[royaleapi](https://royaleapi.com/player/%s)",
						strings.TrimPrefix(you.Tag, "#")),
					Inline: true,
				},
				{
					Name: opp.Name,
					Value: fmt.Sprintf("[royaleapi](https://royaleapi.com/player/%s)",
						strings.TrimPrefix(opp.Tag, "#")),
					Inline: true,
				},
			},
			Footer: &discordgo.MessageEmbedFooter{Text: embedFooter},
		}
		b.replyEmbed(s, i, embed)
		return nil
	}

	b.replyText(s, i, fmt.Sprintf("⚠️ No recent Ladder or Ranked matches for **%s**.", tag), true)
	return nil
}

func (b *Bot) handleRecord(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	tag, source, errReply := b.resolveTag(s, i)
	if errReply != "" {
		b.replyText(s, i, errReply, true)
		return nil
	}

	log, err := b.api.BattleLog(ctx, tag)
	if err != nil {
		if clashapi.IsNotFound(err) {
			b.replyText(s, i, fmt.Sprintf("⚠️ Player **%s** not found.", tag), true)
			return nil
		}
		return fmt.Errorf("fetch battle log: %w", err)
	}
	if len(log) == 0 {
		b.replyText(s, i, fmt.Sprintf("⚠️ No battle log data found for tag `%s`. The player may be new or inactive.", tag), true)
		return nil
	}

	playerName := tag
	clanName := "No Clan"
	if len(log[0].Team) > 0 {
		playerName = log[0].Team[0].Name
		if log[0].Team[0].Clan != nil {
			clanName = log[0].Team[0].Clan.Name
		}
	}

	summary := tallyRecord(log)
	embed := &discordgo.MessageEmbed{
		Color:       embedColor,
		Title:       fmt.Sprintf("%s (%s)", playerName, tag),
		Description: "Clan: " + clanName,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  fmt.Sprintf("Competitive 1v1 Record (Last %d Battles)", len(log)),
				Value: formatRecord(summary),
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Source: %s | %s", source, embedFooter)},
	}

	if b.db != nil {
		if archive, err := db.RecordSummary(ctx, b.db, tag, 0); err == nil && archive.Total() > 0 {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "All-Time Tracked Record",
				Value: formatRecord(archive),
			})
		}
	}

	b.replyEmbed(s, i, embed)
	return nil
}

// resolveTag picks the tag for /record: an explicit tag option wins, otherwise
// the mentioned (or invoking) user's linked account. The returned reply is
// non-empty when resolution failed and has already been worded for the user.
func (b *Bot) resolveTag(s *discordgo.Session, i *discordgo.InteractionCreate) (tag, source, errReply string) {
	if raw := stringOption(i, "tag"); raw != "" {
		tag, ok := clashapi.SanitizeTag(raw)
		if !ok {
			return "", "", invalidTagReply
		}
		return tag, "manual tag", ""
	}

	user := userOption(s, i, "user")
	if user == nil {
		user = interactionUser(i)
	}
	if user == nil {
		return "", "", "❌ Could not identify the requesting user."
	}
	tag, _, found := b.store.FindByDiscordID(user.ID)
	if !found {
		return "", "", fmt.Sprintf("❌ Discord user **%s** does not have a Clash Royale tag linked. Please use `/link` first or provide a tag directly.", user.Username)
	}
	return tag, "linked to " + user.Username, ""
}

func tallyRecord(log []clashapi.Battle) db.Summary {
	var s db.Summary
	for _, battle := range log {
		res, relevant, err := watcher.Normalize(battle)
		if err != nil || !relevant {
			continue
		}
		switch res.Outcome {
		case watcher.OutcomeWon:
			s.Wins++
		case watcher.OutcomeLost:
			s.Losses++
		case watcher.OutcomeTied:
			s.Draws++
		}
	}
	return s
}

func formatRecord(s db.Summary) string {
	if s.Total() == 0 {
		return "No Ladder/Ranked matches in the past 25."
	}
	return fmt.Sprintf("W: **%d** | L: **%d** | D: **%d**", s.Wins, s.Losses, s.Draws)
}

var leagueNames = map[int]string{
	1: "Master I",
	2: "Master II",
	3: "Master III",
	4: "Champion",
	5: "Grand Champion",
	6: "Royal Champion",
	7: "Ultimate Champion",
}

func leagueName(n int) string {
	if name, ok := leagueNames[n]; ok {
		return name
	}
	return fmt.Sprintf("League %d", n)
}

type leaderboardEntry struct {
	Name         string
	Trophies     int
	BestTrophies int
	PoL          string
}

func (b *Bot) handleLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	entries := make([]leaderboardEntry, 0, len(b.tracked))
	for tag, nick := range b.tracked {
		player, err := b.api.Player(ctx, tag)
		if err != nil {
			// one unreachable profile must not sink the whole board
			continue
		}
		entries = append(entries, leaderboardEntry{
			Name:         nick,
			Trophies:     player.Trophies,
			BestTrophies: player.BestTrophies,
			PoL:          formatPoL(player.BestSeasonResult()),
		})
	}

	embed := &discordgo.MessageEmbed{
		Color:       leaderboardColor,
		Title:       "🏆 Hatewatch Leaderboard",
		Description: formatLeaderboard(entries),
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	}
	b.replyEmbed(s, i, embed)
	return nil
}

func formatPoL(r *clashapi.SeasonResult) string {
	if r == nil {
		return ""
	}
	if r.LeagueNumber > 0 {
		rankPart := ""
		if r.Rank != nil {
			rankPart = fmt.Sprintf(" #%d", *r.Rank)
		}
		return fmt.Sprintf(" — %s (%d PoL%s)", leagueName(r.LeagueNumber), r.Trophies, rankPart)
	}
	if r.Trophies > 0 {
		return fmt.Sprintf(" — PathOfLegends (%d)", r.Trophies)
	}
	return ""
}

func formatLeaderboard(entries []leaderboardEntry) string {
	if len(entries) == 0 {
		return "No tracked players found."
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Trophies > entries[b].Trophies
	})
	lines := make([]string, 0, len(entries))
	for idx, e := range entries {
		lines = append(lines, fmt.Sprintf("**%d.** %s — 🏆 %d%s *(best: %d)*",
			idx+1, e.Name, e.Trophies, e.PoL, e.BestTrophies))
	}
	return strings.Join(lines, "\n")
}

const riverRaceTableLimit = 25

func (b *Bot) handleClanWarBattles(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if b.clanTag == "" {
		b.replyText(s, i, "❌ No clan configured for river race lookups.", true)
		return nil
	}

	race, err := b.api.CurrentRiverRace(ctx, b.clanTag)
	if err != nil {
		if clashapi.IsNotFound(err) {
			b.replyText(s, i, "❌ Encountered an error while trying to retrieve clan war status.", true)
			return nil
		}
		return fmt.Errorf("fetch river race: %w", err)
	}

	embed := &discordgo.MessageEmbed{
		Color:       embedColor,
		Title:       fmt.Sprintf("Current %s River Race Status", race.Clan.Name),
		Description: formatRiverRaceTable(race.Clan.Participants),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s | %d participants", embedFooter, len(race.Clan.Participants)),
		},
	}
	b.replyEmbed(s, i, embed)
	return nil
}

// formatRiverRaceTable renders participants as a monospace table sorted by
// fame, then decks used today. Players with no fame and no decks today carry
// an inactivity marker.
func formatRiverRaceTable(participants []clashapi.RiverRaceParticipant) string {
	if len(participants) == 0 {
		return "No participants in the current river race."
	}

	sorted := make([]clashapi.RiverRaceParticipant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Fame != sorted[b].Fame {
			return sorted[a].Fame > sorted[b].Fame
		}
		return sorted[a].DecksUsedToday > sorted[b].DecksUsedToday
	})

	var sb strings.Builder
	sb.WriteString("```md\n")
	sb.WriteString("Name         | Fame 🏅  | Decks Today\n")
	sb.WriteString("─────────────────────────────────────\n")

	inactive := 0
	shown := sorted
	if len(shown) > riverRaceTableLimit {
		shown = shown[:riverRaceTableLimit]
	}
	for _, p := range sorted {
		if p.Fame == 0 && p.DecksUsedToday == 0 {
			inactive++
		}
	}
	for _, p := range shown {
		indicator := ""
		if p.Fame == 0 && p.DecksUsedToday == 0 {
			indicator = " ⚠️"
		}
		fmt.Fprintf(&sb, "%-12.12s | %6d   | %d/4%s\n", p.Name, p.Fame, p.DecksUsedToday, indicator)
	}
	sb.WriteString("```")

	if len(sorted) > len(shown) {
		fmt.Fprintf(&sb, "\n… and %d more", len(sorted)-len(shown))
	}
	if inactive > 0 {
		fmt.Fprintf(&sb, "\n⚠️ = Player hasn't participated yet (%d total)", inactive)
	}
	return sb.String()
}

func (b *Bot) handleLink(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	tag, ok := clashapi.SanitizeTag(stringOption(i, "tag"))
	if !ok {
		b.replyText(s, i, invalidTagReply, true)
		return nil
	}
	user := userOption(s, i, "user")
	if user == nil {
		user = interactionUser(i)
	}
	if user == nil {
		b.replyText(s, i, "❌ Could not identify the requesting user.", true)
		return nil
	}

	// the tag must be a real account before we bind it
	if _, err := b.api.Player(ctx, tag); err != nil {
		if clashapi.IsNotFound(err) {
			b.replyText(s, i, "❌ Failed to link, please use a real Clash Royale tag.", true)
			return nil
		}
		return fmt.Errorf("verify player: %w", err)
	}

	if err := b.store.Link(tag, user.ID, user.Username); err != nil {
		if errors.Is(err, store.ErrAlreadyLinked) {
			b.replyText(s, i, fmt.Sprintf("😡 Critical Error: A link already exists between the tag **%s** and a Discord ID.", tag), false)
			return nil
		}
		return fmt.Errorf("save link: %w", err)
	}

	b.replyText(s, i, fmt.Sprintf("✅ Successfully linked Discord user **%s** to Clash Account **%s** ✅", user.Username, tag), false)
	return nil
}

func (b *Bot) handleUnlink(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	tag, ok := clashapi.SanitizeTag(stringOption(i, "tag"))
	if !ok {
		b.replyText(s, i, "❌ Invalid Clash Royale Tag provided.", true)
		return nil
	}

	discordID, err := b.store.Unlink(tag)
	switch {
	case errors.Is(err, store.ErrNotTracked):
		b.replyText(s, i, fmt.Sprintf("⚠️ Clash Account **%s** was not found in the database.", tag), true)
		return nil
	case errors.Is(err, store.ErrNotLinked):
		b.replyText(s, i, fmt.Sprintf("ℹ️ Clash Account **%s** is already unlinked.", tag), true)
		return nil
	case err != nil:
		return fmt.Errorf("remove link: %w", err)
	}

	b.replyText(s, i, fmt.Sprintf("✅ Successfully unlinked Discord ID **%s** from Clash Account **%s**. All tracking data remains intact.", discordID, tag), false)
	return nil
}
