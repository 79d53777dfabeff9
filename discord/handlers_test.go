package discord

import (
	"strings"
	"testing"

	"github.com/onnwee/hatewatch/backend/clashapi"
	"github.com/onnwee/hatewatch/backend/db"
)

func TestFormatRecord(t *testing.T) {
	if got := formatRecord(db.Summary{}); got != "No Ladder/Ranked matches in the past 25." {
		t.Errorf("empty summary = %q", got)
	}
	got := formatRecord(db.Summary{Wins: 12, Losses: 8, Draws: 1})
	if got != "W: **12** | L: **8** | D: **1**" {
		t.Errorf("summary = %q", got)
	}
}

func TestTallyRecordSkipsIrrelevantModes(t *testing.T) {
	log := []clashapi.Battle{
		battle(72000006, 2, 0),
		battle(72000464, 0, 1),
		battle(72000010, 3, 0), // challenge, ignored
		battle(72000006, 1, 1),
	}
	s := tallyRecord(log)
	if s.Wins != 1 || s.Losses != 1 || s.Draws != 1 {
		t.Errorf("tally = %+v", s)
	}
}

func battle(modeID, team, opp int) clashapi.Battle {
	return clashapi.Battle{
		BattleTime: "20250922T153747.000Z",
		GameMode:   clashapi.GameMode{ID: modeID},
		Team:       []clashapi.BattleParticipant{{Tag: "#A", Crowns: team}},
		Opponent:   []clashapi.BattleParticipant{{Tag: "#B", Crowns: opp}},
	}
}

func TestLeagueName(t *testing.T) {
	if got := leagueName(7); got != "Ultimate Champion" {
		t.Errorf("leagueName(7) = %q", got)
	}
	if got := leagueName(42); got != "League 42" {
		t.Errorf("leagueName(42) = %q", got)
	}
}

func TestFormatPoL(t *testing.T) {
	if got := formatPoL(nil); got != "" {
		t.Errorf("nil result = %q", got)
	}
	rank := 128
	got := formatPoL(&clashapi.SeasonResult{LeagueNumber: 5, Trophies: 1843, Rank: &rank})
	if got != " — Grand Champion (1843 PoL #128)" {
		t.Errorf("ranked result = %q", got)
	}
	got = formatPoL(&clashapi.SeasonResult{Trophies: 900})
	if got != " — PathOfLegends (900)" {
		t.Errorf("leagueless result = %q", got)
	}
}

func TestFormatLeaderboardSortsByTrophies(t *testing.T) {
	entries := []leaderboardEntry{
		{Name: "Benis", Trophies: 5400, BestTrophies: 6000},
		{Name: "Peemus", Trophies: 7100, BestTrophies: 7200},
		{Name: "Maj", Trophies: 6100, BestTrophies: 6500},
	}
	out := formatLeaderboard(entries)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "**1.** Peemus") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "**3.** Benis") {
		t.Errorf("last line = %q", lines[2])
	}
	if !strings.Contains(lines[0], "🏆 7100") || !strings.Contains(lines[0], "*(best: 7200)*") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestFormatLeaderboardEmpty(t *testing.T) {
	if got := formatLeaderboard(nil); got != "No tracked players found." {
		t.Errorf("empty board = %q", got)
	}
}

func TestFormatRiverRaceTable(t *testing.T) {
	participants := []clashapi.RiverRaceParticipant{
		{Name: "Idle", Fame: 0, DecksUsedToday: 0},
		{Name: "Grinder", Fame: 1600, DecksUsedToday: 4},
		{Name: "Casual", Fame: 800, DecksUsedToday: 2},
	}
	out := formatRiverRaceTable(participants)

	grinder := strings.Index(out, "Grinder")
	casual := strings.Index(out, "Casual")
	idle := strings.Index(out, "Idle")
	if grinder < 0 || casual < 0 || idle < 0 {
		t.Fatalf("missing rows: %q", out)
	}
	if !(grinder < casual && casual < idle) {
		t.Errorf("rows not sorted by fame: %q", out)
	}
	if !strings.Contains(out, "⚠️ = Player hasn't participated yet (1 total)") {
		t.Errorf("missing inactivity note: %q", out)
	}
	if !strings.HasPrefix(out, "```md\n") {
		t.Errorf("not a monospace block: %q", out)
	}
}

func TestFormatRiverRaceTableEmpty(t *testing.T) {
	if got := formatRiverRaceTable(nil); got != "No participants in the current river race." {
		t.Errorf("empty race = %q", got)
	}
}

func TestFormatDeck(t *testing.T) {
	if got := formatDeck(nil); got != "" {
		t.Errorf("empty deck = %q", got)
	}
	got := formatDeck([]clashapi.Card{
		{Name: "Hog Rider", Level: 14, ElixirCost: 4},
		{Name: "Fireball", Level: 13, ElixirCost: 4},
	})
	want := "**Hog Rider** (Lvl 14) | Elixir: 4\n**Fireball** (Lvl 13) | Elixir: 4"
	if got != want {
		t.Errorf("deck = %q, want %q", got, want)
	}
}
