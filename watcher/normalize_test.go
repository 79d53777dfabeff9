package watcher

import (
	"testing"
	"time"

	"github.com/onnwee/hatewatch/backend/clashapi"
)

func battleFixture(modeID, teamCrowns, oppCrowns int) clashapi.Battle {
	return clashapi.Battle{
		Type:       "pathOfLegend",
		BattleTime: "20250922T153747.000Z",
		GameMode:   clashapi.GameMode{ID: modeID, Name: "Ladder_PathOfLegend"},
		Team: []clashapi.BattleParticipant{
			{Tag: "#02QL9CGY", Name: "Alice", Crowns: teamCrowns},
		},
		Opponent: []clashapi.BattleParticipant{
			{Tag: "#8JGY0V", Name: "Bob", Crowns: oppCrowns},
		},
	}
}

func TestNormalizeOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		team, opp int
		outcome   Outcome
		score     string
	}{
		{"win", 2, 1, OutcomeWon, "2 - 1"},
		{"loss", 0, 3, OutcomeLost, "0 - 3"},
		{"tie", 1, 1, OutcomeTied, "1 - 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, ok, err := Normalize(battleFixture(ModeRanked, tc.team, tc.opp))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !ok {
				t.Fatal("Normalize: battle not relevant")
			}
			if res.Outcome != tc.outcome {
				t.Errorf("outcome = %q, want %q", res.Outcome, tc.outcome)
			}
			if res.Score != tc.score {
				t.Errorf("score = %q, want %q", res.Score, tc.score)
			}
			if res.Mode != "Ranked" {
				t.Errorf("mode = %q, want Ranked", res.Mode)
			}
			want := time.Date(2025, 9, 22, 15, 37, 47, 0, time.UTC)
			if !res.Time.Equal(want) {
				t.Errorf("time = %v, want %v", res.Time, want)
			}
		})
	}
}

func TestNormalizeIrrelevantMode(t *testing.T) {
	res, ok, err := Normalize(battleFixture(72000010, 3, 0))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ok {
		t.Errorf("challenge mode normalized as relevant: %+v", res)
	}
}

func TestNormalizeLadderLabel(t *testing.T) {
	res, ok, err := Normalize(battleFixture(ModeLadder, 1, 0))
	if err != nil || !ok {
		t.Fatalf("Normalize: ok=%v err=%v", ok, err)
	}
	if res.Mode != "Ladder" {
		t.Errorf("mode = %q, want Ladder", res.Mode)
	}
}

func TestNormalizeTrophyChange(t *testing.T) {
	b := battleFixture(ModeLadder, 2, 0)
	delta := 31
	b.Team[0].TrophyChange = &delta
	res, ok, err := Normalize(b)
	if err != nil || !ok {
		t.Fatalf("Normalize: ok=%v err=%v", ok, err)
	}
	if res.TrophyChange == nil || *res.TrophyChange != 31 {
		t.Errorf("trophyChange = %v, want 31", res.TrophyChange)
	}

	res, _, _ = Normalize(battleFixture(ModeLadder, 2, 0))
	if res.TrophyChange != nil {
		t.Errorf("trophyChange = %v, want nil", res.TrophyChange)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	empty := battleFixture(ModeRanked, 1, 0)
	empty.Team = nil
	if _, _, err := Normalize(empty); err == nil {
		t.Error("empty team: want error")
	}

	badTime := battleFixture(ModeRanked, 1, 0)
	badTime.BattleTime = "2025-09-22T15:37:47Z"
	if _, _, err := Normalize(badTime); err == nil {
		t.Error("rfc3339 battleTime: want error")
	}
}
