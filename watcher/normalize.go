package watcher

import (
	"fmt"
	"time"

	"github.com/onnwee/hatewatch/backend/clashapi"
)

// Game mode ids the watcher reacts to. Everything else is invisible to it.
const (
	ModeLadder = 72000006
	ModeRanked = 72000464
)

// Outcome of a battle from the tracked player's side.
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
	OutcomeTied Outcome = "TIED"
)

// Result is a normalized relevant battle.
type Result struct {
	Outcome      Outcome
	Score        string
	Mode         string
	Time         time.Time
	TrophyChange *int
}

// ModeLabel maps a relevant game mode id to its display label.
func ModeLabel(id int) (string, bool) {
	switch id {
	case ModeLadder:
		return "Ladder", true
	case ModeRanked:
		return "Ranked", true
	}
	return "", false
}

// Normalize converts a battle-log entry into a Result. ok is false when the
// battle's mode is not tracked; an error means the entry itself is malformed
// and the poll step should be abandoned.
//
// Outcome and score come from the first listed participant on each side;
// 2v2 aggregation is deliberately out of scope for the tracked modes.
func Normalize(b clashapi.Battle) (Result, bool, error) {
	mode, relevant := ModeLabel(b.GameMode.ID)
	if !relevant {
		return Result{}, false, nil
	}
	if len(b.Team) == 0 || len(b.Opponent) == 0 {
		return Result{}, false, fmt.Errorf("battle at %q has no participants", b.BattleTime)
	}
	ts, err := clashapi.ParseBattleTime(b.BattleTime)
	if err != nil {
		return Result{}, false, err
	}
	own, opp := b.Team[0].Crowns, b.Opponent[0].Crowns
	outcome := OutcomeTied
	switch {
	case own > opp:
		outcome = OutcomeWon
	case own < opp:
		outcome = OutcomeLost
	}
	return Result{
		Outcome:      outcome,
		Score:        fmt.Sprintf("%d - %d", own, opp),
		Mode:         mode,
		Time:         ts,
		TrophyChange: b.Team[0].TrophyChange,
	}, true, nil
}
