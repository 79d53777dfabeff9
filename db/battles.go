package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BattleRecord is one archived battle result.
type BattleRecord struct {
	Tag          string
	Name         string
	Mode         string
	Outcome      string
	Score        string
	TrophyChange *int
	BattleTime   time.Time
	Notified     bool
}

// RecordBattle inserts an archived battle. The (tag, battle_time) pair is
// unique, so re-processing the same snapshot is a no-op.
func RecordBattle(ctx context.Context, db *sql.DB, r BattleRecord) error {
	_, err := db.ExecContext(ctx, `INSERT INTO battles (tag, name, mode, outcome, score, trophy_change, battle_time, notified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (tag, battle_time) DO NOTHING`,
		r.Tag, r.Name, r.Mode, r.Outcome, r.Score, r.TrophyChange, r.BattleTime, r.Notified)
	if err != nil {
		return fmt.Errorf("insert battle: %w", err)
	}
	return nil
}

// Summary aggregates win/loss/draw counts for a player.
type Summary struct {
	Wins   int
	Losses int
	Draws  int
}

// Total returns the number of battles the summary covers.
func (s Summary) Total() int { return s.Wins + s.Losses + s.Draws }

// RecordSummary aggregates the outcomes of the most recent limit archived
// battles for tag. A non-positive limit covers the whole archive.
func RecordSummary(ctx context.Context, db *sql.DB, tag string, limit int) (Summary, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM (
			SELECT outcome FROM battles WHERE tag=$1 ORDER BY battle_time DESC LIMIT $2
		) recent GROUP BY outcome`, tag, limitArg)
	if err != nil {
		return Summary{}, fmt.Errorf("record summary: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var s Summary
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return Summary{}, fmt.Errorf("record summary scan: %w", err)
		}
		switch outcome {
		case "WON":
			s.Wins = n
		case "LOST":
			s.Losses = n
		case "TIED":
			s.Draws = n
		}
	}
	return s, rows.Err()
}

// CountBattles returns the total number of archived battles.
func CountBattles(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM battles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count battles: %w", err)
	}
	return n, nil
}
