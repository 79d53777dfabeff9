package watcher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/hatewatch/backend/clashapi"
	"github.com/onnwee/hatewatch/backend/db"
	"github.com/onnwee/hatewatch/backend/store"
	"github.com/onnwee/hatewatch/backend/telemetry"
)

// Default pacing for the poll loop.
const (
	DefaultTagDelay     = 2 * time.Second
	DefaultCycleDelay   = 60 * time.Second
	DefaultErrorBackoff = 10 * time.Second
)

// TrackedTag names one player the watcher polls.
type TrackedTag struct {
	Tag  string
	Name string
}

// LogFetcher fetches a player's battle log. *clashapi.Client satisfies it;
// tests substitute a fake.
type LogFetcher interface {
	BattleLog(ctx context.Context, tag string) ([]clashapi.Battle, error)
}

// Announcement is one detected battle, ready for delivery.
type Announcement struct {
	Tag          string
	Name         string
	Mode         string
	Outcome      Outcome
	Score        string
	TrophyChange *int
	Time         time.Time
	// Notify marks whether the delivery may ping the linked account.
	Notify      bool
	TiltMessage string
	// DiscordID is the linked account, empty when unlinked.
	DiscordID string
}

// Sink receives announcements. The Discord announcer satisfies it; tests
// substitute a recorder.
type Sink interface {
	Announce(ctx context.Context, a Announcement) error
}

// Watcher polls tracked players' battle logs and announces new battles.
// It runs until its context is cancelled; API failures and panics inside a
// cycle are logged and backed off, never fatal.
type Watcher struct {
	Fetcher LogFetcher
	Store   *store.Store
	Sink    Sink
	Tracked []TrackedTag

	// DB is the optional battle archive. Nil disables archival and
	// heartbeats; announcements are unaffected.
	DB *sql.DB

	TagDelay       time.Duration
	CycleDelay     time.Duration
	ErrorBackoff   time.Duration
	NotifyCooldown time.Duration
}

func (w *Watcher) tagDelay() time.Duration {
	if w.TagDelay > 0 {
		return w.TagDelay
	}
	return DefaultTagDelay
}

func (w *Watcher) cycleDelay() time.Duration {
	if w.CycleDelay > 0 {
		return w.CycleDelay
	}
	return DefaultCycleDelay
}

func (w *Watcher) errorBackoff() time.Duration {
	if w.ErrorBackoff > 0 {
		return w.ErrorBackoff
	}
	return DefaultErrorBackoff
}

func (w *Watcher) notifyCooldown() time.Duration {
	if w.NotifyCooldown > 0 {
		return w.NotifyCooldown
	}
	return DefaultNotifyCooldown
}

// Start runs the poll loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	telemetry.SetTrackedPlayers(len(w.Tracked))
	for {
		corrID := uuid.New().String()
		cctx := telemetry.WithCorrelation(ctx, corrID)
		logger := telemetry.LoggerWithCorr(cctx)

		delay := w.cycleDelay()
		if err := w.runCycle(cctx, logger); err != nil {
			logger.Error("battle watch cycle failed", slog.Any("err", err))
			telemetry.PollErrors.Inc()
			delay = w.errorBackoff()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runCycle polls every tracked tag once. A panic inside the cycle is
// converted into an error so the loop survives it.
func (w *Watcher) runCycle(ctx context.Context, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in poll cycle: %v", r)
		}
	}()

	start := time.Now()
	defer func() {
		if telemetry.CycleDuration != nil {
			telemetry.CycleDuration.Observe(time.Since(start).Seconds())
		}
	}()
	telemetry.PollCycles.Inc()

	for i, t := range w.Tracked {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.tagDelay()):
			}
		}
		if err := w.pollTag(ctx, t); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("poll failed",
				slog.String("tag", t.Tag),
				slog.Any("err", err))
			telemetry.PollErrors.Inc()
		}
	}

	if w.DB != nil {
		if err := db.SetKV(ctx, w.DB, "job_battle_watch_last", time.Now().UTC().Format(time.RFC3339)); err != nil {
			logger.Warn("heartbeat update failed", slog.Any("err", err))
		}
	}
	return nil
}

// pollTag fetches one player's battle log and processes its newest entry.
// Only log index 0 is inspected; battles pushed past it between polls are
// never announced.
func (w *Watcher) pollTag(ctx context.Context, t TrackedTag) error {
	telemetry.TagPolls.Inc()

	log, err := w.Fetcher.BattleLog(ctx, t.Tag)
	if err != nil {
		return fmt.Errorf("fetch battle log: %w", err)
	}
	if len(log) == 0 {
		return nil
	}

	res, ok, err := Normalize(log[0])
	if err != nil {
		return fmt.Errorf("normalize battle: %w", err)
	}
	if !ok {
		return nil
	}

	var ann *Announcement
	updateErr := w.Store.Update(t.Tag, t.Name, func(p *store.TrackedPlayer) bool {
		if p.LastBattleTime.Equal(res.Time) {
			return false
		}
		p.LastBattleTime = res.Time
		p.GameMode = res.Mode
		p.Tilt = NextTilt(p.Tilt, res.Outcome, res.Time)

		notify := ShouldNotify(p.LastNotified, res.Time, w.notifyCooldown())
		if notify {
			p.LastNotified = res.Time
		}

		var tiltMsg string
		if res.Outcome == OutcomeLost {
			tiltMsg = TiltMessage(p.Tilt.Tokens)
		}

		ann = &Announcement{
			Tag:          t.Tag,
			Name:         t.Name,
			Mode:         res.Mode,
			Outcome:      res.Outcome,
			Score:        res.Score,
			TrophyChange: res.TrophyChange,
			Time:         res.Time,
			Notify:       notify,
			TiltMessage:  tiltMsg,
			DiscordID:    p.DiscordID,
		}
		return true
	})
	if updateErr != nil {
		return fmt.Errorf("update state: %w", updateErr)
	}
	if ann == nil {
		return nil
	}

	telemetry.BattlesDetected.Inc()
	if ann.Notify {
		telemetry.NotificationsSent.Inc()
	} else {
		telemetry.NotificationsSuppressed.Inc()
	}
	if ann.TiltMessage != "" {
		telemetry.TiltWarnings.Inc()
	}

	if w.DB != nil {
		rec := db.BattleRecord{
			Tag:          ann.Tag,
			Name:         ann.Name,
			Mode:         ann.Mode,
			Outcome:      string(ann.Outcome),
			Score:        ann.Score,
			TrophyChange: ann.TrophyChange,
			BattleTime:   ann.Time,
			Notified:     ann.Notify,
		}
		if err := db.RecordBattle(ctx, w.DB, rec); err != nil {
			telemetry.LoggerWithCorr(ctx).Warn("battle archive insert failed",
				slog.String("tag", ann.Tag),
				slog.Any("err", err))
		}
	}

	if err := w.Sink.Announce(ctx, *ann); err != nil {
		return fmt.Errorf("announce battle: %w", err)
	}
	return nil
}
