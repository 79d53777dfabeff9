package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/onnwee/hatewatch/backend/db"
	"github.com/onnwee/hatewatch/backend/store"
)

// Handlers holds dependencies for all HTTP handlers. db is nil when the
// battle archive is disabled.
type Handlers struct {
	db      *sql.DB
	store   *store.Store
	tracked int
	started time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(database *sql.DB, st *store.Store, trackedCount int) *Handlers {
	return &Handlers{
		db:      database,
		store:   st,
		tracked: trackedCount,
		started: time.Now().UTC(),
	}
}

// HandleHealthz responds to liveness probe requests, checking database
// connectivity when the archive is configured.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with per-dependency checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"state_store", func() error {
			if h.store == nil {
				return errStoreNotLoaded
			}
			return nil
		}},
	}
	if h.db != nil {
		checks = append(checks, struct {
			name string
			fn   func() error
		}{"database", func() error { return h.db.PingContext(r.Context()) }})
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

var errStoreNotLoaded = errors.New("state store not loaded")

// playerStatus is one tracked player's row in the /status payload.
type playerStatus struct {
	Tag            string     `json:"tag"`
	Name           string     `json:"name"`
	Linked         bool       `json:"linked"`
	LastBattleTime *time.Time `json:"last_battle_time,omitempty"`
	LastNotified   *time.Time `json:"last_notified,omitempty"`
	GameMode       string     `json:"game_mode,omitempty"`
	TiltTokens     int        `json:"tilt_tokens"`
}

// HandleStatus returns a lightweight status summary: tracked players, their
// tilt state, and archive/heartbeat info when the database is configured.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{
		"tracked_players": h.tracked,
		"uptime_seconds":  int(time.Since(h.started).Seconds()),
	}

	if h.store != nil {
		players := make([]playerStatus, 0, h.store.Len())
		linked := 0
		for _, tag := range h.store.Tags() {
			p, ok := h.store.Snapshot(tag)
			if !ok {
				continue
			}
			ps := playerStatus{
				Tag:        tag,
				Name:       p.Name,
				Linked:     p.DiscordID != "",
				GameMode:   p.GameMode,
				TiltTokens: p.Tilt.Tokens,
			}
			if !p.LastBattleTime.IsZero() {
				t := p.LastBattleTime
				ps.LastBattleTime = &t
			}
			if !p.LastNotified.IsZero() {
				t := p.LastNotified
				ps.LastNotified = &t
			}
			if ps.Linked {
				linked++
			}
			players = append(players, ps)
		}
		resp["linked_players"] = linked
		resp["players"] = players
	}

	if h.db != nil {
		if n, err := db.CountBattles(ctx, h.db); err == nil {
			resp["archived_battles"] = n
		}
		if last, err := db.GetKV(ctx, h.db, "job_battle_watch_last"); err == nil && last != "" {
			resp["last_poll_run"] = last
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
