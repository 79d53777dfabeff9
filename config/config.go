// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (e.g., Discord), use ValidateDiscordReady.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/hatewatch/backend/clashapi"
)

type Config struct {
	// Clash Royale API
	ClashAPIKey       string
	ClashAPIBase      string
	RequestsPerMinute int

	// Discord
	DiscordToken      string
	AnnounceChannelID string
	ClanTag           string

	// Tracked players, tag -> display name
	TrackedPlayers map[string]string

	// State
	StatePath string

	// Database (empty disables the battle archive)
	DBDsn string

	// Poll pacing
	TagDelay       time.Duration
	CycleDelay     time.Duration
	ErrorBackoff   time.Duration
	NotifyCooldown time.Duration

	// HTTP
	ServerAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if Discord
// creds are missing; use ValidateDiscordReady() when you require the bot. An empty
// DB_DSN disables the battle archive rather than failing.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ClashAPIKey = os.Getenv("CLASH_API_KEY")
	cfg.ClashAPIBase = os.Getenv("CLASH_API_BASE")
	if cfg.ClashAPIBase == "" {
		cfg.ClashAPIBase = "https://api.clashroyale.com/v1"
	}
	if v := os.Getenv("CLASH_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CLASH_REQUESTS_PER_MINUTE: %q", v)
		}
		cfg.RequestsPerMinute = n
	} else {
		cfg.RequestsPerMinute = 40
	}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	cfg.AnnounceChannelID = os.Getenv("DISCORD_ANNOUNCE_CHANNEL_ID")
	cfg.ClanTag = os.Getenv("CLAN_TAG")

	tracked, err := loadTrackedPlayers()
	if err != nil {
		return nil, err
	}
	cfg.TrackedPlayers = tracked

	cfg.StatePath = os.Getenv("STATE_PATH")
	if cfg.StatePath == "" {
		cfg.StatePath = "lastBattleTimes.json"
	}

	cfg.DBDsn = os.Getenv("DB_DSN")

	if cfg.TagDelay, err = durationEnv("TAG_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.CycleDelay, err = durationEnv("CYCLE_DELAY", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ErrorBackoff, err = durationEnv("ERROR_BACKOFF", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotifyCooldown, err = durationEnv("NOTIFY_COOLDOWN", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.ServerAddr = os.Getenv("SERVER_ADDR")
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}

	return cfg, nil
}

// loadTrackedPlayers merges TRACKED_PLAYERS ("#TAG=Nick,#TAG2=Nick2") with an
// optional JSON file named by TRACKED_PLAYERS_FILE ({"#TAG": "Nick", ...}).
// Inline entries win on conflict. Tags are canonicalized so state keys match
// the identity the API resolves them to.
func loadTrackedPlayers() (map[string]string, error) {
	out := map[string]string{}

	if path := os.Getenv("TRACKED_PLAYERS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read TRACKED_PLAYERS_FILE: %w", err)
		}
		fromFile := map[string]string{}
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parse TRACKED_PLAYERS_FILE: %w", err)
		}
		for rawTag, name := range fromFile {
			tag, ok := clashapi.SanitizeTag(rawTag)
			if !ok {
				return nil, fmt.Errorf("invalid tag in TRACKED_PLAYERS_FILE: %q", rawTag)
			}
			out[tag] = name
		}
	}

	if raw := os.Getenv("TRACKED_PLAYERS"); raw != "" {
		for _, entry := range strings.Split(raw, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			rawTag, name, ok := strings.Cut(entry, "=")
			if !ok || rawTag == "" || name == "" {
				return nil, fmt.Errorf("invalid TRACKED_PLAYERS entry: %q (want #TAG=Name)", entry)
			}
			tag, ok := clashapi.SanitizeTag(strings.TrimSpace(rawTag))
			if !ok {
				return nil, fmt.Errorf("invalid tag in TRACKED_PLAYERS entry: %q", entry)
			}
			out[tag] = strings.TrimSpace(name)
		}
	}

	return out, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s (want positive Go duration): %q", key, v)
	}
	return d, nil
}

// ValidateDiscordReady checks required fields when the bot is enabled.
func (c *Config) ValidateDiscordReady() error {
	if c.DiscordToken == "" || c.AnnounceChannelID == "" {
		return fmt.Errorf("missing discord env: require DISCORD_TOKEN, DISCORD_ANNOUNCE_CHANNEL_ID")
	}
	return nil
}

// ValidateClashReady checks required fields for API polling.
func (c *Config) ValidateClashReady() error {
	if c.ClashAPIKey == "" {
		return fmt.Errorf("missing clash env: require CLASH_API_KEY")
	}
	return nil
}
