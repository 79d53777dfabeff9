// Package clashapi is a minimal client for the Clash Royale REST API
// (https://api.clashroyale.com/v1). It covers the three read-only endpoints
// the bot consumes: a player's battle log, a player profile, and a clan's
// current river race. Requests authenticate with a static bearer token and
// are paced by a token-bucket limiter so the watcher and command handlers
// share one rate budget.
package clashapi
