package watcher

import "time"

// DefaultNotifyCooldown is the minimum spacing between pinged announcements
// for a single tracked player.
const DefaultNotifyCooldown = 10 * time.Minute

// ShouldNotify reports whether a battle at battleTime may carry a mention.
// A player who has never been notified always passes; otherwise the battle
// must land at least cooldown after the previous notification. Announcements
// themselves are never gated, only the ping.
func ShouldNotify(lastNotified, battleTime time.Time, cooldown time.Duration) bool {
	if lastNotified.IsZero() {
		return true
	}
	return battleTime.Sub(lastNotified) >= cooldown
}
