// Package watcher contains the battle poll loop and the decision logic
// around it.
//
// It provides one entrypoint, (*Watcher).Start, which sweeps the configured
// tracked tags forever: fetch the battle log, normalize the newest entry,
// compare against the persisted per-player state, update the tilt counter,
// run the notification gate, and hand an Announcement to the sink. The loop
// only ends with context cancellation; per-tag failures are logged and
// skipped, and a failure escaping the cycle triggers an extended backoff
// instead of a crash.
//
// Only the newest battle-log entry is ever inspected. Battles in modes other
// than ladder and ranked 1v1 are invisible, and when two relevant battles
// land within one poll interval the earlier one is never observed. A battle
// counts as new when its timestamp differs from the stored one; an equal
// timestamp is a no-op and is never re-announced.
package watcher
