// Package discord hosts the slash-command bot and the battle announcer.
//
// The bot registers its commands globally on startup and dispatches
// interactions to per-command handlers. The announcer is the delivery end of
// the watcher: it formats detected battles into channel messages, pinging the
// linked Discord account only when the battle passed the notification gate.
package discord
