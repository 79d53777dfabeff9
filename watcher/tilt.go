package watcher

import (
	"time"

	"github.com/onnwee/hatewatch/backend/store"
)

// MaxTiltTokens caps the consecutive-loss counter.
const MaxTiltTokens = 10

// NextTilt applies one processed outcome to a tilt state: a win resets the
// counter, a loss adds one token up to the cap, a tie changes nothing.
func NextTilt(t store.Tilt, outcome Outcome, now time.Time) store.Tilt {
	switch outcome {
	case OutcomeWon:
		return store.Tilt{Tokens: 0, LastUpdate: now}
	case OutcomeLost:
		tokens := t.Tokens + 1
		if tokens > MaxTiltTokens {
			tokens = MaxTiltTokens
		}
		return store.Tilt{Tokens: tokens, LastUpdate: now}
	}
	return t
}

// TiltMessage returns the escalating warning for a token count freshly
// reached by a loss, or "" when that count has no message. A count reached
// again after a win reset fires again; the warning tracks streaks, not
// lifetime milestones.
func TiltMessage(tokens int) string {
	switch tokens {
	case 3:
		return "🔻 3 losses in a row. Tilt detected."
	case 6:
		return "🫠 6 straight losses. Someone take the ladder away."
	case MaxTiltTokens:
		return "🚨 10 consecutive losses. Full meltdown in progress."
	}
	return ""
}
