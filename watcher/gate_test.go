package watcher

import (
	"testing"
	"time"
)

func TestShouldNotify(t *testing.T) {
	base := time.Date(2025, 9, 22, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name         string
		lastNotified time.Time
		battleTime   time.Time
		want         bool
	}{
		{"never notified", time.Time{}, base, true},
		{"exactly at cooldown", base, base.Add(10 * time.Minute), true},
		{"one second short", base, base.Add(10*time.Minute - time.Second), false},
		{"well past cooldown", base, base.Add(time.Hour), true},
		{"immediately after", base, base.Add(time.Second), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldNotify(tc.lastNotified, tc.battleTime, DefaultNotifyCooldown)
			if got != tc.want {
				t.Errorf("ShouldNotify = %v, want %v", got, tc.want)
			}
		})
	}
}
