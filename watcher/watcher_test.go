package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/onnwee/hatewatch/backend/clashapi"
	"github.com/onnwee/hatewatch/backend/store"
	"github.com/onnwee/hatewatch/backend/telemetry"
	"github.com/onnwee/hatewatch/backend/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	logs map[string][]clashapi.Battle
	err  error
}

func (f *fakeFetcher) BattleLog(_ context.Context, tag string) ([]clashapi.Battle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.logs[tag], nil
}

type recordingSink struct {
	announcements []Announcement
}

func (s *recordingSink) Announce(_ context.Context, a Announcement) error {
	s.announcements = append(s.announcements, a)
	return nil
}

func newTestWatcher(t *testing.T, fetcher *fakeFetcher) (*Watcher, *store.Store, *recordingSink) {
	t.Helper()
	telemetry.Init()
	st, err := store.Open(filepath.Join(t.TempDir(), "lastBattleTimes.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	sink := &recordingSink{}
	w := &Watcher{
		Fetcher: fetcher,
		Store:   st,
		Sink:    sink,
		Tracked: []TrackedTag{{Tag: "#02QL9CGY", Name: "Alice"}},
	}
	return w, st, sink
}

func battleAt(ts string, modeID, teamCrowns, oppCrowns int) clashapi.Battle {
	b := battleFixture(modeID, teamCrowns, oppCrowns)
	b.BattleTime = ts
	return b
}

func TestPollTagAnnouncesNewBattle(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{
		"#02QL9CGY": {battleAt("20250922T153747.000Z", ModeRanked, 2, 1)},
	}}
	w, st, sink := newTestWatcher(t, fetcher)

	if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
		t.Fatalf("pollTag: %v", err)
	}
	if len(sink.announcements) != 1 {
		t.Fatalf("announcements = %d, want 1", len(sink.announcements))
	}
	a := sink.announcements[0]
	if a.Outcome != OutcomeWon || a.Score != "2 - 1" || a.Mode != "Ranked" {
		t.Errorf("announcement = %+v", a)
	}
	if !a.Notify {
		t.Error("first battle should pass the notification gate")
	}

	p, ok := st.Snapshot("#02QL9CGY")
	if !ok {
		t.Fatal("player not recorded")
	}
	want := time.Date(2025, 9, 22, 15, 37, 47, 0, time.UTC)
	if !p.LastBattleTime.Equal(want) {
		t.Errorf("lastBattleTime = %v, want %v", p.LastBattleTime, want)
	}
	if !p.LastNotified.Equal(want) {
		t.Errorf("lastNotified = %v, want %v", p.LastNotified, want)
	}
}

func TestPollTagUnchangedBattleIsNoOp(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{
		"#02QL9CGY": {battleAt("20250922T153747.000Z", ModeRanked, 2, 1)},
	}}
	w, _, sink := newTestWatcher(t, fetcher)

	for i := 0; i < 3; i++ {
		if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
			t.Fatalf("pollTag #%d: %v", i, err)
		}
	}
	if len(sink.announcements) != 1 {
		t.Fatalf("announcements = %d, want 1", len(sink.announcements))
	}
}

func TestPollTagTiltWarningFiresOnThirdLoss(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{}}
	w, _, sink := newTestWatcher(t, fetcher)

	times := []string{
		"20250922T150000.000Z",
		"20250922T151500.000Z",
		"20250922T153000.000Z",
	}
	for _, ts := range times {
		fetcher.logs["#02QL9CGY"] = []clashapi.Battle{battleAt(ts, ModeLadder, 0, 2)}
		if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
			t.Fatalf("pollTag at %s: %v", ts, err)
		}
	}
	if len(sink.announcements) != 3 {
		t.Fatalf("announcements = %d, want 3", len(sink.announcements))
	}
	if sink.announcements[0].TiltMessage != "" || sink.announcements[1].TiltMessage != "" {
		t.Error("tilt warning fired before third loss")
	}
	if sink.announcements[2].TiltMessage == "" {
		t.Error("tilt warning missing on third loss")
	}
}

func TestPollTagWinResetsTilt(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{}}
	w, st, _ := newTestWatcher(t, fetcher)

	seq := []struct {
		ts     string
		team   int
		opp    int
		tokens int
	}{
		{"20250922T150000.000Z", 0, 1, 1},
		{"20250922T151000.000Z", 0, 1, 2},
		{"20250922T152000.000Z", 3, 0, 0},
		{"20250922T153000.000Z", 0, 1, 1},
	}
	for _, s := range seq {
		fetcher.logs["#02QL9CGY"] = []clashapi.Battle{battleAt(s.ts, ModeLadder, s.team, s.opp)}
		if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
			t.Fatalf("pollTag at %s: %v", s.ts, err)
		}
		p, _ := st.Snapshot("#02QL9CGY")
		if p.Tilt.Tokens != s.tokens {
			t.Errorf("after %s: tokens = %d, want %d", s.ts, p.Tilt.Tokens, s.tokens)
		}
	}
}

func TestPollTagTiltWarningRefiresAfterReset(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{}}
	w, _, sink := newTestWatcher(t, fetcher)

	seq := []struct {
		ts   string
		team int
		opp  int
	}{
		{"20250922T150000.000Z", 0, 1},
		{"20250922T151500.000Z", 0, 1},
		{"20250922T153000.000Z", 0, 1},
		{"20250922T154500.000Z", 3, 0},
		{"20250922T160000.000Z", 0, 1},
		{"20250922T161500.000Z", 0, 1},
		{"20250922T163000.000Z", 0, 1},
	}
	for _, s := range seq {
		fetcher.logs["#02QL9CGY"] = []clashapi.Battle{battleAt(s.ts, ModeLadder, s.team, s.opp)}
		if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
			t.Fatalf("pollTag at %s: %v", s.ts, err)
		}
	}
	if len(sink.announcements) != 7 {
		t.Fatalf("announcements = %d, want 7", len(sink.announcements))
	}
	first := sink.announcements[2].TiltMessage
	if first == "" {
		t.Fatal("tilt warning missing on third loss")
	}
	// a win wipes the streak, so three fresh losses reach the same
	// threshold and warn again
	if got := sink.announcements[6].TiltMessage; got != first {
		t.Errorf("tilt warning after reset = %q, want %q", got, first)
	}
	for _, i := range []int{3, 4, 5} {
		if sink.announcements[i].TiltMessage != "" {
			t.Errorf("announcement %d carries a tilt warning", i)
		}
	}
}

func TestPollTagIrrelevantModeLeavesStateUntouched(t *testing.T) {
	// a relevant battle deeper in the log must not be reached; only
	// index 0 is ever inspected
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{
		"#02QL9CGY": {
			battleAt("20250922T153747.000Z", 72000010, 3, 0),
			battleAt("20250922T150000.000Z", ModeRanked, 2, 1),
		},
	}}
	w, st, sink := newTestWatcher(t, fetcher)

	if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
		t.Fatalf("pollTag: %v", err)
	}
	if len(sink.announcements) != 0 {
		t.Errorf("announcements = %d, want 0", len(sink.announcements))
	}
	if _, ok := st.Snapshot("#02QL9CGY"); ok {
		t.Error("irrelevant battle created a player record")
	}
}

func TestPollTagSuppressedNotificationStillAdvancesBattleTime(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{
		"#02QL9CGY": {battleAt("20250922T150000.000Z", ModeRanked, 1, 0)},
	}}
	w, st, sink := newTestWatcher(t, fetcher)

	if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
		t.Fatalf("pollTag: %v", err)
	}

	// Second battle three minutes later, inside the cooldown window.
	fetcher.logs["#02QL9CGY"] = []clashapi.Battle{battleAt("20250922T150300.000Z", ModeRanked, 0, 2)}
	if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
		t.Fatalf("pollTag: %v", err)
	}

	if len(sink.announcements) != 2 {
		t.Fatalf("announcements = %d, want 2", len(sink.announcements))
	}
	if sink.announcements[1].Notify {
		t.Error("second battle inside cooldown should not ping")
	}
	p, _ := st.Snapshot("#02QL9CGY")
	first := time.Date(2025, 9, 22, 15, 0, 0, 0, time.UTC)
	second := first.Add(3 * time.Minute)
	if !p.LastBattleTime.Equal(second) {
		t.Errorf("lastBattleTime = %v, want %v", p.LastBattleTime, second)
	}
	if !p.LastNotified.Equal(first) {
		t.Errorf("lastNotified = %v, want %v", p.LastNotified, first)
	}
}

func TestPollTagEmptyLog(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{}}
	w, _, sink := newTestWatcher(t, fetcher)

	if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
		t.Fatalf("pollTag: %v", err)
	}
	if len(sink.announcements) != 0 {
		t.Errorf("announcements = %d, want 0", len(sink.announcements))
	}
}

func TestRunCycleIsolatesTagFailures(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("api down")}
	w, _, _ := newTestWatcher(t, fetcher)
	w.TagDelay = time.Millisecond

	if err := w.runCycle(context.Background(), discardLogger()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
}

func TestRunCycleRecoversFromPanic(t *testing.T) {
	w, _, _ := newTestWatcher(t, nil)
	w.Fetcher = panicFetcher{}

	err := w.runCycle(context.Background(), discardLogger())
	if err == nil {
		t.Fatal("runCycle: want error from recovered panic")
	}
}

type panicFetcher struct{}

func (panicFetcher) BattleLog(context.Context, string) ([]clashapi.Battle, error) {
	panic("boom")
}

func TestPollTagAgainstMockAPI(t *testing.T) {
	mock := testutil.NewMockClashServer(t)
	mock.MockJSON("/players/%2302QL9CGY/battlelog", []clashapi.Battle{
		battleAt("20250922T153747.000Z", ModeRanked, 2, 1),
	})

	w, _, sink := newTestWatcher(t, nil)
	w.Fetcher = &clashapi.Client{BaseURL: mock.URL, HTTPClient: mock.Client()}

	if err := w.pollTag(context.Background(), w.Tracked[0]); err != nil {
		t.Fatalf("pollTag: %v", err)
	}
	if len(sink.announcements) != 1 {
		t.Fatalf("announcements = %d, want 1", len(sink.announcements))
	}
	if sink.announcements[0].Score != "2 - 1" {
		t.Errorf("score = %q", sink.announcements[0].Score)
	}

	// an unknown tag fails the poll without panicking
	w.Tracked = []TrackedTag{{Tag: "#8JGY0V", Name: "Ghost"}}
	if err := w.pollTag(context.Background(), w.Tracked[0]); err == nil {
		t.Error("expected error for unmocked tag")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{logs: map[string][]clashapi.Battle{}}
	w, _, _ := newTestWatcher(t, fetcher)
	w.CycleDelay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
