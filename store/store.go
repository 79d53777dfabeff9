// Package store persists per-tracked-player watch state as a single JSON
// document on disk. The whole document is held in memory and rewritten on
// every mutation; all access is serialized through one mutex so the poll
// loop and command-path writers (link/unlink) cannot interleave their
// read-modify-write cycles. Writes go to a temp file followed by a rename
// so a crash mid-write leaves the previous snapshot intact.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotTracked is returned when an operation references a tag the
	// store has never seen.
	ErrNotTracked = errors.New("tag not tracked")
	// ErrNotLinked is returned by Unlink when the tag has no Discord link.
	ErrNotLinked = errors.New("tag not linked")
	// ErrAlreadyLinked is returned by Link when the tag is already bound
	// to a Discord user.
	ErrAlreadyLinked = errors.New("tag already linked")
)

// Tilt is the consecutive-loss counter for one player.
type Tilt struct {
	Tokens     int       `json:"tokens"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// TrackedPlayer is the durable watch state for one player tag. Zero time
// values mean "never": a zero LastBattleTime marks a tag that has not had a
// relevant battle processed yet.
type TrackedPlayer struct {
	Name           string    `json:"name"`
	DiscordID      string    `json:"discordId,omitempty"`
	LastBattleTime time.Time `json:"lastBattleTime"`
	LastNotified   time.Time `json:"lastNotified"`
	GameMode       string    `json:"gameMode,omitempty"`
	Tilt           Tilt      `json:"tilt"`
}

type document struct {
	Tracked map[string]*TrackedPlayer `json:"tracked"`
}

// Store is the on-disk player state document.
type Store struct {
	path string

	mu  sync.Mutex
	doc document
}

// Open loads the document at path. A missing file yields an empty store; a
// file that exists but cannot be parsed is a fatal condition and is returned
// as an error rather than silently reset, since discarding history would
// desynchronize notification and tilt state.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: document{Tracked: map[string]*TrackedPlayer{}}}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	if s.doc.Tracked == nil {
		s.doc.Tracked = map[string]*TrackedPlayer{}
	}
	return s, nil
}

// Snapshot returns a copy of the record for tag, if present.
func (s *Store) Snapshot(tag string) (TrackedPlayer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.doc.Tracked[tag]
	if !ok {
		return TrackedPlayer{}, false
	}
	return *p, true
}

// Update runs fn against the record for tag, creating it with the given
// display name if absent, and persists the document when fn reports a
// mutation. The whole read-modify-write happens under the store lock.
func (s *Store) Update(tag, name string, fn func(p *TrackedPlayer) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.doc.Tracked[tag]
	if !ok {
		p = &TrackedPlayer{Name: name}
		s.doc.Tracked[tag] = p
	}
	changed := fn(p)
	if !ok || changed {
		return s.save()
	}
	return nil
}

// Link binds a Discord user to a tag, creating the record if needed. An
// existing binding is never overwritten.
func (s *Store) Link(tag, discordID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.doc.Tracked[tag]
	if !ok {
		p = &TrackedPlayer{Name: name}
		s.doc.Tracked[tag] = p
	}
	if p.DiscordID != "" {
		return fmt.Errorf("%w: %s", ErrAlreadyLinked, tag)
	}
	p.DiscordID = discordID
	if name != "" {
		p.Name = name
	}
	return s.save()
}

// Unlink removes a tag's Discord binding, preserving all tracking state.
// It returns the Discord id that was removed.
func (s *Store) Unlink(tag string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.doc.Tracked[tag]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotTracked, tag)
	}
	if p.DiscordID == "" {
		return "", fmt.Errorf("%w: %s", ErrNotLinked, tag)
	}
	id := p.DiscordID
	p.DiscordID = ""
	return id, s.save()
}

// FindByDiscordID returns the tag linked to a Discord user, if any.
func (s *Store) FindByDiscordID(discordID string) (string, TrackedPlayer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, p := range s.doc.Tracked {
		if p.DiscordID == discordID {
			return tag, *p, true
		}
	}
	return "", TrackedPlayer{}, false
}

// Tags returns all tracked tags in sorted order.
func (s *Store) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make([]string, 0, len(s.doc.Tracked))
	for tag := range s.doc.Tracked {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Len returns the number of tracked records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Tracked)
}

// save must be called with the lock held.
func (s *Store) save() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
