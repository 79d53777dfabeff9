package clashapi

import (
	"fmt"
	"time"
)

// battleTimeLayout matches the API's compact timestamp, e.g. "20250922T153747.000Z".
const battleTimeLayout = "20060102T150405.000Z"

// ParseBattleTime parses the compact battleTime format into a UTC instant.
func ParseBattleTime(s string) (time.Time, error) {
	t, err := time.Parse(battleTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse battle time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// GameMode identifies the queue a battle was played in.
type GameMode struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Clan is the small clan stub embedded in player and battle payloads.
type Clan struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// Card is a deck slot in a battle-log entry or a profile's current deck.
type Card struct {
	Name       string `json:"name"`
	Level      int    `json:"level"`
	ElixirCost int    `json:"elixirCost,omitempty"`
}

// BattleParticipant is one side's member in a battle-log entry. TrophyChange
// is only present for modes that move trophies, hence the pointer.
type BattleParticipant struct {
	Tag          string `json:"tag"`
	Name         string `json:"name"`
	Crowns       int    `json:"crowns"`
	TrophyChange *int   `json:"trophyChange,omitempty"`
	Clan         *Clan  `json:"clan,omitempty"`
	Cards        []Card `json:"cards,omitempty"`
}

// Battle is one entry of /players/{tag}/battlelog. The log is ordered newest
// first.
type Battle struct {
	Type       string              `json:"type"`
	BattleTime string              `json:"battleTime"`
	GameMode   GameMode            `json:"gameMode"`
	Team       []BattleParticipant `json:"team"`
	Opponent   []BattleParticipant `json:"opponent"`
}

// SeasonResult is a Path of Legends season entry on a player profile.
type SeasonResult struct {
	LeagueNumber int  `json:"leagueNumber"`
	Trophies     int  `json:"trophies"`
	Rank         *int `json:"rank,omitempty"`
}

// Player is the subset of /players/{tag} the bot displays.
type Player struct {
	Tag            string `json:"tag"`
	Name           string `json:"name"`
	ExpLevel       int    `json:"expLevel"`
	Trophies       int    `json:"trophies"`
	BestTrophies   int    `json:"bestTrophies"`
	Wins           int    `json:"wins"`
	Losses         int    `json:"losses"`
	BattleCount    int    `json:"battleCount"`
	ThreeCrownWins int    `json:"threeCrownWins"`
	Clan           *Clan  `json:"clan,omitempty"`
	CurrentDeck    []Card `json:"currentDeck,omitempty"`

	CurrentPathOfLegendSeasonResult *SeasonResult `json:"currentPathOfLegendSeasonResult,omitempty"`
	LastPathOfLegendSeasonResult    *SeasonResult `json:"lastPathOfLegendSeasonResult,omitempty"`
	BestPathOfLegendSeasonResult    *SeasonResult `json:"bestPathOfLegendSeasonResult,omitempty"`
}

// BestSeasonResult picks the most current Path of Legends result available,
// preferring current over last over best. Returns nil when the profile has
// none.
func (p *Player) BestSeasonResult() *SeasonResult {
	for _, r := range []*SeasonResult{
		p.CurrentPathOfLegendSeasonResult,
		p.LastPathOfLegendSeasonResult,
		p.BestPathOfLegendSeasonResult,
	} {
		if r != nil && (r.Trophies > 0 || r.LeagueNumber > 0) {
			return r
		}
	}
	return nil
}

// RiverRaceParticipant is one clan member's standing in the current river race.
type RiverRaceParticipant struct {
	Tag            string `json:"tag"`
	Name           string `json:"name"`
	Fame           int    `json:"fame"`
	DecksUsed      int    `json:"decksUsed"`
	DecksUsedToday int    `json:"decksUsedToday"`
}

// RiverRaceClan is the requesting clan's side of the race.
type RiverRaceClan struct {
	Tag          string                 `json:"tag"`
	Name         string                 `json:"name"`
	Fame         int                    `json:"fame"`
	Participants []RiverRaceParticipant `json:"participants"`
}

// RiverRace is the subset of /clans/{tag}/currentriverrace the bot displays.
type RiverRace struct {
	State string        `json:"state"`
	Clan  RiverRaceClan `json:"clan"`
}
