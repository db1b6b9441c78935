package domain

import (
	"encoding/json"
	"time"
)

type MatchID string

type PlayerID string

// MatchRef is one entry of a player's match history.
type MatchRef struct {
	MatchID   MatchID
	Queue     int
	// game mode of the queue, empty when unknown
	Mode      string
	Timestamp time.Time
}

// TierEntry is one ranked queue standing of a player as reported by the remote API.
type TierEntry struct {
	Queue        string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
}

// MatchDocument is the raw match-detail response plus the participants extracted from it.
type MatchDocument struct {
	MatchID      MatchID
	Participants []PlayerID
	Raw          json.RawMessage
}

type Category string

const (
	CategoryMatch       Category = "match"
	CategoryPlayerTiers Category = "player-tiers"
)

type Document struct {
	Category Category
	ID       string
	Body     json.RawMessage
}
