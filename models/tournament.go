package models

import "time"

type TournamentType string

const (
	TournamentPublic  TournamentType = "public"
	TournamentPrivate TournamentType = "private"
)

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single-elimination"
	FormatDoubleElimination TournamentFormat = "double-elimination"
)

// Tournament is a competition record. UserID is the owner (moderator); only
// the owner may modify or delete it.
type Tournament struct {
	ID             int              `json:"id"`
	Label          string           `json:"label"`
	Type           TournamentType   `json:"type"`
	Date           time.Time        `json:"date"`
	Game           string           `json:"game"`
	Format         TournamentFormat `json:"format"`
	MaxPlayerCount int              `json:"max_player_count"`
	Description    string           `json:"description"`
	Image          *string          `json:"image"`
	UserID         int              `json:"user_id"`
}

func (t TournamentType) Valid() bool {
	return t == TournamentPublic || t == TournamentPrivate
}

func (f TournamentFormat) Valid() bool {
	return f == FormatSingleElimination || f == FormatDoubleElimination
}
