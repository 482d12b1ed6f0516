package models

import "time"

// Encounter is a single match of a tournament. Winner and Loser are name
// snapshots and stay nil until a result is recorded.
type Encounter struct {
	ID           int       `json:"id"`
	Winner       *string   `json:"winner"`
	Loser        *string   `json:"loser"`
	Date         time.Time `json:"date"`
	WinnerScore  int       `json:"winner_score"`
	LoserScore   int       `json:"loser_score"`
	TournamentID int       `json:"tournament_id"`
}
