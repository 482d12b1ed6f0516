package models

// TournamentEnrollment is a row of tournament_has_user.
type TournamentEnrollment struct {
	TournamentID int `json:"tournament_id"`
	UserID       int `json:"user_id"`
}

// EncounterEnrollment is a row of user_has_encounter.
type EncounterEnrollment struct {
	EncounterID int `json:"encounter_id"`
	UserID      int `json:"user_id"`
}

// EncounterParticipant links an encounter participant back to the tournament
// the encounter belongs to.
type EncounterParticipant struct {
	UserID       int `json:"user_id"`
	EncounterID  int `json:"encounter_id"`
	TournamentID int `json:"tournament_id"`
}
