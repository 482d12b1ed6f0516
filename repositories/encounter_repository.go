package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/mob-api/models"
)

var (
	ErrEncounterNotFound          = errors.New("encounter not found")
	ErrEncounterTournamentInvalid = errors.New("encounter tournament reference is invalid")

	ErrParticipantConflict         = errors.New("participant conflict: user already in encounter")
	ErrParticipantUserInvalid      = errors.New("participant user reference is invalid")
	ErrParticipantEncounterInvalid = errors.New("participant encounter reference is invalid")
)

type EncounterRepository interface {
	Create(ctx context.Context, encounter *models.Encounter) error
	GetByID(ctx context.Context, id int) (*models.Encounter, error)
	Update(ctx context.Context, encounter *models.Encounter) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Encounter, error)

	ListParticipantIDs(ctx context.Context, encounterID int) ([]int, error)
	AddParticipant(ctx context.Context, encounterID, userID int) (*models.EncounterEnrollment, error)
	ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]models.EncounterParticipant, error)
}

type postgresEncounterRepository struct {
	db *sql.DB
}

func NewPostgresEncounterRepository(db *sql.DB) EncounterRepository {
	return &postgresEncounterRepository{db: db}
}

const encounterColumns = `id, winner, loser, date, winner_score, loser_score, tournament_id`

func scanEncounter(row rowScanner, e *models.Encounter) error {
	return row.Scan(&e.ID, &e.Winner, &e.Loser, &e.Date, &e.WinnerScore, &e.LoserScore, &e.TournamentID)
}

// Create inserts the encounter. A zero Date lets the column default apply.
func (r *postgresEncounterRepository) Create(ctx context.Context, e *models.Encounter) error {
	query := `
		INSERT INTO encounters (winner, loser, date, winner_score, loser_score, tournament_id)
		VALUES ($1, $2, COALESCE($3, now()), $4, $5, $6)
		RETURNING id, date`

	var date sql.NullTime
	if !e.Date.IsZero() {
		date = sql.NullTime{Time: e.Date, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		e.Winner, e.Loser, date, e.WinnerScore, e.LoserScore, e.TournamentID,
	).Scan(&e.ID, &e.Date)
	if err != nil {
		if constraint, ok := isForeignKeyViolation(err); ok && constraint == "encounters_tournament_id_fkey" {
			return ErrEncounterTournamentInvalid
		}
		return fmt.Errorf("failed to create encounter: %w", err)
	}
	return nil
}

func (r *postgresEncounterRepository) GetByID(ctx context.Context, id int) (*models.Encounter, error) {
	query := `SELECT ` + encounterColumns + ` FROM encounters WHERE id = $1`

	e := &models.Encounter{}
	if err := scanEncounter(r.db.QueryRowContext(ctx, query, id), e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEncounterNotFound
		}
		return nil, fmt.Errorf("failed to scan encounter: %w", err)
	}
	return e, nil
}

func (r *postgresEncounterRepository) Update(ctx context.Context, e *models.Encounter) error {
	query := `
		UPDATE encounters SET
			winner = $1,
			loser = $2,
			date = $3,
			winner_score = $4,
			loser_score = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		e.Winner, e.Loser, e.Date, e.WinnerScore, e.LoserScore, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update encounter: %w", err)
	}
	return checkAffectedRows(result, ErrEncounterNotFound)
}

func (r *postgresEncounterRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Encounter, error) {
	query := `SELECT ` + encounterColumns + ` FROM encounters WHERE tournament_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query encounters: %w", err)
	}
	defer rows.Close()

	encounters := make([]models.Encounter, 0)
	for rows.Next() {
		var e models.Encounter
		if err := scanEncounter(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan encounter row: %w", err)
		}
		encounters = append(encounters, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating encounter rows: %w", err)
	}
	return encounters, nil
}

func (r *postgresEncounterRepository) ListParticipantIDs(ctx context.Context, encounterID int) ([]int, error) {
	query := `SELECT user_id FROM user_has_encounter WHERE encounter_id = $1 ORDER BY user_id ASC`
	return queryIDs(ctx, r.db, query, encounterID)
}

func (r *postgresEncounterRepository) AddParticipant(ctx context.Context, encounterID, userID int) (*models.EncounterEnrollment, error) {
	query := `
		INSERT INTO user_has_encounter (encounter_id, user_id)
		VALUES ($1, $2)
		RETURNING encounter_id, user_id`

	e := &models.EncounterEnrollment{}
	err := r.db.QueryRowContext(ctx, query, encounterID, userID).Scan(&e.EncounterID, &e.UserID)
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok && constraint == "user_has_encounter_pkey" {
			return nil, ErrParticipantConflict
		}
		if constraint, ok := isForeignKeyViolation(err); ok {
			switch constraint {
			case "user_has_encounter_user_id_fkey":
				return nil, ErrParticipantUserInvalid
			case "user_has_encounter_encounter_id_fkey":
				return nil, ErrParticipantEncounterInvalid
			}
		}
		return nil, fmt.Errorf("failed to add user %d to encounter %d: %w", userID, encounterID, err)
	}
	return e, nil
}

func (r *postgresEncounterRepository) ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]models.EncounterParticipant, error) {
	query := `
		SELECT uhe.user_id, uhe.encounter_id, e.tournament_id
		FROM user_has_encounter uhe
		JOIN encounters e ON e.id = uhe.encounter_id
		WHERE e.tournament_id = $1
		ORDER BY uhe.encounter_id ASC, uhe.user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query encounter participants: %w", err)
	}
	defer rows.Close()

	participants := make([]models.EncounterParticipant, 0)
	for rows.Next() {
		var p models.EncounterParticipant
		if err := rows.Scan(&p.UserID, &p.EncounterID, &p.TournamentID); err != nil {
			return nil, fmt.Errorf("failed to scan encounter participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating encounter participants: %w", err)
	}
	return participants, nil
}
