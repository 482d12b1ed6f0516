package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/mob-api/db"
	"github.com/Dosada05/mob-api/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentInvalidOwner = errors.New("invalid tournament owner reference")

	ErrEnrollmentConflict          = errors.New("enrollment conflict: user already enrolled")
	ErrEnrollmentNotFound          = errors.New("enrollment not found")
	ErrEnrollmentUserInvalid       = errors.New("enrollment user reference is invalid")
	ErrEnrollmentTournamentInvalid = errors.New("enrollment tournament reference is invalid")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec db.SQLExecutor, id int) (*models.Tournament, error)
	GetByIDForUpdate(ctx context.Context, exec db.SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]models.Tournament, error)
	ListByUser(ctx context.Context, userID int) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateImage(ctx context.Context, id int, image *string) error
	Delete(ctx context.Context, exec db.SQLExecutor, id int) error

	ListEnrolledUserIDs(ctx context.Context, tournamentID int) ([]int, error)
	Enroll(ctx context.Context, tournamentID, userID int) (*models.TournamentEnrollment, error)
	Unenroll(ctx context.Context, tournamentID, userID int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, label, type, date, game, format, max_player_count, description, image, user_id`

func scanTournament(row rowScanner, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Label, &t.Type, &t.Date, &t.Game, &t.Format,
		&t.MaxPlayerCount, &t.Description, &t.Image, &t.UserID,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (label, type, date, game, format, max_player_count, description, image, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		t.Label, t.Type, t.Date, t.Game, t.Format, t.MaxPlayerCount, t.Description, t.Image, t.UserID,
	).Scan(&t.ID)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec db.SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.findOne(ctx, executor(r.db, exec), query, id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec db.SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, executor(r.db, exec), query, id)
}

func (r *postgresTournamentRepository) List(ctx context.Context) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY id ASC`
	return r.findMany(ctx, query)
}

// ListByUser returns the tournaments the user moderates or is enrolled in.
// UNION removes the rows matched by both branches.
func (r *postgresTournamentRepository) ListByUser(ctx context.Context, userID int) ([]models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + ` FROM tournaments WHERE user_id = $1
		UNION
		SELECT t.id, t.label, t.type, t.date, t.game, t.format, t.max_player_count, t.description, t.image, t.user_id
		FROM tournaments t
		JOIN tournament_has_user thu ON thu.tournament_id = t.id
		WHERE thu.user_id = $1
		ORDER BY id ASC`
	return r.findMany(ctx, query, userID)
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			label = $1,
			type = $2,
			date = $3,
			game = $4,
			format = $5,
			max_player_count = $6,
			description = $7,
			image = $8
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		t.Label, t.Type, t.Date, t.Game, t.Format, t.MaxPlayerCount, t.Description, t.Image,
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateImage(ctx context.Context, id int, image *string) error {
	query := `UPDATE tournaments SET image = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, image, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament image: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// Delete removes the tournament. Enrollment rows and encounters are removed
// by ON DELETE CASCADE.
func (r *postgresTournamentRepository) Delete(ctx context.Context, exec db.SQLExecutor, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := executor(r.db, exec).ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListEnrolledUserIDs(ctx context.Context, tournamentID int) ([]int, error) {
	query := `SELECT user_id FROM tournament_has_user WHERE tournament_id = $1 ORDER BY user_id ASC`
	return queryIDs(ctx, r.db, query, tournamentID)
}

func (r *postgresTournamentRepository) Enroll(ctx context.Context, tournamentID, userID int) (*models.TournamentEnrollment, error) {
	query := `
		INSERT INTO tournament_has_user (tournament_id, user_id)
		VALUES ($1, $2)
		RETURNING tournament_id, user_id`

	e := &models.TournamentEnrollment{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, userID).Scan(&e.TournamentID, &e.UserID)
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok && constraint == "tournament_has_user_pkey" {
			return nil, ErrEnrollmentConflict
		}
		if constraint, ok := isForeignKeyViolation(err); ok {
			switch constraint {
			case "tournament_has_user_user_id_fkey":
				return nil, ErrEnrollmentUserInvalid
			case "tournament_has_user_tournament_id_fkey":
				return nil, ErrEnrollmentTournamentInvalid
			}
		}
		return nil, fmt.Errorf("failed to enroll user %d in tournament %d: %w", userID, tournamentID, err)
	}
	return e, nil
}

func (r *postgresTournamentRepository) Unenroll(ctx context.Context, tournamentID, userID int) error {
	query := `DELETE FROM tournament_has_user WHERE tournament_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to unenroll user %d from tournament %d: %w", userID, tournamentID, err)
	}
	return checkAffectedRows(result, ErrEnrollmentNotFound)
}

func (r *postgresTournamentRepository) findOne(ctx context.Context, exec db.SQLExecutor, query string, args ...interface{}) (*models.Tournament, error) {
	t := &models.Tournament{}
	if err := scanTournament(exec.QueryRowContext(ctx, query, args...), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := isForeignKeyViolation(err); ok && constraint == "tournaments_user_id_fkey" {
		return ErrTournamentInvalidOwner
	}
	return fmt.Errorf("tournament query failed: %w", err)
}

func queryIDs(ctx context.Context, exec db.SQLExecutor, query string, args ...interface{}) ([]int, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating id rows: %w", err)
	}
	return ids, nil
}
