package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/mob-api/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserMailConflict = errors.New("user mail conflict")
)

// LeaderboardOrder selects one of the fixed leaderboard sort orders.
type LeaderboardOrder string

const (
	OrderMostTrophies   LeaderboardOrder = "most-trophies"
	OrderMostHonor      LeaderboardOrder = "most-honor"
	OrderLessHonor      LeaderboardOrder = "less-honor"
	OrderLastRegistered LeaderboardOrder = "last-registered"
)

var leaderboardOrderBy = map[LeaderboardOrder]string{
	OrderMostTrophies:   "trophies DESC, id ASC",
	OrderMostHonor:      "honor_point DESC, id ASC",
	OrderLessHonor:      "honor_point ASC, id ASC",
	OrderLastRegistered: "id DESC",
}

var ErrUnknownLeaderboard = errors.New("unknown leaderboard order")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByMail(ctx context.Context, mail string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int, digest string) error
	UpdateAvatar(ctx context.Context, id int, avatar *string) error
	Delete(ctx context.Context, id int) error
	AdjustHonor(ctx context.Context, id int, delta int) (*models.User, error)
	AdjustTrophies(ctx context.Context, id int, delta int) (*models.User, error)
	Leaderboard(ctx context.Context, order LeaderboardOrder, limit int) ([]models.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, firstname, lastname, nickname, mail, password, trophies, honor_point, team, role, avatar, created_at, updated_at`

func scanUser(row rowScanner, u *models.User) error {
	return row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Nickname,
		&u.Mail,
		&u.Password,
		&u.Trophies,
		&u.HonorPoint,
		&u.Team,
		&u.Role,
		&u.Avatar,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (firstname, lastname, nickname, mail, password, team, role, avatar)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, trophies, honor_point, created_at, updated_at`

	if user.Role == "" {
		user.Role = models.RolePlayer
	}

	err := r.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Nickname,
		user.Mail,
		user.Password,
		user.Team,
		user.Role,
		user.Avatar,
	).Scan(&user.ID, &user.Trophies, &user.HonorPoint, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok && constraint == "users_mail_key" {
			return ErrUserMailConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresUserRepository) GetByMail(ctx context.Context, mail string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE mail = $1`
	return r.findOne(ctx, query, mail)
}

func (r *postgresUserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`
	return r.findMany(ctx, query)
}

func (r *postgresUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			firstname = $1,
			lastname = $2,
			nickname = $3,
			avatar = $4,
			updated_at = now()
		WHERE id = $5
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Nickname,
		user.Avatar,
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id int, digest string) error {
	query := `UPDATE users SET password = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, digest, id)
	if err != nil {
		return fmt.Errorf("failed to update user password: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateAvatar(ctx context.Context, id int, avatar *string) error {
	query := `UPDATE users SET avatar = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, avatar, id)
	if err != nil {
		return fmt.Errorf("failed to update user avatar: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

// Delete removes the user; enrollments and owned tournaments go with it
// through ON DELETE CASCADE.
func (r *postgresUserRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) AdjustHonor(ctx context.Context, id int, delta int) (*models.User, error) {
	query := `
		UPDATE users SET honor_point = honor_point + $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + userColumns
	return r.findOne(ctx, query, delta, id)
}

func (r *postgresUserRepository) AdjustTrophies(ctx context.Context, id int, delta int) (*models.User, error) {
	query := `
		UPDATE users SET trophies = trophies + $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + userColumns
	return r.findOne(ctx, query, delta, id)
}

func (r *postgresUserRepository) Leaderboard(ctx context.Context, order LeaderboardOrder, limit int) ([]models.User, error) {
	orderBy, ok := leaderboardOrderBy[order]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLeaderboard, order)
	}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY ` + orderBy + ` LIMIT $1`
	return r.findMany(ctx, query, limit)
}

func (r *postgresUserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, args...), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}
