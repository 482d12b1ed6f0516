package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/mob-api/models"
	"github.com/Dosada05/mob-api/repositories"
	"github.com/Dosada05/mob-api/storage"
	"github.com/Dosada05/mob-api/utils"
)

const LeaderboardSize = 15

// Leaderboards holds the four fixed rankings.
type Leaderboards struct {
	MostTrophies   []models.User `json:"most_trophies"`
	MostHonor      []models.User `json:"most_honor"`
	LessHonor      []models.User `json:"less_honor"`
	LastRegistered []models.User `json:"last_registered"`
}

type UserService interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, id, requesterID int, input UpdateProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, id, requesterID int, input ChangePasswordInput) error
	DeleteAccount(ctx context.Context, id, requesterID int, input DeleteAccountInput) error
	AddHonor(ctx context.Context, id int) (*models.User, error)
	RemoveHonor(ctx context.Context, id int) (*models.User, error)
	AddTrophy(ctx context.Context, id int) (*models.User, error)
	ListTournaments(ctx context.Context, id int) ([]models.Tournament, error)
	UploadAvatar(ctx context.Context, id, requesterID int, file io.Reader, contentType string) (*models.User, error)
	Leaderboard(ctx context.Context, order repositories.LeaderboardOrder) ([]models.User, error)
	Leaderboards(ctx context.Context) (*Leaderboards, error)
}

type userService struct {
	userRepo       repositories.UserRepository
	tournamentRepo repositories.TournamentRepository
	hasher         utils.PasswordHasher
	uploader       storage.FileUploader
	logger         *slog.Logger
}

// NewUserService builds the service. uploader may be nil, in which case
// avatar uploads fail with ErrUploadsDisabled.
func NewUserService(
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	hasher utils.PasswordHasher,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:       userRepo,
		tournamentRepo: tournamentRepo,
		hasher:         hasher,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return getUser(ctx, s.userRepo, id)
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return redactAll(users), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id, requesterID int, input UpdateProfileInput) (*models.User, error) {
	if err := ensureSelf(id, requesterID); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	user, err := getUser(ctx, s.userRepo, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Nickname != nil {
		user.Nickname = *input.Nickname
	}
	if input.Avatar != nil {
		user.Avatar = input.Avatar
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, s.mapUserError(id, err)
	}
	return user, nil
}

// ChangePassword checks the current password first, then rejects a new
// password equal to the submitted current one.
func (s *userService) ChangePassword(ctx context.Context, id, requesterID int, input ChangePasswordInput) error {
	if err := ensureSelf(id, requesterID); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.mapUserError(id, err)
	}

	if !s.hasher.Verify(input.Password, user.Password) {
		return ErrInvalidPassword
	}
	if input.NewPassword == input.Password {
		return ErrSamePassword
	}

	digest, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, id, digest); err != nil {
		return s.mapUserError(id, err)
	}
	return nil
}

func (s *userService) DeleteAccount(ctx context.Context, id, requesterID int, input DeleteAccountInput) error {
	if err := ensureSelf(id, requesterID); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.mapUserError(id, err)
	}
	if !s.hasher.Verify(input.Password, user.Password) {
		return ErrWrongPassword
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return s.mapUserError(id, err)
	}

	s.logger.InfoContext(ctx, "User account deleted", slog.Int("user_id", id))
	s.removeObject(ctx, user.Avatar)
	return nil
}

func (s *userService) AddHonor(ctx context.Context, id int) (*models.User, error) {
	return s.adjust(ctx, id, s.userRepo.AdjustHonor, 1)
}

// RemoveHonor has no floor: honor points may go negative.
func (s *userService) RemoveHonor(ctx context.Context, id int) (*models.User, error) {
	return s.adjust(ctx, id, s.userRepo.AdjustHonor, -1)
}

func (s *userService) AddTrophy(ctx context.Context, id int) (*models.User, error) {
	return s.adjust(ctx, id, s.userRepo.AdjustTrophies, 1)
}

func (s *userService) adjust(ctx context.Context, id int, fn func(context.Context, int, int) (*models.User, error), delta int) (*models.User, error) {
	user, err := fn(ctx, id, delta)
	if err != nil {
		return nil, s.mapUserError(id, err)
	}
	user.Password = ""
	return user, nil
}

func (s *userService) ListTournaments(ctx context.Context, id int) ([]models.Tournament, error) {
	if _, err := getUser(ctx, s.userRepo, id); err != nil {
		return nil, err
	}
	tournaments, err := s.tournamentRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments of user %d: %w", id, err)
	}
	return tournaments, nil
}

func (s *userService) UploadAvatar(ctx context.Context, id, requesterID int, file io.Reader, contentType string) (*models.User, error) {
	if err := ensureSelf(id, requesterID); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return nil, newDomainError(ErrValidationFailed, "Format d'image non supporté: %s", contentType)
	}

	user, err := getUser(ctx, s.userRepo, id)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey("avatars", user.Nickname, ext)
	res, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for user %d: %w", id, err)
	}

	previous := user.Avatar
	user.Avatar = &res.Location
	if err := s.userRepo.UpdateAvatar(ctx, id, user.Avatar); err != nil {
		s.removeObject(ctx, user.Avatar)
		return nil, s.mapUserError(id, err)
	}

	s.removeObject(ctx, previous)
	return user, nil
}

func (s *userService) Leaderboard(ctx context.Context, order repositories.LeaderboardOrder) ([]models.User, error) {
	users, err := s.userRepo.Leaderboard(ctx, order, LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard %s: %w", order, err)
	}
	return redactAll(users), nil
}

// Leaderboards loads the four rankings concurrently.
func (s *userService) Leaderboards(ctx context.Context) (*Leaderboards, error) {
	boards := &Leaderboards{}
	g, gctx := errgroup.WithContext(ctx)

	targets := []struct {
		order repositories.LeaderboardOrder
		dst   *[]models.User
	}{
		{repositories.OrderMostTrophies, &boards.MostTrophies},
		{repositories.OrderMostHonor, &boards.MostHonor},
		{repositories.OrderLessHonor, &boards.LessHonor},
		{repositories.OrderLastRegistered, &boards.LastRegistered},
	}

	for _, target := range targets {
		g.Go(func() error {
			users, err := s.Leaderboard(gctx, target.order)
			if err != nil {
				return err
			}
			*target.dst = users
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return boards, nil
}

// removeObject deletes a stored image we own. Failures only get logged; the
// database already points elsewhere.
func (s *userService) removeObject(ctx context.Context, location *string) {
	if s.uploader == nil || location == nil {
		return
	}
	key, ok := s.uploader.KeyFromURL(*location)
	if !ok {
		return
	}
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete stored object", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *userService) mapUserError(id int, err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("user %d: %w", id, err)
}

func redactAll(users []models.User) []models.User {
	for i := range users {
		users[i].Password = ""
	}
	return users
}
