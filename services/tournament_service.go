package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/Dosada05/mob-api/db"
	"github.com/Dosada05/mob-api/models"
	"github.com/Dosada05/mob-api/repositories"
	"github.com/Dosada05/mob-api/storage"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	UpdateTournament(ctx context.Context, id, requesterID int, input UpdateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id, requesterID int) error
	UploadImage(ctx context.Context, id, requesterID int, file io.Reader, contentType string) (*models.Tournament, error)

	ListEnrolledUserIDs(ctx context.Context, tournamentID int) ([]int, error)
	Enroll(ctx context.Context, tournamentID, userID int) (*models.TournamentEnrollment, error)
	Unenroll(ctx context.Context, tournamentID, userID, requesterID int) error
}

type TournamentOptions struct {
	// EnforceMaxPlayers rejects enrollments once max_player_count is reached.
	// A zero max_player_count means no cap.
	EnforceMaxPlayers bool
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	tx             db.TxRunner
	uploader       storage.FileUploader
	opts           TournamentOptions
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	tx db.TxRunner,
	uploader storage.FileUploader,
	opts TournamentOptions,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		tx:             tx,
		uploader:       uploader,
		opts:           opts,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Label:          input.Label,
		Type:           input.Type,
		Date:           input.Date,
		Game:           input.Game,
		Format:         input.Format,
		MaxPlayerCount: input.MaxPlayerCount,
		Description:    input.Description,
		Image:          input.Image,
		UserID:         ownerID,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentInvalidOwner) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "Tournament created", slog.Int("tournament_id", tournament.ID), slog.Int("owner_id", ownerID))
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	return s.getTournament(ctx, nil, id)
}

func (s *tournamentService) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

// UpdateTournament applies the present fields. id and user_id never change.
func (s *tournamentService) UpdateTournament(ctx context.Context, id, requesterID int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := ensureOwner(tournament, requesterID); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	input.apply(tournament)

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, s.mapTournamentError(id, err)
	}
	return tournament, nil
}

// DeleteTournament locks the row so the ownership check and the delete see
// the same tournament.
func (s *tournamentService) DeleteTournament(ctx context.Context, id, requesterID int) error {
	var image *string
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx db.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return s.mapTournamentError(id, err)
		}
		if err := ensureOwner(tournament, requesterID); err != nil {
			return err
		}
		image = tournament.Image
		if err := s.tournamentRepo.Delete(ctx, tx, id); err != nil {
			return s.mapTournamentError(id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Tournament deleted", slog.Int("tournament_id", id), slog.Int("requester_id", requesterID))
	s.removeObject(ctx, image)
	return nil
}

func (s *tournamentService) UploadImage(ctx context.Context, id, requesterID int, file io.Reader, contentType string) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := ensureOwner(tournament, requesterID); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return nil, newDomainError(ErrValidationFailed, "Format d'image non supporté: %s", contentType)
	}

	res, err := s.uploader.Upload(ctx, storage.ObjectKey("tournaments", tournament.Label, ext), contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image for tournament %d: %w", id, err)
	}

	previous := tournament.Image
	tournament.Image = &res.Location
	if err := s.tournamentRepo.UpdateImage(ctx, id, tournament.Image); err != nil {
		s.removeObject(ctx, tournament.Image)
		return nil, s.mapTournamentError(id, err)
	}

	s.removeObject(ctx, previous)
	return tournament, nil
}

// ListEnrolledUserIDs returns an empty, non-nil slice when the tournament
// exists but nobody is enrolled.
func (s *tournamentService) ListEnrolledUserIDs(ctx context.Context, tournamentID int) ([]int, error) {
	if _, err := s.getTournament(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	ids, err := s.tournamentRepo.ListEnrolledUserIDs(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users of tournament %d: %w", tournamentID, err)
	}
	return ids, nil
}

// Enroll checks the current roster first and relies on the table's primary
// key to reject a concurrent duplicate.
func (s *tournamentService) Enroll(ctx context.Context, tournamentID, userID int) (*models.TournamentEnrollment, error) {
	tournament, err := s.getTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if _, err := getUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}

	enrolled, err := s.tournamentRepo.ListEnrolledUserIDs(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users of tournament %d: %w", tournamentID, err)
	}
	if slices.Contains(enrolled, userID) {
		return nil, duplicateTournamentEnrollment(userID, tournamentID)
	}
	if s.opts.EnforceMaxPlayers && tournament.MaxPlayerCount > 0 && len(enrolled) >= tournament.MaxPlayerCount {
		return nil, ErrTournamentFull
	}

	pair, err := s.tournamentRepo.Enroll(ctx, tournamentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEnrollmentConflict):
			return nil, duplicateTournamentEnrollment(userID, tournamentID)
		case errors.Is(err, repositories.ErrEnrollmentUserInvalid):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrEnrollmentTournamentInvalid):
			return nil, ErrTournamentNotFound
		default:
			return nil, fmt.Errorf("failed to enroll user %d in tournament %d: %w", userID, tournamentID, err)
		}
	}
	return pair, nil
}

func (s *tournamentService) Unenroll(ctx context.Context, tournamentID, userID, requesterID int) error {
	tournament, err := s.getTournament(ctx, nil, tournamentID)
	if err != nil {
		return err
	}
	if err := ensureSelfOrOwner(tournament, userID, requesterID); err != nil {
		return err
	}

	if err := s.tournamentRepo.Unenroll(ctx, tournamentID, userID); err != nil {
		if errors.Is(err, repositories.ErrEnrollmentNotFound) {
			return notEnrolledInTournament(userID, tournamentID)
		}
		return fmt.Errorf("failed to unenroll user %d from tournament %d: %w", userID, tournamentID, err)
	}
	return nil
}

func (s *tournamentService) getTournament(ctx context.Context, exec db.SQLExecutor, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, id)
	if err != nil {
		return nil, s.mapTournamentError(id, err)
	}
	return tournament, nil
}

func (s *tournamentService) mapTournamentError(id int, err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return fmt.Errorf("tournament %d: %w", id, err)
}

func (s *tournamentService) removeObject(ctx context.Context, location *string) {
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
