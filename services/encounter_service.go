package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Dosada05/mob-api/models"
	"github.com/Dosada05/mob-api/repositories"
)

type EncounterService interface {
	CreateEncounter(ctx context.Context, input CreateEncounterInput) (*models.Encounter, error)
	GetEncounterByID(ctx context.Context, id int) (*models.Encounter, error)
	UpdateEncounter(ctx context.Context, id int, input UpdateEncounterInput) (*models.Encounter, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Encounter, error)
	ListParticipantIDs(ctx context.Context, encounterID int) ([]int, error)
	AddParticipant(ctx context.Context, encounterID, userID int) (*models.EncounterEnrollment, error)
	ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]models.EncounterParticipant, error)
}

type encounterService struct {
	encounterRepo  repositories.EncounterRepository
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
}

func NewEncounterService(
	encounterRepo repositories.EncounterRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
) EncounterService {
	return &encounterService{
		encounterRepo:  encounterRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
	}
}

// CreateEncounter opens an empty match slot: no winner, no loser, 0-0.
func (s *encounterService) CreateEncounter(ctx context.Context, input CreateEncounterInput) (*models.Encounter, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureTournament(ctx, input.TournamentID); err != nil {
		return nil, err
	}

	encounter := &models.Encounter{TournamentID: input.TournamentID}
	if input.Date != nil {
		encounter.Date = *input.Date
	}

	if err := s.encounterRepo.Create(ctx, encounter); err != nil {
		if errors.Is(err, repositories.ErrEncounterTournamentInvalid) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to create encounter: %w", err)
	}
	return encounter, nil
}

func (s *encounterService) GetEncounterByID(ctx context.Context, id int) (*models.Encounter, error) {
	encounter, err := s.encounterRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapEncounterError(id, err)
	}
	return encounter, nil
}

func (s *encounterService) UpdateEncounter(ctx context.Context, id int, input UpdateEncounterInput) (*models.Encounter, error) {
	encounter, err := s.GetEncounterByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.apply(encounter)

	if err := s.encounterRepo.Update(ctx, encounter); err != nil {
		return nil, mapEncounterError(id, err)
	}
	return encounter, nil
}

func (s *encounterService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Encounter, error) {
	if err := s.ensureTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	encounters, err := s.encounterRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list encounters of tournament %d: %w", tournamentID, err)
	}
	return encounters, nil
}

func (s *encounterService) ListParticipantIDs(ctx context.Context, encounterID int) ([]int, error) {
	if _, err := s.GetEncounterByID(ctx, encounterID); err != nil {
		return nil, err
	}
	ids, err := s.encounterRepo.ListParticipantIDs(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users of encounter %d: %w", encounterID, err)
	}
	return ids, nil
}

func (s *encounterService) AddParticipant(ctx context.Context, encounterID, userID int) (*models.EncounterEnrollment, error) {
	if _, err := s.GetEncounterByID(ctx, encounterID); err != nil {
		return nil, err
	}
	if _, err := getUser(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}

	current, err := s.encounterRepo.ListParticipantIDs(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users of encounter %d: %w", encounterID, err)
	}
	if slices.Contains(current, userID) {
		return nil, duplicateEncounterEnrollment(userID, encounterID)
	}

	pair, err := s.encounterRepo.AddParticipant(ctx, encounterID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantConflict):
			return nil, duplicateEncounterEnrollment(userID, encounterID)
		case errors.Is(err, repositories.ErrParticipantUserInvalid):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrParticipantEncounterInvalid):
			return nil, ErrEncounterNotFound
		default:
			return nil, fmt.Errorf("failed to add user %d to encounter %d: %w", userID, encounterID, err)
		}
	}
	return pair, nil
}

func (s *encounterService) ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]models.EncounterParticipant, error) {
	if err := s.ensureTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	participants, err := s.encounterRepo.ListParticipantsByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list encounter participants of tournament %d: %w", tournamentID, err)
	}
	return participants, nil
}

func (s *encounterService) ensureTournament(ctx context.Context, id int) error {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to check tournament %d: %w", id, err)
	}
	return nil
}

func mapEncounterError(id int, err error) error {
	if errors.Is(err, repositories.ErrEncounterNotFound) {
		return ErrEncounterNotFound
	}
	return fmt.Errorf("encounter %d: %w", id, err)
}
