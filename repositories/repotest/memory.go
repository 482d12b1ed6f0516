// Package repotest provides in-memory repositories sharing one store, used by
// service and handler tests in place of Postgres.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/mob-api/db"
	"github.com/Dosada05/mob-api/models"
	"github.com/Dosada05/mob-api/repositories"
)

type tournamentKey struct{ tournamentID, userID int }
type encounterKey struct{ encounterID, userID int }

// Store holds every table. Deletes cascade the way the schema does.
type Store struct {
	mu sync.Mutex

	nextUserID       int
	nextTournamentID int
	nextEncounterID  int

	users       map[int]models.User
	tournaments map[int]models.Tournament
	encounters  map[int]models.Encounter
	enrollments map[tournamentKey]struct{}
	encounterOf map[encounterKey]struct{}
}

func NewStore() *Store {
	return &Store{
		users:       make(map[int]models.User),
		tournaments: make(map[int]models.Tournament),
		encounters:  make(map[int]models.Encounter),
		enrollments: make(map[tournamentKey]struct{}),
		encounterOf: make(map[encounterKey]struct{}),
	}
}

func (s *Store) Users() repositories.UserRepository             { return &userRepo{s} }
func (s *Store) Tournaments() repositories.TournamentRepository { return &tournamentRepo{s} }
func (s *Store) Encounters() repositories.EncounterRepository   { return &encounterRepo{s} }

// TxRunner runs fn directly. The store mutex already serialises each call.
func (s *Store) TxRunner() db.TxRunner { return txRunner{} }

type txRunner struct{}

func (txRunner) WithTx(ctx context.Context, fn func(ctx context.Context, tx db.SQLExecutor) error) error {
	return fn(ctx, nil)
}

func sortedIDs[K comparable](m map[K]struct{}, match func(K) (int, bool)) []int {
	ids := make([]int, 0)
	for k := range m {
		if id, ok := match(k); ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// users

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Mail == user.Mail {
			return repositories.ErrUserMailConflict
		}
	}
	if user.Role == "" {
		user.Role = models.RolePlayer
	}
	r.s.nextUserID++
	now := time.Now().UTC()
	user.ID = r.s.nextUserID
	user.Trophies, user.HonorPoint = 0, 0
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByMail(_ context.Context, mail string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Mail == mail {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *userRepo) List(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *userRepo) UpdateProfile(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[user.ID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.FirstName, u.LastName, u.Nickname, u.Avatar = user.FirstName, user.LastName, user.Nickname, user.Avatar
	u.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = u.UpdatedAt
	r.s.users[u.ID] = u
	return nil
}

func (r *userRepo) UpdatePassword(_ context.Context, id int, digest string) error {
	return r.update(id, func(u *models.User) { u.Password = digest })
}

func (r *userRepo) UpdateAvatar(_ context.Context, id int, avatar *string) error {
	return r.update(id, func(u *models.User) { u.Avatar = avatar })
}

func (r *userRepo) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.s.users, id)
	for k := range r.s.enrollments {
		if k.userID == id {
			delete(r.s.enrollments, k)
		}
	}
	for k := range r.s.encounterOf {
		if k.userID == id {
			delete(r.s.encounterOf, k)
		}
	}
	for tid, t := range r.s.tournaments {
		if t.UserID == id {
			r.s.deleteTournamentLocked(tid)
		}
	}
	return nil
}

func (r *userRepo) AdjustHonor(_ context.Context, id int, delta int) (*models.User, error) {
	return r.adjust(id, func(u *models.User) { u.HonorPoint += delta })
}

func (r *userRepo) AdjustTrophies(_ context.Context, id int, delta int) (*models.User, error) {
	return r.adjust(id, func(u *models.User) { u.Trophies += delta })
}

func (r *userRepo) Leaderboard(ctx context.Context, order repositories.LeaderboardOrder, limit int) ([]models.User, error) {
	var less func(a, b models.User) bool
	switch order {
	case repositories.OrderMostTrophies:
		less = func(a, b models.User) bool {
			if a.Trophies != b.Trophies {
				return a.Trophies > b.Trophies
			}
			return a.ID < b.ID
		}
	case repositories.OrderMostHonor:
		less = func(a, b models.User) bool {
			if a.HonorPoint != b.HonorPoint {
				return a.HonorPoint > b.HonorPoint
			}
			return a.ID < b.ID
		}
	case repositories.OrderLessHonor:
		less = func(a, b models.User) bool {
			if a.HonorPoint != b.HonorPoint {
				return a.HonorPoint < b.HonorPoint
			}
			return a.ID < b.ID
		}
	case repositories.OrderLastRegistered:
		less = func(a, b models.User) bool { return a.ID > b.ID }
	default:
		return nil, fmt.Errorf("%w: %q", repositories.ErrUnknownLeaderboard, order)
	}

	users, _ := r.List(ctx)
	sort.SliceStable(users, func(i, j int) bool { return less(users[i], users[j]) })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *userRepo) update(id int, fn func(u *models.User)) error {
	_, err := r.adjust(id, fn)
	return err
}

func (r *userRepo) adjust(id int, fn func(u *models.User)) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return &u, nil
}

// tournaments

type tournamentRepo struct{ s *Store }

func (r *tournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[t.UserID]; !ok {
		return repositories.ErrTournamentInvalidOwner
	}
	r.s.nextTournamentID++
	t.ID = r.s.nextTournamentID
	r.s.tournaments[t.ID] = *t
	return nil
}

func (r *tournamentRepo) GetByID(_ context.Context, _ db.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *tournamentRepo) GetByIDForUpdate(ctx context.Context, exec db.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *tournamentRepo) List(_ context.Context) ([]models.Tournament, error) {
	return r.filter(func(models.Tournament) bool { return true }), nil
}

func (r *tournamentRepo) ListByUser(_ context.Context, userID int) ([]models.Tournament, error) {
	return r.filter(func(t models.Tournament) bool {
		if t.UserID == userID {
			return true
		}
		_, enrolled := r.s.enrollments[tournamentKey{t.ID, userID}]
		return enrolled
	}), nil
}

func (r *tournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	updated := *t
	updated.UserID = stored.UserID
	r.s.tournaments[t.ID] = updated
	return nil
}

func (r *tournamentRepo) UpdateImage(_ context.Context, id int, image *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Image = image
	r.s.tournaments[id] = t
	return nil
}

func (r *tournamentRepo) Delete(_ context.Context, _ db.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	r.s.deleteTournamentLocked(id)
	return nil
}

func (r *tournamentRepo) ListEnrolledUserIDs(_ context.Context, tournamentID int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return sortedIDs(r.s.enrollments, func(k tournamentKey) (int, bool) {
		return k.userID, k.tournamentID == tournamentID
	}), nil
}

func (r *tournamentRepo) Enroll(_ context.Context, tournamentID, userID int) (*models.TournamentEnrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := tournamentKey{tournamentID, userID}
	if _, ok := r.s.enrollments[key]; ok {
		return nil, repositories.ErrEnrollmentConflict
	}
	if _, ok := r.s.users[userID]; !ok {
		return nil, repositories.ErrEnrollmentUserInvalid
	}
	if _, ok := r.s.tournaments[tournamentID]; !ok {
		return nil, repositories.ErrEnrollmentTournamentInvalid
	}
	r.s.enrollments[key] = struct{}{}
	return &models.TournamentEnrollment{TournamentID: tournamentID, UserID: userID}, nil
}

func (r *tournamentRepo) Unenroll(_ context.Context, tournamentID, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := tournamentKey{tournamentID, userID}
	if _, ok := r.s.enrollments[key]; !ok {
		return repositories.ErrEnrollmentNotFound
	}
	delete(r.s.enrollments, key)
	return nil
}

func (r *tournamentRepo) filter(keep func(models.Tournament) bool) []models.Tournament {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tournaments := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if keep(t) {
			tournaments = append(tournaments, t)
		}
	}
	sort.Slice(tournaments, func(i, j int) bool { return tournaments[i].ID < tournaments[j].ID })
	return tournaments
}

func (s *Store) deleteTournamentLocked(id int) {
	delete(s.tournaments, id)
	for k := range s.enrollments {
		if k.tournamentID == id {
			delete(s.enrollments, k)
		}
	}
	for eid, e := range s.encounters {
		if e.TournamentID != id {
			continue
		}
		delete(s.encounters, eid)
		for k := range s.encounterOf {
			if k.encounterID == eid {
				delete(s.encounterOf, k)
			}
		}
	}
}

// encounters

type encounterRepo struct{ s *Store }

func (r *encounterRepo) Create(_ context.Context, e *models.Encounter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tournaments[e.TournamentID]; !ok {
		return repositories.ErrEncounterTournamentInvalid
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	r.s.nextEncounterID++
	e.ID = r.s.nextEncounterID
	r.s.encounters[e.ID] = *e
	return nil
}

func (r *encounterRepo) GetByID(_ context.Context, id int) (*models.Encounter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.encounters[id]
	if !ok {
		return nil, repositories.ErrEncounterNotFound
	}
	return &e, nil
}

func (r *encounterRepo) Update(_ context.Context, e *models.Encounter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.encounters[e.ID]
	if !ok {
		return repositories.ErrEncounterNotFound
	}
	stored.Winner, stored.Loser, stored.Date = e.Winner, e.Loser, e.Date
	stored.WinnerScore, stored.LoserScore = e.WinnerScore, e.LoserScore
	r.s.encounters[e.ID] = stored
	return nil
}

func (r *encounterRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.Encounter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	encounters := make([]models.Encounter, 0)
	for _, e := range r.s.encounters {
		if e.TournamentID == tournamentID {
			encounters = append(encounters, e)
		}
	}
	sort.Slice(encounters, func(i, j int) bool { return encounters[i].ID < encounters[j].ID })
	return encounters, nil
}

func (r *encounterRepo) ListParticipantIDs(_ context.Context, encounterID int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return sortedIDs(r.s.encounterOf, func(k encounterKey) (int, bool) {
		return k.userID, k.encounterID == encounterID
	}), nil
}

func (r *encounterRepo) AddParticipant(_ context.Context, encounterID, userID int) (*models.EncounterEnrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := encounterKey{encounterID, userID}
	if _, ok := r.s.encounterOf[key]; ok {
		return nil, repositories.ErrParticipantConflict
	}
	if _, ok := r.s.users[userID]; !ok {
		return nil, repositories.ErrParticipantUserInvalid
	}
	if _, ok := r.s.encounters[encounterID]; !ok {
		return nil, repositories.ErrParticipantEncounterInvalid
	}
	r.s.encounterOf[key] = struct{}{}
	return &models.EncounterEnrollment{EncounterID: encounterID, UserID: userID}, nil
}

func (r *encounterRepo) ListParticipantsByTournament(_ context.Context, tournamentID int) ([]models.EncounterParticipant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	participants := make([]models.EncounterParticipant, 0)
	for k := range r.s.encounterOf {
		e, ok := r.s.encounters[k.encounterID]
		if !ok || e.TournamentID != tournamentID {
			continue
		}
		participants = append(participants, models.EncounterParticipant{
			UserID: k.userID, EncounterID: k.encounterID, TournamentID: tournamentID,
		})
	}
	sort.Slice(participants, func(i, j int) bool {
		if participants[i].EncounterID != participants[j].EncounterID {
			return participants[i].EncounterID < participants[j].EncounterID
		}
		return participants[i].UserID < participants[j].UserID
	})
	return participants, nil
}
