package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/mob-api/models"
	"github.com/Dosada05/mob-api/repositories/repotest"
	"github.com/Dosada05/mob-api/storage"
	"github.com/Dosada05/mob-api/utils"
)

const testPassword = "Secr3t!pass"

type fixture struct {
	store       *repotest.Store
	hasher      utils.PasswordHasher
	tokens      TokenService
	uploader    *fakeUploader
	auth        AuthService
	users       UserService
	tournaments TournamentService
	encounters  EncounterService
}

func newFixture(t *testing.T, opts TournamentOptions) *fixture {
	t.Helper()

	store := repotest.NewStore()
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	tokens := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	uploader := newFakeUploader()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		store:       store,
		hasher:      hasher,
		tokens:      tokens,
		uploader:    uploader,
		auth:        NewAuthService(store.Users(), hasher, tokens),
		users:       NewUserService(store.Users(), store.Tournaments(), hasher, uploader, logger),
		tournaments: NewTournamentService(store.Tournaments(), store.Users(), store.TxRunner(), uploader, opts, logger),
		encounters:  NewEncounterService(store.Encounters(), store.Tournaments(), store.Users()),
	}
}

func (f *fixture) register(t *testing.T, nickname string) *models.User {
	t.Helper()

	user, err := f.auth.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Nickname:  nickname,
		Mail:      strings.ToLower(nickname) + "@example.com",
		Password:  testPassword,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) createTournament(t *testing.T, ownerID int, maxPlayers int) *models.Tournament {
	t.Helper()

	tournament, err := f.tournaments.CreateTournament(context.Background(), ownerID, CreateTournamentInput{
		Label:          "Spring Cup",
		Type:           models.TournamentPublic,
		Date:           time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC),
		Game:           "chess",
		Format:         models.FormatSingleElimination,
		MaxPlayerCount: maxPlayers,
	})
	require.NoError(t, err)
	return tournament
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string]string)}
}

const fakeBaseURL = "https://cdn.example.com/"

func (u *fakeUploader) Upload(_ context.Context, key, contentType string, r io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = contentType + ":" + string(body)
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key), ETag: fmt.Sprintf("%x", len(body))}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string { return fakeBaseURL + key }

func (u *fakeUploader) KeyFromURL(location string) (string, bool) {
	key, ok := strings.CutPrefix(location, fakeBaseURL)
	return key, ok && key != ""
}
