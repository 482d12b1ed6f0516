package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/mob-api/handlers"
	"github.com/Dosada05/mob-api/models"
	"github.com/Dosada05/mob-api/repositories/repotest"
	"github.com/Dosada05/mob-api/services"
	"github.com/Dosada05/mob-api/utils"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	auth   services.AuthService
	tokens services.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := repotest.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	tokens := services.NewTokenService(services.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})

	authService := services.NewAuthService(store.Users(), hasher, tokens)
	userService := services.NewUserService(store.Users(), store.Tournaments(), hasher, nil, logger)
	tournamentService := services.NewTournamentService(store.Tournaments(), store.Users(), store.TxRunner(), nil, services.TournamentOptions{}, logger)
	encounterService := services.NewEncounterService(store.Encounters(), store.Tournaments(), store.Users())

	router := SetupRoutes(Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		User:        handlers.NewUserHandler(userService),
		Tournament:  handlers.NewTournamentHandler(tournamentService, encounterService),
		Encounter:   handlers.NewEncounterHandler(encounterService),
		Leaderboard: handlers.NewLeaderboardHandler(userService),
	}, tokens, Options{AllowedOrigins: []string{"*"}})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testAPI{t: t, server: server, auth: authService, tokens: tokens}
}

// user registers a player and returns it with an access token.
func (a *testAPI) user(nickname string) (*models.User, string) {
	a.t.Helper()

	body := fmt.Sprintf(`{"firstname":"Ada","lastname":"Lovelace","nickname":%q,"mail":"%s@example.com","password":"Secr3t!pass"}`, nickname, nickname)
	resp, raw := a.do(http.MethodPost, "/api/register", "", strings.NewReader(body), "application/json")
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, raw)

	var user models.User
	require.NoError(a.t, json.Unmarshal([]byte(raw), &user))

	token, err := a.tokens.IssueAccess(user.ID)
	require.NoError(a.t, err)
	return &user, token
}

func (a *testAPI) tournament(token string) models.Tournament {
	a.t.Helper()

	body := `{"label":"Spring Cup","type":"public","date":"2025-04-01T18:00:00Z","game":"chess","format":"single-elimination","max_player_count":8,"description":"open"}`
	resp, raw := a.doJSON(http.MethodPost, "/api/tournaments", token, body)
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, raw)

	var tournament models.Tournament
	require.NoError(a.t, json.Unmarshal([]byte(raw), &tournament))
	return tournament
}

func (a *testAPI) doJSON(method, path, token, body string) (*http.Response, string) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return a.do(method, path, token, r, "application/json")
}

func (a *testAPI) do(method, path, token string, body io.Reader, contentType string) (*http.Response, string) {
	a.t.Helper()

	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(raw)
}

func errorMessage(t *testing.T, raw string) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &body), raw)
	return body.Error
}

func TestAPI_RegisterLoginMe(t *testing.T) {
	api := newTestAPI(t)
	user, _ := api.user("ada")
	assert.NotZero(t, user.ID)

	resp, raw := api.doJSON(http.MethodPost, "/api/login", "", `{"mail":"ada@example.com","password":"Secr3t!pass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	assert.NotContains(t, raw, "password")

	var login struct {
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
		User         models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &login))
	assert.Equal(t, user.ID, login.User.ID)

	resp, raw = api.doJSON(http.MethodGet, "/api/me", login.AccessToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	assert.Contains(t, raw, `"nickname": "ada"`)

	resp, raw = api.doJSON(http.MethodPost, "/api/refreshToken", login.RefreshToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	assert.Contains(t, raw, "accessToken")

	resp, raw = api.doJSON(http.MethodPost, "/api/login", "", `{"mail":"ada@example.com","password":"Wr0ng!pass"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, services.MsgInvalidCredentials, errorMessage(t, raw))
}

func TestAPI_RegisterDuplicateMail(t *testing.T) {
	api := newTestAPI(t)
	api.user("ada")

	body := `{"firstname":"Ada","lastname":"Byron","nickname":"byron","mail":"ada@example.com","password":"Secr3t!pass"}`
	resp, raw := api.doJSON(http.MethodPost, "/api/register", "", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.MsgMailConflict, errorMessage(t, raw))
}

func TestAPI_MissingTokenIsUnauthorized(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/me", "/api/profiles/1", "/api/tournaments/1/profiles"} {
		resp, raw := api.doJSON(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "Token manquant ou invalide", errorMessage(t, raw))
	}

	resp, _ := api.doJSON(http.MethodGet, "/api/me", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_UnknownTournamentIsNotFound(t *testing.T) {
	api := newTestAPI(t)

	resp, raw := api.doJSON(http.MethodGet, "/api/tournaments/999", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Tournoi inexistant", errorMessage(t, raw))

	resp, _ = api.doJSON(http.MethodGet, "/api/tournaments/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_NonOwnerCannotPatchTournament(t *testing.T) {
	api := newTestAPI(t)
	_, ownerToken := api.user("ada")
	_, intruderToken := api.user("mallory")
	tournament := api.tournament(ownerToken)
	path := fmt.Sprintf("/api/tournaments/%d", tournament.ID)

	resp, raw := api.doJSON(http.MethodPatch, path, intruderToken, `{"label":"Hijacked"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, services.MsgForbidden, errorMessage(t, raw))

	resp, _ = api.doJSON(http.MethodDelete, path, intruderToken, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = api.doJSON(http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, raw, `"label": "Spring Cup"`)

	resp, raw = api.doJSON(http.MethodPatch, path, ownerToken, `{"label":"Summer Cup"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	assert.Contains(t, raw, `"label": "Summer Cup"`)

	resp, raw = api.doJSON(http.MethodDelete, path, ownerToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	assert.JSONEq(t, `{}`, raw)

	resp, _ = api.doJSON(http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_EnrollmentLifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, ownerToken := api.user("ada")
	player, playerToken := api.user("grace")
	tournament := api.tournament(ownerToken)
	profiles := fmt.Sprintf("/api/tournaments/%d/profiles", tournament.ID)

	resp, raw := api.doJSON(http.MethodGet, profiles, playerToken, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, raw)

	resp, raw = api.doJSON(http.MethodPost, profiles, playerToken, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, raw)
	assert.JSONEq(t, fmt.Sprintf(`{"tournament_id":%d,"user_id":%d}`, tournament.ID, player.ID), raw)

	resp, raw = api.doJSON(http.MethodPost, profiles, ownerToken, fmt.Sprintf(`{"user_id":%d}`, player.ID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t,
		fmt.Sprintf("L'utilisateur d'id %d est déjà inscrit au tournoi d'id %d", player.ID, tournament.ID),
		errorMessage(t, raw))

	resp, raw = api.doJSON(http.MethodGet, profiles, playerToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, fmt.Sprintf(`[{"user_id":%d}]`, player.ID), raw)

	resp, raw = api.doJSON(http.MethodGet, fmt.Sprintf("/api/profiles/%d/tournaments", player.ID), playerToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, raw, `"label": "Spring Cup"`)

	unenroll := fmt.Sprintf("%s/%d", profiles, player.ID)
	resp, raw = api.doJSON(http.MethodDelete, unenroll, playerToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)

	resp, raw = api.doJSON(http.MethodDelete, unenroll, playerToken, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, raw), "n'est pas inscrit")

	resp, _ = api.doJSON(http.MethodGet, "/api/tournaments/999/profiles", playerToken, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_EncounterRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	owner, ownerToken := api.user("ada")
	tournament := api.tournament(ownerToken)

	resp, raw := api.doJSON(http.MethodPost, "/api/encounters", ownerToken, fmt.Sprintf(`{"tournament_id":%d}`, tournament.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode, raw)
	var encounter models.Encounter
	require.NoError(t, json.Unmarshal([]byte(raw), &encounter))
	assert.Nil(t, encounter.Winner)

	path := fmt.Sprintf("/api/encounters/%d", encounter.ID)
	resp, raw = api.doJSON(http.MethodPatch, path, ownerToken, `{"winner":"ada","loser":"grace","winner_score":3,"loser_score":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	patched := raw

	resp, raw = api.doJSON(http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, patched, raw)
	assert.Contains(t, raw, `"winner": "ada"`)

	resp, raw = api.doJSON(http.MethodGet, path+"/profiles", ownerToken, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, raw)

	resp, raw = api.doJSON(http.MethodPost, path+"/profiles", ownerToken, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, raw)

	resp, raw = api.doJSON(http.MethodPost, path+"/profiles", ownerToken, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, raw), "rencontre")

	for _, p := range []string{
		fmt.Sprintf("/api/tournaments/%d/encounters", tournament.ID),
		fmt.Sprintf("/api/encounters/tournaments/%d", tournament.ID),
	} {
		resp, raw = api.doJSON(http.MethodGet, p, "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode, p)
		assert.Contains(t, raw, fmt.Sprintf(`"id": %d`, encounter.ID), p)
	}

	resp, raw = api.doJSON(http.MethodGet, fmt.Sprintf("/api/tournaments/%d/encounters/profiles", tournament.ID), "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t,
		fmt.Sprintf(`[{"user_id":%d,"encounter_id":%d,"tournament_id":%d}]`, owner.ID, encounter.ID, tournament.ID),
		raw)

	resp, raw = api.doJSON(http.MethodGet, "/api/encounters/999", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, services.MsgEncounterNotFound, errorMessage(t, raw))
}

func TestAPI_ProfileUpdatesAndHonor(t *testing.T) {
	api := newTestAPI(t)
	ada, adaToken := api.user("ada")
	_, graceToken := api.user("grace")
	profile := fmt.Sprintf("/api/profiles/%d", ada.ID)

	resp, _ := api.doJSON(http.MethodPatch, profile, graceToken, `{"nickname":"countess"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := api.doJSON(http.MethodPatch, profile, adaToken, `{"nickname":"countess"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	assert.Contains(t, raw, `"nickname": "countess"`)

	for range 2 {
		resp, raw = api.doJSON(http.MethodPost, profile+"/remove-honor", graceToken, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	}
	assert.Contains(t, raw, `"honor_point": -2`)
	assert.NotContains(t, raw, "password")

	resp, raw = api.doJSON(http.MethodPatch, profile+"/pwd", adaToken, `{"password":"Secr3t!pass","newPassword":"Secr3t!pass"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.MsgSamePassword, errorMessage(t, raw))

	resp, raw = api.doJSON(http.MethodGet, "/api/leaderboard/less-honor", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var board []models.User
	require.NoError(t, json.Unmarshal([]byte(raw), &board))
	require.NotEmpty(t, board)
	assert.Equal(t, ada.ID, board[0].ID)

	resp, raw = api.doJSON(http.MethodGet, "/api/leaderboard", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, key := range []string{"most_trophies", "most_honor", "less_honor", "last_registered"} {
		assert.Contains(t, raw, key)
	}

	resp, raw = api.doJSON(http.MethodDelete, profile, adaToken, `{"password":"Wr0ng!pass"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, services.MsgWrongPassword, errorMessage(t, raw))

	resp, raw = api.doJSON(http.MethodDelete, profile, adaToken, `{"password":"Secr3t!pass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)

	resp, _ = api.doJSON(http.MethodGet, profile, graceToken, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UploadWithoutStorage(t *testing.T) {
	api := newTestAPI(t)
	ada, adaToken := api.user("ada")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, raw := api.do(http.MethodPost, fmt.Sprintf("/api/profiles/%d/avatar", ada.ID), adaToken, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, raw)
}

func TestAPI_RejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.user("ada")

	resp, raw := api.doJSON(http.MethodPost, "/api/tournaments", token, `{"label":"Cup","owner":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, raw), "owner")
}
