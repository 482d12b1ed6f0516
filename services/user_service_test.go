package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/mob-api/repositories"
)

func TestUserService_ListUsersRedactsPasswords(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	f.register(t, "ada")
	f.register(t, "grace")

	users, err := f.users.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.Password)
	}
}

func TestUserService_GetUserByIDNotFound(t *testing.T) {
	f := newFixture(t, TournamentOptions{})

	_, err := f.users.GetUserByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, MsgUserNotFound, PublicMessage(err))
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	grace := f.register(t, "grace")
	ctx := context.Background()

	nickname := "countess"
	updated, err := f.users.UpdateProfile(ctx, ada.ID, ada.ID, UpdateProfileInput{Nickname: &nickname})
	require.NoError(t, err)
	assert.Equal(t, "countess", updated.Nickname)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Empty(t, updated.Password)

	_, err = f.users.UpdateProfile(ctx, ada.ID, grace.ID, UpdateProfileInput{Nickname: &nickname})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	bad := "no"
	_, err = f.users.UpdateProfile(ctx, ada.ID, ada.ID, UpdateProfileInput{Nickname: &bad})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestUserService_ChangePassword(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	ctx := context.Background()

	err := f.users.ChangePassword(ctx, ada.ID, ada.ID, ChangePasswordInput{Password: "Wr0ng!pass", NewPassword: "N3w!passwd"})
	assert.ErrorIs(t, err, ErrInvalidPassword)

	err = f.users.ChangePassword(ctx, ada.ID, ada.ID, ChangePasswordInput{Password: testPassword, NewPassword: testPassword})
	assert.ErrorIs(t, err, ErrSamePassword)
	assert.Equal(t, MsgSamePassword, PublicMessage(err))

	require.NoError(t, f.users.ChangePassword(ctx, ada.ID, ada.ID, ChangePasswordInput{Password: testPassword, NewPassword: "N3w!passwd"}))

	_, err = f.auth.Login(ctx, LoginInput{Mail: "ada@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, LoginInput{Mail: "ada@example.com", Password: "N3w!passwd"})
	assert.NoError(t, err)
}

func TestUserService_DeleteAccountCascades(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	grace := f.register(t, "grace")
	ctx := context.Background()

	owned := f.createTournament(t, ada.ID, 0)
	other := f.createTournament(t, grace.ID, 0)
	_, err := f.tournaments.Enroll(ctx, other.ID, ada.ID)
	require.NoError(t, err)

	err = f.users.DeleteAccount(ctx, ada.ID, ada.ID, DeleteAccountInput{Password: "Wr0ng!pass"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = f.users.DeleteAccount(ctx, ada.ID, grace.ID, DeleteAccountInput{Password: testPassword})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	require.NoError(t, f.users.DeleteAccount(ctx, ada.ID, ada.ID, DeleteAccountInput{Password: testPassword}))

	_, err = f.users.GetUserByID(ctx, ada.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.tournaments.GetTournamentByID(ctx, owned.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	ids, err := f.tournaments.ListEnrolledUserIDs(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUserService_HonorCanGoNegative(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	ctx := context.Background()

	var last int
	for range 3 {
		user, err := f.users.RemoveHonor(ctx, ada.ID)
		require.NoError(t, err)
		assert.Empty(t, user.Password)
		last = user.HonorPoint
	}
	assert.Equal(t, -3, last)

	user, err := f.users.AddHonor(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, user.HonorPoint)

	user, err = f.users.AddTrophy(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.Trophies)

	_, err = f.users.AddTrophy(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ListTournamentsOwnedAndEnrolled(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	grace := f.register(t, "grace")
	ctx := context.Background()

	owned := f.createTournament(t, ada.ID, 0)
	enrolled := f.createTournament(t, grace.ID, 0)
	f.createTournament(t, grace.ID, 0)
	_, err := f.tournaments.Enroll(ctx, enrolled.ID, ada.ID)
	require.NoError(t, err)

	tournaments, err := f.users.ListTournaments(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, tournaments, 2)
	assert.Equal(t, owned.ID, tournaments[0].ID)
	assert.Equal(t, enrolled.ID, tournaments[1].ID)

	_, err = f.users.ListTournaments(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_UploadAvatarReplacesPrevious(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	ctx := context.Background()

	first, err := f.users.UploadAvatar(ctx, ada.ID, ada.ID, strings.NewReader("one"), "image/png")
	require.NoError(t, err)
	require.NotNil(t, first.Avatar)
	firstKey, ok := f.uploader.KeyFromURL(*first.Avatar)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(firstKey, "avatars/ada-"))
	assert.True(t, strings.HasSuffix(firstKey, ".png"))

	second, err := f.users.UploadAvatar(ctx, ada.ID, ada.ID, strings.NewReader("two"), "image/jpeg")
	require.NoError(t, err)
	assert.NotEqual(t, *first.Avatar, *second.Avatar)
	assert.Equal(t, []string{firstKey}, f.uploader.deleted)

	stored, err := f.users.GetUserByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Avatar, stored.Avatar)
}

func TestUserService_UploadAvatarRejections(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	grace := f.register(t, "grace")
	ctx := context.Background()

	_, err := f.users.UploadAvatar(ctx, ada.ID, grace.ID, strings.NewReader("x"), "image/png")
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = f.users.UploadAvatar(ctx, ada.ID, ada.ID, strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrValidationFailed)

	disabled := NewUserService(f.store.Users(), f.store.Tournaments(), f.hasher, nil, nil)
	_, err = disabled.UploadAvatar(ctx, ada.ID, ada.ID, strings.NewReader("x"), "image/png")
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestUserService_Leaderboards(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	ada := f.register(t, "ada")
	grace := f.register(t, "grace")
	linus := f.register(t, "linus")
	ctx := context.Background()

	_, err := f.users.AddTrophy(ctx, grace.ID)
	require.NoError(t, err)
	_, err = f.users.AddHonor(ctx, ada.ID)
	require.NoError(t, err)
	_, err = f.users.RemoveHonor(ctx, linus.ID)
	require.NoError(t, err)

	boards, err := f.users.Leaderboards(ctx)
	require.NoError(t, err)

	require.Len(t, boards.MostTrophies, 3)
	assert.Equal(t, grace.ID, boards.MostTrophies[0].ID)
	assert.Equal(t, ada.ID, boards.MostHonor[0].ID)
	assert.Equal(t, linus.ID, boards.LessHonor[0].ID)
	assert.Len(t, boards.LastRegistered, 3)

	single, err := f.users.Leaderboard(ctx, repositories.OrderMostTrophies)
	require.NoError(t, err)
	assert.Equal(t, boards.MostTrophies[0].ID, single[0].ID)
	for _, u := range single {
		assert.Empty(t, u.Password)
	}
}

func TestUserService_LeaderboardIsCapped(t *testing.T) {
	f := newFixture(t, TournamentOptions{})
	for i := range LeaderboardSize + 3 {
		f.register(t, "player"+strings.Repeat("x", i))
	}

	users, err := f.users.Leaderboard(context.Background(), repositories.OrderLastRegistered)
	require.NoError(t, err)
	assert.Len(t, users, LeaderboardSize)
}
