package users_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-dash-session/users"
	fakeuserrepo "github.com/jrsteele09/go-dash-session/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Sh0rt", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoNumbersHere", false},
		{"Correct1Horse", true},
	}
	for _, tt := range tests {
		err := users.ValidatePasswordStrength(tt.password)
		if tt.ok {
			require.NoError(t, err, tt.password)
		} else {
			require.Error(t, err, tt.password)
		}
	}
}

func TestNewUser_HashesPassword(t *testing.T) {
	u, err := users.NewUser("a@b.com", "Ada", "Correct1Horse", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "Correct1Horse", u.PasswordHash)
	require.True(t, users.CheckPasswordHash("Correct1Horse", u.PasswordHash))
	require.False(t, users.CheckPasswordHash("wrong", u.PasswordHash))
	require.Equal(t, users.Profile{Email: "a@b.com", DisplayName: "Ada"}, u.Profile())
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "A@b.com", DisplayName: "Ada"}
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.ID)

	got, err := repo.GetByEmail("a@B.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	got.DisplayName = "changed"
	again, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", again.DisplayName, "callers get copies")

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLogin("a@b.com", now))
	require.NoError(t, repo.SetBlocked("a@b.com", true))
	again, err = repo.GetByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, now, again.LastLogin)
	require.True(t, again.Blocked)

	require.NoError(t, repo.Upsert(&users.User{Email: "c@d.com"}))
	list, err := repo.List(0, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "A@b.com", list[0].Email)
	list, err = repo.List(1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = repo.List(5, 10)
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, repo.Delete("a@b.com"))
	_, err = repo.GetByEmail("a@b.com")
	require.ErrorIs(t, err, users.ErrNotFound)
	require.ErrorIs(t, repo.Delete("a@b.com"), users.ErrNotFound)
	require.ErrorIs(t, repo.SetBlocked("nobody@x.com", true), users.ErrNotFound)
}
