package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateErr(t *testing.T) {
	assert.NoError(t, translateErr(nil))
	assert.ErrorIs(t, translateErr(pgx.ErrNoRows), ErrUserNotFound)
	assert.ErrorIs(t, translateErr(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})), ErrEmailTaken)

	other := errors.New("connection reset")
	assert.Equal(t, other, translateErr(other))
}

func TestMemoryUsersCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers()

	u := &models.User{Email: "Singer@Example.com", Password: "pw", Username: "singer"}
	require.NoError(t, users.CreateUser(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.NotEqual(t, "pw", u.Password, "password is stored hashed")

	dup := &models.User{Email: "singer@example.com", Password: "x", Username: "copy"}
	assert.ErrorIs(t, users.CreateUser(ctx, dup), ErrEmailTaken)

	got, err := users.AuthenticateUser(ctx, "singer@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.AuthenticateUser(ctx, "singer@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.AuthenticateUser(ctx, "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUsersClaimGuest(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers()

	guest := &models.User{Username: "Guest", IsEphemeral: true}
	require.NoError(t, users.CreateUser(ctx, guest))
	other := &models.User{Username: "Guest", IsEphemeral: true}
	require.NoError(t, users.CreateUser(ctx, other))

	claimed, err := users.ClaimGuest(ctx, guest.ID, "me@example.com", "pw", "me")
	require.NoError(t, err)
	assert.False(t, claimed.IsEphemeral)
	assert.Equal(t, "me", claimed.Username)

	_, err = users.ClaimGuest(ctx, guest.ID, "again@example.com", "pw", "")
	assert.ErrorIs(t, err, ErrNotEphemeral)

	_, err = users.ClaimGuest(ctx, other.ID, "me@example.com", "pw", "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := users.AuthenticateUser(ctx, "me@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, got.ID)
}
