package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cloudvault/internal/auth"
	"cloudvault/internal/domain"
)

func newTestLoginService(t *testing.T) (*LoginService, *TokenRegistrar) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &memUsers{users: map[string]*domain.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: string(hash), Enabled: true},
		"bob":   {ID: 2, Username: "bob", PasswordHash: string(hash), Enabled: false},
	}}

	codec, err := auth.NewJWTCodec([]byte("secret"), time.Hour)
	require.NoError(t, err)

	registrar := NewTokenRegistrar(codec, newMemTokenRegistry())
	return NewLoginService(users, registrar), registrar
}

func TestLoginService_Success(t *testing.T) {
	t.Parallel()

	svc, registrar := newTestLoginService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ok, err := registrar.IsRegistered(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLoginService_WrongPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestLoginService(t)

	_, err := svc.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrBadCredentials)
}

func TestLoginService_DisabledUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestLoginService(t)

	_, err := svc.Login(context.Background(), "bob", "s3cret")
	require.ErrorIs(t, err, domain.ErrBadCredentials)
}

func TestLoginService_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestLoginService(t)

	_, err := svc.Login(context.Background(), "mallory", "s3cret")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLoginService_Logout(t *testing.T) {
	t.Parallel()

	svc, registrar := newTestLoginService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "alice", token))

	ok, err := registrar.IsRegistered(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}
