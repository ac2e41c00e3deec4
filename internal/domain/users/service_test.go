package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pura-pata-api/internal/adapters/storage/memory"
	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/users"
	"pura-pata-api/internal/ports/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func strPtr(s string) *string { return &s }

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := users.NewService(memory.NewUserRepo(), nil)

	u, err := svc.Register(ctx, "", users.ProfileInput{Email: "Ana@Example.com", Name: "Ana"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err = svc.Register(ctx, "", users.ProfileInput{Email: "ana@example.com", Name: "Otra"})
	assert.True(t, errors.Is(err, apperr.ErrDuplicate))
}

func TestRegister_UsesCallerIdentity(t *testing.T) {
	svc := users.NewService(memory.NewUserRepo(), nil)

	u, err := svc.Register(context.Background(), "sub-123", users.ProfileInput{Email: "b@example.com", Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, "sub-123", u.ID)
}

func TestRegister_Validation(t *testing.T) {
	svc := users.NewService(memory.NewUserRepo(), nil)

	_, err := svc.Register(context.Background(), "", users.ProfileInput{Email: "not-an-email", Name: "X"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Register(context.Background(), "", users.ProfileInput{Name: "X"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestSync_IsIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	svc := users.NewService(memory.NewUserRepo(), nil)
	claims := auth.Claims{UserID: "sub-1", Email: "token@example.com"}

	created, err := svc.Sync(ctx, claims, users.ProfileInput{Name: "Ana", Phone: strPtr("8888-1111")})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", created.ID)
	assert.Equal(t, "token@example.com", created.Email)

	again, err := svc.Sync(ctx, claims, users.ProfileInput{Email: "other@example.com", Name: "Ana María"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", again.ID)
	assert.Equal(t, "token@example.com", again.Email, "email is not changed by sync")
	assert.Equal(t, "Ana María", again.Name)
	assert.Nil(t, again.Phone)

	_, err = svc.Sync(ctx, auth.Claims{}, users.ProfileInput{Name: "x"})
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := users.NewService(memory.NewUserRepo(), nil)

	u, err := svc.Register(ctx, "u1", users.ProfileInput{Email: "u1@example.com", Name: "Uno", Location: strPtr("Heredia")})
	require.NoError(t, err)

	got, err := svc.UpdateProfile(ctx, u.ID, users.UpdateInput{Phone: strPtr("7000-0000"), Location: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Uno", got.Name)
	require.NotNil(t, got.Phone)
	assert.Nil(t, got.Location)

	_, err = svc.UpdateProfile(ctx, "ghost", users.UpdateInput{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPublishers_SkipsMissing(t *testing.T) {
	ctx := context.Background()
	svc := users.NewService(memory.NewUserRepo(), nil)
	_, err := svc.Register(ctx, "u1", users.ProfileInput{Email: "u1@example.com", Name: "Uno", Phone: strPtr("1")})
	require.NoError(t, err)

	pubs, err := svc.Publishers(ctx, []string{"u1", "gone"})
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "Uno", pubs["u1"].Name)
}
