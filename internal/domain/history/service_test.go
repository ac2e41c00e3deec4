package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pura-pata-api/internal/adapters/storage/memory"
	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/history"
	"pura-pata-api/internal/domain/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr(s lifecycle.Status) *lifecycle.Status { return &s }

func TestRecord_AppendsAndListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := history.NewService(memory.NewHistoryRepo())

	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.Record(ctx, "dog-1", nil, lifecycle.StatusAvailable, t0)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "dog-1", ptr(lifecycle.StatusAvailable), lifecycle.StatusReserved, t0.Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Record(ctx, "dog-2", nil, lifecycle.StatusAvailable, t0)
	require.NoError(t, err)

	items, err := svc.ListByDog(ctx, "dog-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, lifecycle.StatusReserved, items[0].NewStatus)
	require.NotNil(t, items[0].OldStatus)
	assert.Equal(t, lifecycle.StatusAvailable, *items[0].OldStatus)

	assert.Nil(t, items[1].OldStatus)
	assert.Equal(t, lifecycle.StatusAvailable, items[1].NewStatus)
}

func TestRecord_SameTimestampKeepsInsertionOrderReversed(t *testing.T) {
	ctx := context.Background()
	svc := history.NewService(memory.NewHistoryRepo())
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Record(ctx, "d", nil, lifecycle.StatusAvailable, at)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "d", ptr(lifecycle.StatusAvailable), lifecycle.StatusAdopted, at)
	require.NoError(t, err)

	items, err := svc.ListByDog(ctx, "d")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, lifecycle.StatusAdopted, items[0].NewStatus)
}

func TestRecord_RejectsInvalidInput(t *testing.T) {
	svc := history.NewService(memory.NewHistoryRepo())

	_, err := svc.Record(context.Background(), "", nil, lifecycle.StatusAvailable, time.Time{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Record(context.Background(), "d", nil, lifecycle.Status("lost"), time.Time{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestListByDog_UnknownDogIsEmpty(t *testing.T) {
	svc := history.NewService(memory.NewHistoryRepo())
	items, err := svc.ListByDog(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, items)
}
