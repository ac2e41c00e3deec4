package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"pura-pata-api/internal/domain/history"
)

type HistoryRepo struct {
	mu    sync.RWMutex
	byDog map[string][]history.Entry
}

func NewHistoryRepo() *HistoryRepo {
	return &HistoryRepo{
		byDog: make(map[string][]history.Entry),
	}
}

func (r *HistoryRepo) Append(ctx context.Context, e history.Entry) error {
	if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.DogID) == "" {
		return errors.New("history entry id and dog id required")
	}

	r.mu.Lock()
	r.byDog[e.DogID] = append(r.byDog[e.DogID], e)
	r.mu.Unlock()

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		items := r.byDog[e.DogID]
		for i := len(items) - 1; i >= 0; i-- {
			if items[i].ID == e.ID {
				r.byDog[e.DogID] = append(items[:i:i], items[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *HistoryRepo) ListByDog(ctx context.Context, dogID string) ([]history.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.byDog[dogID]
	out := make([]history.Entry, len(items))
	// orden de inserción invertido = más reciente primero ante empates
	for i, e := range items {
		out[len(items)-1-i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out, nil
}

// deleteByDog emula el ON DELETE CASCADE de Postgres.
func (r *HistoryRepo) deleteByDog(ctx context.Context, dogID string) {
	r.mu.Lock()
	removed, ok := r.byDog[dogID]
	delete(r.byDog, dogID)
	r.mu.Unlock()

	if !ok {
		return
	}
	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byDog[dogID] = append(removed, r.byDog[dogID]...)
	})
}
