package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/lifecycle"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Record agrega una entrada. Si at es cero se usa el reloj del service.
// Debe llamarse con el ctx de la transacción que cambia el estado.
func (s *Service) Record(ctx context.Context, dogID string, old *lifecycle.Status, next lifecycle.Status, at time.Time) (Entry, error) {
	if strings.TrimSpace(dogID) == "" {
		return Entry{}, apperr.Invalid("dog_id", "is required")
	}
	if !next.Valid() {
		return Entry{}, apperr.Invalid("new_status", "must be one of available, reserved, adopted")
	}
	if old != nil && !old.Valid() {
		return Entry{}, apperr.Invalid("old_status", "must be one of available, reserved, adopted")
	}
	if at.IsZero() {
		at = s.now()
	}

	e := Entry{
		ID:        uuid.NewString(),
		DogID:     dogID,
		OldStatus: old,
		NewStatus: next,
		ChangedAt: at.UTC(),
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("append history: %w", err)
	}
	return e, nil
}

func (s *Service) ListByDog(ctx context.Context, dogID string) ([]Entry, error) {
	return s.repo.ListByDog(ctx, dogID)
}
