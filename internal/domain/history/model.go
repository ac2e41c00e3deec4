package history

import (
	"time"

	"pura-pata-api/internal/domain/lifecycle"
)

// Entry es un registro inmutable de cambio de estado de una publicación.
// OldStatus es nil solo en el registro de creación.
type Entry struct {
	ID    string
	DogID string

	OldStatus *lifecycle.Status
	NewStatus lifecycle.Status

	ChangedAt time.Time
}
