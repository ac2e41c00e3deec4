package dogs

import (
	"context"
	"time"

	"pura-pata-api/internal/domain/lifecycle"
)

type Repository interface {
	Create(ctx context.Context, d Dog) error
	GetByID(ctx context.Context, id string) (Dog, error)

	// List aplica todos los predicados salvo Radius, ordena por created_at DESC
	// y pagina con Offset/Limit.
	List(ctx context.Context, f ListFilter) ([]Dog, error)

	// ListByPublisher ordena por created_at DESC. status nil = todos.
	ListByPublisher(ctx context.Context, publisherID string, status *lifecycle.Status) ([]Dog, error)

	Update(ctx context.Context, d Dog) error

	// UpdateStatus cambia el estado solo si el actual sigue siendo from.
	// Devuelve ErrStale si otro request ganó la carrera (o si no existe).
	UpdateStatus(ctx context.Context, id string, from, to lifecycle.Status, adoptedAt *time.Time, updatedAt time.Time) error

	// Delete borra la publicación y su historial.
	Delete(ctx context.Context, id string) error

	// FileReferenced indica si alguna publicación todavía usa la URL
	// como foto o certificado.
	FileReferenced(ctx context.Context, url string) (bool, error)
}
