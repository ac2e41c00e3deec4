package history

import "context"

// Repository es append-only: no hay Update ni Delete.
// El borrado ocurre solo en cascada al borrar la publicación.
type Repository interface {
	Append(ctx context.Context, e Entry) error

	// ListByDog devuelve las entradas más recientes primero.
	ListByDog(ctx context.Context, dogID string) ([]Entry, error)
}
