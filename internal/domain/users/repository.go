package users

import "context"

type Repository interface {
	// Create devuelve apperr.ErrDuplicate si el id o el email ya existen.
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// GetByIDs ignora ids inexistentes.
	GetByIDs(ctx context.Context, ids []string) ([]User, error)

	Update(ctx context.Context, u User) error
}
