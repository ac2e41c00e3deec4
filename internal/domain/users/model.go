package users

import "time"

// User es el perfil local de una identidad emitida por el proveedor externo.
// ID coincide con el claim "sub" del token.
type User struct {
	ID       string
	Email    string
	Name     string
	Phone    *string
	Location *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
