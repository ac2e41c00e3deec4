// Package lifecycle modela el ciclo de vida de una publicación:
// available <-> reserved, cualquiera -> adopted, y adopted es terminal.
package lifecycle

import (
	"fmt"
	"strings"

	"pura-pata-api/internal/domain/apperr"
)

// Status es el estado de una publicación.
// @Enum available, reserved, adopted
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusAdopted   Status = "adopted"
)

// Initial es el estado con el que nace toda publicación.
const Initial = StatusAvailable

// ErrTerminal se devuelve al intentar mover una publicación ya adoptada.
var ErrTerminal = fmt.Errorf("%w: cannot change status of adopted dog", apperr.ErrConflict)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusAdopted:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool { return s == StatusAdopted }

func (s Status) String() string { return string(s) }

// Parse normaliza y valida un status recibido desde afuera.
func Parse(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperr.Invalid("status", "must be one of available, reserved, adopted")
	}
	return s, nil
}

// Check decide si from -> to está permitido.
// Cualquier transición vale salvo desde adopted.
func Check(from, to Status) error {
	if !to.Valid() {
		return apperr.Invalid("status", "must be one of available, reserved, adopted")
	}
	if from.Terminal() {
		return ErrTerminal
	}
	return nil
}

// Transition es el resultado de aplicar un cambio de estado válido.
type Transition struct {
	From Status
	To   Status

	// Changed es false si to == from (no-op, no genera historial).
	Changed bool

	// Adopted es true si la transición entra en adopted y hay que sellar adopted_at.
	Adopted bool
}

// Plan valida y describe la transición from -> to.
func Plan(from, to Status) (Transition, error) {
	if err := Check(from, to); err != nil {
		return Transition{}, err
	}
	return Transition{
		From:    from,
		To:      to,
		Changed: from != to,
		Adopted: to == StatusAdopted && from != StatusAdopted,
	}, nil
}
