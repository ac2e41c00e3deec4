package tx

import "context"

// Manager ejecuta fn dentro de una transacción.
// Los repositorios toman la transacción del ctx que recibe fn.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
