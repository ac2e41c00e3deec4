package memory

import (
	"context"
	"sync"
)

type txCtxKey struct{}

// txLog acumula deshacer-acciones registradas por los repos durante una tx.
type txLog struct {
	undo []func()
}

func (l *txLog) rollback() {
	for i := len(l.undo) - 1; i >= 0; i-- {
		l.undo[i]()
	}
	l.undo = nil
}

// TxManager emula transacciones en memoria: serializa los bloques y,
// si fn falla o hace panic, revierte lo que los repos escribieron dentro.
type TxManager struct {
	mu sync.Mutex
}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	// anidado: reutiliza la tx externa
	if _, ok := ctx.Value(txCtxKey{}).(*txLog); ok {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := &txLog{}
	defer func() {
		if r := recover(); r != nil {
			log.rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txCtxKey{}, log)); err != nil {
		log.rollback()
		return err
	}
	return nil
}

// onRollback registra undo si ctx viene de RunInTx. Fuera de tx no hace nada.
func onRollback(ctx context.Context, undo func()) {
	if l, ok := ctx.Value(txCtxKey{}).(*txLog); ok {
		l.undo = append(l.undo, undo)
	}
}
