package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"pura-pata-api/internal/domain/history"
	"pura-pata-api/internal/domain/lifecycle"
)

type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Append(ctx context.Context, e history.Entry) error {
	var old *string
	if e.OldStatus != nil {
		s := string(*e.OldStatus)
		old = &s
	}

	_, err := querierFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO dog_status_history (id, dog_id, old_status, new_status, changed_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		e.ID,
		e.DogID,
		old,
		string(e.NewStatus),
		e.ChangedAt,
	)
	return mapError(err, "status history for dog", e.DogID)
}

// ListByDog: más recientes primero; seq desempata cambios en el mismo instante.
func (r *HistoryRepo) ListByDog(ctx context.Context, dogID string) ([]history.Entry, error) {
	rows, err := querierFrom(ctx, r.db).QueryContext(ctx, `
		SELECT id, dog_id, old_status, new_status, changed_at
		FROM dog_status_history
		WHERE dog_id = $1
		ORDER BY changed_at DESC, seq DESC
	`, dogID)
	if err != nil {
		return nil, mapError(err, "status history for dog", dogID)
	}
	defer rows.Close()

	out := make([]history.Entry, 0)
	for rows.Next() {
		var (
			e        history.Entry
			old      sql.NullString
			newState string
		)
		if err := rows.Scan(&e.ID, &e.DogID, &old, &newState, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		if old.Valid {
			s := lifecycle.Status(old.String)
			e.OldStatus = &s
		}
		e.NewStatus = lifecycle.Status(newState)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return out, nil
}
