package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"pura-pata-api/internal/domain/users"
)

var userColumns = []string{"id", "email", "name", "phone", "location", "created_at", "updated_at"}

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := querierFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (id, email, name, phone, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		u.ID,
		strings.ToLower(u.Email),
		u.Name,
		u.Phone,
		u.Location,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == "users_email_key" {
			return users.ErrEmailTaken
		}
		return users.ErrUserExists
	}
	return mapError(err, "user", u.ID)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByIDs usa squirrel.Eq con slice, que genera id IN (...).
func (r *UsersRepo) GetByIDs(ctx context.Context, ids []string) ([]users.User, error) {
	if len(ids) == 0 {
		return []users.User{}, nil
	}

	q, args, err := psql.Select(userColumns...).From("users").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select users: %w", err)
	}

	rows, err := querierFrom(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out := make([]users.User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// Update no cambia email ni created_at.
func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	res, err := querierFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE users
		SET name = $2, phone = $3, location = $4, updated_at = $5
		WHERE id = $1
	`,
		u.ID,
		u.Name,
		u.Phone,
		u.Location,
		u.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "user", u.ID)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UsersRepo) getOne(ctx context.Context, where squirrel.Eq) (users.User, error) {
	q, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return users.User{}, fmt.Errorf("build select user: %w", err)
	}

	u, err := scanUser(querierFrom(ctx, r.db).QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrUserNotFound
	}
	if err != nil {
		return users.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (users.User, error) {
	var (
		u               users.User
		phone, location sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &phone, &location, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return users.User{}, err
	}
	u.Phone = fromNullString(phone)
	u.Location = fromNullString(location)
	return u, nil
}
