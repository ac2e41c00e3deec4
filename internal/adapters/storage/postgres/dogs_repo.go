package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"

	"pura-pata-api/internal/domain/dogs"
	"pura-pata-api/internal/domain/lifecycle"
)

var dogColumns = []string{
	"id", "publisher_id",
	"name", "age_years", "age_months", "breed", "size", "gender", "color", "description",
	"vaccinated", "sterilized", "dewormed", "special_needs",
	"latitude", "longitude", "address", "province",
	"contact_phone", "contact_email",
	"photos", "certificate",
	"status", "created_at", "updated_at", "adopted_at",
}

type DogsRepo struct {
	db    *sql.DB
	types *pgtype.Map
}

func NewDogsRepo(db *sql.DB) *DogsRepo {
	return &DogsRepo{db: db, types: pgtype.NewMap()}
}

func (r *DogsRepo) Create(ctx context.Context, d dogs.Dog) error {
	q, args, err := psql.Insert("dogs").
		Columns(dogColumns...).
		Values(
			d.ID, d.PublisherID,
			d.Name, d.AgeYears, d.AgeMonths, d.Breed, string(d.Size), string(d.Gender), d.Color, d.Description,
			d.Vaccinated, d.Sterilized, d.Dewormed, d.SpecialNeeds,
			d.Latitude, d.Longitude, d.Address, d.Province,
			d.ContactPhone, d.ContactEmail,
			d.Photos, d.Certificate,
			string(d.Status), d.CreatedAt, d.UpdatedAt, d.AdoptedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert dog: %w", err)
	}

	_, err = querierFrom(ctx, r.db).ExecContext(ctx, q, args...)
	return mapError(err, "dog", d.ID)
}

func (r *DogsRepo) GetByID(ctx context.Context, id string) (dogs.Dog, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dogs.Dog{}, dogs.ErrDogNotFound
	}

	q, args, err := psql.Select(dogColumns...).From("dogs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return dogs.Dog{}, fmt.Errorf("build select dog: %w", err)
	}

	d, err := r.scan(querierFrom(ctx, r.db).QueryRowContext(ctx, q, args...))
	if err != nil {
		return dogs.Dog{}, mapError(err, "dog", id)
	}
	return d, nil
}

// List compone los predicados con squirrel. El radio no se aplica acá.
func (r *DogsRepo) List(ctx context.Context, f dogs.ListFilter) ([]dogs.Dog, error) {
	sb := psql.Select(dogColumns...).From("dogs")

	if f.Status != nil {
		sb = sb.Where(squirrel.Eq{"status": string(*f.Status)})
	}
	if f.Size != nil {
		sb = sb.Where(squirrel.Eq{"size": string(*f.Size)})
	}
	if f.Gender != nil {
		sb = sb.Where(squirrel.Eq{"gender": string(*f.Gender)})
	}
	if f.Province != nil {
		sb = sb.Where(squirrel.Eq{"province": *f.Province})
	}
	if f.AgeMin != nil {
		sb = sb.Where(squirrel.GtOrEq{"age_years": *f.AgeMin})
	}
	if f.AgeMax != nil {
		sb = sb.Where(squirrel.LtOrEq{"age_years": *f.AgeMax})
	}

	sb = sb.OrderBy("created_at DESC", "id DESC")
	if f.Limit > 0 {
		sb = sb.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		sb = sb.Offset(uint64(f.Offset))
	}

	return r.query(ctx, sb)
}

func (r *DogsRepo) ListByPublisher(ctx context.Context, publisherID string, status *lifecycle.Status) ([]dogs.Dog, error) {
	sb := psql.Select(dogColumns...).From("dogs").Where(squirrel.Eq{"publisher_id": publisherID})
	if status != nil {
		sb = sb.Where(squirrel.Eq{"status": string(*status)})
	}
	return r.query(ctx, sb.OrderBy("created_at DESC", "id DESC"))
}

// Update no toca status, adopted_at, created_at ni publisher_id.
func (r *DogsRepo) Update(ctx context.Context, d dogs.Dog) error {
	q, args, err := psql.Update("dogs").
		SetMap(map[string]any{
			"name":          d.Name,
			"age_years":     d.AgeYears,
			"age_months":    d.AgeMonths,
			"breed":         d.Breed,
			"size":          string(d.Size),
			"gender":        string(d.Gender),
			"color":         d.Color,
			"description":   d.Description,
			"vaccinated":    d.Vaccinated,
			"sterilized":    d.Sterilized,
			"dewormed":      d.Dewormed,
			"special_needs": d.SpecialNeeds,
			"latitude":      d.Latitude,
			"longitude":     d.Longitude,
			"address":       d.Address,
			"province":      d.Province,
			"contact_phone": d.ContactPhone,
			"contact_email": d.ContactEmail,
			"photos":        d.Photos,
			"certificate":   d.Certificate,
			"updated_at":    d.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": d.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update dog: %w", err)
	}

	res, err := querierFrom(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err, "dog", d.ID)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dogs.ErrDogNotFound
	}
	return nil
}

// UpdateStatus es optimista: solo actualiza si el estado sigue siendo from.
func (r *DogsRepo) UpdateStatus(ctx context.Context, id string, from, to lifecycle.Status, adoptedAt *time.Time, updatedAt time.Time) error {
	res, err := querierFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE dogs
		SET
			status = $3,
			adopted_at = COALESCE($4, adopted_at),
			updated_at = $5
		WHERE id = $1 AND status = $2
	`,
		id,
		string(from),
		string(to),
		adoptedAt,
		updatedAt,
	)
	if err != nil {
		return mapError(err, "dog", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dogs.ErrStale
	}
	return nil
}

// Delete borra la publicación; el historial cae por ON DELETE CASCADE.
func (r *DogsRepo) Delete(ctx context.Context, id string) error {
	res, err := querierFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM dogs WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "dog", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dogs.ErrDogNotFound
	}
	return nil
}

// FileReferenced usa idx_dogs_photos (GIN) para el operador @>.
func (r *DogsRepo) FileReferenced(ctx context.Context, url string) (bool, error) {
	var found bool
	err := querierFrom(ctx, r.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM dogs
			WHERE photos @> ARRAY[$1]::text[] OR certificate = $1
		)
	`, url).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check file reference: %w", err)
	}
	return found, nil
}

func (r *DogsRepo) query(ctx context.Context, sb squirrel.SelectBuilder) ([]dogs.Dog, error) {
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select dogs: %w", err)
	}

	rows, err := querierFrom(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query dogs: %w", err)
	}
	defer rows.Close()

	out := make([]dogs.Dog, 0)
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dog: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dogs: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DogsRepo) scan(row rowScanner) (dogs.Dog, error) {
	var (
		d                               dogs.Dog
		size, gender, status            string
		description, specialNeeds       sql.NullString
		address, province, email, certf sql.NullString
		adoptedAt                       sql.NullTime
	)

	err := row.Scan(
		&d.ID, &d.PublisherID,
		&d.Name, &d.AgeYears, &d.AgeMonths, &d.Breed, &size, &gender, &d.Color, &description,
		&d.Vaccinated, &d.Sterilized, &d.Dewormed, &specialNeeds,
		&d.Latitude, &d.Longitude, &address, &province,
		&d.ContactPhone, &email,
		r.types.SQLScanner(&d.Photos), &certf,
		&status, &d.CreatedAt, &d.UpdatedAt, &adoptedAt,
	)
	if err != nil {
		return dogs.Dog{}, err
	}

	d.Size = dogs.Size(size)
	d.Gender = dogs.Gender(gender)
	d.Status = lifecycle.Status(status)
	d.Description = fromNullString(description)
	d.SpecialNeeds = fromNullString(specialNeeds)
	d.Address = fromNullString(address)
	d.Province = fromNullString(province)
	d.ContactEmail = fromNullString(email)
	d.Certificate = fromNullString(certf)
	if adoptedAt.Valid {
		t := adoptedAt.Time
		d.AdoptedAt = &t
	}
	return d, nil
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
