package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/dogs"
	"pura-pata-api/internal/platform/logger"
	"pura-pata-api/internal/platform/validation"
	"pura-pata-api/internal/ports/auth"
)

var (
	ErrUserNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrEmailTaken   = fmt.Errorf("user with this email %w", apperr.ErrDuplicate)
	ErrUserExists   = fmt.Errorf("user %w", apperr.ErrDuplicate)
)

type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo: repo,
		log:  log.With(map[string]any{"module": "users"}),
		now:  time.Now,
	}
}

// ProfileInput es el body de register y sync.
type ProfileInput struct {
	Email    string  `json:"email" validate:"omitempty,email"`
	Name     string  `json:"name" validate:"required,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=255"`
}

// UpdateInput: nil = no tocar; "" limpia phone/location.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Location *string `json:"location" validate:"omitempty,max=255"`
}

// Register crea el perfil. Si el caller viene autenticado se usa su identidad como id.
func (s *Service) Register(ctx context.Context, callerID string, in ProfileInput) (User, error) {
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		return User{}, apperr.Invalid("email", "is required")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, err
	}

	id := strings.TrimSpace(callerID)
	if id == "" {
		id = uuid.NewString()
	}

	now := s.now().UTC()
	u := User{
		ID:        id,
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Phone:     trimPtr(in.Phone),
		Location:  trimPtr(in.Location),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}

	s.log.Info("user registered", map[string]any{"user_id": u.ID})
	return u, nil
}

// Sync es un upsert idempotente por identidad externa.
// Existe => actualiza nombre/teléfono/ubicación (el email no cambia).
// No existe => lo crea con el email del body o, si falta, el del token.
func (s *Service) Sync(ctx context.Context, claims auth.Claims, in ProfileInput) (User, error) {
	if strings.TrimSpace(claims.UserID) == "" {
		return User{}, apperr.ErrUnauthorized
	}
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}

	current, err := s.repo.GetByID(ctx, claims.UserID)
	switch {
	case err == nil:
		current.Name = strings.TrimSpace(in.Name)
		current.Phone = trimPtr(in.Phone)
		current.Location = trimPtr(in.Location)
		current.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, current); err != nil {
			return User{}, err
		}
		return current, nil

	case errors.Is(err, apperr.ErrNotFound):
		email := normalizeEmail(in.Email)
		if email == "" {
			email = normalizeEmail(claims.Email)
		}
		if email == "" {
			return User{}, apperr.Invalid("email", "is required")
		}

		now := s.now().UTC()
		u := User{
			ID:        claims.UserID,
			Email:     email,
			Name:      strings.TrimSpace(in.Name),
			Phone:     trimPtr(in.Phone),
			Location:  trimPtr(in.Location),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return User{}, err
		}
		s.log.Info("user synced", map[string]any{"user_id": u.ID, "created": true})
		return u, nil

	default:
		return User{}, err
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrUserNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateInput) (User, error) {
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return User{}, apperr.Invalid("name", "is required")
		}
		u.Name = name
	}
	if in.Phone != nil {
		u.Phone = trimPtr(in.Phone)
	}
	if in.Location != nil {
		u.Location = trimPtr(in.Location)
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Publishers implementa dogs.PublisherDirectory.
func (s *Service) Publishers(ctx context.Context, ids []string) (map[string]dogs.Publisher, error) {
	out := make(map[string]dogs.Publisher, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	items, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range items {
		out[u.ID] = dogs.Publisher{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
			Phone: u.Phone,
		}
	}
	return out, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
