package dogs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/geo"
	"pura-pata-api/internal/domain/history"
	"pura-pata-api/internal/domain/lifecycle"
	"pura-pata-api/internal/platform/logger"
	"pura-pata-api/internal/platform/metrics"
	"pura-pata-api/internal/platform/validation"
	"pura-pata-api/internal/ports/tx"
)

const (
	// MaxPhotosLimit es el tope duro (la tabla tiene el mismo CHECK).
	MaxPhotosLimit   = 5
	DefaultMaxPhotos = MaxPhotosLimit
)

var (
	ErrDogNotFound = fmt.Errorf("dog %w", apperr.ErrNotFound)
	ErrNotOwner    = fmt.Errorf("%w: not the publisher of this dog", apperr.ErrForbidden)

	// ErrStale lo devuelve el repo cuando el estado cambió entre la lectura y el update.
	ErrStale = errors.New("dog status changed concurrently")
)

// PublisherDirectory resuelve resúmenes de usuarios en lote.
// Los ids que no existen simplemente no aparecen en el map.
type PublisherDirectory interface {
	Publishers(ctx context.Context, ids []string) (map[string]Publisher, error)
}

// FileRemover borra archivos del almacenamiento externo por URL pública.
type FileRemover interface {
	Delete(ctx context.Context, publicURL string) error
}

type Deps struct {
	Repo       Repository
	History    *history.Service
	Tx         tx.Manager
	Publishers PublisherDirectory

	// opcionales
	Files     FileRemover
	Logger    logger.Logger
	Metrics   *metrics.Metrics
	MaxPhotos int
}

type Service struct {
	repo       Repository
	history    *history.Service
	tx         tx.Manager
	publishers PublisherDirectory
	files      FileRemover
	log        logger.Logger
	metrics    *metrics.Metrics
	maxPhotos  int

	now func() time.Time
}

func NewService(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	maxPhotos := d.MaxPhotos
	if maxPhotos <= 0 {
		maxPhotos = DefaultMaxPhotos
	}
	if maxPhotos > MaxPhotosLimit {
		maxPhotos = MaxPhotosLimit
	}
	return &Service{
		repo:       d.Repo,
		history:    d.History,
		tx:         d.Tx,
		publishers: d.Publishers,
		files:      d.Files,
		log:        log.With(map[string]any{"module": "dogs"}),
		metrics:    d.Metrics,
		maxPhotos:  maxPhotos,
		now:        time.Now,
	}
}

func (s *Service) MaxPhotos() int { return s.maxPhotos }

// Create guarda la publicación y su primer registro de historial en una sola tx.
func (s *Service) Create(ctx context.Context, publisherID string, in CreateInput) (Dog, error) {
	if strings.TrimSpace(publisherID) == "" {
		return Dog{}, apperr.ErrUnauthorized
	}
	if err := s.validate(in); err != nil {
		return Dog{}, err
	}
	if err := s.ensurePublisher(ctx, publisherID); err != nil {
		return Dog{}, err
	}

	now := s.now().UTC()
	d := Dog{
		ID:           uuid.NewString(),
		PublisherID:  publisherID,
		Name:         strings.TrimSpace(in.Name),
		AgeYears:     in.AgeYears,
		AgeMonths:    in.AgeMonths,
		Breed:        strings.TrimSpace(in.Breed),
		Size:         in.Size,
		Gender:       in.Gender,
		Color:        strings.TrimSpace(in.Color),
		Description:  trimPtr(in.Description),
		Vaccinated:   in.Vaccinated,
		Sterilized:   in.Sterilized,
		Dewormed:     in.Dewormed,
		SpecialNeeds: trimPtr(in.SpecialNeeds),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Address:      trimPtr(in.Address),
		Province:     trimPtr(in.Province),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		ContactEmail: trimPtr(in.ContactEmail),
		Photos:       append([]string(nil), in.Photos...),
		Certificate:  trimPtr(in.Certificate),
		Status:       lifecycle.Initial,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		_, err := s.history.Record(ctx, d.ID, nil, d.Status, now)
		return err
	})
	if err != nil {
		return Dog{}, fmt.Errorf("create dog: %w", err)
	}

	s.metrics.DogCreated()
	s.log.Info("dog created", map[string]any{
		"dog_id":       d.ID,
		"publisher_id": publisherID,
		"photos":       len(d.Photos),
	})
	return d, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Dog, error) {
	if strings.TrimSpace(id) == "" {
		return Dog{}, ErrDogNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// EnsureExists devuelve ErrNotFound si la publicación no existe.
func (s *Service) EnsureExists(ctx context.Context, id string) error {
	_, err := s.GetByID(ctx, id)
	return err
}

// Get devuelve el detalle con el publicador (incluye teléfono).
func (s *Service) Get(ctx context.Context, id string) (WithPublisher, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return WithPublisher{}, err
	}
	out, err := s.attachPublishers(ctx, []Dog{d}, true)
	if err != nil {
		return WithPublisher{}, err
	}
	return out[0], nil
}

// List aplica filtros, pagina y después filtra por radio sobre la página.
func (s *Service) List(ctx context.Context, f ListFilter) ([]WithPublisher, error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list dogs: %w", err)
	}

	if f.Radius != nil {
		items = geo.Filter(items, *f.Radius, Dog.Position)
	}

	return s.attachPublishers(ctx, items, false)
}

// ListByPublisher devuelve las publicaciones de un usuario. status nil = todas.
func (s *Service) ListByPublisher(ctx context.Context, publisherID string, status *lifecycle.Status) ([]Dog, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.Invalid("status", "must be one of available, reserved, adopted")
	}
	return s.repo.ListByPublisher(ctx, publisherID, status)
}

// ListAvailableByPublisher es la vista pública: solo disponibles y 404 si el usuario no existe.
func (s *Service) ListAvailableByPublisher(ctx context.Context, publisherID string) ([]Dog, error) {
	if err := s.ensurePublisher(ctx, publisherID); err != nil {
		return nil, err
	}
	st := lifecycle.StatusAvailable
	return s.repo.ListByPublisher(ctx, publisherID, &st)
}

// AuthorizeOwner carga la publicación y exige que callerID sea el publicador.
// 404 antes que 403; el payload no se mira.
func (s *Service) AuthorizeOwner(ctx context.Context, id, callerID string) (Dog, error) {
	if strings.TrimSpace(callerID) == "" {
		return Dog{}, apperr.ErrUnauthorized
	}
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return Dog{}, err
	}
	if d.PublisherID != callerID {
		return Dog{}, ErrNotOwner
	}
	return d, nil
}

// Update reemplaza solo los campos presentes y revalida el resultado completo.
func (s *Service) Update(ctx context.Context, id, callerID string, in UpdateInput) (Dog, error) {
	current, err := s.AuthorizeOwner(ctx, id, callerID)
	if err != nil {
		return Dog{}, err
	}

	next := in.apply(current)
	if err := s.validate(next.asInput()); err != nil {
		return Dog{}, err
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, next); err != nil {
		return Dog{}, fmt.Errorf("update dog: %w", err)
	}
	return next, nil
}

// ChangeStatus aplica la máquina de estados. Pedir el estado actual es un no-op
// (no genera historial). adopted es terminal.
func (s *Service) ChangeStatus(ctx context.Context, id, callerID string, to lifecycle.Status) (Dog, error) {
	current, err := s.AuthorizeOwner(ctx, id, callerID)
	if err != nil {
		return Dog{}, err
	}

	plan, err := lifecycle.Plan(current.Status, to)
	if err != nil {
		return Dog{}, err
	}
	if !plan.Changed {
		return current, nil
	}

	now := s.now().UTC()
	var adoptedAt *time.Time
	if plan.Adopted {
		adoptedAt = &now
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, id, plan.From, plan.To, adoptedAt, now); err != nil {
			return err
		}
		from := plan.From
		_, err := s.history.Record(ctx, id, &from, plan.To, now)
		return err
	})
	if errors.Is(err, ErrStale) {
		return Dog{}, s.staleError(ctx, id)
	}
	if err != nil {
		return Dog{}, fmt.Errorf("change dog status: %w", err)
	}

	current.Status = plan.To
	current.UpdatedAt = now
	if adoptedAt != nil {
		current.AdoptedAt = adoptedAt
	}

	s.metrics.StatusTransition(plan.From.String(), plan.To.String())
	s.log.Info("dog status changed", map[string]any{
		"dog_id": id,
		"from":   plan.From.String(),
		"to":     plan.To.String(),
	})
	return current, nil
}

// staleError decide qué responder cuando el update optimista no tocó filas.
func (s *Service) staleError(ctx context.Context, id string) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		return lifecycle.ErrTerminal
	}
	return fmt.Errorf("%w: status was changed by another request", apperr.ErrConflict)
}

// Delete borra la publicación (el historial cae en cascada) y después
// intenta borrar sus archivos. Fallas de storage no afectan el resultado.
func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	d, err := s.AuthorizeOwner(ctx, id, callerID)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete dog: %w", err)
	}
	s.metrics.DogDeleted()

	files := d.Files()
	removed := s.RemoveFiles(ctx, files)
	s.log.Info("dog deleted", map[string]any{
		"dog_id":        id,
		"files":         len(files),
		"files_removed": removed,
	})
	return nil
}

// RemoveFiles borra cada URL una vez, sin reintentos, y devuelve cuántas se borraron.
// Las URLs que otra publicación sigue usando se conservan; si la consulta
// falla, también.
func (s *Service) RemoveFiles(ctx context.Context, urls []string) int {
	if s.files == nil || len(urls) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(urls))
	removed, failed := 0, 0
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		used, err := s.repo.FileReferenced(ctx, u)
		if err != nil {
			failed++
			s.log.Warn("file reference check failed", map[string]any{"url": u, "error": err.Error()})
			continue
		}
		if used {
			s.log.Debug("file still referenced, kept", map[string]any{"url": u})
			continue
		}

		if err := s.files.Delete(ctx, u); err != nil {
			failed++
			s.log.Warn("file cleanup failed", map[string]any{"url": u, "error": err.Error()})
			continue
		}
		removed++
	}

	s.metrics.FilesCleaned(true, removed)
	s.metrics.FilesCleaned(false, failed)
	return removed
}

func (s *Service) validate(in CreateInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if n := len(in.Photos); n < 1 || n > s.maxPhotos {
		return apperr.Invalid("photos", fmt.Sprintf("must contain between 1 and %d photos", s.maxPhotos))
	}
	return nil
}

func (s *Service) ensurePublisher(ctx context.Context, userID string) error {
	found, err := s.publishers.Publishers(ctx, []string{userID})
	if err != nil {
		return fmt.Errorf("lookup publisher: %w", err)
	}
	if _, ok := found[userID]; !ok {
		return fmt.Errorf("user %w", apperr.ErrNotFound)
	}
	return nil
}

// attachPublishers resuelve los publicadores en una sola consulta.
// withPhone=false en listados (privacidad).
func (s *Service) attachPublishers(ctx context.Context, items []Dog, withPhone bool) ([]WithPublisher, error) {
	out := make([]WithPublisher, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, d := range items {
		if _, ok := seen[d.PublisherID]; ok {
			continue
		}
		seen[d.PublisherID] = struct{}{}
		ids = append(ids, d.PublisherID)
	}

	pubs, err := s.publishers.Publishers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup publishers: %w", err)
	}

	for _, d := range items {
		wp := WithPublisher{Dog: d}
		if p, ok := pubs[d.PublisherID]; ok {
			if !withPhone {
				p.Phone = nil
			}
			wp.Publisher = &p
		}
		out = append(out, wp)
	}
	return out, nil
}
