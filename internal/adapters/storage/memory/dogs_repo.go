package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"pura-pata-api/internal/domain/dogs"
	"pura-pata-api/internal/domain/lifecycle"
)

type DogRepo struct {
	mu   sync.RWMutex
	byID map[string]dogs.Dog

	// seq rompe empates de created_at (más nuevo primero)
	seq  map[string]int64
	next int64
	hist *HistoryRepo
}

// NewDogRepo recibe el repo de historial para emular el borrado en cascada.
func NewDogRepo(hist *HistoryRepo) *DogRepo {
	return &DogRepo{
		byID: make(map[string]dogs.Dog),
		seq:  make(map[string]int64),
		hist: hist,
	}
}

func (r *DogRepo) Create(ctx context.Context, d dogs.Dog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(d.ID) == "" {
		return errors.New("dog id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return errors.New("dog already exists")
	}
	r.next++
	r.byID[d.ID] = clone(d)
	r.seq[d.ID] = r.next

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.byID, d.ID)
		delete(r.seq, d.ID)
	})
	return nil
}

func (r *DogRepo) GetByID(ctx context.Context, id string) (dogs.Dog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return dogs.Dog{}, dogs.ErrDogNotFound
	}
	return clone(d), nil
}

func (r *DogRepo) List(ctx context.Context, f dogs.ListFilter) ([]dogs.Dog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dogs.Dog, 0)
	for _, d := range r.byID {
		if matches(d, f) {
			out = append(out, clone(d))
		}
	}
	r.sortNewestFirst(out)

	if f.Offset >= len(out) {
		return []dogs.Dog{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *DogRepo) ListByPublisher(ctx context.Context, publisherID string, status *lifecycle.Status) ([]dogs.Dog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dogs.Dog, 0)
	for _, d := range r.byID {
		if d.PublisherID != publisherID {
			continue
		}
		if status != nil && d.Status != *status {
			continue
		}
		out = append(out, clone(d))
	}
	r.sortNewestFirst(out)
	return out, nil
}

func (r *DogRepo) Update(ctx context.Context, d dogs.Dog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[d.ID]
	if !ok {
		return dogs.ErrDogNotFound
	}
	// status/adopted_at/created_at solo cambian por sus caminos propios
	d.Status = prev.Status
	d.AdoptedAt = prev.AdoptedAt
	d.CreatedAt = prev.CreatedAt
	d.PublisherID = prev.PublisherID
	r.byID[d.ID] = clone(d)

	onRollback(ctx, r.restore(prev))
	return nil
}

func (r *DogRepo) UpdateStatus(ctx context.Context, id string, from, to lifecycle.Status, adoptedAt *time.Time, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[id]
	if !ok || prev.Status != from {
		return dogs.ErrStale
	}

	next := clone(prev)
	next.Status = to
	next.UpdatedAt = updatedAt
	if adoptedAt != nil {
		t := *adoptedAt
		next.AdoptedAt = &t
	}
	r.byID[id] = next

	onRollback(ctx, r.restore(prev))
	return nil
}

func (r *DogRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	prev, ok := r.byID[id]
	seq := r.seq[id]
	if ok {
		delete(r.byID, id)
		delete(r.seq, id)
	}
	r.mu.Unlock()

	if !ok {
		return dogs.ErrDogNotFound
	}

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byID[id] = prev
		r.seq[id] = seq
	})

	if r.hist != nil {
		r.hist.deleteByDog(ctx, id)
	}
	return nil
}

func (r *DogRepo) FileReferenced(ctx context.Context, url string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.byID {
		if d.Certificate != nil && *d.Certificate == url {
			return true, nil
		}
		for _, p := range d.Photos {
			if p == url {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *DogRepo) restore(prev dogs.Dog) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.byID[prev.ID]; ok {
			r.byID[prev.ID] = prev
		}
	}
}

// sortNewestFirst requiere r.mu tomado.
func (r *DogRepo) sortNewestFirst(items []dogs.Dog) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return r.seq[items[i].ID] > r.seq[items[j].ID]
	})
}

func matches(d dogs.Dog, f dogs.ListFilter) bool {
	if f.Status != nil && d.Status != *f.Status {
		return false
	}
	if f.Size != nil && d.Size != *f.Size {
		return false
	}
	if f.Gender != nil && d.Gender != *f.Gender {
		return false
	}
	if f.Province != nil && (d.Province == nil || *d.Province != *f.Province) {
		return false
	}
	if f.AgeMin != nil && d.AgeYears < *f.AgeMin {
		return false
	}
	if f.AgeMax != nil && d.AgeYears > *f.AgeMax {
		return false
	}
	return true
}

// clone evita que quien llama comparta el slice de fotos con el store.
func clone(d dogs.Dog) dogs.Dog {
	d.Photos = append([]string(nil), d.Photos...)
	return d
}
