// Package memory es un ObjectStorage en proceso para dev y tests.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/ports/storage"
)

type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]storage.Object // path -> objeto
}

// New crea un store cuyas URLs públicas son baseURL + "/" + path.
func New(baseURL string) *Store {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080/files"
	}
	return &Store{
		baseURL: baseURL,
		objects: make(map[string]storage.Object),
	}
}

func (s *Store) Upload(ctx context.Context, obj storage.Object) (string, error) {
	p := strings.Trim(obj.Path, "/")
	if p == "" {
		return "", errors.New("object path required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	obj.Path = p
	obj.Content = append([]byte(nil), obj.Content...)
	s.objects[p] = obj
	return s.baseURL + "/" + p, nil
}

func (s *Store) Delete(ctx context.Context, publicURL string) error {
	p, ok := strings.CutPrefix(publicURL, s.baseURL+"/")
	if !ok {
		return errors.New("url does not belong to this store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[p]; !exists {
		return apperr.ErrNotFound
	}
	delete(s.objects, p)
	return nil
}

// Get devuelve el objeto guardado en path (usado por tests).
func (s *Store) Get(path string) (storage.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[path]
	return o, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
