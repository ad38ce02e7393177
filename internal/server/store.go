package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"restaurants/internal/shared"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("restaurant not found")
	ErrIDCollision = errors.New("generated restaurant id already in use")
)

// Store owns the restaurant records for the life of the process.
// Implementations must make each search-then-mutate step atomic.
type Store interface {
	List(ctx context.Context) ([]shared.Restaurant, error)
	Get(ctx context.Context, id string) (shared.Restaurant, error)
	Create(ctx context.Context, r shared.Restaurant) (shared.Restaurant, error)
	Update(ctx context.Context, id string, patch shared.RestaurantPatch) error
	Delete(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}

// IDFunc produces record ids. The default is uuid.NewString.
type IDFunc func() string

// SeedRestaurants returns the records every new store starts with.
func SeedRestaurants() []shared.Restaurant {
	return []shared.Restaurant{
		{ID: "4Oj9hUC-EwrYdn9uOYeui", Name: "Puerto Viejo", Cuisine: "dominican", HasTakeout: true},
		{ID: "8NBUuV1hY1mUEomWxnws1", Name: "Sadas", Cuisine: "japanese", HasTakeout: true},
	}
}

type MemoryStore struct {
	mu sync.RWMutex

	restaurants []shared.Restaurant
	newID       IDFunc
	log         *slog.Logger
}

func NewMemoryStore(log *slog.Logger, newID IDFunc, seed []shared.Restaurant) *MemoryStore {
	if newID == nil {
		newID = uuid.NewString
	}
	if log == nil {
		log = slog.Default()
	}
	rs := make([]shared.Restaurant, len(seed))
	copy(rs, seed)
	return &MemoryStore{
		restaurants: rs,
		newID:       newID,
		log:         log,
	}
}

// indexOf returns the position of id, or -1. Callers hold mu.
func (s *MemoryStore) indexOf(id string) int {
	for i, r := range s.restaurants {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) List(_ context.Context) ([]shared.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shared.Restaurant, len(s.restaurants))
	copy(out, s.restaurants)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (shared.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i == -1 {
		return shared.Restaurant{}, ErrNotFound
	}
	return s.restaurants[i], nil
}

func (s *MemoryStore) Create(_ context.Context, r shared.Restaurant) (shared.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.newID()
	if s.indexOf(r.ID) != -1 {
		s.log.Error("restaurant id collision", "id", r.ID)
		return shared.Restaurant{}, ErrIDCollision
	}
	s.restaurants = append(s.restaurants, r)
	return r, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch shared.RestaurantPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return ErrNotFound
	}
	s.restaurants[i] = patch.Apply(s.restaurants[i])
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return ErrNotFound
	}
	s.restaurants = append(s.restaurants[:i], s.restaurants[i+1:]...)
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.restaurants), nil
}
