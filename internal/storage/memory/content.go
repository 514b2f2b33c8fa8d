package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/storage"
)

type contentStore struct {
	mu sync.RWMutex

	properties map[int64]models.Property
	reviews    map[int64]models.Review
	services   map[int64]models.Service
	blocks     map[string]json.RawMessage
	nextID     int64
}

func newContentStore() *contentStore {
	return &contentStore{
		properties: make(map[int64]models.Property),
		reviews:    make(map[int64]models.Review),
		services:   make(map[int64]models.Service),
		blocks:     make(map[string]json.RawMessage),
	}
}

func (s *Store) ListProperties(_ context.Context, publishedOnly bool) ([]models.Property, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Property
	for _, p := range c.properties {
		if publishedOnly && p.Status != models.StatusPublished {
			continue
		}
		out = append(out, p)
	}
	sortByOrder(out, func(p models.Property) (int, int64) { return p.Order, p.ID })
	return out, nil
}

func (s *Store) ListFeaturedProperties(_ context.Context) ([]models.Property, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Property
	for _, p := range c.properties {
		if p.Featured && p.Status == models.StatusPublished {
			out = append(out, p)
		}
	}
	sortByOrder(out, func(p models.Property) (int, int64) { return p.FeaturedOrder, p.ID })
	return out, nil
}

func (s *Store) GetPropertyByID(_ context.Context, id int64) (*models.Property, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.properties[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProperty(_ context.Context, p models.Property) (*models.Property, error) {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	p.ID = c.nextID
	c.properties[p.ID] = p
	return &p, nil
}

func (s *Store) UpdateProperty(_ context.Context, p models.Property) (*models.Property, error) {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.properties[p.ID]; !ok {
		return nil, storage.ErrNotFound
	}
	c.properties[p.ID] = p
	return &p, nil
}

func (s *Store) DeleteProperty(_ context.Context, id int64) error {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.properties[id]; !ok {
		return storage.ErrNotFound
	}
	delete(c.properties, id)
	return nil
}

func (s *Store) ListReviews(_ context.Context, publishedOnly bool) ([]models.Review, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Review
	for _, r := range c.reviews {
		if publishedOnly && r.Status != models.StatusPublished {
			continue
		}
		out = append(out, r)
	}
	sortByOrder(out, func(r models.Review) (int, int64) { return r.Order, r.ID })
	return out, nil
}

func (s *Store) GetReviewByID(_ context.Context, id int64) (*models.Review, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.reviews[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (s *Store) CreateReview(_ context.Context, r models.Review) (*models.Review, error) {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	r.ID = c.nextID
	c.reviews[r.ID] = r
	return &r, nil
}

func (s *Store) UpdateReview(_ context.Context, r models.Review) (*models.Review, error) {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.reviews[r.ID]; !ok {
		return nil, storage.ErrNotFound
	}
	c.reviews[r.ID] = r
	return &r, nil
}

func (s *Store) DeleteReview(_ context.Context, id int64) error {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.reviews[id]; !ok {
		return storage.ErrNotFound
	}
	delete(c.reviews, id)
	return nil
}

func (s *Store) ListServices(_ context.Context, publishedOnly bool) ([]models.Service, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Service
	for _, svc := range c.services {
		if publishedOnly && svc.Status != models.StatusPublished {
			continue
		}
		out = append(out, svc)
	}
	sortByOrder(out, func(svc models.Service) (int, int64) { return svc.Order, svc.ID })
	return out, nil
}

func (s *Store) GetServiceByID(_ context.Context, id int64) (*models.Service, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	svc, ok := c.services[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &svc, nil
}

func (s *Store) CreateService(_ context.Context, svc models.Service) (*models.Service, error) {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	svc.ID = c.nextID
	c.services[svc.ID] = svc
	return &svc, nil
}

func (s *Store) UpdateService(_ context.Context, svc models.Service) (*models.Service, error) {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.services[svc.ID]; !ok {
		return nil, storage.ErrNotFound
	}
	c.services[svc.ID] = svc
	return &svc, nil
}

func (s *Store) DeleteService(_ context.Context, id int64) error {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.services[id]; !ok {
		return storage.ErrNotFound
	}
	delete(c.services, id)
	return nil
}

func (s *Store) GetContentBlock(_ context.Context, name string) (json.RawMessage, error) {
	c := s.content
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.blocks[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

func (s *Store) UpsertContentBlock(_ context.Context, name string, doc json.RawMessage) error {
	c := s.content
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocks[name] = append(json.RawMessage(nil), doc...)
	return nil
}

func sortByOrder[T any](items []T, key func(T) (int, int64)) {
	sort.Slice(items, func(i, j int) bool {
		oi, idi := key(items[i])
		oj, idj := key(items[j])
		if oi != oj {
			return oi < oj
		}
		return idi < idj
	})
}
