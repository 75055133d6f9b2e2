package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

// UserStore owns the in-memory team roster.
type UserStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
	order []string
	now   func() time.Time
}

// NewUserStore constructs an empty roster.
func NewUserStore() *UserStore {
	return &UserStore{
		byID: make(map[string]*models.User),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a user, enforcing email uniqueness.
func (s *UserStore) Create(user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range s.byID {
		if strings.ToLower(existing.Email) == email {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
	}

	now := s.now()
	rec := *user
	rec.ID = uuid.NewString()
	rec.Email = email
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.byID[rec.ID] = &rec
	s.order = append(s.order, rec.ID)

	out := rec
	return &out, nil
}

// GetByID returns a copy of the user or ErrNotFound.
func (s *UserStore) GetByID(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	out := *rec
	return &out, nil
}

// Update applies fn to the stored user under the lock and bumps UpdatedAt.
func (s *UserStore) Update(id string, fn func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	fn(rec)
	rec.UpdatedAt = s.now()
	out := *rec
	return &out, nil
}

// List returns users matching the filter in insertion order.
func (s *UserStore) List(filter models.UserFilter) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		rec := s.byID[id]
		if filter.Role != nil && rec.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && rec.Active != *filter.Active {
			continue
		}
		if q := strings.TrimSpace(filter.Search); q != "" {
			haystack := strings.ToLower(rec.FullName + " " + rec.Email)
			if !strings.Contains(haystack, strings.ToLower(q)) {
				continue
			}
		}
		result = append(result, *rec)
	}
	return result
}

// CountActive returns the number of active users, used for tier gating.
func (s *UserStore) CountActive() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.byID {
		if rec.Active {
			n++
		}
	}
	return n
}
