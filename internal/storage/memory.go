// Package storage provides phrase store implementations: in-memory,
// relational (SQLite via sqlx) and a JSON document tree.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// Compile-time interface check.
var _ domain.PhraseStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory phrase store. Safe for concurrent access.
// Records are returned by value so callers never alias internal state.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	statements map[string]domain.Statement
	order      map[string]int // insertion sequence per record ID
	seq        int
	log        *logger.Logger
}

// NewMemoryStore creates an empty in-memory phrase store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		categories: make(map[string]domain.Category),
		statements: make(map[string]domain.Statement),
		order:      make(map[string]int),
		log:        log,
	}
}

// nextSeqLocked records the insertion order of a new record.
// Must be called with s.mu held.
func (s *MemoryStore) nextSeqLocked(id string) {
	s.seq++
	s.order[id] = s.seq
}

// ListCategories returns all categories in creation order.
func (s *MemoryStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out, nil
}

// GetCategory retrieves a category by ID.
func (s *MemoryStore) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// CreateCategory stores a new category with a fresh ID.
func (s *MemoryStore) CreateCategory(ctx context.Context, label string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.Category{ID: newID(), Label: label, Created: time.Now()}
	s.categories[c.ID] = c
	s.nextSeqLocked(c.ID)
	s.log.Debug("created category %s (%q)", c.ID, label)
	return &c, nil
}

// RenameCategory changes a category's label.
func (s *MemoryStore) RenameCategory(ctx context.Context, id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Label = label
	s.categories[id] = c
	return nil
}

// DeleteCategory removes a category. Its statements are left untouched.
func (s *MemoryStore) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.categories, id)
	delete(s.order, id)
	s.log.Debug("deleted category %s", id)
	return nil
}

// ListStatements returns a category's statements, highest rating first.
func (s *MemoryStore) ListStatements(ctx context.Context, categoryID string) ([]domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Statement
	for _, st := range s.statements {
		if st.CategoryID == categoryID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	s.log.Debug("listing statements of %s, count=%d", categoryID, len(out))
	return out, nil
}

// GetStatement retrieves a statement by ID.
func (s *MemoryStore) GetStatement(ctx context.Context, id string) (*domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.statements[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

// FindStatement returns the first statement in the category with exactly
// the given text.
func (s *MemoryStore) FindStatement(ctx context.Context, categoryID, text string) (*domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Statement
	for _, st := range s.statements {
		if st.CategoryID != categoryID || st.Text != text {
			continue
		}
		if found == nil || s.order[st.ID] < s.order[found.ID] {
			cp := st
			found = &cp
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// CreateStatement stores a new statement with a zero rating.
func (s *MemoryStore) CreateStatement(ctx context.Context, text, categoryID string) (*domain.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.Statement{ID: newID(), Text: text, CategoryID: categoryID, Created: time.Now()}
	s.statements[st.ID] = st
	s.nextSeqLocked(st.ID)
	s.log.Debug("created statement %s in %s", st.ID, categoryID)
	return &st, nil
}

// RenameStatement replaces a statement's text.
func (s *MemoryStore) RenameStatement(ctx context.Context, id, text string) error {
	return s.updateStatement(id, func(st *domain.Statement) { st.Text = text })
}

// IncrementRating adds one to the statement's rating.
func (s *MemoryStore) IncrementRating(ctx context.Context, id string) error {
	return s.updateStatement(id, func(st *domain.Statement) { st.Rating++ })
}

// SetRating overwrites the statement's rating.
func (s *MemoryStore) SetRating(ctx context.Context, id string, rating int) error {
	return s.updateStatement(id, func(st *domain.Statement) { st.Rating = rating })
}

// SetCategory moves a statement to another category.
func (s *MemoryStore) SetCategory(ctx context.Context, id, categoryID string) error {
	return s.updateStatement(id, func(st *domain.Statement) { st.CategoryID = categoryID })
}

func (s *MemoryStore) updateStatement(id string, fn func(*domain.Statement)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statements[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&st)
	s.statements[id] = st
	return nil
}

// DeleteStatement removes a statement by ID.
func (s *MemoryStore) DeleteStatement(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statements[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.statements, id)
	delete(s.order, id)
	s.log.Debug("deleted statement %s", id)
	return nil
}

// AllStatements returns every statement, including those whose category
// was deleted, in insertion order.
func (s *MemoryStore) AllStatements(ctx context.Context) ([]domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Statement, 0, len(s.statements))
	for _, st := range s.statements {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out, nil
}
