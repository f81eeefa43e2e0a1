package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// Compile-time interface check.
var _ domain.PhraseStore = (*DocStore)(nil)

// DefaultUser is the user key used when no account is configured.
const DefaultUser = "local"

// The on-disk tree:
//
//	{"users": {"<uid>": {"Category": {"<catId>": {
//	    "label": "...", "created": <ms>,
//	    "statements": {"<stId>": {"text": "...", "categoryId": "<catId>",
//	                              "created": <ms>, "rating": 0}}}}}}}
type docTree struct {
	Users map[string]*docUser `json:"users"`
}

type docUser struct {
	Category map[string]*docCategory `json:"Category"`
}

type docCategory struct {
	Label      string                   `json:"label"`
	Created    int64                    `json:"created"`
	Seq        int                      `json:"seq"`
	Statements map[string]*docStatement `json:"statements"`
}

type docStatement struct {
	Text       string `json:"text"`
	CategoryID string `json:"categoryId"`
	Created    int64  `json:"created"`
	Rating     int    `json:"rating"`
	Seq        int    `json:"seq"`
}

// DocStore keeps a user's phrases in a JSON document tree on disk.
// Statements live inside their category's node, so deleting a category
// removes its statements too. Every mutation rewrites the file.
type DocStore struct {
	mu   sync.Mutex
	path string
	uid  string
	tree docTree
	seq  int
	log  *logger.Logger
}

// DocOption configures a DocStore.
type DocOption func(*DocStore)

// WithUser selects the user subtree. Defaults to DefaultUser.
func WithUser(uid string) DocOption {
	return func(s *DocStore) { s.uid = uid }
}

// OpenDocStore loads the document at path, creating an empty tree if the
// file does not exist yet.
func OpenDocStore(path string, log *logger.Logger, opts ...DocOption) (*DocStore, error) {
	s := &DocStore{
		path: path,
		uid:  DefaultUser,
		tree: docTree{Users: make(map[string]*docUser)},
		log:  log,
	}
	for _, o := range opts {
		o(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug("doc store %s does not exist yet", path)
	case err != nil:
		return nil, fmt.Errorf("read doc store: %w", err)
	default:
		if err := json.Unmarshal(data, &s.tree); err != nil {
			return nil, fmt.Errorf("parse doc store: %w", err)
		}
	}
	if s.tree.Users == nil {
		s.tree.Users = make(map[string]*docUser)
	}

	// Resume the insertion sequence after the highest stored one.
	for _, c := range s.user().Category {
		s.seq = max(s.seq, c.Seq)
		for _, st := range c.Statements {
			s.seq = max(s.seq, st.Seq)
		}
	}
	return s, nil
}

func (s *DocStore) user() *docUser {
	u, ok := s.tree.Users[s.uid]
	if !ok {
		u = &docUser{}
		s.tree.Users[s.uid] = u
	}
	if u.Category == nil {
		u.Category = make(map[string]*docCategory)
	}
	return u
}

// findStatementLocked locates a statement node and the category holding it.
func (s *DocStore) findStatementLocked(id string) (*docCategory, *docStatement) {
	for _, c := range s.user().Category {
		if st, ok := c.Statements[id]; ok {
			return c, st
		}
	}
	return nil, nil
}

// flushLocked writes the tree to a temp file and renames it into place.
func (s *DocStore) flushLocked() error {
	data, err := json.MarshalIndent(s.tree, "", "  ")
	if err != nil {
		return fmt.Errorf("encode doc store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create doc store dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".phrases-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write doc store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close doc store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace doc store: %w", err)
	}
	return nil
}

func toCategory(id string, c *docCategory) domain.Category {
	return domain.Category{ID: id, Label: c.Label, Created: time.UnixMilli(c.Created)}
}

func toStatement(id string, st *docStatement) domain.Statement {
	return domain.Statement{
		ID:         id,
		Text:       st.Text,
		CategoryID: st.CategoryID,
		Rating:     st.Rating,
		Created:    time.UnixMilli(st.Created),
	}
}

// ListCategories returns all categories in creation order.
func (s *DocStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats := s.user().Category
	ids := make([]string, 0, len(cats))
	for id := range cats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return cats[ids[i]].Seq < cats[ids[j]].Seq })

	out := make([]domain.Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, toCategory(id, cats[id]))
	}
	return out, nil
}

func (s *DocStore) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user().Category[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := toCategory(id, c)
	return &out, nil
}

func (s *DocStore) CreateCategory(ctx context.Context, label string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := newID()
	c := &docCategory{
		Label:      label,
		Created:    time.Now().UnixMilli(),
		Seq:        s.seq,
		Statements: make(map[string]*docStatement),
	}
	s.user().Category[id] = c
	if err := s.flushLocked(); err != nil {
		delete(s.user().Category, id)
		return nil, err
	}
	out := toCategory(id, c)
	return &out, nil
}

func (s *DocStore) RenameCategory(ctx context.Context, id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user().Category[id]
	if !ok {
		return domain.ErrNotFound
	}
	prev := c.Label
	c.Label = label
	if err := s.flushLocked(); err != nil {
		c.Label = prev
		return err
	}
	return nil
}

// DeleteCategory removes the category node and every statement in it.
func (s *DocStore) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user().Category[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.user().Category, id)
	if err := s.flushLocked(); err != nil {
		s.user().Category[id] = c
		return err
	}
	s.log.Debug("deleted category %s with %d statements", id, len(c.Statements))
	return nil
}

// ListStatements returns a category's statements, highest rating first.
func (s *DocStore) ListStatements(ctx context.Context, categoryID string) ([]domain.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user().Category[categoryID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Statement, 0, len(c.Statements))
	seq := make(map[string]int, len(c.Statements))
	for id, st := range c.Statements {
		out = append(out, toStatement(id, st))
		seq[id] = st.Seq
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return seq[out[i].ID] < seq[out[j].ID]
	})
	return out, nil
}

func (s *DocStore) GetStatement(ctx context.Context, id string) (*domain.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, st := s.findStatementLocked(id)
	if st == nil {
		return nil, domain.ErrNotFound
	}
	out := toStatement(id, st)
	return &out, nil
}

func (s *DocStore) FindStatement(ctx context.Context, categoryID, text string) (*domain.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user().Category[categoryID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var (
		foundID string
		found   *docStatement
	)
	for id, st := range c.Statements {
		if st.Text == text && (found == nil || st.Seq < found.Seq) {
			foundID, found = id, st
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	out := toStatement(foundID, found)
	return &out, nil
}

// CreateStatement adds a statement under an existing category.
func (s *DocStore) CreateStatement(ctx context.Context, text, categoryID string) (*domain.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user().Category[categoryID]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", categoryID, domain.ErrNotFound)
	}
	if c.Statements == nil {
		c.Statements = make(map[string]*docStatement)
	}
	s.seq++
	id := newID()
	st := &docStatement{Text: text, CategoryID: categoryID, Created: time.Now().UnixMilli(), Seq: s.seq}
	c.Statements[id] = st
	if err := s.flushLocked(); err != nil {
		delete(c.Statements, id)
		return nil, err
	}
	out := toStatement(id, st)
	return &out, nil
}

func (s *DocStore) RenameStatement(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, st := s.findStatementLocked(id)
	if st == nil {
		return domain.ErrNotFound
	}
	prev := st.Text
	st.Text = text
	if err := s.flushLocked(); err != nil {
		st.Text = prev
		return err
	}
	return nil
}

func (s *DocStore) IncrementRating(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, st := s.findStatementLocked(id)
	if st == nil {
		return domain.ErrNotFound
	}
	st.Rating++
	if err := s.flushLocked(); err != nil {
		st.Rating--
		return err
	}
	return nil
}

// SetRating overwrites a statement's rating with a single write.
func (s *DocStore) SetRating(ctx context.Context, id string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, st := s.findStatementLocked(id)
	if st == nil {
		return domain.ErrNotFound
	}
	prev := st.Rating
	st.Rating = rating
	if err := s.flushLocked(); err != nil {
		st.Rating = prev
		return err
	}
	return nil
}

// SetCategory moves the statement node under another existing category.
func (s *DocStore) SetCategory(ctx context.Context, id, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, st := s.findStatementLocked(id)
	if st == nil {
		return domain.ErrNotFound
	}
	to, ok := s.user().Category[categoryID]
	if !ok {
		return fmt.Errorf("category %s: %w", categoryID, domain.ErrNotFound)
	}
	if to.Statements == nil {
		to.Statements = make(map[string]*docStatement)
	}
	prevCat := st.CategoryID
	delete(from.Statements, id)
	st.CategoryID = categoryID
	to.Statements[id] = st
	if err := s.flushLocked(); err != nil {
		delete(to.Statements, id)
		st.CategoryID = prevCat
		from.Statements[id] = st
		return err
	}
	return nil
}

func (s *DocStore) DeleteStatement(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, st := s.findStatementLocked(id)
	if st == nil {
		return domain.ErrNotFound
	}
	delete(c.Statements, id)
	if err := s.flushLocked(); err != nil {
		c.Statements[id] = st
		return err
	}
	return nil
}
