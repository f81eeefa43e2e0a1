package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// Compile-time interface check.
var _ domain.PhraseStore = (*SQLStore)(nil)

// SQLStore is the relational phrase store backed by SQLite.
type SQLStore struct {
	db  *sqlx.DB
	log *logger.Logger
}

// OpenSQLStore opens (or creates) the SQLite database at path and applies
// the embedded migrations. Use ":memory:" for a throwaway database.
func OpenSQLStore(path string, log *logger.Logger) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and every
	// ":memory:" connection would otherwise be its own empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var version string
	if err := db.Get(&version, "select sqlite_version()"); err == nil {
		log.Debug("sqlite version %s at %s", version, path)
	}

	s := &SQLStore{db: db, log: log}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ListCategories returns all categories in creation order.
func (s *SQLStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	resp := []domain.Category{}
	err := s.db.SelectContext(ctx, &resp, "SELECT id, label, created_at FROM categories ORDER BY rowid;")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return resp, nil
}

// GetCategory retrieves a category by ID.
func (s *SQLStore) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.GetContext(ctx, &c, "SELECT id, label, created_at FROM categories WHERE id = ?;", id)
	if err != nil {
		return nil, notFound(err, "get category")
	}
	return &c, nil
}

// CreateCategory inserts a new category with a fresh ID.
func (s *SQLStore) CreateCategory(ctx context.Context, label string) (*domain.Category, error) {
	c := domain.Category{ID: newID(), Label: label, Created: time.Now().UTC()}
	query := "INSERT INTO categories (id, label, created_at) VALUES (:id, :label, :created_at);"
	if _, err := s.db.NamedExecContext(ctx, query, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.log.Debug("created category %s (%q)", c.ID, label)
	return &c, nil
}

// RenameCategory changes a category's label.
func (s *SQLStore) RenameCategory(ctx context.Context, id, label string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE categories SET label = ? WHERE id = ?;", label, id)
	return affected(res, err, "rename category")
}

// DeleteCategory removes a category row. Statements are not touched.
func (s *SQLStore) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?;", id)
	return affected(res, err, "delete category")
}

// ListStatements returns a category's statements, highest rating first.
func (s *SQLStore) ListStatements(ctx context.Context, categoryID string) ([]domain.Statement, error) {
	resp := []domain.Statement{}
	query := `
        SELECT id, text, category, rating, created_at
        FROM statements
        WHERE category = ?
        ORDER BY rating DESC, rowid ASC;`
	if err := s.db.SelectContext(ctx, &resp, query, categoryID); err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	return resp, nil
}

// GetStatement retrieves a statement by ID.
func (s *SQLStore) GetStatement(ctx context.Context, id string) (*domain.Statement, error) {
	var st domain.Statement
	err := s.db.GetContext(ctx, &st,
		"SELECT id, text, category, rating, created_at FROM statements WHERE id = ?;", id)
	if err != nil {
		return nil, notFound(err, "get statement")
	}
	return &st, nil
}

// FindStatement looks up a statement by exact text within a category.
func (s *SQLStore) FindStatement(ctx context.Context, categoryID, text string) (*domain.Statement, error) {
	var st domain.Statement
	query := `
        SELECT id, text, category, rating, created_at
        FROM statements
        WHERE category = ? AND text = ?
        ORDER BY rowid ASC
        LIMIT 1;`
	if err := s.db.GetContext(ctx, &st, query, categoryID, text); err != nil {
		return nil, notFound(err, "find statement")
	}
	return &st, nil
}

// CreateStatement inserts a statement with a zero rating.
func (s *SQLStore) CreateStatement(ctx context.Context, text, categoryID string) (*domain.Statement, error) {
	st := domain.Statement{ID: newID(), Text: text, CategoryID: categoryID, Created: time.Now().UTC()}
	query := `
        INSERT INTO statements (id, text, category, rating, created_at)
        VALUES (:id, :text, :category, :rating, :created_at);`
	if _, err := s.db.NamedExecContext(ctx, query, st); err != nil {
		return nil, fmt.Errorf("create statement: %w", err)
	}
	s.log.Debug("created statement %s in %s", st.ID, categoryID)
	return &st, nil
}

// RenameStatement replaces a statement's text.
func (s *SQLStore) RenameStatement(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE statements SET text = ? WHERE id = ?;", text, id)
	return affected(res, err, "rename statement")
}

// IncrementRating adds one to the statement's rating in a single UPDATE,
// so concurrent increments never lose a count.
func (s *SQLStore) IncrementRating(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE statements SET rating = rating + 1 WHERE id = ?;", id)
	return affected(res, err, "increment rating")
}

func (s *SQLStore) SetRating(ctx context.Context, id string, rating int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE statements SET rating = ? WHERE id = ?;", rating, id)
	return affected(res, err, "set rating")
}

// SetCategory moves a statement to another category.
func (s *SQLStore) SetCategory(ctx context.Context, id, categoryID string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE statements SET category = ? WHERE id = ?;", categoryID, id)
	return affected(res, err, "set category")
}

// DeleteStatement removes a statement by ID.
func (s *SQLStore) DeleteStatement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM statements WHERE id = ?;", id)
	return affected(res, err, "delete statement")
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound and wraps the rest.
func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affected turns a write with zero affected rows into domain.ErrNotFound.
func affected(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AllStatements returns every statement, including those whose category
// was deleted, in insertion order.
func (s *SQLStore) AllStatements(ctx context.Context) ([]domain.Statement, error) {
	resp := []domain.Statement{}
	query := "SELECT id, text, category, rating, created_at FROM statements ORDER BY rowid;"
	if err := s.db.SelectContext(ctx, &resp, query); err != nil {
		return nil, fmt.Errorf("list all statements: %w", err)
	}
	return resp, nil
}
