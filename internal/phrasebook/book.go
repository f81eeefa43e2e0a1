// Package phrasebook is the application service over the phrase store and
// the speech dispatcher: category and statement management, speaking saved
// statements, bulk import and store migration.
package phrasebook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
	"github.com/hammamikhairi/distype/internal/speech"
)

// Speaker starts an utterance. *speech.Dispatcher implements it.
type Speaker interface {
	Speak(ctx context.Context, text string, preferOnline bool) (*speech.Utterance, error)
}

var _ Speaker = (*speech.Dispatcher)(nil)

// Option configures the Book.
type Option func(*Book)

// WithDefaultLabel sets the label of the category created on first run.
func WithDefaultLabel(label string) Option {
	return func(b *Book) {
		b.defaultLabel = label
	}
}

// Book manages phrases. It depends only on interfaces and is fully
// testable with fakes.
type Book struct {
	store        domain.PhraseStore
	speaker      Speaker
	log          *logger.Logger
	defaultLabel string
}

// New creates a phrase book over store. speaker may be nil for
// management-only use (CLI subcommands that never speak).
func New(store domain.PhraseStore, speaker Speaker, log *logger.Logger, opts ...Option) *Book {
	b := &Book{
		store:        store,
		speaker:      speaker,
		log:          log,
		defaultLabel: domain.DefaultCategoryLabel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store returns the underlying phrase store.
func (b *Book) Store() domain.PhraseStore { return b.store }

// Bootstrap creates the default category when the store has none and
// returns the first category.
func (b *Book) Bootstrap(ctx context.Context) (*domain.Category, error) {
	cats, err := b.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	if len(cats) > 0 {
		return &cats[0], nil
	}

	c, err := b.store.CreateCategory(ctx, b.defaultLabel)
	if err != nil {
		return nil, fmt.Errorf("creating default category: %w", err)
	}
	b.log.Info("created default category %q", c.Label)
	return c, nil
}

// ── Categories ───────────────────────────────────────────────────

// Categories returns all categories in creation order.
func (b *Book) Categories(ctx context.Context) ([]domain.Category, error) {
	cats, err := b.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// CreateCategory adds a category. Labels need not be unique.
func (b *Book) CreateCategory(ctx context.Context, label string) (*domain.Category, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, domain.ErrEmptyLabel
	}
	c, err := b.store.CreateCategory(ctx, label)
	if err != nil {
		b.log.Error("create category %q: %v", label, err)
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return c, nil
}

// RenameCategory changes a category's label.
func (b *Book) RenameCategory(ctx context.Context, id, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.ErrEmptyLabel
	}
	if err := b.store.RenameCategory(ctx, id, label); err != nil {
		b.log.Error("rename category %s: %v", id, err)
		return fmt.Errorf("renaming category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category. Whether its statements go with it
// depends on the store (see domain.PhraseStore).
func (b *Book) DeleteCategory(ctx context.Context, id string) error {
	if err := b.store.DeleteCategory(ctx, id); err != nil {
		b.log.Error("delete category %s: %v", id, err)
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// ── Statements ───────────────────────────────────────────────────

// Statements returns a category's statements, most used first.
func (b *Book) Statements(ctx context.Context, categoryID string) ([]domain.Statement, error) {
	sts, err := b.store.ListStatements(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("listing statements: %w", err)
	}
	return sts, nil
}

// AddStatement saves text in a category. Empty text is rejected before
// the store is touched. If the category already holds the same text, its
// rating is bumped instead of creating a duplicate.
func (b *Book) AddStatement(ctx context.Context, text, categoryID string) (*domain.Statement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}

	existing, err := b.store.FindStatement(ctx, categoryID, text)
	switch {
	case err == nil:
		if err := b.store.IncrementRating(ctx, existing.ID); err != nil {
			b.log.Error("bump rating %s: %v", existing.ID, err)
			return nil, fmt.Errorf("bumping rating: %w", err)
		}
		existing.Rating++
		b.log.Debug("statement %q already saved, rating now %d", text, existing.Rating)
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("looking up statement: %w", err)
	}

	st, err := b.store.CreateStatement(ctx, text, categoryID)
	if err != nil {
		b.log.Error("create statement in %s: %v", categoryID, err)
		return nil, fmt.Errorf("creating statement: %w", err)
	}
	return st, nil
}

// RenameStatement replaces a statement's text.
func (b *Book) RenameStatement(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyText
	}
	if err := b.store.RenameStatement(ctx, id, text); err != nil {
		b.log.Error("rename statement %s: %v", id, err)
		return fmt.Errorf("renaming statement: %w", err)
	}
	return nil
}

// MoveStatement re-files a statement under another existing category.
func (b *Book) MoveStatement(ctx context.Context, id, categoryID string) error {
	if _, err := b.store.GetCategory(ctx, categoryID); err != nil {
		return fmt.Errorf("target category: %w", err)
	}
	if err := b.store.SetCategory(ctx, id, categoryID); err != nil {
		b.log.Error("move statement %s: %v", id, err)
		return fmt.Errorf("moving statement: %w", err)
	}
	return nil
}

// DeleteStatement removes a statement.
func (b *Book) DeleteStatement(ctx context.Context, id string) error {
	if err := b.store.DeleteStatement(ctx, id); err != nil {
		b.log.Error("delete statement %s: %v", id, err)
		return fmt.Errorf("deleting statement: %w", err)
	}
	return nil
}

// ── Speaking ─────────────────────────────────────────────────────

// Say speaks free text.
func (b *Book) Say(ctx context.Context, text string, preferOnline bool) (*speech.Utterance, error) {
	if b.speaker == nil {
		return nil, domain.ErrUnavailable
	}
	return b.speaker.Speak(ctx, text, preferOnline)
}

// SayStatement speaks a saved statement and counts the use. A failed
// rating update is returned alongside the utterance that is already
// playing.
func (b *Book) SayStatement(ctx context.Context, id string, preferOnline bool) (*speech.Utterance, error) {
	st, err := b.store.GetStatement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading statement: %w", err)
	}
	u, err := b.Say(ctx, st.Text, preferOnline)
	if err != nil {
		return nil, err
	}
	if err := b.store.IncrementRating(ctx, id); err != nil {
		b.log.Error("increment rating %s: %v", id, err)
		return u, fmt.Errorf("incrementing rating: %w", err)
	}
	return u, nil
}
