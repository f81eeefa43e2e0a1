package phrasebook

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hammamikhairi/distype/internal/bank"
	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
	"github.com/hammamikhairi/distype/internal/speech"
	"github.com/hammamikhairi/distype/internal/storage"
)

// countingStore wraps a store and counts statement writes.
type countingStore struct {
	domain.PhraseStore
	mu      sync.Mutex
	creates int
	failInc error
}

func (c *countingStore) CreateStatement(ctx context.Context, text, categoryID string) (*domain.Statement, error) {
	c.mu.Lock()
	c.creates++
	c.mu.Unlock()
	return c.PhraseStore.CreateStatement(ctx, text, categoryID)
}

func (c *countingStore) IncrementRating(ctx context.Context, id string) error {
	if c.failInc != nil {
		return c.failInc
	}
	return c.PhraseStore.IncrementRating(ctx, id)
}

// recordingSynth is a local engine that finishes immediately.
type recordingSynth struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingSynth) Speak(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingSynth) spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func setupBook(t *testing.T) (*Book, *countingStore, *recordingSynth, context.Context) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	store := &countingStore{PhraseStore: storage.NewMemoryStore(log)}
	synth := &recordingSynth{}
	disp := speech.NewDispatcher(synth, log)
	return New(store, disp, log), store, synth, context.Background()
}

func TestBootstrap(t *testing.T) {
	book, store, _, ctx := setupBook(t)

	first, err := book.Bootstrap(ctx)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if first.Label != domain.DefaultCategoryLabel {
		t.Fatalf("expected default label, got %q", first.Label)
	}

	// Second run must not create another default category.
	again, err := book.Bootstrap(ctx)
	if err != nil {
		t.Fatalf("bootstrap again: %v", err)
	}
	if again.ID != first.ID {
		t.Fatal("expected the existing category to be reused")
	}
	cats, _ := store.ListCategories(ctx)
	if len(cats) != 1 {
		t.Fatalf("expected one category, got %d", len(cats))
	}
}

func TestAddStatementRejectsEmptyText(t *testing.T) {
	book, store, _, ctx := setupBook(t)
	cat, _ := book.Bootstrap(ctx)

	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := book.AddStatement(ctx, text, cat.ID); !errors.Is(err, domain.ErrEmptyText) {
			t.Fatalf("AddStatement(%q): expected ErrEmptyText, got %v", text, err)
		}
	}
	if store.creates != 0 {
		t.Fatalf("empty text reached the store %d times", store.creates)
	}
	sts, _ := book.Statements(ctx, cat.ID)
	if len(sts) != 0 {
		t.Fatalf("expected no statements, got %d", len(sts))
	}
}

func TestAddStatementDeduplicates(t *testing.T) {
	book, store, _, ctx := setupBook(t)
	cat, _ := book.Bootstrap(ctx)

	first, err := book.AddStatement(ctx, "  Thank you ", cat.ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.Text != "Thank you" {
		t.Fatalf("expected trimmed text, got %q", first.Text)
	}
	second, err := book.AddStatement(ctx, "Thank you", cat.ID)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if second.ID != first.ID || second.Rating != 1 {
		t.Fatalf("expected rating bump on the same statement, got %+v", second)
	}
	if store.creates != 1 {
		t.Fatalf("expected a single insert, got %d", store.creates)
	}
}

func TestCategoryValidation(t *testing.T) {
	book, _, _, ctx := setupBook(t)

	if _, err := book.CreateCategory(ctx, "  "); !errors.Is(err, domain.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}
	c, err := book.CreateCategory(ctx, "Family")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Duplicate labels are allowed.
	if _, err := book.CreateCategory(ctx, "Family"); err != nil {
		t.Fatalf("duplicate label: %v", err)
	}
	if err := book.RenameCategory(ctx, c.ID, ""); !errors.Is(err, domain.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel on rename, got %v", err)
	}
	if err := book.RenameCategory(ctx, "missing", "X"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveStatement(t *testing.T) {
	book, _, _, ctx := setupBook(t)
	a, _ := book.CreateCategory(ctx, "A")
	b, _ := book.CreateCategory(ctx, "B")
	st, _ := book.AddStatement(ctx, "hello", a.ID)

	if err := book.MoveStatement(ctx, st.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing target, got %v", err)
	}
	if err := book.MoveStatement(ctx, st.ID, b.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	sts, _ := book.Statements(ctx, b.ID)
	if len(sts) != 1 || sts[0].ID != st.ID {
		t.Fatalf("expected statement in B, got %+v", sts)
	}
}

func TestSayStatementCountsUse(t *testing.T) {
	book, _, synth, ctx := setupBook(t)
	cat, _ := book.Bootstrap(ctx)
	st, _ := book.AddStatement(ctx, "I need water", cat.ID)

	const n = 3
	for i := 0; i < n; i++ {
		u, err := book.SayStatement(ctx, st.ID, false)
		if err != nil {
			t.Fatalf("say statement: %v", err)
		}
		if _, err := u.Wait(); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}

	got, _ := book.Store().GetStatement(ctx, st.ID)
	if got.Rating != n {
		t.Fatalf("expected rating %d, got %d", n, got.Rating)
	}
	if spoken := synth.spoken(); len(spoken) != n || spoken[0] != "I need water" {
		t.Fatalf("unexpected spoken texts: %v", spoken)
	}
}

func TestSayStatementSurfacesStoreFailure(t *testing.T) {
	book, store, _, ctx := setupBook(t)
	cat, _ := book.Bootstrap(ctx)
	st, _ := book.AddStatement(ctx, "hello", cat.ID)

	store.failInc = errors.New("disk full")
	u, err := book.SayStatement(ctx, st.ID, false)
	if err == nil {
		t.Fatal("expected rating failure to be returned")
	}
	if u == nil {
		t.Fatal("expected the utterance to still be returned")
	}
	u.Wait()
}

func TestSayWithoutSpeaker(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	book := New(storage.NewMemoryStore(log), nil, log)
	if _, err := book.Say(context.Background(), "hi", false); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestImportBank(t *testing.T) {
	book, _, _, ctx := setupBook(t)
	src := bank.NewMemorySource(logger.New(logger.LevelOff, nil))
	essentials, err := src.Get(ctx, "essentials")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}

	stats, err := book.Import(ctx, essentials)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Categories != len(essentials.Categories) || stats.Skipped != 0 {
		t.Fatalf("unexpected first import stats: %+v", stats)
	}

	// Importing again only skips.
	again, err := book.Import(ctx, essentials)
	if err != nil {
		t.Fatalf("import again: %v", err)
	}
	if again.Categories != 0 || again.Statements != 0 || again.Skipped != stats.Statements {
		t.Fatalf("unexpected second import stats: %+v", again)
	}
}

func TestSearch(t *testing.T) {
	book, _, _, ctx := setupBook(t)
	a, _ := book.CreateCategory(ctx, "Drinks")
	b, _ := book.CreateCategory(ctx, "Needs")
	book.AddStatement(ctx, "A glass of water", a.ID)
	hot, _ := book.AddStatement(ctx, "Hot WATER please", b.ID)
	book.AddStatement(ctx, "Coffee", a.ID)
	book.Store().IncrementRating(ctx, hot.ID)

	matches, err := book.Search(ctx, "water")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Statement.ID != hot.ID || matches[0].Category != "Needs" {
		t.Fatalf("expected most used match first, got %+v", matches[0])
	}
}

func TestSortCategories(t *testing.T) {
	cats := []domain.Category{{Label: "beta"}, {Label: "Alpha"}, {Label: "gamma"}}

	SortCategories(cats, false)
	if cats[0].Label != "Alpha" || cats[2].Label != "gamma" {
		t.Fatalf("unexpected ascending order: %v", cats)
	}
	SortCategories(cats, true)
	if cats[0].Label != "gamma" || cats[2].Label != "Alpha" {
		t.Fatalf("unexpected descending order: %v", cats)
	}
}
