package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

func openTestDoc(t *testing.T, path string, opts ...DocOption) *DocStore {
	t.Helper()
	store, err := OpenDocStore(path, logger.New(logger.LevelOff, nil), opts...)
	if err != nil {
		t.Fatalf("open doc store: %v", err)
	}
	return store
}

func TestDocStore(t *testing.T) {
	testStoreContract(t, openTestDoc(t, filepath.Join(t.TempDir(), "phrases.json")))
}

func TestDocStoreDeleteCategoryRemovesStatements(t *testing.T) {
	store := openTestDoc(t, filepath.Join(t.TempDir(), "phrases.json"))
	ctx := context.Background()

	cat, _ := store.CreateCategory(ctx, "Temporary")
	st, _ := store.CreateStatement(ctx, "Gone with it", cat.ID)

	if err := store.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if _, err := store.GetStatement(ctx, st.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected statement removed with its category, got %v", err)
	}
}

func TestDocStoreRejectsUnknownCategory(t *testing.T) {
	store := openTestDoc(t, filepath.Join(t.TempDir(), "phrases.json"))
	ctx := context.Background()

	if _, err := store.CreateStatement(ctx, "orphan", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cat, _ := store.CreateCategory(ctx, "Real")
	st, _ := store.CreateStatement(ctx, "hello", cat.ID)
	if err := store.SetCategory(ctx, st.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on move, got %v", err)
	}
}

func TestDocStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "phrases.json")
	ctx := context.Background()

	first := openTestDoc(t, path)
	a, _ := first.CreateCategory(ctx, "First")
	b, _ := first.CreateCategory(ctx, "Second")
	st, _ := first.CreateStatement(ctx, "Thank you", a.ID)
	first.IncrementRating(ctx, st.ID)
	first.IncrementRating(ctx, st.ID)

	second := openTestDoc(t, path)
	cats, err := second.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != a.ID || cats[1].ID != b.ID {
		t.Fatalf("unexpected categories after reload: %+v", cats)
	}
	got, err := second.GetStatement(ctx, st.ID)
	if err != nil {
		t.Fatalf("get statement: %v", err)
	}
	if got.Rating != 2 || got.Text != "Thank you" {
		t.Fatalf("unexpected statement after reload: %+v", got)
	}

	// New records keep sorting after the reloaded ones.
	c, _ := second.CreateCategory(ctx, "Third")
	cats, _ = second.ListCategories(ctx)
	if cats[len(cats)-1].ID != c.ID {
		t.Fatalf("expected new category last, got %+v", cats)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	for _, key := range []string{`"users"`, `"local"`, `"Category"`, `"statements"`, `"categoryId"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in document, got:\n%s", key, data)
		}
	}
}

func TestDocStoreUsersAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.json")
	ctx := context.Background()

	alice := openTestDoc(t, path, WithUser("alice"))
	alice.CreateCategory(ctx, "Alice only")

	bob := openTestDoc(t, path, WithUser("bob"))
	cats, _ := bob.ListCategories(ctx)
	if len(cats) != 0 {
		t.Fatalf("expected bob to see no categories, got %d", len(cats))
	}
}

func TestDocStoreFailedWriteKeepsState(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store := openTestDoc(t, filepath.Join(dir, "phrases.json"))
	ctx := context.Background()

	home, _ := store.CreateCategory(ctx, "Home")
	away, _ := store.CreateCategory(ctx, "Away")
	st, _ := store.CreateStatement(ctx, "Open the window", home.ID)

	// A file where the directory was makes every flush fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0o644); err != nil {
		t.Fatalf("replace dir: %v", err)
	}

	ops := []struct {
		name string
		fn   func() error
	}{
		{"RenameCategory", func() error { return store.RenameCategory(ctx, home.ID, "House") }},
		{"DeleteCategory", func() error { return store.DeleteCategory(ctx, home.ID) }},
		{"RenameStatement", func() error { return store.RenameStatement(ctx, st.ID, "Close it") }},
		{"IncrementRating", func() error { return store.IncrementRating(ctx, st.ID) }},
		{"SetRating", func() error { return store.SetRating(ctx, st.ID, 9) }},
		{"SetCategory", func() error { return store.SetCategory(ctx, st.ID, away.ID) }},
		{"DeleteStatement", func() error { return store.DeleteStatement(ctx, st.ID) }},
	}
	for _, op := range ops {
		if err := op.fn(); err == nil {
			t.Fatalf("%s: expected write error", op.name)
		}

		cat, err := store.GetCategory(ctx, home.ID)
		if err != nil || cat.Label != "Home" {
			t.Fatalf("%s: category changed: %+v, %v", op.name, cat, err)
		}
		got, err := store.GetStatement(ctx, st.ID)
		if err != nil {
			t.Fatalf("%s: statement lost: %v", op.name, err)
		}
		if got.Text != "Open the window" || got.Rating != 0 || got.CategoryID != home.ID {
			t.Fatalf("%s: statement changed: %+v", op.name, got)
		}
		homeSts, _ := store.ListStatements(ctx, home.ID)
		awaySts, _ := store.ListStatements(ctx, away.ID)
		if len(homeSts) != 1 || len(awaySts) != 0 {
			t.Fatalf("%s: statement moved: home=%d away=%d", op.name, len(homeSts), len(awaySts))
		}
	}
}
