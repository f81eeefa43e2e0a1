package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hammamikhairi/distype/internal/logger"
)

func openTestSQL(t *testing.T, path string) *SQLStore {
	t.Helper()
	store, err := OpenSQLStore(path, logger.New(logger.LevelOff, nil))
	if err != nil {
		t.Fatalf("open sql store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore(t *testing.T) {
	testStoreContract(t, openTestSQL(t, ":memory:"))
}

func TestSQLStoreCategoryDelete(t *testing.T) {
	testCategoryDeleteLeavesStatements(t, openTestSQL(t, ":memory:"))
}

func TestSQLStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.db")
	ctx := context.Background()

	first := openTestSQL(t, path)
	cat, err := first.CreateCategory(ctx, "Greetings")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	st, err := first.CreateStatement(ctx, "Hello", cat.ID)
	if err != nil {
		t.Fatalf("create statement: %v", err)
	}
	if err := first.IncrementRating(ctx, st.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}
	first.Close()

	// Migrations run again on open and must not disturb existing data.
	second := openTestSQL(t, path)
	list, err := second.ListStatements(ctx, cat.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Text != "Hello" || list[0].Rating != 1 {
		t.Fatalf("unexpected statements after reopen: %+v", list)
	}
}
