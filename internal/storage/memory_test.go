package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// testStoreContract runs the behaviour every PhraseStore shares.
func testStoreContract(t *testing.T, store domain.PhraseStore) {
	ctx := context.Background()

	t.Run("category crud", func(t *testing.T) {
		food, err := store.CreateCategory(ctx, "Food")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if food.ID == "" {
			t.Fatal("expected generated ID")
		}
		family, err := store.CreateCategory(ctx, "Family")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		cats, err := store.ListCategories(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(cats) < 2 {
			t.Fatalf("expected at least 2 categories, got %d", len(cats))
		}
		idx := map[string]int{}
		for i, c := range cats {
			idx[c.ID] = i
		}
		if idx[food.ID] > idx[family.ID] {
			t.Fatal("expected categories in creation order")
		}

		if err := store.RenameCategory(ctx, food.ID, "Food and drink"); err != nil {
			t.Fatalf("rename: %v", err)
		}
		got, err := store.GetCategory(ctx, food.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Label != "Food and drink" {
			t.Fatalf("expected renamed label, got %q", got.Label)
		}

		if err := store.DeleteCategory(ctx, family.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.GetCategory(ctx, family.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("missing ids", func(t *testing.T) {
		if _, err := store.GetCategory(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetCategory: expected ErrNotFound, got %v", err)
		}
		if err := store.RenameCategory(ctx, "nope", "x"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("RenameCategory: expected ErrNotFound, got %v", err)
		}
		if err := store.DeleteCategory(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("DeleteCategory: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetStatement(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetStatement: expected ErrNotFound, got %v", err)
		}
		if err := store.IncrementRating(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("IncrementRating: expected ErrNotFound, got %v", err)
		}
		if err := store.DeleteStatement(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("DeleteStatement: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("statement ordering by rating", func(t *testing.T) {
		cat, err := store.CreateCategory(ctx, "Needs")
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		water, _ := store.CreateStatement(ctx, "I need water", cat.ID)
		help, _ := store.CreateStatement(ctx, "Please help me", cat.ID)
		rest, _ := store.CreateStatement(ctx, "I need a rest", cat.ID)

		for i := 0; i < 2; i++ {
			if err := store.IncrementRating(ctx, rest.ID); err != nil {
				t.Fatalf("increment: %v", err)
			}
		}
		if err := store.IncrementRating(ctx, help.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}

		list, err := store.ListStatements(ctx, cat.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{rest.ID, help.ID, water.ID}
		if len(list) != len(want) {
			t.Fatalf("expected %d statements, got %d", len(want), len(list))
		}
		for i, id := range want {
			if list[i].ID != id {
				t.Fatalf("position %d: expected %s, got %s (%q)", i, id, list[i].ID, list[i].Text)
			}
		}
		if list[0].Rating != 2 {
			t.Fatalf("expected rating 2, got %d", list[0].Rating)
		}
	})

	t.Run("set rating", func(t *testing.T) {
		setter, ok := store.(interface {
			SetRating(ctx context.Context, id string, rating int) error
		})
		if !ok {
			t.Skip("store cannot set ratings")
		}
		cat, _ := store.CreateCategory(ctx, "Imported")
		st, _ := store.CreateStatement(ctx, "Good morning", cat.ID)
		if err := setter.SetRating(ctx, st.ID, 4); err != nil {
			t.Fatalf("set rating: %v", err)
		}
		got, _ := store.GetStatement(ctx, st.ID)
		if got.Rating != 4 {
			t.Fatalf("expected rating 4, got %d", got.Rating)
		}
		if err := setter.SetRating(ctx, "nope", 1); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("SetRating: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rating counts every increment", func(t *testing.T) {
		cat, _ := store.CreateCategory(ctx, "Counts")
		st, _ := store.CreateStatement(ctx, "Yes", cat.ID)

		const n = 25
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.IncrementRating(ctx, st.ID); err != nil {
					t.Errorf("increment: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := store.GetStatement(ctx, st.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Rating != n {
			t.Fatalf("expected rating %d, got %d", n, got.Rating)
		}
	})

	t.Run("rename find move delete", func(t *testing.T) {
		a, _ := store.CreateCategory(ctx, "A")
		b, _ := store.CreateCategory(ctx, "B")
		st, err := store.CreateStatement(ctx, "Good morning", a.ID)
		if err != nil {
			t.Fatalf("create statement: %v", err)
		}

		found, err := store.FindStatement(ctx, a.ID, "Good morning")
		if err != nil || found.ID != st.ID {
			t.Fatalf("find: got %v, %v", found, err)
		}
		if _, err := store.FindStatement(ctx, b.ID, "Good morning"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound in other category, got %v", err)
		}

		if err := store.RenameStatement(ctx, st.ID, "Good evening"); err != nil {
			t.Fatalf("rename: %v", err)
		}
		if err := store.SetCategory(ctx, st.ID, b.ID); err != nil {
			t.Fatalf("move: %v", err)
		}
		got, _ := store.GetStatement(ctx, st.ID)
		if got.Text != "Good evening" || got.CategoryID != b.ID {
			t.Fatalf("unexpected statement after rename+move: %+v", got)
		}
		if list, _ := store.ListStatements(ctx, a.ID); len(list) != 0 {
			t.Fatalf("expected source category empty, got %d", len(list))
		}

		if err := store.DeleteStatement(ctx, st.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.GetStatement(ctx, st.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

// testCategoryDeleteLeavesStatements checks the non-cascading delete of
// the flat stores.
func testCategoryDeleteLeavesStatements(t *testing.T, store domain.PhraseStore) {
	ctx := context.Background()
	cat, _ := store.CreateCategory(ctx, "Temporary")
	st, _ := store.CreateStatement(ctx, "Still here", cat.ID)

	if err := store.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	got, err := store.GetStatement(ctx, st.ID)
	if err != nil {
		t.Fatalf("expected statement to survive, got %v", err)
	}
	if got.CategoryID != cat.ID {
		t.Fatalf("expected dangling category %s, got %s", cat.ID, got.CategoryID)
	}

	lister, ok := store.(interface {
		AllStatements(context.Context) ([]domain.Statement, error)
	})
	if !ok {
		return
	}
	all, err := lister.AllStatements(ctx)
	if err != nil {
		t.Fatalf("all statements: %v", err)
	}
	found := false
	for _, s := range all {
		found = found || s.ID == st.ID
	}
	if !found {
		t.Fatal("expected orphaned statement in AllStatements")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	testStoreContract(t, store)
}

func TestMemoryStoreCategoryDelete(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	testCategoryDeleteLeavesStatements(t, store)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	cat, _ := store.CreateCategory(ctx, "Copies")
	st, _ := store.CreateStatement(ctx, "original", cat.ID)
	st.Text = "mutated"

	got, _ := store.GetStatement(ctx, st.ID)
	if got.Text != "original" {
		t.Fatalf("store aliased caller memory: %q", got.Text)
	}
}
