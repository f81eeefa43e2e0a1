package phrasebook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// TransferStats counts what an import or migration wrote.
type TransferStats struct {
	Categories int
	Statements int
	Skipped    int
}

func (s TransferStats) String() string {
	return fmt.Sprintf("%d categories, %d statements (%d skipped)", s.Categories, s.Statements, s.Skipped)
}

// Import merges a bank into the store. Categories are matched by label
// (case-insensitive) and reused; statements already present are skipped
// without touching their rating.
func (b *Book) Import(ctx context.Context, bank *domain.Bank) (TransferStats, error) {
	var stats TransferStats

	cats, err := b.store.ListCategories(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing categories: %w", err)
	}
	byLabel := make(map[string]string, len(cats))
	for _, c := range cats {
		key := strings.ToLower(c.Label)
		if _, ok := byLabel[key]; !ok {
			byLabel[key] = c.ID
		}
	}

	for _, bc := range bank.Categories {
		label := strings.TrimSpace(bc.Label)
		if label == "" {
			stats.Skipped += len(bc.Statements)
			continue
		}
		catID, ok := byLabel[strings.ToLower(label)]
		if !ok {
			c, err := b.store.CreateCategory(ctx, label)
			if err != nil {
				return stats, fmt.Errorf("creating category %q: %w", label, err)
			}
			catID = c.ID
			byLabel[strings.ToLower(label)] = catID
			stats.Categories++
		}

		for _, text := range bc.Statements {
			text = strings.TrimSpace(text)
			if text == "" {
				stats.Skipped++
				continue
			}
			_, err := b.store.FindStatement(ctx, catID, text)
			if err == nil {
				stats.Skipped++
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return stats, fmt.Errorf("looking up %q: %w", text, err)
			}
			if _, err := b.store.CreateStatement(ctx, text, catID); err != nil {
				return stats, fmt.Errorf("creating statement %q: %w", text, err)
			}
			stats.Statements++
		}
	}

	b.log.Info("imported bank %q: %s", bank.Name, stats)
	return stats, nil
}

// Migrate copies every category and statement from src to dst, keeping
// ratings. Statements whose category no longer exists in src are filed
// under a default category in dst.
func Migrate(ctx context.Context, src, dst domain.PhraseStore, log *logger.Logger) (TransferStats, error) {
	var stats TransferStats

	cats, err := src.ListCategories(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing source categories: %w", err)
	}

	idMap := make(map[string]string, len(cats))
	for _, c := range cats {
		nc, err := dst.CreateCategory(ctx, c.Label)
		if err != nil {
			return stats, fmt.Errorf("creating category %q: %w", c.Label, err)
		}
		idMap[c.ID] = nc.ID
		stats.Categories++

		sts, err := src.ListStatements(ctx, c.ID)
		if err != nil {
			return stats, fmt.Errorf("listing statements of %q: %w", c.Label, err)
		}
		for _, st := range sts {
			if err := copyStatement(ctx, dst, st, nc.ID); err != nil {
				return stats, err
			}
			stats.Statements++
		}
	}

	if orphans, ok := src.(orphanLister); ok {
		n, err := migrateOrphans(ctx, orphans, dst, idMap)
		if err != nil {
			return stats, err
		}
		if n > 0 {
			stats.Categories++
			stats.Statements += n
		}
	}

	log.Info("migration done: %s", stats)
	return stats, nil
}

// orphanLister is implemented by stores that can list every statement,
// including those whose category was deleted.
type orphanLister interface {
	AllStatements(ctx context.Context) ([]domain.Statement, error)
}

// ratingSetter is implemented by stores that can write a rating in one step.
type ratingSetter interface {
	SetRating(ctx context.Context, id string, rating int) error
}

func migrateOrphans(ctx context.Context, src orphanLister, dst domain.PhraseStore, idMap map[string]string) (int, error) {
	all, err := src.AllStatements(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing all statements: %w", err)
	}
	var orphans []domain.Statement
	for _, st := range all {
		if _, ok := idMap[st.CategoryID]; !ok {
			orphans = append(orphans, st)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	home, err := dst.CreateCategory(ctx, domain.DefaultCategoryLabel)
	if err != nil {
		return 0, fmt.Errorf("creating category for orphans: %w", err)
	}
	for _, st := range orphans {
		if err := copyStatement(ctx, dst, st, home.ID); err != nil {
			return 0, err
		}
	}
	return len(orphans), nil
}

func copyStatement(ctx context.Context, dst domain.PhraseStore, st domain.Statement, categoryID string) error {
	ns, err := dst.CreateStatement(ctx, st.Text, categoryID)
	if err != nil {
		return fmt.Errorf("creating statement %q: %w", st.Text, err)
	}
	if st.Rating == 0 {
		return nil
	}
	if rs, ok := dst.(ratingSetter); ok {
		if err := rs.SetRating(ctx, ns.ID, st.Rating); err != nil {
			return fmt.Errorf("restoring rating of %q: %w", st.Text, err)
		}
		return nil
	}
	for i := 0; i < st.Rating; i++ {
		if err := dst.IncrementRating(ctx, ns.ID); err != nil {
			return fmt.Errorf("restoring rating of %q: %w", st.Text, err)
		}
	}
	return nil
}

// ── Search and sorting ───────────────────────────────────────────

// Match is a search hit with its category label.
type Match struct {
	Statement domain.Statement
	Category  string
}

// Search returns statements containing query (case-insensitive), most
// used first.
func (b *Book) Search(ctx context.Context, query string) ([]Match, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	cats, err := b.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	var out []Match
	for _, c := range cats {
		sts, err := b.store.ListStatements(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("listing statements: %w", err)
		}
		for _, st := range sts {
			if strings.Contains(strings.ToLower(st.Text), q) {
				out = append(out, Match{Statement: st, Category: c.Label})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Statement.Rating > out[j].Statement.Rating })
	b.log.Debug("search %q: %d matches", q, len(out))
	return out, nil
}

// SortCategories orders categories alphabetically by label,
// case-insensitively. desc reverses the order.
func SortCategories(cats []domain.Category, desc bool) {
	sort.SliceStable(cats, func(i, j int) bool {
		a, b := strings.ToLower(cats[i].Label), strings.ToLower(cats[j].Label)
		if desc {
			return a > b
		}
		return a < b
	})
}

// SortByRating orders statements most used first, oldest first on ties.
func SortByRating(sts []domain.Statement) {
	sort.SliceStable(sts, func(i, j int) bool {
		if sts[i].Rating != sts[j].Rating {
			return sts[i].Rating > sts[j].Rating
		}
		return sts[i].Created.Before(sts[j].Created)
	})
}
