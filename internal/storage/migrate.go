package storage

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*
var migrationsFS embed.FS

// Migrate runs every embedded .up.sql file in name order. The scripts are
// idempotent (CREATE ... IF NOT EXISTS) so this is safe on every start.
func (s *SQLStore) Migrate() error {
	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	files, err := fs.ReadDir(migrationsDir, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".up.sql") {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.executeMigration(migrationsDir, name); err != nil {
			return err
		}
		s.log.Debug("applied migration %s", name)
	}
	return nil
}

func (s *SQLStore) executeMigration(dir fs.FS, fileName string) error {
	content, err := fs.ReadFile(dir, fileName)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", fileName, err)
	}
	if _, err := s.db.Exec(string(content)); err != nil {
		return fmt.Errorf("execute migration %s: %w", fileName, err)
	}
	return nil
}
