package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the command tree against an SQL store in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	base := []string{"--quiet", "--store", "sql", "--store-path", filepath.Join(dir, "phrases.db")}
	root.SetArgs(append(base, args...))
	err := root.Execute()
	a.close()
	return buf.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestCategoryAndStatementCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "category", "add", "Food", "and", "drink")
	id, label, ok := strings.Cut(strings.TrimSpace(out), "\t")
	if !ok || label != "Food and drink" {
		t.Fatalf("unexpected add output %q", out)
	}

	mustRun(t, dir, "statement", "add", "--category", id, "Some", "bread")
	mustRun(t, dir, "statement", "add", "--category", id, "Some bread")

	out = mustRun(t, dir, "statement", "list", id)
	if !strings.Contains(out, "\t1\tSome bread") {
		t.Fatalf("expected deduplicated statement with rating 1, got %q", out)
	}

	out = mustRun(t, dir, "statement", "find", "BREAD")
	if !strings.Contains(out, "[Food and drink]") {
		t.Fatalf("expected search hit with category, got %q", out)
	}

	mustRun(t, dir, "category", "rename", id, "Meals")
	out = mustRun(t, dir, "category", "list", "--sort")
	if !strings.Contains(out, "Meals") {
		t.Fatalf("expected renamed category, got %q", out)
	}

	if _, err := run(t, dir, "category", "rm", "missing-id"); err == nil {
		t.Fatal("expected error removing a missing category")
	}
}

func TestStatementAddUsesDefaultCategory(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "statement", "add", "Hello")
	out := mustRun(t, dir, "category", "list")
	if !strings.Contains(out, "Uncategorized") {
		t.Fatalf("expected default category created, got %q", out)
	}
}

func TestImportAndMigrateCommands(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "banks")
	if !strings.Contains(out, "essentials") {
		t.Fatalf("expected built-in banks listed, got %q", out)
	}

	out = mustRun(t, dir, "import", "essentials")
	if !strings.Contains(out, "imported essentials") {
		t.Fatalf("unexpected import output %q", out)
	}

	docPath := filepath.Join(dir, "out", "phrases.json")
	out = mustRun(t, dir, "migrate", "--to", "doc", "--to-path", docPath)
	if !strings.Contains(out, "migrated to doc") {
		t.Fatalf("unexpected migrate output %q", out)
	}

	// The migrated document store lists the same categories.
	want := mustRun(t, dir, "category", "list")
	a := &app{}
	root := newRootCmd(a)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--quiet", "--store", "doc", "--store-path", docPath, "category", "list"})
	if err := root.Execute(); err != nil {
		t.Fatalf("list doc store: %v", err)
	}
	a.close()
	if strings.Count(buf.String(), "\n") != strings.Count(want, "\n") {
		t.Fatalf("category count differs:\nsql:\n%s\ndoc:\n%s", want, buf.String())
	}
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DISTYPE_CACHE_DIR", filepath.Join(dir, "cache"))

	out := mustRun(t, dir, "cache", "info")
	if !strings.Contains(out, "files:\t0") {
		t.Fatalf("unexpected cache info %q", out)
	}
	out = mustRun(t, dir, "cache", "clear")
	if !strings.Contains(out, "cache cleared") {
		t.Fatalf("unexpected cache clear output %q", out)
	}
}

func TestExportRequiresOutput(t *testing.T) {
	if _, err := run(t, t.TempDir(), "export", "hello"); err == nil {
		t.Fatal("expected error without --out")
	}
}

func TestInvalidBackendFlag(t *testing.T) {
	a := &app{}
	root := newRootCmd(a)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"--quiet", "--store", "redis", "category", "list"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected invalid backend to be rejected")
	}
	a.close()
}
