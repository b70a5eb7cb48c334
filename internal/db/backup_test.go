package db_test

import (
	"context"
	"path/filepath"
	"testing"

	dbpkg "github.com/garnizeh/rojgar/internal/db"
)

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "rojgar.db")
	backup := filepath.Join(dir, "rojgar.db.bak")

	d, err := dbpkg.New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Exec(ctx, `CREATE TABLE items (name TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.Exec(ctx, `INSERT INTO items (name) VALUES ('before')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := d.Backup(ctx, backup); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := d.Backup(ctx, backup); err == nil {
		t.Fatalf("expected Backup to refuse an existing destination")
	}
	if _, err := d.Exec(ctx, `INSERT INTO items (name) VALUES ('after')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := dbpkg.Restore(backup, path); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	d, err = dbpkg.New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()

	var n int
	if err := d.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row after restore, got %d", n)
	}
}

func TestRestore_MissingBackup(t *testing.T) {
	dir := t.TempDir()
	if err := dbpkg.Restore(filepath.Join(dir, "nope.bak"), filepath.Join(dir, "rojgar.db")); err == nil {
		t.Fatalf("expected error for missing backup")
	}
}

func TestBackup_EmptyDestination(t *testing.T) {
	d, err := dbpkg.New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if err := d.Backup(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty destination")
	}
}
