package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teamcutter/csharpls/internal/domain"
	"github.com/teamcutter/csharpls/internal/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS tools (
    name         TEXT PRIMARY KEY,
    version      TEXT NOT NULL,
    path         TEXT NOT NULL,
    binary_path  TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    installed_at TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'installed'
);
`

const (
	statusInstalled = "installed"
	statusPending   = "pending"
)

// SQLiteState is the install ledger. Every completed install is mirrored
// to a JSON manifest next to the database.
type SQLiteState struct {
	mu           sync.RWMutex
	db           *sql.DB
	manifestPath string
	log          domain.Logger
}

func NewSQLite(dbPath, manifestPath string, log domain.Logger) (*SQLiteState, error) {
	if log == nil {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// parallel installs share one writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteState{
		db:           db,
		manifestPath: manifestPath,
		log:          log,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	if err := s.recover(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to recover: %w", err)
	}

	return s, nil
}

// migrate seeds an empty database from an existing manifest.
func (s *SQLiteState) migrate() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tools").Scan(&count); err != nil {
		return err
	}
	if count > 0 || s.manifestPath == "" {
		return nil
	}

	manifest, err := readManifest(s.manifestPath)
	if err != nil || len(manifest.Tools) == 0 {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range manifest.Tools {
		if err := insertTool(tx, t, statusInstalled); err != nil {
			return fmt.Errorf("failed to insert %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("state: imported manifest", "path", s.manifestPath, "tools", len(manifest.Tools))
	return nil
}

// recover removes the directories of installs that were interrupted.
func (s *SQLiteState) recover() error {
	rows, err := s.db.Query("SELECT name, path FROM tools WHERE status = ?", statusPending)
	if err != nil {
		return err
	}

	type pending struct{ name, path string }
	var list []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.name, &p.path); err != nil {
			rows.Close()
			return err
		}
		list = append(list, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range list {
		s.log.Warn("state: recovering from interrupted install", "tool", p.name, "path", p.path)
		os.RemoveAll(p.path)

		if _, err := s.db.Exec("DELETE FROM tools WHERE name = ? AND status = ?", p.name, statusPending); err != nil {
			return fmt.Errorf("failed to delete pending tool %s: %w", p.name, err)
		}
	}
	return nil
}

func insertTool(tx *sql.Tx, t *domain.InstalledTool, status string) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO tools
		(name, version, path, binary_path, url, installed_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Version, t.Path, t.BinaryPath, t.URL,
		t.InstalledAt.UTC().Format(time.RFC3339), status)
	return err
}

func (s *SQLiteState) write(t *domain.InstalledTool, status string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertTool(tx, t, status); err != nil {
		return err
	}
	return tx.Commit()
}

// Begin marks an install as pending. Only the first pending entry for a
// tool is kept; an installed entry is left alone until Record.
func (s *SQLiteState) Begin(t *domain.InstalledTool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var status string
	err := s.db.QueryRow("SELECT status FROM tools WHERE name = ?", t.Name).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s.write(t, statusPending)
	case err != nil:
		return err
	default:
		return nil
	}
}

func (s *SQLiteState) Record(t *domain.InstalledTool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(t, statusInstalled); err != nil {
		return err
	}
	return s.exportJSON()
}

func (s *SQLiteState) Get(name string) (*domain.InstalledTool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t domain.InstalledTool
	var installedAt string
	err := s.db.QueryRow(`
		SELECT name, version, path, binary_path, url, installed_at
		FROM tools WHERE name = ? AND status = ?`, name, statusInstalled).Scan(
		&t.Name, &t.Version, &t.Path, &t.BinaryPath, &t.URL, &installedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.InstalledAt, _ = time.Parse(time.RFC3339, installedAt)
	return &t, nil
}

func (s *SQLiteState) ListInstalled() (map[string]*domain.InstalledTool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listInstalled()
}

func (s *SQLiteState) listInstalled() (map[string]*domain.InstalledTool, error) {
	rows, err := s.db.Query(`
		SELECT name, version, path, binary_path, url, installed_at
		FROM tools WHERE status = ?`, statusInstalled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tools := make(map[string]*domain.InstalledTool)
	for rows.Next() {
		var t domain.InstalledTool
		var installedAt string
		if err := rows.Scan(&t.Name, &t.Version, &t.Path, &t.BinaryPath, &t.URL, &installedAt); err != nil {
			return nil, err
		}
		t.InstalledAt, _ = time.Parse(time.RFC3339, installedAt)
		tools[t.Name] = &t
	}
	return tools, rows.Err()
}

func (s *SQLiteState) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM tools WHERE name = ?", name); err != nil {
		return err
	}
	return s.exportJSON()
}

func (s *SQLiteState) exportJSON() error {
	if s.manifestPath == "" {
		return nil
	}
	tools, err := s.listInstalled()
	if err != nil {
		return err
	}
	return writeManifest(s.manifestPath, &domain.Manifest{Tools: tools})
}

func (s *SQLiteState) Close() error {
	return s.db.Close()
}
