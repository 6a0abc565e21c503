package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidArtifact  = errors.New("invalid artifact")
)

// SQLiteStore is the key-value artifact vault. It supports put, get, get-all
// and delete keyed by artifact id; there are no queries or versions.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids writer contention.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS artifacts (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        type TEXT NOT NULL CHECK (type IN ('text', 'image', 'csv', 'audio')),
        content TEXT NOT NULL,
        mime_type TEXT,
        created_at DATETIME NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// PutArtifact stores the artifact, replacing any artifact with the same id.
func (s *SQLiteStore) PutArtifact(a *Artifact) error {
	if a.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidArtifact)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidArtifact, a.Type)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	stmt, err := s.db.Prepare(`
        INSERT INTO artifacts (id, name, type, content, mime_type, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            type = excluded.type,
            content = excluded.content,
            mime_type = excluded.mime_type,
            created_at = excluded.created_at
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare artifact put: %w", err)
	}
	defer stmt.Close()

	var mimeType sql.NullString
	if a.MimeType != "" {
		mimeType = sql.NullString{String: a.MimeType, Valid: true}
	}
	if _, err = stmt.Exec(a.ID, a.Name, string(a.Type), a.Content, mimeType, a.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to execute artifact put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetArtifact(id string) (*Artifact, error) {
	row := s.db.QueryRow("SELECT id, name, type, content, mime_type, created_at FROM artifacts WHERE id = ?", id)
	a, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return a, nil
}

// GetAllArtifacts returns every artifact in creation order.
func (s *SQLiteStore) GetAllArtifacts() ([]Artifact, error) {
	rows, err := s.db.Query("SELECT id, name, type, content, mime_type, created_at FROM artifacts ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		artifacts = append(artifacts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// DeleteArtifact removes the artifact with the given id. Deleting a missing id is a no-op.
func (s *SQLiteStore) DeleteArtifact(id string) error {
	if _, err := s.db.Exec("DELETE FROM artifacts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearArtifacts() error {
	if _, err := s.db.Exec("DELETE FROM artifacts"); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var a Artifact
	var artifactType string
	var mimeType sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &artifactType, &a.Content, &mimeType, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = ArtifactType(artifactType)
	if mimeType.Valid {
		a.MimeType = mimeType.String
	}
	return &a, nil
}
