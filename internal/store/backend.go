package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/sydlexius/aurral/internal/database"
	"github.com/sydlexius/aurral/internal/filesystem"
)

// ErrNoDocument is returned by a Backend that holds no document yet.
var ErrNoDocument = errors.New("no document stored")

// Backend persists the encoded document as one blob.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// FileBackend stores the document as a JSON file replaced atomically on
// every save.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the document file.
func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := filesystem.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}
	return data, nil
}

// Save replaces the document file.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	if err := filesystem.WriteFileAtomic(b.path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", b.path, err)
	}
	return nil
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }

const documentName = "state"

// SQLiteBackend stores the document as a single row in a SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLiteBackend opens (and migrates) the database at path.
func OpenSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

// Load reads the document row.
func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	var body []byte
	err := b.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, documentName).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return body, nil
}

// Save upserts the document row.
func (b *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO documents (name, body) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		documentName, data)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error { return b.db.Close() }
