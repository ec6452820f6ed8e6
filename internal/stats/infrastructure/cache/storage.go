package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Storage persists the serialized cache as a single blob.
type Storage interface {
	// Load returns nil data when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FileStorage keeps the blob in a JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage constructs a FileStorage.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("cache: empty file path")
	}
	return &FileStorage{path: path}, nil
}

// Load reads the file.
func (s *FileStorage) Load(ctx context.Context) ([]byte, error) {
	_ = ctx
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save replaces the file atomically through a temporary sibling.
func (s *FileStorage) Save(ctx context.Context, data []byte) error {
	_ = ctx
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// PostgresStorage keeps the blob in one row of the stats_cache table.
type PostgresStorage struct {
	db    *sql.DB
	table string
	id    string
}

// PostgresOption configures PostgresStorage.
type PostgresOption func(*PostgresStorage)

// WithTable overrides the table name.
func WithTable(table string) PostgresOption {
	return func(s *PostgresStorage) {
		if table != "" {
			s.table = table
		}
	}
}

// WithRowID overrides the row id.
func WithRowID(id string) PostgresOption {
	return func(s *PostgresStorage) {
		if id != "" {
			s.id = id
		}
	}
}

// NewPostgresStorage constructs a PostgresStorage.
func NewPostgresStorage(db *sql.DB, opts ...PostgresOption) (*PostgresStorage, error) {
	if db == nil {
		return nil, errors.New("cache: nil db")
	}
	s := &PostgresStorage{db: db, table: "stats_cache", id: "periods"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads the payload row.
func (s *PostgresStorage) Load(ctx context.Context) ([]byte, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, s.table)
	var data []byte
	err := s.db.QueryRowContext(ctx, query, s.id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save upserts the payload row.
func (s *PostgresStorage) Save(ctx context.Context, data []byte) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (id) DO UPDATE SET
	payload = EXCLUDED.payload,
	updated_at = NOW()`, s.table)
	_, err := s.db.ExecContext(ctx, query, s.id, string(data))
	return err
}
