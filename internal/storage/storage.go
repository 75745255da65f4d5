// Package storage persists the published vector index snapshot to SQLite
// so a restarted process can answer questions without reindexing.
//
// Persistence honors the snapshot publish semantics: SaveSnapshot replaces
// the entire stored snapshot inside one transaction, and LoadSnapshot
// either returns a complete snapshot or nothing.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"docchat/pkg/types"
)

// DriverName is the pure-Go SQLite driver.
const DriverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	built_at       INTEGER NOT NULL,
	document_count INTEGER NOT NULL,
	dimension      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id    TEXT    NOT NULL,
	document_title TEXT    NOT NULL,
	chunk_index    INTEGER NOT NULL,
	text           TEXT    NOT NULL,
	start_offset   INTEGER NOT NULL,
	end_offset     INTEGER NOT NULL,
	vector         BLOB    NOT NULL
);
`

// Snapshot is a loaded persistent snapshot.
type Snapshot struct {
	Chunks        []types.Chunk
	BuiltAt       time.Time
	DocumentCount int
}

// Store is a SQLite-backed snapshot store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode and a single writer connection, as SQLite prefers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the stored snapshot with the given chunks in one
// transaction. On error the previously stored snapshot is untouched.
func (s *Store) SaveSnapshot(ctx context.Context, chunks []types.Chunk, documentCount int, builtAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}

	dimension := 0
	if len(chunks) > 0 {
		dimension = len(chunks[0].Vector)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshot_meta (id, built_at, document_count, dimension) VALUES (1, ?, ?, ?)",
		builtAt.UnixMilli(), documentCount, dimension); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, document_title, chunk_index, text, start_offset, end_offset, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range chunks {
		c := &chunks[i]
		if _, err := stmt.ExecContext(ctx, c.DocumentID, c.DocumentTitle, c.Index,
			c.Text, c.StartOffset, c.EndOffset, serializeVector(c.Vector)); err != nil {
			return fmt.Errorf("insert chunk %d of %q: %w", c.Index, c.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot, or (nil, nil) when none has
// been saved.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var builtAtMillis int64
	var documentCount, dimension int
	err := s.db.QueryRowContext(ctx,
		"SELECT built_at, document_count, dimension FROM snapshot_meta WHERE id = 1").
		Scan(&builtAtMillis, &documentCount, &dimension)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, document_title, chunk_index, text, start_offset, end_offset, vector
		FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	snap := &Snapshot{
		BuiltAt:       time.UnixMilli(builtAtMillis),
		DocumentCount: documentCount,
	}
	for rows.Next() {
		var c types.Chunk
		var blob []byte
		if err := rows.Scan(&c.DocumentID, &c.DocumentTitle, &c.Index, &c.Text,
			&c.StartOffset, &c.EndOffset, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Vector = deserializeVector(blob)
		if dimension > 0 && len(c.Vector) != dimension {
			return nil, fmt.Errorf("chunk %d of %q: stored vector dimension %d, want %d",
				c.Index, c.DocumentID, len(c.Vector), dimension)
		}
		snap.Chunks = append(snap.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Clear removes the stored snapshot. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}
	return tx.Commit()
}

// serializeVector packs a float32 slice into a little-endian blob.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
