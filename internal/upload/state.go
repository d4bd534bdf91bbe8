package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Sent is what the state database remembers about a document delivered to
// a server.
type Sent struct {
	Size     int64
	Hash     string
	Workouts int
	SentAt   time.Time
}

// StateDB remembers, per server, which workout documents were delivered so
// unchanged files are not sent again.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sent_documents (
		server   TEXT NOT NULL,
		path     TEXT NOT NULL,
		size     INTEGER NOT NULL,
		hash     TEXT NOT NULL,
		workouts INTEGER NOT NULL,
		sent_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (server, path)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// Lookup returns the last delivery of relPath to server, or ok=false when
// it was never sent there.
func (s *StateDB) Lookup(server, relPath string) (sent Sent, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT size, hash, workouts, sent_at FROM sent_documents WHERE server = ? AND path = ?`,
		server, relPath,
	).Scan(&sent.Size, &sent.Hash, &sent.Workouts, &sent.SentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Sent{}, false, nil
	}
	if err != nil {
		return Sent{}, false, err
	}
	return sent, true, nil
}

// IsUploaded reports whether relPath was delivered to server with the same
// size and hash.
func (s *StateDB) IsUploaded(server, relPath string, size int64, hash string) (bool, error) {
	sent, ok, err := s.Lookup(server, relPath)
	if err != nil || !ok {
		return false, err
	}
	return sent.Size == size && sent.Hash == hash, nil
}

// MarkUploaded records a delivery, replacing any earlier one of the same
// path to the same server.
func (s *StateDB) MarkUploaded(server, relPath string, size int64, hash string, workouts int) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sent_documents (server, path, size, hash, workouts, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		server, relPath, size, hash, workouts, time.Now().UTC(),
	)
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
