// Package savedb keeps a small SQLite ledger of snapshot files: one row
// per save with its tick, game time, file path, and the data-file digests
// it was written against. The ledger answers "what is the newest save"
// without opening any snapshot, and makes pruning old saves safe.
package savedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Record is one saved snapshot.
type Record struct {
	ID              string    `db:"id"`
	CreatedAt       time.Time `db:"created_at"`
	Tick            uint64    `db:"tick"`
	GameTime        float64   `db:"game_time"`
	Path            string    `db:"path"`
	ItemsDigest     string    `db:"items_digest"`
	WorldDigest     string    `db:"world_digest"`
	RulesetsDigest  string    `db:"rulesets_digest"`
	SequencesDigest string    `db:"sequences_digest"`
}

type Store struct {
	db *sqlx.DB
}

// Open opens or creates the save ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("savedb: open: %w", err)
	}
	// modernc's driver is not safe for concurrent writers on one file;
	// a single connection serializes all access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("savedb: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		tick INTEGER NOT NULL,
		game_time REAL NOT NULL,
		path TEXT NOT NULL,
		items_digest TEXT NOT NULL,
		world_digest TEXT NOT NULL,
		rulesets_digest TEXT NOT NULL,
		sequences_digest TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_tick ON saves(tick);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Insert records a snapshot file. A missing ID and CreatedAt are filled in.
func (s *Store) Insert(rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExec(`
		INSERT INTO saves (id, created_at, tick, game_time, path,
			items_digest, world_digest, rulesets_digest, sequences_digest)
		VALUES (:id, :created_at, :tick, :game_time, :path,
			:items_digest, :world_digest, :rulesets_digest, :sequences_digest)`,
		rec)
	if err != nil {
		return Record{}, fmt.Errorf("savedb: insert: %w", err)
	}
	return rec, nil
}

// Latest returns the save with the highest tick, or ok=false when the
// ledger is empty.
func (s *Store) Latest() (Record, bool, error) {
	var rec Record
	err := s.db.Get(&rec, `SELECT * FROM saves ORDER BY tick DESC, created_at DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Get looks up one save by id.
func (s *Store) Get(id string) (Record, error) {
	var rec Record
	if err := s.db.Get(&rec, `SELECT * FROM saves WHERE id = ?`, id); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns up to limit saves, newest tick first. limit <= 0 means all.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	var out []Record
	err := s.db.Select(&out, `SELECT * FROM saves ORDER BY tick DESC, created_at DESC LIMIT ?`, limit)
	return out, err
}

// Prune deletes ledger rows beyond the keep newest saves and returns the
// file paths of the pruned rows so the caller can remove the snapshots.
func (s *Store) Prune(keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	var paths []string
	err := s.db.Select(&paths, `
		SELECT path FROM saves
		WHERE id NOT IN (SELECT id FROM saves ORDER BY tick DESC, created_at DESC LIMIT ?)`,
		keep)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(`
		DELETE FROM saves
		WHERE id NOT IN (SELECT id FROM saves ORDER BY tick DESC, created_at DESC LIMIT ?)`,
		keep)
	if err != nil {
		return nil, err
	}
	return paths, nil
}
