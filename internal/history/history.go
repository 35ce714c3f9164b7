// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps a journal of stored fits in a SQLite database,
// so fit results survive across sessions and can be reviewed later.
// Journal failures are reported to the caller but are never fatal to
// the analysis itself.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS fits (
	id          TEXT PRIMARY KEY,
	stored_at   INTEGER NOT NULL,
	spectrum    TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	fit_id      TEXT NOT NULL,
	model       TEXT NOT NULL,
	bg_degree   INTEGER NOT NULL,
	npeaks      INTEGER NOT NULL,
	params      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_fits_spectrum ON fits(spectrum);
CREATE INDEX IF NOT EXISTS idx_fits_stored_at ON fits(stored_at);
`

// Entry is one journal record: a fit stored into a spectrum.
type Entry struct {
	ID          string
	StoredAt    time.Time
	Spectrum    string
	Fingerprint string
	FitID       string
	Model       string
	BgDegree    int
	NPeaks      int
	Params      string
}

// Journal is the fit journal backed by a SQLite database.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

// Path returns the database path.
func (j *Journal) Path() string { return j.path }

// Close closes the journal.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record appends an entry. A missing ID or timestamp is filled in.
func (j *Journal) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}
	_, err := j.db.Exec(
		`INSERT INTO fits (id, stored_at, spectrum, fingerprint, fit_id, model, bg_degree, npeaks, params)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StoredAt.Unix(), e.Spectrum, e.Fingerprint, e.FitID, e.Model, e.BgDegree, e.NPeaks, e.Params,
	)
	return err
}

// Recent returns up to limit entries, newest first. A non-empty
// spectrum restricts the result to that spectrum name.
func (j *Journal) Recent(limit int, spectrum string) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, stored_at, spectrum, fingerprint, fit_id, model, bg_degree, npeaks, params
		FROM fits`
	args := []any{}
	if spectrum != "" {
		query += ` WHERE spectrum = ?`
		args = append(args, spectrum)
	}
	query += ` ORDER BY stored_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var storedAt int64
		if err := rows.Scan(&e.ID, &storedAt, &e.Spectrum, &e.Fingerprint, &e.FitID, &e.Model, &e.BgDegree, &e.NPeaks, &e.Params); err != nil {
			return nil, err
		}
		e.StoredAt = time.Unix(storedAt, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of journal entries.
func (j *Journal) Count() (int, error) {
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM fits`).Scan(&n)
	return n, err
}
