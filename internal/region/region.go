// Package region manages named, durable, append-only entry regions inside
// a single SQLite database. A Manager maps logical region names to row
// partitions the way a stable-memory manager maps region identifiers to
// physical pages. It is constructed and closed explicitly by the caller;
// there is no process-wide instance.
package region

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	_ "modernc.org/sqlite"
)

// ErrRegionFull is returned by Append when the manager's byte budget
// across live entries would be exceeded.
var ErrRegionFull = errors.New("region: capacity exhausted")

// Manager owns the SQLite database backing all regions.
type Manager struct {
	db       *sql.DB
	capacity uint64 // live-entry byte budget per region; 0 means unlimited
	logger   *slog.Logger
}

// NewManager opens (or creates) the database at dbPath. Use ":memory:"
// for an ephemeral database in tests. capacity limits the total size of
// live entry bodies in each region; pass 0 for no limit.
func NewManager(dbPath string, capacity uint64, logger *slog.Logger) (*Manager, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// A single connection keeps ":memory:" databases coherent and matches
	// the single-threaded host model the regions serve.
	db.SetMaxOpenConns(1)

	// Appends must be durable before they return success.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma synchronous: %w", err)
	}

	return &Manager{
		db:       db,
		capacity: capacity,
		logger:   logger.With("component", "region"),
	}, nil
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Migrate creates the schema.
func (m *Manager) Migrate(ctx context.Context) error {
	m.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, m.db)
}

// Open registers (or looks up) a named region and returns a handle to it.
func (m *Manager) Open(ctx context.Context, name string) (*Region, error) {
	m.logger.Debug("sql", "op", "open_region", "region", name)
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO regions (name, created_at) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("open region %s: %w", name, err)
	}
	return &Region{name: name, m: m}, nil
}

// Region is one named append-only entry sequence. Entries are never
// deleted; consuming an entry marks it so the live head advances past it.
type Region struct {
	name string
	m    *Manager
}

// Name returns the region's logical name.
func (r *Region) Name() string { return r.name }

// Append stores body as the new tail entry and returns its position.
// The entry is durable once Append returns nil.
func (r *Region) Append(ctx context.Context, body []byte) (uint64, error) {
	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if r.m.capacity > 0 {
		var live uint64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(LENGTH(body)), 0) FROM entries
			 WHERE region = ? AND consumed = 0`, r.name,
		).Scan(&live)
		if err != nil {
			return 0, err
		}
		if live+uint64(len(body)) > r.m.capacity {
			return 0, fmt.Errorf("%w: %s live + %s entry over %s budget",
				ErrRegionFull, humanize.Bytes(live),
				humanize.Bytes(uint64(len(body))), humanize.Bytes(r.m.capacity))
		}
	}

	var pos uint64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(pos) + 1, 0) FROM entries WHERE region = ?`, r.name,
	).Scan(&pos)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (region, pos, body, consumed, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		r.name, pos, body, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	r.m.logger.Debug("sql", "op", "append", "region", r.name, "pos", pos, "bytes", len(body))
	return pos, nil
}

// Read returns the body of the i-th live entry (zero-indexed from the
// live head), or nil when i is past the live tail. The entry stays live.
func (r *Region) Read(ctx context.Context, i uint64) ([]byte, error) {
	var body []byte
	err := r.m.db.QueryRowContext(ctx,
		`SELECT body FROM entries
		 WHERE region = ? AND consumed = 0
		 ORDER BY pos LIMIT 1 OFFSET ?`, r.name, i,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Consume claims the front live entry: it returns the body and marks the
// entry consumed in one transaction, so no other consumer can observe it
// live afterwards. Returns nil, nil when the region has no live entries.
func (r *Region) Consume(ctx context.Context) ([]byte, error) {
	tx, err := r.m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		pos  uint64
		body []byte
	)
	err = tx.QueryRowContext(ctx,
		`SELECT pos, body FROM entries
		 WHERE region = ? AND consumed = 0
		 ORDER BY pos LIMIT 1`, r.name,
	).Scan(&pos, &body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE entries SET consumed = 1 WHERE region = ? AND pos = ?`, r.name, pos,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.m.logger.Debug("sql", "op", "consume", "region", r.name, "pos", pos)
	return body, nil
}

// ReadAll returns the bodies of all live entries in order.
func (r *Region) ReadAll(ctx context.Context) ([][]byte, error) {
	rows, err := r.m.db.QueryContext(ctx,
		`SELECT body FROM entries
		 WHERE region = ? AND consumed = 0
		 ORDER BY pos`, r.name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bodies [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, rows.Err()
}

// Len returns the number of live entries.
func (r *Region) Len(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE region = ? AND consumed = 0`, r.name,
	).Scan(&n)
	return n, err
}

// Total returns the lifetime number of appended entries, consumed or not.
func (r *Region) Total(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE region = ?`, r.name,
	).Scan(&n)
	return n, err
}
