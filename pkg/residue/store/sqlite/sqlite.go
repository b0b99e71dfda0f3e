package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/internalerr"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/similarity"
	"github.com/cognicore/residue/pkg/residue/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	row_count INTEGER NOT NULL DEFAULT 0,
	settings TEXT
);

CREATE TABLE IF NOT EXISTS masked_records (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	resource_id TEXT,
	resource_name TEXT,
	masked_name TEXT,
	residual TEXT,
	pct_removed REAL,
	is_glued INTEGER,
	failed INTEGER,
	payload TEXT NOT NULL,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS protect_entries (
	run_id TEXT NOT NULL,
	tbl TEXT NOT NULL,
	seq INTEGER NOT NULL,
	chunk TEXT NOT NULL,
	support_names INTEGER,
	total_cost REAL,
	payload TEXT NOT NULL,
	PRIMARY KEY(run_id, tbl, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS glued_results (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	resource_id TEXT,
	explained INTEGER,
	fail_offset INTEGER,
	payload TEXT NOT NULL,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS entity_groups (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	canonical TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_masked_records_resource ON masked_records(resource_id);
CREATE INDEX IF NOT EXISTS idx_protect_entries_chunk ON protect_entries(chunk);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// BeginRun inserts or updates a run
func (s *sqliteStore) BeginRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("begin run: empty id: %w", internalerr.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs(id, started_at, row_count, settings) VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, row_count=excluded.row_count, settings=excluded.settings
	`, r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.Rows, r.Settings)
	return err
}

// GetRun returns a run by id
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, started_at, row_count, settings FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, err
}

// LatestRun returns the run with the greatest id. Run ids are ULIDs, so
// this is the newest run.
func (s *sqliteStore) LatestRun(ctx context.Context) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, started_at, row_count, settings FROM runs ORDER BY id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

func scanRun(row *sql.Row) (store.Run, error) {
	var (
		r        store.Run
		started  string
		settings sql.NullString
	)
	if err := row.Scan(&r.ID, &started, &r.Rows, &settings); err != nil {
		return store.Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return store.Run{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	r.StartedAt = t
	r.Settings = settings.String
	return r, nil
}

func (s *sqliteStore) requireRun(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	return err
}

// replace runs the delete statement and inserts the new rows in a
// single transaction.
func (s *sqliteStore) replace(ctx context.Context, del string, delArgs []any, insert string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PutRecords replaces the masked records of a run
func (s *sqliteStore) PutRecords(ctx context.Context, runID string, recs []mask.Record) error {
	if err := s.requireRun(ctx, runID); err != nil {
		return err
	}
	rows := make([][]any, 0, len(recs))
	for i, r := range recs {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ResourceID, err)
		}
		rows = append(rows, []any{runID, i, r.ResourceID, r.ResourceName, r.MaskedName, r.Residual, r.PctRemoved, boolInt(r.IsGlued), boolInt(r.Failed), string(payload)})
	}
	return s.replace(ctx,
		`DELETE FROM masked_records WHERE run_id = ?`, []any{runID},
		`INSERT INTO masked_records(run_id, seq, resource_id, resource_name, masked_name, residual, pct_removed, is_glued, failed, payload) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rows)
}

// Records returns the masked records of a run in input order
func (s *sqliteStore) Records(ctx context.Context, runID string) ([]mask.Record, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	var out []mask.Record
	err := s.loadPayloads(ctx, `SELECT payload FROM masked_records WHERE run_id = ? ORDER BY seq`, []any{runID}, func(b []byte) error {
		var r mask.Record
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// PutProtectSet replaces one protect-set table of a run
func (s *sqliteStore) PutProtectSet(ctx context.Context, runID, table string, entries []protect.Entry) error {
	if !store.ValidTable(table) {
		return fmt.Errorf("protect table %q: %w", table, internalerr.ErrInvalidInput)
	}
	if err := s.requireRun(ctx, runID); err != nil {
		return err
	}
	rows := make([][]any, 0, len(entries))
	for i, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", e.Chunk, err)
		}
		rows = append(rows, []any{runID, table, i, e.Chunk, e.SupportNames, e.TotalCost, string(payload)})
	}
	return s.replace(ctx,
		`DELETE FROM protect_entries WHERE run_id = ? AND tbl = ?`, []any{runID, table},
		`INSERT INTO protect_entries(run_id, tbl, seq, chunk, support_names, total_cost, payload) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rows)
}

// ProtectSet returns one protect-set table of a run
func (s *sqliteStore) ProtectSet(ctx context.Context, runID, table string) ([]protect.Entry, error) {
	if !store.ValidTable(table) {
		return nil, fmt.Errorf("protect table %q: %w", table, internalerr.ErrInvalidInput)
	}
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	var out []protect.Entry
	err := s.loadPayloads(ctx, `SELECT payload FROM protect_entries WHERE run_id = ? AND tbl = ? ORDER BY seq`, []any{runID, table}, func(b []byte) error {
		var e protect.Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// PutGluedResults replaces the coverage results of a run
func (s *sqliteStore) PutGluedResults(ctx context.Context, runID string, results []glued.Result) error {
	if err := s.requireRun(ctx, runID); err != nil {
		return err
	}
	rows := make([][]any, 0, len(results))
	for i, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode coverage %s: %w", r.ResourceID, err)
		}
		var fail sql.NullInt64
		if r.FailOffset != nil {
			fail = sql.NullInt64{Int64: int64(*r.FailOffset), Valid: true}
		}
		rows = append(rows, []any{runID, i, r.ResourceID, boolInt(r.Explained), fail, string(payload)})
	}
	return s.replace(ctx,
		`DELETE FROM glued_results WHERE run_id = ?`, []any{runID},
		`INSERT INTO glued_results(run_id, seq, resource_id, explained, fail_offset, payload) VALUES(?, ?, ?, ?, ?, ?)`,
		rows)
}

// GluedResults returns the coverage results of a run
func (s *sqliteStore) GluedResults(ctx context.Context, runID string) ([]glued.Result, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	var out []glued.Result
	err := s.loadPayloads(ctx, `SELECT payload FROM glued_results WHERE run_id = ? ORDER BY seq`, []any{runID}, func(b []byte) error {
		var r glued.Result
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// PutGroups replaces the entity groups of a run
func (s *sqliteStore) PutGroups(ctx context.Context, runID string, groups []similarity.Group) error {
	if err := s.requireRun(ctx, runID); err != nil {
		return err
	}
	rows := make([][]any, 0, len(groups))
	for i, g := range groups {
		payload, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encode group %s: %w", g.Canonical, err)
		}
		rows = append(rows, []any{runID, i, g.Canonical, string(payload)})
	}
	return s.replace(ctx,
		`DELETE FROM entity_groups WHERE run_id = ?`, []any{runID},
		`INSERT INTO entity_groups(run_id, seq, canonical, payload) VALUES(?, ?, ?, ?)`,
		rows)
}

// Groups returns the entity groups of a run
func (s *sqliteStore) Groups(ctx context.Context, runID string) ([]similarity.Group, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	var out []similarity.Group
	err := s.loadPayloads(ctx, `SELECT payload FROM entity_groups WHERE run_id = ? ORDER BY seq`, []any{runID}, func(b []byte) error {
		var g similarity.Group
		if err := json.Unmarshal(b, &g); err != nil {
			return err
		}
		out = append(out, g)
		return nil
	})
	return out, err
}

func (s *sqliteStore) loadPayloads(ctx context.Context, query string, args []any, fn func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		if err := fn([]byte(payload)); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
