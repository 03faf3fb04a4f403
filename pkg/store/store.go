// Package store keeps a history of slicing runs in SQLite: one row per
// run with its configuration and statistics, plus the slices, polygons
// and tour order needed to reload the result.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/polygon"
	"github.com/google/uuid"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run ID is not in the store.
var ErrNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	mesh_path   TEXT,
	config_json TEXT,
	dim         INTEGER NOT NULL,
	thickness   REAL NOT NULL,
	facets      INTEGER,
	slices      INTEGER,
	polygons    INTEGER,
	vertices    INTEGER,
	coplanar    INTEGER,
	travel      REAL,
	cursor_x    INTEGER,
	cursor_y    INTEGER,
	elapsed_ns  INTEGER,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS slices (
	run_id      TEXT NOT NULL,
	slice_index INTEGER NOT NULL,
	z           REAL NOT NULL,
	segments    INTEGER,
	loops       INTEGER,
	cursor_x    INTEGER,
	cursor_y    INTEGER,
	PRIMARY KEY (run_id, slice_index),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS polygons (
	run_id        TEXT NOT NULL,
	slice_index   INTEGER NOT NULL,
	polygon_id    INTEGER NOT NULL,
	open          INTEGER NOT NULL,
	entry         INTEGER NOT NULL,
	exit          INTEGER NOT NULL,
	vertices_json TEXT NOT NULL,
	PRIMARY KEY (run_id, slice_index, polygon_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS tour (
	run_id      TEXT NOT NULL,
	slice_index INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	polygon_id  INTEGER NOT NULL,
	PRIMARY KEY (run_id, slice_index, position),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Run is the summary row of a stored run.
type Run struct {
	ID        string          `json:"run_id"`
	Name      string          `json:"name"`
	MeshPath  string          `json:"mesh_path,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
	Dim       int             `json:"dim"`
	Thickness float64         `json:"thickness"`
	Facets    int             `json:"facets"`
	Slices    int             `json:"slices"`
	Polygons  int             `json:"polygons"`
	Vertices  int             `json:"vertices"`
	Coplanar  int             `json:"coplanar"`
	Travel    float64         `json:"travel"`
	Cursor    image.Point     `json:"cursor"`
	Elapsed   time.Duration   `json:"elapsed"`
	CreatedAt int64           `json:"created_at"` // unix nanoseconds
}

// Store is a run history backed by a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores res under a new run ID. cfg is stored as JSON and may be
// nil. The returned Run carries the generated ID.
func (s *Store) SaveRun(ctx context.Context, name, meshPath string, cfg any, res *pipeline.Result) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Name:      name,
		MeshPath:  meshPath,
		Dim:       res.Dim,
		Thickness: res.Thickness,
		Facets:    res.Stats.Facets,
		Slices:    len(res.Slices),
		Polygons:  res.Stats.Polygons,
		Vertices:  res.Stats.Vertices,
		Coplanar:  res.Stats.Coplanar,
		Travel:    res.Stats.Travel,
		Cursor:    res.Cursor,
		Elapsed:   res.Stats.Elapsed,
		CreatedAt: time.Now().UnixNano(),
	}
	var cfgStr any
	if cfg != nil {
		b, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("store: marshal config: %w", err)
		}
		run.Config = b
		cfgStr = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, name, mesh_path, config_json, dim, thickness,
			facets, slices, polygons, vertices, coplanar, travel,
			cursor_x, cursor_y, elapsed_ns, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.MeshPath, cfgStr, run.Dim, run.Thickness,
		run.Facets, run.Slices, run.Polygons, run.Vertices, run.Coplanar, run.Travel,
		run.Cursor.X, run.Cursor.Y, int64(run.Elapsed), run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: insert run: %w", err)
	}

	for i := range res.Slices {
		if err := insertSlice(ctx, tx, run.ID, &res.Slices[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return run, nil
}

func insertSlice(ctx context.Context, tx *sql.Tx, runID string, sl *pipeline.Slice) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO slices (run_id, slice_index, z, segments, loops, cursor_x, cursor_y)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, sl.Index, sl.Z, sl.Segments, sl.Loops, sl.Cursor.X, sl.Cursor.Y,
	)
	if err != nil {
		return fmt.Errorf("store: insert slice %d: %w", sl.Index, err)
	}

	for id, p := range sl.Polygons {
		verts, err := json.Marshal(lo.Map(p.Vertices, func(v image.Point, _ int) [2]int {
			return [2]int{v.X, v.Y}
		}))
		if err != nil {
			return fmt.Errorf("store: marshal polygon: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO polygons (run_id, slice_index, polygon_id, open, entry, exit, vertices_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, sl.Index, id, p.Open, p.Entry, p.Exit, string(verts),
		)
		if err != nil {
			return fmt.Errorf("store: insert polygon %d/%d: %w", sl.Index, id, err)
		}
	}

	for pos, id := range sl.Order {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tour (run_id, slice_index, position, polygon_id) VALUES (?, ?, ?, ?)`,
			runID, sl.Index, pos, id,
		)
		if err != nil {
			return fmt.Errorf("store: insert tour %d/%d: %w", sl.Index, pos, err)
		}
	}
	return nil
}

const runColumns = `
	run_id, name, mesh_path, config_json, dim, thickness,
	facets, slices, polygons, vertices, coplanar, travel,
	cursor_x, cursor_y, elapsed_ns, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var meshPath, cfg sql.NullString
	var elapsed int64
	err := row.Scan(
		&r.ID, &r.Name, &meshPath, &cfg, &r.Dim, &r.Thickness,
		&r.Facets, &r.Slices, &r.Polygons, &r.Vertices, &r.Coplanar, &r.Travel,
		&r.Cursor.X, &r.Cursor.Y, &elapsed, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.MeshPath = meshPath.String
	if cfg.Valid {
		r.Config = json.RawMessage(cfg.String)
	}
	r.Elapsed = time.Duration(elapsed)
	return &r, nil
}

// ListRuns returns stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the summary row for id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan run: %w", err)
	}
	return r, nil
}

// LoadSlices rebuilds the slices of a stored run, with polygons, tour
// order, bounds and cursors.
func (s *Store) LoadSlices(ctx context.Context, id string) ([]pipeline.Slice, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT slice_index, z, segments, loops, cursor_x, cursor_y
		FROM slices WHERE run_id = ? ORDER BY slice_index`, id)
	if err != nil {
		return nil, fmt.Errorf("store: query slices: %w", err)
	}
	var slices []pipeline.Slice
	byIndex := make(map[int]int)
	for rows.Next() {
		var sl pipeline.Slice
		if err := rows.Scan(&sl.Index, &sl.Z, &sl.Segments, &sl.Loops, &sl.Cursor.X, &sl.Cursor.Y); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan slice: %w", err)
		}
		byIndex[sl.Index] = len(slices)
		slices = append(slices, sl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query slices: %w", err)
	}

	if err := s.loadPolygons(ctx, id, slices, byIndex); err != nil {
		return nil, err
	}
	if err := s.loadTour(ctx, id, slices, byIndex); err != nil {
		return nil, err
	}
	for i := range slices {
		slices[i].Bounds, _ = polygon.Bounds(slices[i].Polygons)
	}
	return slices, nil
}

func (s *Store) loadPolygons(ctx context.Context, id string, slices []pipeline.Slice, byIndex map[int]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slice_index, open, entry, exit, vertices_json
		FROM polygons WHERE run_id = ? ORDER BY slice_index, polygon_id`, id)
	if err != nil {
		return fmt.Errorf("store: query polygons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			index, entry, exit int
			open               bool
			verts              string
		)
		if err := rows.Scan(&index, &open, &entry, &exit, &verts); err != nil {
			return fmt.Errorf("store: scan polygon: %w", err)
		}
		var pts [][2]int
		if err := json.Unmarshal([]byte(verts), &pts); err != nil {
			return fmt.Errorf("store: polygon vertices: %w", err)
		}
		p := polygon.New(lo.Map(pts, func(v [2]int, _ int) image.Point { return image.Point{X: v[0], Y: v[1]} }))
		p.Open, p.Entry, p.Exit = open, entry, exit

		sl := &slices[byIndex[index]]
		sl.Polygons = append(sl.Polygons, p)
	}
	return rows.Err()
}

func (s *Store) loadTour(ctx context.Context, id string, slices []pipeline.Slice, byIndex map[int]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slice_index, polygon_id FROM tour WHERE run_id = ? ORDER BY slice_index, position`, id)
	if err != nil {
		return fmt.Errorf("store: query tour: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var index, pid int
		if err := rows.Scan(&index, &pid); err != nil {
			return fmt.Errorf("store: scan tour: %w", err)
		}
		sl := &slices[byIndex[index]]
		sl.Order = append(sl.Order, pid)
	}
	return rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
