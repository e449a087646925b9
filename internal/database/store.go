// Package database provides the storage layer for recorded grid trace runs.
//
// It implements the Store interface using SQLite in WAL mode. A run owns
// its waypoint transitions and frame samples; deleting a run cascades.
// The DBService struct is the primary entry point for all database
// operations.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Store defines the interface for run persistence.
type Store interface {
	// InsertRun creates a run, or updates label, status and params of an
	// existing one.
	InsertRun(run *Run) error
	// FinishRun stamps the end time, final status and counters.
	FinishRun(runID string, endTime int64, status string, frames, transitions int64) error
	// DeleteRun removes a run and everything recorded for it.
	DeleteRun(runID string) error

	// BatchInsertTransitions inserts transitions in a single transaction.
	BatchInsertTransitions(trs []*TransitionRecord) error
	// BatchInsertFrames inserts frame samples in a single transaction.
	BatchInsertFrames(frames []*FrameSample) error

	// QueryRuns returns runs matching the filter, newest first.
	QueryRuns(filter RunFilter) ([]*Run, error)
	// GetRun returns one run or ErrRunNotFound.
	GetRun(runID string) (*Run, error)
	// QueryTransitions returns a run's transitions in sequence order.
	QueryTransitions(runID string) ([]*TransitionRecord, error)
	// QueryFrames returns a run's frame samples in frame order.
	QueryFrames(runID string) ([]*FrameSample, error)
	// GetRunStats aggregates a run's recorded data.
	GetRunStats(runID string) (*RunStats, error)

	// Close gracefully shuts down the database connection.
	Close() error
}

// ============================================================
// Domain Models
// ============================================================

// Run is one recording session of the grid trace.
type Run struct {
	RunID       string  `json:"run_id"`
	Label       string  `json:"label"`
	Seed        int64   `json:"seed"`
	StartTime   int64   `json:"start_time"`
	EndTime     *int64  `json:"end_time,omitempty"`
	Status      string  `json:"status"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	FPS         float64 `json:"fps"`
	Params      *string `json:"params,omitempty"` // JSON-encoded gridtrace.Params
	Frames      int64   `json:"frames"`
	Transitions int64   `json:"transitions"`
}

// TransitionRecord is one stored waypoint transition.
type TransitionRecord struct {
	RunID      string  `json:"run_id"`
	Seq        int64   `json:"seq"`
	AtMs       float64 `json:"at_ms"`
	FromI      int     `json:"from_i"`
	FromJ      int     `json:"from_j"`
	ToI        int     `json:"to_i"`
	ToJ        int     `json:"to_j"`
	DI         int     `json:"di"`
	DJ         int     `json:"dj"`
	ScrollVel  float64 `json:"scroll_vel"`
	Candidates int     `json:"candidates"`
	Stalled    bool    `json:"stalled"`
}

// FrameSample is the animator state captured every few frames.
type FrameSample struct {
	RunID     string  `json:"run_id"`
	Frame     int64   `json:"frame"`
	AtMs      float64 `json:"at_ms"`
	ScrollY   float64 `json:"scroll_y"`
	ScrollVel float64 `json:"scroll_vel"`
	HeadX     float64 `json:"head_x"`
	HeadY     float64 `json:"head_y"`
	Segments  int     `json:"segments"`
}

// RunFilter defines query parameters for run listing.
type RunFilter struct {
	Label  *string `json:"label,omitempty"`
	Status *string `json:"status,omitempty"`
	Since  *int64  `json:"since,omitempty"` // Unix nanoseconds
	Until  *int64  `json:"until,omitempty"` // Unix nanoseconds
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// RunStats holds aggregated statistics for a single run.
type RunStats struct {
	RunID         string  `json:"run_id"`
	Transitions   int     `json:"transitions"`
	Stalls        int     `json:"stalls"`
	DistinctCells int     `json:"distinct_cells"`
	FrameSamples  int     `json:"frame_samples"`
	DurationMs    float64 `json:"duration_ms"`
	MeanScrollVel float64 `json:"mean_scroll_vel"`
	MaxScrollVel  float64 `json:"max_scroll_vel"`
}

// ============================================================
// DBService Implementation
// ============================================================

// DBService implements the Store interface using SQLite.
// Writes take the mutex exclusively; reads share it.
type DBService struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	stmtInsertRun        *sql.Stmt
	stmtFinishRun        *sql.Stmt
	stmtInsertTransition *sql.Stmt
	stmtInsertFrame      *sql.Stmt
}

// NewDBService opens the database at path, applies the embedded schema and
// prepares the hot-path statements. Use ":memory:" for tests.
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_cache_size=-64000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps a ":memory:" database alive and shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{
		db:   db,
		path: path,
	}

	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if err := svc.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}

	return svc, nil
}

// Path is the database location the service was opened with.
func (s *DBService) Path() string { return s.path }

func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

func (s *DBService) prepareStatements() error {
	var err error

	s.stmtInsertRun, err = s.db.Prepare(`
		INSERT INTO runs (run_id, label, seed, start_time, end_time, status, width, height, fps, params)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			label = excluded.label,
			end_time = COALESCE(excluded.end_time, runs.end_time),
			status = excluded.status,
			params = COALESCE(excluded.params, runs.params)
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertRun: %w", err)
	}

	s.stmtFinishRun, err = s.db.Prepare(`
		UPDATE runs SET end_time = ?, status = ?, frames = ?, transitions = ? WHERE run_id = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing FinishRun: %w", err)
	}

	s.stmtInsertTransition, err = s.db.Prepare(`
		INSERT INTO transitions (run_id, seq, at_ms, from_i, from_j, to_i, to_j,
			di, dj, scroll_vel, candidates, stalled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertTransition: %w", err)
	}

	s.stmtInsertFrame, err = s.db.Prepare(`
		INSERT INTO frame_samples (run_id, frame, at_ms, scroll_y, scroll_vel, head_x, head_y, segments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, frame) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertFrame: %w", err)
	}

	return nil
}

// InsertRun persists a run. Re-inserting an existing ID updates its label,
// status, end time and params.
func (s *DBService) InsertRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := run.Status
	if status == "" {
		status = StatusRunning
	}
	_, err := s.stmtInsertRun.Exec(
		run.RunID, run.Label, run.Seed, run.StartTime, run.EndTime, status,
		run.Width, run.Height, run.FPS, run.Params,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun closes a run.
func (s *DBService) FinishRun(runID string, endTime int64, status string, frames, transitions int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.stmtFinishRun.Exec(endTime, status, frames, transitions, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// DeleteRun removes a run; transitions and samples cascade.
func (s *DBService) DeleteRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deleting run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// BatchInsertTransitions inserts transitions within a single transaction.
// Duplicate (run, seq) pairs are ignored.
func (s *DBService) BatchInsertTransitions(trs []*TransitionRecord) error {
	if len(trs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning batch transition transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt := tx.Stmt(s.stmtInsertTransition)
	for _, tr := range trs {
		_, err := stmt.Exec(
			tr.RunID, tr.Seq, tr.AtMs, tr.FromI, tr.FromJ, tr.ToI, tr.ToJ,
			tr.DI, tr.DJ, tr.ScrollVel, tr.Candidates, tr.Stalled,
		)
		if err != nil {
			return fmt.Errorf("batch inserting transition %s/%d: %w", tr.RunID, tr.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch transition transaction: %w", err)
	}
	return nil
}

// BatchInsertFrames inserts frame samples within a single transaction.
func (s *DBService) BatchInsertFrames(frames []*FrameSample) error {
	if len(frames) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning batch frame transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.Stmt(s.stmtInsertFrame)
	for _, f := range frames {
		_, err := stmt.Exec(
			f.RunID, f.Frame, f.AtMs, f.ScrollY, f.ScrollVel, f.HeadX, f.HeadY, f.Segments,
		)
		if err != nil {
			return fmt.Errorf("batch inserting frame %s/%d: %w", f.RunID, f.Frame, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch frame transaction: %w", err)
	}
	return nil
}

const runColumns = `run_id, label, seed, start_time, end_time, status, width, height, fps, params, frames, transitions`

// QueryRuns returns runs matching the filter, ordered by start_time
// descending (most recent first).
func (s *DBService) QueryRuns(filter RunFilter) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]interface{}, 0)

	if filter.Label != nil {
		query += ` AND label = ?`
		args = append(args, *filter.Label)
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	if filter.Since != nil {
		query += ` AND start_time >= ?`
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += ` AND start_time <= ?`
		args = append(args, *filter.Until)
	}

	query += ` ORDER BY start_time DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else {
		query += ` LIMIT 100`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run.
func (s *DBService) GetRun(runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	return r, err
}

// QueryTransitions returns all transitions of a run in sequence order.
func (s *DBService) QueryTransitions(runID string) ([]*TransitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT run_id, seq, at_ms, from_i, from_j, to_i, to_j, di, dj, scroll_vel, candidates, stalled
		FROM transitions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying transitions for run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// QueryFrames returns all frame samples of a run in frame order.
func (s *DBService) QueryFrames(runID string) ([]*FrameSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT run_id, frame, at_ms, scroll_y, scroll_vel, head_x, head_y, segments
		FROM frame_samples
		WHERE run_id = ?
		ORDER BY frame ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying frames for run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanFrames(rows)
}

// GetRunStats returns aggregated statistics for a run.
func (s *DBService) GetRunStats(runID string) (*RunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &RunStats{RunID: runID}

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(stalled), 0),
			COUNT(DISTINCT to_i || ',' || to_j),
			COALESCE(MAX(at_ms) - MIN(at_ms), 0),
			COALESCE(AVG(ABS(scroll_vel)), 0),
			COALESCE(MAX(ABS(scroll_vel)), 0)
		FROM transitions
		WHERE run_id = ?
	`, runID).Scan(
		&stats.Transitions, &stats.Stalls, &stats.DistinctCells,
		&stats.DurationMs, &stats.MeanScrollVel, &stats.MaxScrollVel,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run stats for %s: %w", runID, err)
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM frame_samples WHERE run_id = ?`, runID).Scan(&stats.FrameSamples)
	if err != nil {
		return nil, fmt.Errorf("counting frame samples for run %s: %w", runID, err)
	}

	return stats, nil
}

// Close closes all prepared statements and the underlying connection pool.
func (s *DBService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmts := []*sql.Stmt{
		s.stmtInsertRun, s.stmtFinishRun, s.stmtInsertTransition, s.stmtInsertFrame,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// ============================================================
// Scan Helpers
// ============================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	r := &Run{}
	if err := row.Scan(
		&r.RunID, &r.Label, &r.Seed, &r.StartTime, &r.EndTime, &r.Status,
		&r.Width, &r.Height, &r.FPS, &r.Params, &r.Frames, &r.Transitions,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run row: %w", err)
	}
	return r, nil
}

func scanTransitions(rows *sql.Rows) ([]*TransitionRecord, error) {
	var trs []*TransitionRecord
	for rows.Next() {
		tr := &TransitionRecord{}
		if err := rows.Scan(
			&tr.RunID, &tr.Seq, &tr.AtMs, &tr.FromI, &tr.FromJ, &tr.ToI, &tr.ToJ,
			&tr.DI, &tr.DJ, &tr.ScrollVel, &tr.Candidates, &tr.Stalled,
		); err != nil {
			return nil, fmt.Errorf("scanning transition row: %w", err)
		}
		trs = append(trs, tr)
	}
	return trs, rows.Err()
}

func scanFrames(rows *sql.Rows) ([]*FrameSample, error) {
	var frames []*FrameSample
	for rows.Next() {
		f := &FrameSample{}
		if err := rows.Scan(
			&f.RunID, &f.Frame, &f.AtMs, &f.ScrollY, &f.ScrollVel, &f.HeadX, &f.HeadY, &f.Segments,
		); err != nil {
			return nil, fmt.Errorf("scanning frame row: %w", err)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}
