// Package history persists optimization runs and their per-iteration
// trajectory in SQLite, so past runs can be listed and reported on.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	started_at        TEXT NOT NULL,
	finished_at       TEXT,
	model             TEXT NOT NULL,
	train_size        INTEGER NOT NULL,
	holdout_size      INTEGER NOT NULL,
	seed              INTEGER NOT NULL,
	outcome           TEXT,
	training_accuracy REAL,
	holdout_accuracy  REAL,
	tokens            REAL,
	score             REAL
);

CREATE TABLE IF NOT EXISTS iterations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	phase      TEXT NOT NULL,
	number     INTEGER NOT NULL,
	accuracy   REAL NOT NULL,
	tokens     REAL NOT NULL,
	score      REAL NOT NULL,
	accepted   INTEGER NOT NULL,
	reason     TEXT NOT NULL,
	latency_ms REAL NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Run is one optimization run's summary row. Outcome is empty while the run
// is still in flight.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	Model            string
	TrainSize        int
	HoldoutSize      int
	Seed             int64
	Outcome          string
	TrainingAccuracy float64
	HoldoutAccuracy  float64
	Tokens           float64
	Score            float64
}

// Iteration is one phase iteration within a run.
type Iteration struct {
	Phase     string
	Number    int
	Accuracy  float64
	Tokens    float64
	Score     float64
	Accepted  bool
	Reason    string
	LatencyMS float64
}

// Store records runs and iterations in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts a new in-flight run and returns its ID.
func (s *Store) BeginRun(model string, trainSize, holdoutSize int, seed int64) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at, model, train_size, holdout_size, seed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), model, trainSize, holdoutSize, seed,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordIteration appends one iteration row to a run.
func (s *Store) RecordIteration(runID string, it Iteration) error {
	accepted := 0
	if it.Accepted {
		accepted = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO iterations (run_id, phase, number, accuracy, tokens, score, accepted, reason, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, it.Phase, it.Number, it.Accuracy, it.Tokens, it.Score, accepted, it.Reason,
		it.LatencyMS, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert iteration: %w", err)
	}
	return nil
}

// FinishRun stamps the run's terminal outcome and final metrics.
func (s *Store) FinishRun(runID, outcome string, trainingAccuracy, holdoutAccuracy, tokens, score float64) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, outcome = ?, training_accuracy = ?, holdout_accuracy = ?, tokens = ?, score = ?
		 WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), outcome, trainingAccuracy, holdoutAccuracy, tokens, score, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Runs lists all runs, most recent first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, started_at, finished_at, model, train_size, holdout_size, seed,
		        outcome, training_accuracy, holdout_accuracy, tokens, score
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedStr string
		var finishedStr, outcome sql.NullString
		var trainAcc, holdAcc, tokens, score sql.NullFloat64

		if err := rows.Scan(&r.ID, &startedStr, &finishedStr, &r.Model, &r.TrainSize, &r.HoldoutSize,
			&r.Seed, &outcome, &trainAcc, &holdAcc, &tokens, &score); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		if finishedStr.Valid {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr.String)
		}
		r.Outcome = outcome.String
		r.TrainingAccuracy = trainAcc.Float64
		r.HoldoutAccuracy = holdAcc.Float64
		r.Tokens = tokens.Float64
		r.Score = score.Float64
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Iterations returns a run's iteration trajectory in insertion order.
func (s *Store) Iterations(runID string) ([]Iteration, error) {
	rows, err := s.db.Query(
		`SELECT phase, number, accuracy, tokens, score, accepted, reason, latency_ms
		 FROM iterations WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var iters []Iteration
	for rows.Next() {
		var it Iteration
		var accepted int
		if err := rows.Scan(&it.Phase, &it.Number, &it.Accuracy, &it.Tokens, &it.Score,
			&accepted, &it.Reason, &it.LatencyMS); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		it.Accepted = accepted == 1
		iters = append(iters, it)
	}
	return iters, rows.Err()
}
