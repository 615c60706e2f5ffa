package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Store provides SQLite-backed run persistence. The full run state is
// kept as a JSON snapshot; the indexed columns exist for listing and
// pruning without decoding every row.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates a run snapshot
func (s *Store) SaveRun(run *domain.DiscoveryRun) error {
	snapshot, err := json.Marshal(run)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, query, domain, status, overall_score, quality_tier, error, snapshot, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			overall_score = excluded.overall_score,
			quality_tier = excluded.quality_tier,
			error = excluded.error,
			snapshot = excluded.snapshot,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`,
		run.ID,
		run.Query,
		run.Domain,
		string(run.Status),
		run.OverallScore,
		string(run.QualityTier),
		run.Error,
		string(snapshot),
		run.CreatedAt,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.DiscoveryRun, error) {
	var snapshot string
	err := s.db.QueryRow(`SELECT snapshot FROM runs WHERE id = ?`, id).Scan(&snapshot)
	if err != nil {
		return nil, err
	}

	var run domain.DiscoveryRun
	if err := json.Unmarshal([]byte(snapshot), &run); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return &run, nil
}

// ListOptions specifies filters for listing runs
type ListOptions struct {
	Domain string
	Status domain.RunStatus
	Limit  int
}

// ListRuns returns runs matching the given options, newest first
func (s *Store) ListRuns(opts ListOptions) ([]*domain.DiscoveryRun, error) {
	query := `SELECT snapshot FROM runs WHERE 1=1`
	var args []interface{}

	if opts.Domain != "" {
		query += " AND domain = ?"
		args = append(args, opts.Domain)
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}

	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.DiscoveryRun
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, err
		}
		var run domain.DiscoveryRun
		if err := json.Unmarshal([]byte(snapshot), &run); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// Prune deletes terminal runs that finished before the cutoff and
// returns the number of rows removed
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM runs
		WHERE finished_at IS NOT NULL AND finished_at < ?
		AND status IN (?, ?, ?, ?)
	`,
		olderThan,
		string(domain.RunCompleted),
		string(domain.RunCompletedPartial),
		string(domain.RunFailed),
		string(domain.RunCancelled),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByStatus returns run counts grouped by status
func (s *Store) CountByStatus() (map[domain.RunStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RunStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.RunStatus(status)] = n
	}
	return counts, rows.Err()
}
