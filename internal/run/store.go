// Package run persists quality engine invocations and their per-tool
// results.
package run

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metalagman/vigil/internal/engine"
)

// Store provides persistence for runs and their tool results.
type Store struct {
	db *sql.DB
}

// NewStore creates a store for run persistence.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Record is a persisted run summary.
type Record struct {
	RunID      string
	CreatedAt  string
	Mode       string
	Status     string
	Success    bool
	IssueCount int
	Duration   time.Duration
	FileCount  int
}

// ResultRecord is one tool's persisted slot within a run.
type ResultRecord struct {
	RunID      string
	ToolName   string
	Category   string
	Status     string
	ErrorKind  string
	Message    string
	IssueCount int
	IssuesJSON string
}

// CreateRun inserts the run record in the running state.
func (s *Store) CreateRun(ctx context.Context, runID, mode string, fileCount int) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, mode, status, success, issue_count, duration_ms, file_count)
		VALUES(?, ?, ?, ?, 0, 0, 0, ?)`,
		runID, createdAt, mode, "running", fileCount); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CommitOutput stores the engine output for a run in one transaction: the
// per-tool result rows plus the final run update.
func (s *Store) CommitOutput(ctx context.Context, runID string, out *engine.Output) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit output: %w", err)
	}
	for name, entry := range out.Summary {
		row, err := resultRow(runID, name, entry)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO results(run_id, tool_name, category, status, error_kind, message, issue_count, issues_json)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			row.RunID, row.ToolName, row.Category, row.Status,
			nullableString(row.ErrorKind), nullableString(row.Message), row.IssueCount, nullableString(row.IssuesJSON)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert result: %w", err)
		}
	}
	status := "failed"
	if out.Success {
		status = "passed"
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, success=?, issue_count=?, duration_ms=? WHERE run_id=?`,
		status, boolInt(out.Success), out.AggregatedIssueCount, out.Duration.Milliseconds(), runID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit output: %w", err)
	}
	return nil
}

func resultRow(runID, name string, entry engine.Entry) (ResultRecord, error) {
	row := ResultRecord{RunID: runID, ToolName: name}
	if entry.Failed() {
		row.Status = "failed"
		row.ErrorKind = entry.Failure.ErrorKind
		row.Message = entry.Failure.Message
		return row, nil
	}
	row.Status = "ok"
	row.Category = entry.Result.Category
	row.IssueCount = entry.Result.Count()
	if entry.Result.HasIssues() {
		data, err := json.Marshal(entry.Result.Issues)
		if err != nil {
			return ResultRecord{}, fmt.Errorf("marshal issues: %w", err)
		}
		row.IssuesJSON = string(data)
	}
	return row, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, mode, status, success, issue_count, duration_ms, file_count
		FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		var success int
		var durationMS int64
		if err := rows.Scan(&rec.RunID, &rec.CreatedAt, &rec.Mode, &rec.Status, &success, &rec.IssueCount, &durationMS, &rec.FileCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Success = success != 0
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun returns one run and its per-tool results.
func (s *Store) GetRun(ctx context.Context, runID string) (Record, []ResultRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, created_at, mode, status, success, issue_count, duration_ms, file_count
		FROM runs WHERE run_id=?`, runID)
	var rec Record
	var success int
	var durationMS int64
	if err := row.Scan(&rec.RunID, &rec.CreatedAt, &rec.Mode, &rec.Status, &success, &rec.IssueCount, &durationMS, &rec.FileCount); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, nil, fmt.Errorf("run %s not found", runID)
		}
		return Record{}, nil, fmt.Errorf("read run: %w", err)
	}
	rec.Success = success != 0
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	rows, err := s.db.QueryContext(ctx, `SELECT tool_name, category, status, error_kind, message, issue_count, issues_json
		FROM results WHERE run_id=? ORDER BY tool_name`, runID)
	if err != nil {
		return Record{}, nil, fmt.Errorf("list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ResultRecord
	for rows.Next() {
		res := ResultRecord{RunID: runID}
		var category, errorKind, message, issuesJSON sql.NullString
		if err := rows.Scan(&res.ToolName, &category, &res.Status, &errorKind, &message, &res.IssueCount, &issuesJSON); err != nil {
			return Record{}, nil, fmt.Errorf("scan result: %w", err)
		}
		res.Category = category.String
		res.ErrorKind = errorKind.String
		res.Message = message.String
		res.IssuesJSON = issuesJSON.String
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return Record{}, nil, fmt.Errorf("iterate results: %w", err)
	}
	return rec, results, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// NewRunID generates a timestamped run identifier.
func NewRunID() (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s", ts, suffix), nil
}

func randomHex(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
