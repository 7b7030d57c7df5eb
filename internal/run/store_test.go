package run

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/db"
	"github.com/metalagman/vigil/internal/engine"
	"github.com/metalagman/vigil/internal/tool"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	handle, err := db.Open(filepath.Join(t.TempDir(), "vigil.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = handle.Close() })
	return handle
}

type storedIssue struct {
	Text string `json:"text"`
}

func (i storedIssue) String() string { return i.Text }

func sampleOutput(success bool) *engine.Output {
	res := tool.NewResult("ruff", tool.CategoryLinting, []tool.Issue{storedIssue{Text: "unused import"}})
	return &engine.Output{
		Mode:          "fast",
		ResolvedTools: []string{"ruff", "mypy"},
		Success:       success,
		Summary: map[string]engine.Entry{
			"ruff": {Result: res},
			"mypy": {Failure: &engine.FailureRecord{
				ToolName:  "mypy",
				ErrorKind: engine.ErrorKindTimeout,
				Message:   "context deadline exceeded",
			}},
		},
		AggregatedIssueCount: 1,
		StartedAt:            time.Now().UTC(),
		Duration:             1500 * time.Millisecond,
	}
}

func TestStore_CommitOutputRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if err := store.CreateRun(ctx, "run-1", "fast", 2); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.CommitOutput(ctx, "run-1", sampleOutput(false)); err != nil {
		t.Fatalf("commit output: %v", err)
	}

	rec, results, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.Status != "failed" || rec.Success {
		t.Fatalf("unexpected run state: %+v", rec)
	}
	if rec.IssueCount != 1 || rec.Duration != 1500*time.Millisecond || rec.FileCount != 2 {
		t.Fatalf("unexpected run fields: %+v", rec)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	// Results come back ordered by tool name.
	mypy, ruff := results[0], results[1]
	if mypy.ToolName != "mypy" || mypy.Status != "failed" || mypy.ErrorKind != engine.ErrorKindTimeout {
		t.Fatalf("unexpected mypy row: %+v", mypy)
	}
	if ruff.ToolName != "ruff" || ruff.Status != "ok" || ruff.IssueCount != 1 {
		t.Fatalf("unexpected ruff row: %+v", ruff)
	}
	if ruff.IssuesJSON == "" {
		t.Fatal("expected issues json for ruff")
	}
}

func TestStore_PassedStatus(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if err := store.CreateRun(ctx, "run-1", "fast", 1); err != nil {
		t.Fatalf("create run: %v", err)
	}
	out := sampleOutput(true)
	out.Summary = map[string]engine.Entry{
		"ruff": {Result: tool.NewResult("ruff", tool.CategoryLinting, nil)},
	}
	out.AggregatedIssueCount = 0
	if err := store.CommitOutput(ctx, "run-1", out); err != nil {
		t.Fatalf("commit output: %v", err)
	}

	rec, _, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.Status != "passed" || !rec.Success {
		t.Fatalf("unexpected run state: %+v", rec)
	}
}

func TestStore_GetRunNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t))
	if _, _, err := store.GetRun(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func insertRun(t *testing.T, handle *sql.DB, id string, createdAt time.Time, status string) {
	t.Helper()
	_, err := handle.Exec(`INSERT INTO runs(run_id, created_at, mode, status, success, issue_count, duration_ms, file_count)
		VALUES(?, ?, 'fast', ?, 0, 0, 0, 0)`, id, createdAt.UTC().Format(time.RFC3339), status)
	if err != nil {
		t.Fatalf("insert run %s: %v", id, err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	t.Parallel()

	handle := openTestDB(t)
	store := NewStore(handle)
	now := time.Now()
	insertRun(t, handle, "old", now.Add(-2*time.Hour), "passed")
	insertRun(t, handle, "mid", now.Add(-time.Hour), "failed")
	insertRun(t, handle, "new", now, "passed")

	runs, err := store.ListRuns(context.Background(), 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "new" || runs[1].RunID != "mid" {
		t.Fatalf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestPruneRuns_KeepLast(t *testing.T) {
	t.Parallel()

	handle := openTestDB(t)
	now := time.Now()
	for i, id := range []string{"r5", "r4", "r3", "r2", "r1"} {
		insertRun(t, handle, id, now.Add(-time.Duration(i)*time.Hour), "passed")
	}

	res, err := PruneRuns(context.Background(), handle, config.RetentionPolicy{KeepLast: 2}, false)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if res.Considered != 5 || res.Kept != 2 || res.Deleted != 3 {
		t.Fatalf("unexpected prune result: %+v", res)
	}

	runs, err := NewStore(handle).ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "r5" || runs[1].RunID != "r4" {
		t.Fatalf("unexpected survivors: %+v", runs)
	}
}

func TestPruneRuns_KeepDaysAndRunning(t *testing.T) {
	t.Parallel()

	handle := openTestDB(t)
	now := time.Now()
	insertRun(t, handle, "fresh", now, "passed")
	insertRun(t, handle, "stale", now.Add(-72*time.Hour), "passed")
	insertRun(t, handle, "stale-running", now.Add(-72*time.Hour), "running")

	res, err := PruneRuns(context.Background(), handle, config.RetentionPolicy{KeepDays: 1}, false)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if res.Deleted != 1 || res.Kept != 2 {
		t.Fatalf("unexpected prune result: %+v", res)
	}

	if _, _, err := NewStore(handle).GetRun(context.Background(), "stale"); err == nil {
		t.Fatal("stale run should be gone")
	}
	if _, _, err := NewStore(handle).GetRun(context.Background(), "stale-running"); err != nil {
		t.Fatalf("running run must survive: %v", err)
	}
}

func TestPruneRuns_DryRunDeletesNothing(t *testing.T) {
	t.Parallel()

	handle := openTestDB(t)
	now := time.Now()
	insertRun(t, handle, "a", now, "passed")
	insertRun(t, handle, "b", now.Add(-time.Hour), "passed")

	res, err := PruneRuns(context.Background(), handle, config.RetentionPolicy{KeepLast: 1}, true)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if res.Deleted != 1 {
		t.Fatalf("dry run should count deletions, got %+v", res)
	}

	runs, err := NewStore(handle).ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("dry run must not delete, got %d runs", len(runs))
	}
}

func TestPruneRuns_NoPolicyIsNoop(t *testing.T) {
	t.Parallel()

	handle := openTestDB(t)
	insertRun(t, handle, "a", time.Now(), "passed")

	res, err := PruneRuns(context.Background(), handle, config.RetentionPolicy{}, false)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if res.Considered != 0 || res.Deleted != 0 {
		t.Fatalf("expected noop, got %+v", res)
	}
}

func TestReconcile_MarksStaleRunsAborted(t *testing.T) {
	t.Parallel()

	handle := openTestDB(t)
	now := time.Now()
	insertRun(t, handle, "stale", now.Add(-time.Hour), "running")
	insertRun(t, handle, "done", now, "passed")

	if err := Reconcile(context.Background(), handle); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	rec, _, err := NewStore(handle).GetRun(context.Background(), "stale")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.Status != "aborted" {
		t.Fatalf("status = %q, want aborted", rec.Status)
	}
	rec, _, err = NewStore(handle).GetRun(context.Background(), "done")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.Status != "passed" {
		t.Fatalf("status = %q, want passed", rec.Status)
	}
}

func TestNewRunID_Format(t *testing.T) {
	t.Parallel()

	id, err := NewRunID()
	if err != nil {
		t.Fatalf("new run id: %v", err)
	}
	pattern := regexp.MustCompile(`^\d{8}-\d{6}-[0-9a-f]{6}$`)
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected run id %q", id)
	}
}

// The run lock must be acquirable before any other .vigil state exists, so
// writers can take it ahead of opening (and migrating) the database.
func TestAcquireLock_PrecedesDatabaseCreation(t *testing.T) {
	t.Parallel()

	vigilDir := filepath.Join(t.TempDir(), ".vigil")
	lock, err := AcquireLock(vigilDir)
	if err != nil {
		t.Fatalf("acquire lock in fresh dir: %v", err)
	}
	defer func() { _ = lock.Release() }()

	handle, err := db.Open(filepath.Join(vigilDir, "vigil.db"))
	if err != nil {
		t.Fatalf("open db under lock: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}
}

func TestAcquireLock_CreatesLockFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	if _, err := AcquireLock(dir); err != nil {
		t.Fatalf("reacquire lock: %v", err)
	}
}
