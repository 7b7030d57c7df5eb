package run

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Reconcile marks runs left in the running state by a crashed process as
// aborted. It is called under the run lock before a new run starts, so any
// run still marked running at that point cannot have a live owner.
func Reconcile(ctx context.Context, db *sql.DB) error {
	res, err := db.ExecContext(ctx, `UPDATE runs SET status='aborted' WHERE status='running'`)
	if err != nil {
		return fmt.Errorf("reconcile runs: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		log.Warn().Int64("runs", affected).Msg("marked stale runs as aborted")
	}
	return nil
}
