package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/terraincognita07/dairyforms/internal/db"
	"go.uber.org/zap"
)

// RunPurgeSessionsCommand deletes stored workflow sessions not updated within
// olderThan.
func RunPurgeSessionsCommand(out io.Writer, dbPath string, olderThan time.Duration, logger *zap.Logger) error {
	if olderThan <= 0 {
		return errors.New("older-than must be positive")
	}

	database, err := db.OpenSQLite(dbPath, logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	removed, err := db.NewSessionRepository(database).PurgeOlderThan(time.Now().Add(-olderThan))
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	fmt.Fprintf(out, "Removed %d stale sessions\n", removed)
	return nil
}
