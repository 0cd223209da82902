package db

import (
	"context"

	"hunter_trials/internal/logger"
	"hunter_trials/internal/repository"
)

// OpenResultStore picks the results backend from the configured location.
// It returns a nil store when neither is set, and a close func that is
// always safe to call.
func OpenResultStore(ctx context.Context, databaseURL, sqlitePath string) (repository.ResultStore, func()) {
	switch {
	case databaseURL != "":
		pool := Connect(databaseURL)
		return repository.NewPostgresResultRepository(pool), pool.Close
	case sqlitePath != "":
		repo, err := repository.OpenSQLiteResultRepository(ctx, sqlitePath)
		if err != nil {
			logger.Fatal("failed to open sqlite results store", "path", sqlitePath, "error", err)
		}
		logger.Info("sqlite results store opened", "path", sqlitePath)
		return repo, func() { _ = repo.Close() }
	default:
		logger.Warn("no results store configured, leaderboard disabled")
		return nil, func() {}
	}
}
