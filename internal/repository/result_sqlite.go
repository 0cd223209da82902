package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hunter_trials/internal/domain"

	_ "modernc.org/sqlite"
)

// Fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteResultRepository struct {
	db *sql.DB
}

// OpenSQLiteResultRepository opens the database file, creating its directory
// and schema when missing.
func OpenSQLiteResultRepository(ctx context.Context, path string) (*SQLiteResultRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &SQLiteResultRepository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteResultRepository) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS session_results (
			session_id TEXT PRIMARY KEY,
			team_name TEXT NOT NULL,
			submitted_at TEXT NOT NULL,
			scores TEXT NOT NULL DEFAULT '{}',
			progress TEXT NOT NULL DEFAULT '{}',
			answers TEXT NOT NULL DEFAULT '{}',
			total_score INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS session_results_leaderboard_idx
			ON session_results (total_score DESC, submitted_at ASC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteResultRepository) Save(ctx context.Context, res domain.SessionResult) error {
	scores, progress, answers, err := encodeMaps(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO session_results(session_id, team_name, submitted_at, scores, progress, answers, total_score)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(session_id) DO UPDATE SET
			team_name = excluded.team_name,
			submitted_at = excluded.submitted_at,
			scores = excluded.scores,
			progress = excluded.progress,
			answers = excluded.answers,
			total_score = excluded.total_score`,
		res.SessionID,
		res.TeamName,
		res.SubmittedAt.UTC().Format(sqliteTimeLayout),
		string(scores),
		string(progress),
		string(answers),
		res.TotalScore,
	)
	return err
}

func (r *SQLiteResultRepository) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, team_name, total_score, submitted_at
		 FROM session_results
		 ORDER BY total_score DESC, submitted_at ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var (
			e  domain.LeaderboardEntry
			ts string
		)
		if err := rows.Scan(&e.SessionID, &e.TeamName, &e.TotalScore, &ts); err != nil {
			return nil, err
		}
		if e.SubmittedAt, err = time.Parse(sqliteTimeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse submitted_at: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteResultRepository) BySession(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	var (
		res                       domain.SessionResult
		ts                        string
		scores, progress, answers string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT session_id, team_name, submitted_at, scores, progress, answers, total_score
		 FROM session_results WHERE session_id = ?`,
		sessionID,
	).Scan(&res.SessionID, &res.TeamName, &ts, &scores, &progress, &answers, &res.TotalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionResult{}, ErrResultNotFound
	}
	if err != nil {
		return domain.SessionResult{}, err
	}
	if res.SubmittedAt, err = time.Parse(sqliteTimeLayout, ts); err != nil {
		return domain.SessionResult{}, fmt.Errorf("parse submitted_at: %w", err)
	}
	if err := decodeMaps(&res, []byte(scores), []byte(progress), []byte(answers)); err != nil {
		return domain.SessionResult{}, err
	}
	return res, nil
}

func (r *SQLiteResultRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteResultRepository) Close() error {
	return r.db.Close()
}
