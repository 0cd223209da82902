package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hunter_trials/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrResultNotFound = errors.New("result not found")

const defaultTopLimit = 10

// ResultStore keeps the final result of every session that reached the
// terminal trial. A session that finishes again replaces its earlier row.
type ResultStore interface {
	Save(ctx context.Context, r domain.SessionResult) error
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	BySession(ctx context.Context, sessionID string) (domain.SessionResult, error)
	Ping(ctx context.Context) error
}

type PostgresResultRepository struct {
	db *pgxpool.Pool
}

func NewPostgresResultRepository(db *pgxpool.Pool) *PostgresResultRepository {
	return &PostgresResultRepository{db: db}
}

// Save сохраняет итог сессии
func (r *PostgresResultRepository) Save(ctx context.Context, res domain.SessionResult) error {
	scores, progress, answers, err := encodeMaps(res)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO session_results
			(session_id, team_name, submitted_at, scores, progress, answers, total_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO UPDATE SET
			team_name = EXCLUDED.team_name,
			submitted_at = EXCLUDED.submitted_at,
			scores = EXCLUDED.scores,
			progress = EXCLUDED.progress,
			answers = EXCLUDED.answers,
			total_score = EXCLUDED.total_score`,
		res.SessionID,
		res.TeamName,
		res.SubmittedAt,
		scores,
		progress,
		answers,
		res.TotalScore,
	)
	return err
}

// Top возвращает лучшие результаты
func (r *PostgresResultRepository) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}

	rows, err := r.db.Query(ctx,
		`SELECT session_id, team_name, total_score, submitted_at
		 FROM session_results
		 ORDER BY total_score DESC, submitted_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.SessionID, &e.TeamName, &e.TotalScore, &e.SubmittedAt); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresResultRepository) BySession(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	var (
		res                       domain.SessionResult
		scores, progress, answers []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT session_id, team_name, submitted_at, scores, progress, answers, total_score
		 FROM session_results
		 WHERE session_id = $1`,
		sessionID,
	).Scan(&res.SessionID, &res.TeamName, &res.SubmittedAt, &scores, &progress, &answers, &res.TotalScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionResult{}, ErrResultNotFound
	}
	if err != nil {
		return domain.SessionResult{}, err
	}
	if err := decodeMaps(&res, scores, progress, answers); err != nil {
		return domain.SessionResult{}, err
	}
	return res, nil
}

func (r *PostgresResultRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func encodeMaps(res domain.SessionResult) (scores, progress, answers []byte, err error) {
	if scores, err = json.Marshal(res.Scores); err != nil {
		return nil, nil, nil, fmt.Errorf("encode scores: %w", err)
	}
	if progress, err = json.Marshal(res.Progress); err != nil {
		return nil, nil, nil, fmt.Errorf("encode progress: %w", err)
	}
	if answers, err = json.Marshal(res.Answers); err != nil {
		return nil, nil, nil, fmt.Errorf("encode answers: %w", err)
	}
	return scores, progress, answers, nil
}

func decodeMaps(res *domain.SessionResult, scores, progress, answers []byte) error {
	if err := json.Unmarshal(scores, &res.Scores); err != nil {
		return fmt.Errorf("decode scores: %w", err)
	}
	if err := json.Unmarshal(progress, &res.Progress); err != nil {
		return fmt.Errorf("decode progress: %w", err)
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return fmt.Errorf("decode answers: %w", err)
	}
	return nil
}
