package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizhub/internal/domain"
)

// LeaderboardReader runs the ranking and statistics queries on a pgx pool, next to the
// bun store that owns the writes.
type LeaderboardReader struct {
	pool *pgxpool.Pool
}

func NewLeaderboardReader(pool *pgxpool.Pool) *LeaderboardReader {
	return &LeaderboardReader{pool: pool}
}

const resultColumns = `
	r.id, r.quiz_id, COALESCE(q.title, ''), r.user_id, COALESCE(u.username, ''),
	r.score, r.max_score, r.percentage, r.correct_answers, r.total_questions,
	r.answers, r.completed_at`

const resultJoins = `
	FROM results r
	LEFT JOIN quizzes q ON q.id = r.quiz_id
	LEFT JOIN users u ON u.id = r.user_id`

func (l *LeaderboardReader) QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.Result, error) {
	rows, err := l.pool.Query(ctx, `SELECT`+resultColumns+resultJoins+`
	WHERE r.quiz_id = $1
	ORDER BY r.score DESC, r.completed_at ASC, r.id ASC
	LIMIT $2`, quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("query quiz leaderboard: %w", err)
	}
	return collectResults(rows)
}

func (l *LeaderboardReader) GlobalStats(ctx context.Context, top int) (domain.GlobalStats, error) {
	var stats domain.GlobalStats
	err := l.pool.QueryRow(ctx, `
	SELECT count(*), count(DISTINCT r.user_id)
	FROM results r
	JOIN quizzes q ON q.id = r.quiz_id
	WHERE q.is_public`).Scan(&stats.TotalGames, &stats.TotalPlayers)
	if err != nil {
		return domain.GlobalStats{}, fmt.Errorf("query global totals: %w", err)
	}

	rows, err := l.pool.Query(ctx, `SELECT`+resultColumns+`
	FROM results r
	JOIN quizzes q ON q.id = r.quiz_id
	LEFT JOIN users u ON u.id = r.user_id
	WHERE q.is_public
	ORDER BY r.score DESC, r.completed_at ASC, r.id ASC
	LIMIT $1`, top)
	if err != nil {
		return domain.GlobalStats{}, fmt.Errorf("query top scores: %w", err)
	}
	if stats.TopScores, err = collectResults(rows); err != nil {
		return domain.GlobalStats{}, err
	}
	return stats, nil
}

func (l *LeaderboardReader) ResultsByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	rows, err := l.pool.Query(ctx, `SELECT`+resultColumns+resultJoins+`
	WHERE r.user_id = $1
	ORDER BY r.completed_at DESC, r.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user results: %w", err)
	}
	return collectResults(rows)
}

func (l *LeaderboardReader) AdminOverview(ctx context.Context, mostPlayed int) (domain.AdminOverview, error) {
	var o domain.AdminOverview
	err := l.pool.QueryRow(ctx, `
	SELECT
		(SELECT count(*) FROM quizzes),
		(SELECT count(*) FROM quizzes WHERE is_public),
		(SELECT count(*) FROM users),
		(SELECT count(*) FROM results)`).Scan(&o.Quizzes.Total, &o.Quizzes.Public, &o.Users, &o.TotalGamesPlayed)
	if err != nil {
		return domain.AdminOverview{}, fmt.Errorf("query admin totals: %w", err)
	}
	o.Quizzes.Private = o.Quizzes.Total - o.Quizzes.Public

	rows, err := l.pool.Query(ctx, `
	SELECT q.id, q.title, q.created_by, COALESCE(u.username, ''), q.total_plays
	FROM quizzes q
	LEFT JOIN users u ON u.id = q.created_by
	ORDER BY q.total_plays DESC, q.id ASC
	LIMIT $1`, mostPlayed)
	if err != nil {
		return domain.AdminOverview{}, fmt.Errorf("query most played: %w", err)
	}
	defer rows.Close()

	o.MostPlayed = make([]domain.PlayCount, 0, mostPlayed)
	for rows.Next() {
		var p domain.PlayCount
		if err := rows.Scan(&p.QuizID, &p.Title, &p.CreatedBy, &p.CreatedByName, &p.TotalPlays); err != nil {
			return domain.AdminOverview{}, fmt.Errorf("scan most played: %w", err)
		}
		o.MostPlayed = append(o.MostPlayed, p)
	}
	if err := rows.Err(); err != nil {
		return domain.AdminOverview{}, fmt.Errorf("iterate most played: %w", err)
	}
	return o, nil
}

func collectResults(rows pgx.Rows) ([]domain.Result, error) {
	defer rows.Close()
	out := make([]domain.Result, 0)
	for rows.Next() {
		var (
			r       domain.Result
			answers []byte
		)
		err := rows.Scan(
			&r.ID, &r.QuizID, &r.QuizTitle, &r.UserID, &r.Username,
			&r.Score, &r.MaxScore, &r.Percentage, &r.CorrectAnswers, &r.TotalQuestions,
			&answers, &r.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(answers, &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of result %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}
