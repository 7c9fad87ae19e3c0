package app

import (
	"context"

	"quizhub/internal/domain"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
	globalTopScores         = 10
	adminMostPlayed         = 5
)

// LeaderboardService aggregates the result ledger into rankings and statistics.
type LeaderboardService struct {
	reader LeaderboardReader
}

func NewLeaderboardService(reader LeaderboardReader) *LeaderboardService {
	return &LeaderboardService{reader: reader}
}

// QuizLeaderboard ranks the results of one quiz. It is deliberately not filtered by the
// quiz's visibility: whoever knows the quiz id may see its board.
func (s *LeaderboardService) QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.Result, error) {
	if quizID == "" {
		return nil, domain.Invalid("quizId", "is required")
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	return s.reader.QuizLeaderboard(ctx, quizID, limit)
}

// GlobalStats aggregates results of public quizzes only.
func (s *LeaderboardService) GlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	return s.reader.GlobalStats(ctx, globalTopScores)
}

// UserStats returns a user's results, newest first, with derived aggregates. Only the
// user themself or an admin may ask.
func (s *LeaderboardService) UserStats(ctx context.Context, viewer domain.Viewer, userID string) ([]domain.Result, domain.UserStats, error) {
	if viewer.Anonymous() {
		return nil, domain.UserStats{}, domain.ErrUnauthorized
	}
	if !viewer.CanManage(userID) {
		return nil, domain.UserStats{}, domain.ErrForbidden
	}
	results, err := s.reader.ResultsByUser(ctx, userID)
	if err != nil {
		return nil, domain.UserStats{}, err
	}
	return results, SummarizeResults(results), nil
}

// AdminOverview is the admin dashboard summary.
func (s *LeaderboardService) AdminOverview(ctx context.Context, viewer domain.Viewer) (domain.AdminOverview, error) {
	if !viewer.IsAdmin() {
		return domain.AdminOverview{}, domain.ErrForbidden
	}
	return s.reader.AdminOverview(ctx, adminMostPlayed)
}

// SummarizeResults derives the per-user aggregates. The average percentage is rounded
// half up; every aggregate is 0 when there are no results.
func SummarizeResults(results []domain.Result) domain.UserStats {
	stats := domain.UserStats{TotalGames: len(results)}
	if len(results) == 0 {
		return stats
	}
	sum := 0
	for i, r := range results {
		sum += r.Percentage
		if i == 0 || r.Score > stats.BestScore {
			stats.BestScore = r.Score
		}
		stats.TotalCorrectAnswers += r.CorrectAnswers
		stats.TotalQuestions += r.TotalQuestions
	}
	n := len(results)
	stats.AverageScore = (2*sum + n) / (2 * n)
	return stats
}
