package app

import (
	"context"

	"quizhub/internal/domain"
)

// UserRepository persists accounts. CreateUser returns domain.ErrDuplicateUser when the
// username or email is taken.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// QuizRepository is the write side of the entity store for quizzes and their questions.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	// LoadQuiz returns the quiz with its questions in display order.
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// ListQuizzes returns quizzes matching every clause of the filter, newest first.
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
	// UpdateQuiz persists metadata only; CreatedBy and counters are left untouched.
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	// DeleteQuiz removes the quiz and all of its questions in one transaction.
	DeleteQuiz(ctx context.Context, quizID string) error
	// AddQuestion appends the question to its quiz and sets its Order.
	AddQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question domain.Question) error
	// DeleteQuestion removes one question and renumbers the rest.
	DeleteQuestion(ctx context.Context, quizID, questionID string) error
	// ReconcileOrphans deletes questions whose quiz no longer exists.
	ReconcileOrphans(ctx context.Context) (int, error)
}

// ResultRepository is the result ledger's store.
type ResultRepository interface {
	// RecordResult stores the result and increments the quiz play counter atomically.
	// It returns domain.ErrQuizNotFound if the quiz is gone.
	RecordResult(ctx context.Context, result domain.Result) error
	GetResult(ctx context.Context, resultID string) (domain.Result, error)
	DeleteResult(ctx context.Context, resultID string) error
}

// LeaderboardReader answers ranking queries over the ledger. Returned results carry
// QuizTitle and Username.
type LeaderboardReader interface {
	// QuizLeaderboard orders by score desc, then completedAt asc.
	QuizLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.Result, error)
	// GlobalStats must only consider results of public quizzes.
	GlobalStats(ctx context.Context, top int) (domain.GlobalStats, error)
	// ResultsByUser orders by completedAt desc.
	ResultsByUser(ctx context.Context, userID string) ([]domain.Result, error)
	AdminOverview(ctx context.Context, mostPlayed int) (domain.AdminOverview, error)
}

// QuizCache serves quiz reads from a cache in front of QuizRepository.LoadQuiz.
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string) error
}
