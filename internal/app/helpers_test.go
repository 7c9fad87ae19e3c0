package app_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"quizhub/internal/app"
	"quizhub/internal/auth"
	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
)

type fixture struct {
	store       *memory.Store
	auth        *app.AuthService
	quizzes     *app.QuizService
	results     *app.ResultService
	leaderboard *app.LeaderboardService
}

func newFixture(trustClient bool) *fixture {
	log := zap.NewNop()
	store := memory.NewStore()
	cache := memory.NewQuizCache(store, time.Minute)
	return &fixture{
		store:       store,
		auth:        app.NewAuthService(store, auth.NewTokenIssuer("test-secret", time.Hour), log),
		quizzes:     app.NewQuizService(store, cache, log),
		results:     app.NewResultService(store, store, cache, trustClient, log),
		leaderboard: app.NewLeaderboardService(store),
	}
}

func (f *fixture) user(t *testing.T, name string) domain.Viewer {
	t.Helper()
	session, err := f.auth.Register(context.Background(), name, name+"@example.com", "secret123")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return domain.Viewer{UserID: session.User.ID, Role: session.User.Role}
}

func (f *fixture) admin(t *testing.T, name string) domain.Viewer {
	t.Helper()
	v := f.user(t, name)
	if _, err := f.store.SetRole(context.Background(), name+"@example.com", domain.RoleAdmin); err != nil {
		t.Fatalf("promote %s: %v", name, err)
	}
	v.Role = domain.RoleAdmin
	return v
}

func (f *fixture) quiz(t *testing.T, owner domain.Viewer, title string, public bool, points ...int) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := f.quizzes.CreateQuiz(ctx, owner, app.QuizInput{
		Title:       title,
		Description: "About " + title,
		Category:    string(domain.CategoryGeography),
		IsPublic:    &public,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for _, p := range points {
		p := p
		correct := 1
		if _, err := f.quizzes.AddQuestion(ctx, owner, quiz.ID, app.QuestionInput{
			QuestionText:  "Pick the second option",
			Options:       []string{"first", "second", "third"},
			CorrectAnswer: &correct,
			Points:        &p,
		}); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	loaded, err := f.quizzes.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	return loaded
}

// answers builds one answer per question; correct[i] selects the right option.
func answers(quiz domain.Quiz, correct ...bool) []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, len(quiz.Questions))
	for i, q := range quiz.Questions {
		selected := 0
		if i < len(correct) && correct[i] {
			selected = q.CorrectAnswer
		}
		out[i] = domain.AnswerRecord{QuestionID: q.ID, SelectedAnswer: selected}
	}
	return out
}
