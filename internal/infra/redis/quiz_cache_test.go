package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizhub/internal/domain"
)

func TestQuizCacheCachesInRedis(t *testing.T) {
	mr := newMiniredis(t)
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-1": sampleQuiz()}}
	cache := NewQuizCache(newClient(mr), loader, time.Minute)

	quiz, err := cache.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz key to be set")
	}
	if ttl := mr.TTL("quiz:quiz-1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl within jitter bounds, got %v", ttl)
	}

	cached, _ := cache.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != 1 || cached.Questions[0].CorrectAnswer != quiz.Questions[0].CorrectAnswer {
		t.Fatalf("cached quiz lost its questions: %+v", cached)
	}
	if cached.Questions[0].Options[1] != "Roma" {
		t.Fatalf("cached options mismatch: %v", cached.Questions[0].Options)
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	mr := newMiniredis(t)
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-1": sampleQuiz()}}
	cache := NewQuizCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	_, _ = cache.GetQuiz(ctx, "quiz-1")
	if err := cache.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz key removed")
	}
	_, _ = cache.GetQuiz(ctx, "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuizCacheSkipsWriteAfterInvalidate(t *testing.T) {
	mr := newMiniredis(t)
	loader := newSwitchingLoader("old")
	cache := NewQuizCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	done := make(chan domain.Quiz)
	go func() {
		quiz, err := cache.GetQuiz(ctx, "quiz-1")
		if err != nil {
			t.Errorf("get quiz: %v", err)
		}
		done <- quiz
	}()
	<-loader.started

	loader.setTitle("new")
	if err := cache.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.gate)
	<-done

	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("load that raced an invalidate must not be cached")
	}
	quiz, err := cache.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if quiz.Title != "new" {
		t.Fatalf("cache serves %q after invalidate, store has %q", quiz.Title, "new")
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected the fresh load to be cached")
	}
}

func TestQuizCacheDropsCorruptEntries(t *testing.T) {
	mr := newMiniredis(t)
	if err := mr.Set("quiz:quiz-1", "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"quiz-1": sampleQuiz()}}
	cache := NewQuizCache(newClient(mr), loader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader fallback, calls=%d", loader.calls)
	}
}

func TestQuizCacheDoesNotCacheMisses(t *testing.T) {
	mr := newMiniredis(t)
	cache := NewQuizCache(newClient(mr), &countingLoader{}, time.Minute)

	_, err := cache.GetQuiz(context.Background(), "missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if mr.Exists("quiz:missing") {
		t.Fatalf("did not expect a key for a missing quiz")
	}
}

type countingLoader struct {
	quizzes map[string]domain.Quiz
	calls   int
}

func (l *countingLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

type switchingLoader struct {
	mu      sync.Mutex
	title   string
	first   bool
	started chan struct{}
	gate    chan struct{}
}

func newSwitchingLoader(title string) *switchingLoader {
	return &switchingLoader{title: title, first: true, started: make(chan struct{}), gate: make(chan struct{})}
}

func (l *switchingLoader) setTitle(title string) {
	l.mu.Lock()
	l.title = title
	l.mu.Unlock()
}

func (l *switchingLoader) LoadQuiz(_ context.Context, _ string) (domain.Quiz, error) {
	l.mu.Lock()
	quiz := sampleQuiz()
	quiz.Title = l.title
	first := l.first
	l.first = false
	l.mu.Unlock()
	if first {
		close(l.started)
		<-l.gate
	}
	return quiz, nil
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-1",
		Title:    "Capitals",
		IsPublic: true,
		Questions: []domain.Question{
			{
				ID:            "q1",
				QuizID:        "quiz-1",
				QuestionText:  "What is the capital of Italy?",
				Options:       []string{"Milano", "Roma"},
				CorrectAnswer: 1,
				Points:        10,
			},
		},
	}
}

func newMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
