package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"quizhub/internal/app"
	"quizhub/internal/auth"
	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
)

type testEnv struct {
	t      *testing.T
	store  *memory.Store
	server *httptest.Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	log := zap.NewNop()
	store := memory.NewStore()
	cache := memory.NewQuizCache(store, time.Minute)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	router := NewRouter(Services{
		Auth:        app.NewAuthService(store, tokens, log),
		Quizzes:     app.NewQuizService(store, cache, log),
		Results:     app.NewResultService(store, store, cache, false, log),
		Leaderboard: app.NewLeaderboardService(store),
	}, opts, log)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{t: t, store: store, server: server}
}

type response struct {
	status int
	body   struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
}

func (e *testEnv) do(method, path, token string, body interface{}) response {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var out response
	out.status = res.StatusCode
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(res.Body).Decode(&out.body); err != nil {
			e.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return out
}

func (e *testEnv) decode(res response, dst interface{}) {
	e.t.Helper()
	if err := json.Unmarshal(res.body.Data, dst); err != nil {
		e.t.Fatalf("decode data: %v (%s)", err, res.body.Data)
	}
}

func (e *testEnv) register(username string) app.Session {
	e.t.Helper()
	res := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	if res.status != http.StatusCreated {
		e.t.Fatalf("register %s: status %d (%s)", username, res.status, res.body.Message)
	}
	var session app.Session
	e.decode(res, &session)
	return session
}

func (e *testEnv) promote(session app.Session) {
	e.t.Helper()
	if _, err := e.store.SetRole(context.Background(), session.User.Email, domain.RoleAdmin); err != nil {
		e.t.Fatalf("promote: %v", err)
	}
}

func (e *testEnv) createQuiz(token, title string, public bool) domain.Quiz {
	e.t.Helper()
	res := e.do(http.MethodPost, "/api/quizzes", token, map[string]interface{}{
		"title":       title,
		"description": "A quiz about " + title,
		"category":    "Storia",
		"isPublic":    public,
	})
	if res.status != http.StatusCreated {
		e.t.Fatalf("create quiz: status %d (%s)", res.status, res.body.Message)
	}
	var quiz domain.Quiz
	e.decode(res, &quiz)
	return quiz
}

func (e *testEnv) addQuestion(token, quizID string, correct, points int) domain.Question {
	e.t.Helper()
	res := e.do(http.MethodPost, "/api/quizzes/"+quizID+"/questions", token, map[string]interface{}{
		"questionText":  "Which option is right?",
		"options":       []string{"A", "B", "C"},
		"correctAnswer": correct,
		"points":        points,
	})
	if res.status != http.StatusCreated {
		e.t.Fatalf("add question: status %d (%s)", res.status, res.body.Message)
	}
	var q domain.Question
	e.decode(res, &q)
	return q
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, Options{})
	session := env.register("alice")

	res := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ALICE@example.com", "password": "secret123"})
	if res.status != http.StatusOK {
		t.Fatalf("login: status %d", res.status)
	}
	res = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	if res.status != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", res.status)
	}

	res = env.do(http.MethodGet, "/api/auth/me", session.Token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("me: status %d", res.status)
	}
	if strings.Contains(string(res.body.Data), "secret") || strings.Contains(string(res.body.Data), "$2a$") {
		t.Fatalf("password hash leaked: %s", res.body.Data)
	}

	res = env.do(http.MethodGet, "/api/auth/me", "", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("me without token: status %d", res.status)
	}

	res = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "secret123",
	})
	if res.status != http.StatusConflict {
		t.Fatalf("duplicate username: status %d", res.status)
	}
}

func TestQuizVisibilityOverHTTP(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := env.register("owner")
	other := env.register("other")
	admin := env.register("admin")
	env.promote(admin)

	env.createQuiz(owner.Token, "Public history", true)
	env.createQuiz(owner.Token, "Private history", false)

	count := func(token string) int {
		res := env.do(http.MethodGet, "/api/quizzes", token, nil)
		if res.status != http.StatusOK {
			t.Fatalf("list: status %d", res.status)
		}
		var quizzes []domain.Quiz
		env.decode(res, &quizzes)
		return len(quizzes)
	}
	if got := count(""); got != 1 {
		t.Fatalf("anonymous sees %d quizzes, want 1", got)
	}
	if got := count(other.Token); got != 1 {
		t.Fatalf("other user sees %d quizzes, want 1", got)
	}
	if got := count(owner.Token); got != 2 {
		t.Fatalf("owner sees %d quizzes, want 2", got)
	}
	if got := count(admin.Token); got != 2 {
		t.Fatalf("admin sees %d quizzes, want 2", got)
	}
	if got := count("garbage"); got != 1 {
		t.Fatalf("invalid token should list as anonymous, got %d", got)
	}

	res := env.do(http.MethodGet, "/api/quizzes?search=PRIVATE", owner.Token, nil)
	var quizzes []domain.Quiz
	env.decode(res, &quizzes)
	if len(quizzes) != 1 || quizzes[0].Title != "Private history" {
		t.Fatalf("search should match case-insensitively, got %+v", quizzes)
	}

	res = env.do(http.MethodGet, "/api/quizzes?category=Nope", "", nil)
	if res.status != http.StatusBadRequest {
		t.Fatalf("unknown category: status %d", res.status)
	}
}

func TestQuizOwnershipOverHTTP(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := env.register("owner")
	other := env.register("other")
	quiz := env.createQuiz(owner.Token, "Owned quiz", true)

	res := env.do(http.MethodPut, "/api/quizzes/"+quiz.ID, other.Token, map[string]string{"title": "Hijacked"})
	if res.status != http.StatusForbidden {
		t.Fatalf("update by other: status %d", res.status)
	}
	res = env.do(http.MethodPut, "/api/quizzes/"+quiz.ID, owner.Token, map[string]string{"title": "Renamed"})
	if res.status != http.StatusOK {
		t.Fatalf("update by owner: status %d (%s)", res.status, res.body.Message)
	}

	question := env.addQuestion(owner.Token, quiz.ID, 2, 10)
	res = env.do(http.MethodPut, "/api/quizzes/"+quiz.ID+"/questions/"+question.ID, owner.Token, map[string]interface{}{
		"options": []string{"A", "B"},
	})
	if res.status != http.StatusBadRequest {
		t.Fatalf("shrinking options below correctAnswer: status %d", res.status)
	}

	res = env.do(http.MethodDelete, "/api/quizzes/"+quiz.ID, other.Token, nil)
	if res.status != http.StatusForbidden {
		t.Fatalf("delete by other: status %d", res.status)
	}
	res = env.do(http.MethodDelete, "/api/quizzes/"+quiz.ID, owner.Token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("delete by owner: status %d", res.status)
	}
	res = env.do(http.MethodGet, "/api/quizzes/"+quiz.ID, "", nil)
	if res.status != http.StatusNotFound {
		t.Fatalf("get deleted quiz: status %d", res.status)
	}
}

func TestSubmitAndLeaderboardOverHTTP(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := env.register("owner")
	player := env.register("player")
	quiz := env.createQuiz(owner.Token, "Scored quiz", true)
	q1 := env.addQuestion(owner.Token, quiz.ID, 0, 10)
	q2 := env.addQuestion(owner.Token, quiz.ID, 1, 20)
	q3 := env.addQuestion(owner.Token, quiz.ID, 2, 30)

	res := env.do(http.MethodPost, "/api/results", player.Token, map[string]interface{}{
		"quizId": quiz.ID,
		"score":  60,
		"answers": []map[string]interface{}{
			{"questionId": q1.ID, "selectedAnswer": 0},
			{"questionId": q2.ID, "selectedAnswer": 0},
			{"questionId": q3.ID, "selectedAnswer": 2},
		},
	})
	if res.status != http.StatusCreated {
		t.Fatalf("submit: status %d (%s)", res.status, res.body.Message)
	}
	var result domain.Result
	env.decode(res, &result)
	if result.Score != 40 || result.MaxScore != 60 || result.Percentage != 67 || result.CorrectAnswers != 2 {
		t.Fatalf("unexpected server-scored result %+v", result)
	}

	res = env.do(http.MethodPost, "/api/results", "", map[string]interface{}{"quizId": quiz.ID})
	if res.status != http.StatusUnauthorized {
		t.Fatalf("anonymous submit: status %d", res.status)
	}

	res = env.do(http.MethodGet, "/api/results/quiz/"+quiz.ID+"?limit=5", "", nil)
	if res.status != http.StatusOK {
		t.Fatalf("leaderboard: status %d", res.status)
	}
	var board []domain.Result
	env.decode(res, &board)
	if len(board) != 1 || board[0].Username != "player" {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	res = env.do(http.MethodGet, "/api/results/quiz/"+quiz.ID+"?limit=zero", "", nil)
	if res.status != http.StatusBadRequest {
		t.Fatalf("bad limit: status %d", res.status)
	}

	res = env.do(http.MethodGet, "/api/quizzes/"+quiz.ID, "", nil)
	var played domain.Quiz
	env.decode(res, &played)
	if played.TotalPlays != 1 {
		t.Fatalf("expected play counter 1, got %d", played.TotalPlays)
	}

	res = env.do(http.MethodGet, "/api/results/user/"+player.User.ID, owner.Token, nil)
	if res.status != http.StatusForbidden {
		t.Fatalf("foreign user stats: status %d", res.status)
	}
	res = env.do(http.MethodGet, "/api/results/user/"+player.User.ID, player.Token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("own user stats: status %d", res.status)
	}
	var mine userResultsResponse
	env.decode(res, &mine)
	if mine.Stats.TotalGames != 1 || mine.Stats.AverageScore != 67 || mine.Stats.BestScore != 40 {
		t.Fatalf("unexpected user stats %+v", mine.Stats)
	}

	res = env.do(http.MethodDelete, "/api/results/"+result.ID, owner.Token, nil)
	if res.status != http.StatusForbidden {
		t.Fatalf("delete by non-owner: status %d", res.status)
	}
	res = env.do(http.MethodDelete, "/api/results/"+result.ID, player.Token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("delete by owner: status %d", res.status)
	}
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := env.register("user")
	admin := env.register("boss")
	env.promote(admin)
	quiz := env.createQuiz(user.Token, "Someone's quiz", false)

	res := env.do(http.MethodGet, "/api/admin/stats", user.Token, nil)
	if res.status != http.StatusForbidden {
		t.Fatalf("stats as user: status %d", res.status)
	}
	res = env.do(http.MethodGet, "/api/admin/stats", admin.Token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("stats as admin: status %d", res.status)
	}
	var overview domain.AdminOverview
	env.decode(res, &overview)
	if overview.Users != 2 || overview.Quizzes.Private != 1 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	res = env.do(http.MethodGet, "/api/admin/quizzes", admin.Token, nil)
	var listing adminQuizzesResponse
	env.decode(res, &listing)
	if listing.Counts.Total != 1 || len(listing.Quizzes) != 1 {
		t.Fatalf("unexpected admin listing %+v", listing.Counts)
	}

	res = env.do(http.MethodDelete, "/api/admin/quizzes/"+quiz.ID, admin.Token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("admin delete: status %d", res.status)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, Options{Health: func(context.Context) error { return errors.New("db down") }})

	res := env.do(http.MethodGet, "/healthz", "", nil)
	if res.status != http.StatusServiceUnavailable {
		t.Fatalf("healthz with failing check: status %d", res.status)
	}

	env.do(http.MethodGet, "/api/quizzes", "", nil)
	raw, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer raw.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(raw.Body)
	if !strings.Contains(buf.String(), `route="/api/quizzes"`) {
		t.Fatalf("expected request metric for /api/quizzes, got:\n%s", buf.String())
	}
}

func TestCORSDoesNotAllowCredentials(t *testing.T) {
	env := newTestEnv(t, Options{})

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/quizzes", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://elsewhere.example")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()

	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if got := res.Header.Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("credentials must not be allowed, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimit: 2, RateWindow: time.Hour})
	for i := 0; i < 2; i++ {
		if res := env.do(http.MethodGet, "/api/quizzes", "", nil); res.status != http.StatusOK {
			t.Fatalf("request %d: status %d", i, res.status)
		}
	}
	if res := env.do(http.MethodGet, "/api/quizzes", "", nil); res.status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.status)
	}
	if res := env.do(http.MethodGet, "/healthz", "", nil); res.status != http.StatusOK {
		t.Fatalf("healthz must not be rate limited, got %d", res.status)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.Invalid("title", "too short"), http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrNotOwner, http.StatusForbidden},
		{domain.ErrQuizNotFound, http.StatusNotFound},
		{domain.ErrDuplicateUser, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
