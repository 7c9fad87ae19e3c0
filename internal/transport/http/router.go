package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"quizhub/internal/app"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Auth        *app.AuthService
	Quizzes     *app.QuizService
	Results     *app.ResultService
	Leaderboard *app.LeaderboardService
}

// Options tune the ambient middleware. A zero RateLimit disables rate limiting.
type Options struct {
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error
}

// NewRouter builds the full HTTP handler: API routes, /healthz, /metrics and the CORS,
// rate limit and access log middleware around them.
func NewRouter(svc Services, opts Options, log *zap.Logger) http.Handler {
	metrics := NewMetrics()
	h := &Handler{
		auth:        svc.Auth,
		quizzes:     svc.Quizzes,
		results:     svc.Results,
		leaderboard: svc.Leaderboard,
		metrics:     metrics,
		log:         log,
	}
	gate := authenticator{auth: svc.Auth, log: log}

	router := mux.NewRouter()
	router.Use(observe(log, metrics))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})

	router.HandleFunc("/healthz", healthz(opts.Health, log)).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if opts.RateLimit > 0 {
		window := opts.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		api.Use(newRateLimiter(opts.RateLimit, window).middleware)
	}

	required := func(f http.HandlerFunc) http.Handler { return gate.required(f) }
	optional := func(f http.HandlerFunc) http.Handler { return gate.optional(f) }
	admin := func(f http.HandlerFunc) http.Handler { return gate.required(gate.admin(f)) }

	api.Handle("/auth/register", http.HandlerFunc(h.Register)).Methods(http.MethodPost)
	api.Handle("/auth/login", http.HandlerFunc(h.Login)).Methods(http.MethodPost)
	api.Handle("/auth/me", required(h.Me)).Methods(http.MethodGet)

	api.Handle("/quizzes", optional(h.ListQuizzes)).Methods(http.MethodGet)
	api.Handle("/quizzes", required(h.CreateQuiz)).Methods(http.MethodPost)
	api.Handle("/quizzes/my", required(h.MyQuizzes)).Methods(http.MethodGet)
	api.Handle("/quizzes/{id}", optional(h.GetQuiz)).Methods(http.MethodGet)
	api.Handle("/quizzes/{id}", required(h.UpdateQuiz)).Methods(http.MethodPut)
	api.Handle("/quizzes/{id}", required(h.DeleteQuiz)).Methods(http.MethodDelete)
	api.Handle("/quizzes/{id}/questions", required(h.AddQuestion)).Methods(http.MethodPost)
	api.Handle("/quizzes/{id}/questions/{questionId}", required(h.UpdateQuestion)).Methods(http.MethodPut)
	api.Handle("/quizzes/{id}/questions/{questionId}", required(h.DeleteQuestion)).Methods(http.MethodDelete)

	api.Handle("/results", required(h.SubmitResult)).Methods(http.MethodPost)
	api.Handle("/results/quiz/{quizId}", http.HandlerFunc(h.QuizLeaderboard)).Methods(http.MethodGet)
	api.Handle("/results/stats/global", http.HandlerFunc(h.GlobalStats)).Methods(http.MethodGet)
	api.Handle("/results/user/{userId}", required(h.UserResults)).Methods(http.MethodGet)
	api.Handle("/results/{id}", required(h.DeleteResult)).Methods(http.MethodDelete)

	api.Handle("/admin/quizzes", admin(h.AdminListQuizzes)).Methods(http.MethodGet)
	api.Handle("/admin/stats", admin(h.AdminStats)).Methods(http.MethodGet)
	api.Handle("/admin/quizzes/{id}", admin(h.DeleteQuiz)).Methods(http.MethodDelete)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		MaxAge:           300,
	}).Handler(router)
}

func healthz(check func(ctx context.Context) error, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Warn("health check failed", zap.Error(err))
				writeMessage(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		writeMessage(w, http.StatusOK, "ok")
	}
}
