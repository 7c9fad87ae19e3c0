package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quizhub/internal/app"
	"quizhub/internal/auth"
	"quizhub/internal/domain"
)

// Handler binds the application services to HTTP.
type Handler struct {
	auth        *app.AuthService
	quizzes     *app.QuizService
	results     *app.ResultService
	leaderboard *app.LeaderboardService
	metrics     *Metrics
	log         *zap.Logger
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	session, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), auth.ViewerFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quizzes, err := h.quizzes.ListQuizzes(r.Context(), auth.ViewerFrom(r.Context()), app.ListParams{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Search:     q.Get("search"),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) MyQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.MyQuizzes(r.Context(), auth.ViewerFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type quizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	IsPublic    *bool  `json:"isPublic"`
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), auth.ViewerFrom(r.Context()), app.QuizInput(req))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

type quizPatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Difficulty  *string `json:"difficulty"`
	IsPublic    *bool   `json:"isPublic"`
}

func (h *Handler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), auth.ViewerFrom(r.Context()), mux.Vars(r)["id"], app.QuizPatch(req))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.quizzes.DeleteQuiz(r.Context(), auth.ViewerFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "quiz deleted")
}

type questionRequest struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
	Points        *int     `json:"points"`
	Explanation   string   `json:"explanation"`
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	question, err := h.quizzes.AddQuestion(r.Context(), auth.ViewerFrom(r.Context()), mux.Vars(r)["id"], app.QuestionInput(req))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

type questionPatchRequest struct {
	QuestionText  *string  `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
	Points        *int     `json:"points"`
	Explanation   *string  `json:"explanation"`
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	vars := mux.Vars(r)
	question, err := h.quizzes.UpdateQuestion(r.Context(), auth.ViewerFrom(r.Context()), vars["id"], vars["questionId"], app.QuestionPatch(req))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.quizzes.DeleteQuestion(r.Context(), auth.ViewerFrom(r.Context()), vars["id"], vars["questionId"]); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "question deleted")
}

type submitRequest struct {
	QuizID         string                `json:"quizId"`
	Score          int                   `json:"score"`
	MaxScore       int                   `json:"maxScore"`
	Percentage     int                   `json:"percentage"`
	CorrectAnswers int                   `json:"correctAnswers"`
	TotalQuestions int                   `json:"totalQuestions"`
	Answers        []domain.AnswerRecord `json:"answers"`
}

func (h *Handler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	result, err := h.results.Submit(r.Context(), auth.ViewerFrom(r.Context()), app.SubmitRequest{
		QuizID: req.QuizID,
		Declared: domain.ScoreCard{
			Score:          req.Score,
			MaxScore:       req.MaxScore,
			Percentage:     req.Percentage,
			CorrectAnswers: req.CorrectAnswers,
			TotalQuestions: req.TotalQuestions,
		},
		Answers: req.Answers,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.metrics.resultsRecorded.Inc()
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) QuizLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, h.log, domain.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	results, err := h.leaderboard.QuizLeaderboard(r.Context(), mux.Vars(r)["quizId"], limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leaderboard.GlobalStats(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type userResultsResponse struct {
	Results []domain.Result  `json:"results"`
	Stats   domain.UserStats `json:"stats"`
}

func (h *Handler) UserResults(w http.ResponseWriter, r *http.Request) {
	results, stats, err := h.leaderboard.UserStats(r.Context(), auth.ViewerFrom(r.Context()), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, userResultsResponse{Results: results, Stats: stats})
}

func (h *Handler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := h.results.Delete(r.Context(), auth.ViewerFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "result deleted")
}

type adminQuizzesResponse struct {
	Quizzes []domain.Quiz     `json:"quizzes"`
	Counts  domain.QuizCounts `json:"counts"`
}

func (h *Handler) AdminListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, counts, err := h.quizzes.AdminListQuizzes(r.Context(), auth.ViewerFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, adminQuizzesResponse{Quizzes: quizzes, Counts: counts})
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.leaderboard.AdminOverview(r.Context(), auth.ViewerFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
