package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizhub/internal/domain"
)

// ListParams are the optional listing filters as received from the caller.
type ListParams struct {
	Category   string
	Difficulty string
	Search     string
}

// QuizInput carries the fields of a new quiz. A nil IsPublic means public.
type QuizInput struct {
	Title       string
	Description string
	Category    string
	Difficulty  string
	IsPublic    *bool
}

// QuizPatch carries the quiz fields a caller may change. Nil fields are left alone.
type QuizPatch struct {
	Title       *string
	Description *string
	Category    *string
	Difficulty  *string
	IsPublic    *bool
}

// QuestionInput carries the fields of a new question.
type QuestionInput struct {
	QuestionText  string
	Options       []string
	CorrectAnswer *int
	Points        *int
	Explanation   string
}

// QuestionPatch carries the question fields a caller may change.
type QuestionPatch struct {
	QuestionText  *string
	Options       []string
	CorrectAnswer *int
	Points        *int
	Explanation   *string
}

// QuizService contains the quiz authoring and browsing use cases.
type QuizService struct {
	quizzes QuizRepository
	cache   QuizCache
	log     *zap.Logger
	now     func() time.Time
}

func NewQuizService(quizzes QuizRepository, cache QuizCache, log *zap.Logger) *QuizService {
	return &QuizService{quizzes: quizzes, cache: cache, log: log, now: time.Now}
}

// ListQuizzes returns the quizzes visible to viewer, newest first.
func (s *QuizService) ListQuizzes(ctx context.Context, viewer domain.Viewer, params ListParams) ([]domain.Quiz, error) {
	var (
		category   domain.Category
		difficulty domain.Difficulty
		err        error
	)
	if params.Category != "" {
		if category, err = domain.ParseCategory(params.Category); err != nil {
			return nil, err
		}
	}
	if params.Difficulty != "" {
		if difficulty, err = domain.ParseDifficulty(params.Difficulty); err != nil {
			return nil, err
		}
	}
	return s.quizzes.ListQuizzes(ctx, domain.NewQuizFilter(viewer, category, difficulty, params.Search))
}

// MyQuizzes returns every quiz created by the viewer, public or not.
func (s *QuizService) MyQuizzes(ctx context.Context, viewer domain.Viewer) ([]domain.Quiz, error) {
	if viewer.Anonymous() {
		return nil, domain.ErrUnauthorized
	}
	return s.quizzes.ListQuizzes(ctx, domain.QuizFilter{
		CreatedBy:  viewer.UserID,
		Visibility: domain.VisibilityClause{Unrestricted: true},
	})
}

// GetQuiz returns a quiz with its questions. Anyone holding the id may read it.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.cache.GetQuiz(ctx, quizID)
}

// CreateQuiz stores a new quiz owned by the viewer.
func (s *QuizService) CreateQuiz(ctx context.Context, viewer domain.Viewer, in QuizInput) (domain.Quiz, error) {
	if viewer.Anonymous() {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	if in.Difficulty == "" {
		in.Difficulty = string(domain.DifficultyMedium)
	}
	now := s.now()
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Category:    domain.Category(in.Category),
		Difficulty:  domain.Difficulty(in.Difficulty),
		CreatedBy:   viewer.UserID,
		Questions:   []domain.Question{},
		IsPublic:    in.IsPublic == nil || *in.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz created", zap.String("quiz_id", quiz.ID), zap.String("user_id", viewer.UserID))
	return quiz, nil
}

// UpdateQuiz applies patch to a quiz owned by the viewer (or any quiz for admins).
func (s *QuizService) UpdateQuiz(ctx context.Context, viewer domain.Viewer, quizID string, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.loadManaged(ctx, viewer, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if patch.Title != nil {
		quiz.Title = *patch.Title
	}
	if patch.Description != nil {
		quiz.Description = *patch.Description
	}
	if patch.Category != nil {
		quiz.Category = domain.Category(*patch.Category)
	}
	if patch.Difficulty != nil {
		quiz.Difficulty = domain.Difficulty(*patch.Difficulty)
	}
	if patch.IsPublic != nil {
		quiz.IsPublic = *patch.IsPublic
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	quiz.UpdatedAt = s.now()
	if err := s.quizzes.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	return quiz, nil
}

// DeleteQuiz removes a quiz and all of its questions.
func (s *QuizService) DeleteQuiz(ctx context.Context, viewer domain.Viewer, quizID string) (domain.Quiz, error) {
	quiz, err := s.loadManaged(ctx, viewer, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	s.log.Info("quiz deleted",
		zap.String("quiz_id", quizID),
		zap.String("user_id", viewer.UserID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return quiz, nil
}

// AddQuestion appends a question to a quiz the viewer manages.
func (s *QuizService) AddQuestion(ctx context.Context, viewer domain.Viewer, quizID string, in QuestionInput) (domain.Question, error) {
	if in.QuestionText == "" || len(in.Options) == 0 || in.CorrectAnswer == nil {
		return domain.Question{}, domain.Invalid("", "questionText, options and correctAnswer are required")
	}
	if _, err := s.loadManaged(ctx, viewer, quizID); err != nil {
		return domain.Question{}, err
	}

	now := s.now()
	question := domain.Question{
		ID:            uuid.NewString(),
		QuizID:        quizID,
		QuestionText:  in.QuestionText,
		Options:       in.Options,
		CorrectAnswer: *in.CorrectAnswer,
		Points:        domain.DefaultQuestionPoints,
		Explanation:   in.Explanation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Points != nil {
		question.Points = *in.Points
	}
	if err := question.Validate(); err != nil {
		return domain.Question{}, err
	}
	if err := s.quizzes.AddQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quizID)
	return question, nil
}

// UpdateQuestion applies patch and re-validates the correct-answer index against the
// resulting options.
func (s *QuizService) UpdateQuestion(ctx context.Context, viewer domain.Viewer, quizID, questionID string, patch QuestionPatch) (domain.Question, error) {
	quiz, err := s.loadManaged(ctx, viewer, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	question, ok := findQuestion(quiz, questionID)
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}

	if patch.QuestionText != nil {
		question.QuestionText = *patch.QuestionText
	}
	if patch.Options != nil {
		question.Options = patch.Options
	}
	if patch.CorrectAnswer != nil {
		question.CorrectAnswer = *patch.CorrectAnswer
	}
	if patch.Points != nil {
		question.Points = *patch.Points
	}
	if patch.Explanation != nil {
		question.Explanation = *patch.Explanation
	}
	if err := question.Validate(); err != nil {
		return domain.Question{}, err
	}
	question.UpdatedAt = s.now()
	if err := s.quizzes.UpdateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quizID)
	return question, nil
}

// DeleteQuestion removes one question from a quiz the viewer manages.
func (s *QuizService) DeleteQuestion(ctx context.Context, viewer domain.Viewer, quizID, questionID string) error {
	quiz, err := s.loadManaged(ctx, viewer, quizID)
	if err != nil {
		return err
	}
	if _, ok := findQuestion(quiz, questionID); !ok {
		return domain.ErrQuestionNotFound
	}
	if err := s.quizzes.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// AdminListQuizzes returns every quiz along with visibility counts.
func (s *QuizService) AdminListQuizzes(ctx context.Context, viewer domain.Viewer) ([]domain.Quiz, domain.QuizCounts, error) {
	if !viewer.IsAdmin() {
		return nil, domain.QuizCounts{}, domain.ErrForbidden
	}
	quizzes, err := s.quizzes.ListQuizzes(ctx, domain.QuizFilter{Visibility: domain.VisibilityClause{Unrestricted: true}})
	if err != nil {
		return nil, domain.QuizCounts{}, err
	}
	counts := domain.QuizCounts{Total: len(quizzes)}
	for _, q := range quizzes {
		if q.IsPublic {
			counts.Public++
		} else {
			counts.Private++
		}
	}
	return quizzes, counts, nil
}

// ReconcileOrphans removes questions left behind by an interrupted quiz delete.
func (s *QuizService) ReconcileOrphans(ctx context.Context) (int, error) {
	removed, err := s.quizzes.ReconcileOrphans(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Warn("removed orphaned questions", zap.Int("count", removed))
	}
	return removed, nil
}

func (s *QuizService) loadManaged(ctx context.Context, viewer domain.Viewer, quizID string) (domain.Quiz, error) {
	if viewer.Anonymous() {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	quiz, err := s.quizzes.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !viewer.CanManage(quiz.CreatedBy) {
		return domain.Quiz{}, domain.ErrNotOwner
	}
	return quiz, nil
}

// invalidate drops the cached copy; a failure only means a stale read until the TTL.
func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		s.log.Warn("quiz cache invalidation failed", zap.String("quiz_id", quizID), zap.Error(err))
	}
}

func findQuestion(quiz domain.Quiz, questionID string) (domain.Question, bool) {
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return domain.Question{}, false
}
