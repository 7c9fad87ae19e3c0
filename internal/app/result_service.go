package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizhub/internal/domain"
)

// SubmitRequest is a finished play-through as sent by the client. Declared holds the
// totals the client computed; Answers may carry the client's own correctness flags.
type SubmitRequest struct {
	QuizID   string
	Declared domain.ScoreCard
	Answers  []domain.AnswerRecord
}

// ResultService is the sole write path of the result ledger.
type ResultService struct {
	results     ResultRepository
	users       UserRepository
	quizzes     QuizCache
	trustClient bool
	log         *zap.Logger
	now         func() time.Time
}

// NewResultService builds the ledger. With trustClient the client-declared totals are
// persisted after an invariant check; otherwise the server re-scores every submission.
func NewResultService(results ResultRepository, users UserRepository, quizzes QuizCache, trustClient bool, log *zap.Logger) *ResultService {
	return &ResultService{
		results:     results,
		users:       users,
		quizzes:     quizzes,
		trustClient: trustClient,
		log:         log,
		now:         time.Now,
	}
}

// Submit records a result for the viewer and increments the quiz play counter.
func (s *ResultService) Submit(ctx context.Context, viewer domain.Viewer, req SubmitRequest) (domain.Result, error) {
	if viewer.Anonymous() {
		return domain.Result{}, domain.ErrUnauthorized
	}
	if req.QuizID == "" {
		return domain.Result{}, domain.Invalid("quizId", "is required")
	}
	if len(req.Answers) == 0 {
		return domain.Result{}, domain.Invalid("answers", "is required")
	}

	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.Result{}, err
	}

	submissions := make([]domain.AnswerSubmission, len(req.Answers))
	for i, a := range req.Answers {
		submissions[i] = domain.AnswerSubmission{QuestionID: a.QuestionID, SelectedAnswer: a.SelectedAnswer}
	}
	if err := CheckCompleteness(quiz.Questions, submissions); err != nil {
		return domain.Result{}, err
	}

	card, err := s.scoreCard(quiz, submissions, req)
	if err != nil {
		return domain.Result{}, err
	}

	result := domain.Result{
		ID:             uuid.NewString(),
		QuizID:         quiz.ID,
		QuizTitle:      quiz.Title,
		UserID:         viewer.UserID,
		Score:          card.Score,
		MaxScore:       card.MaxScore,
		Percentage:     card.Percentage,
		CorrectAnswers: card.CorrectAnswers,
		TotalQuestions: card.TotalQuestions,
		Answers:        card.Answers,
		CompletedAt:    s.now().UTC(),
	}
	if err := s.results.RecordResult(ctx, result); err != nil {
		return domain.Result{}, err
	}
	if err := s.quizzes.Invalidate(ctx, quiz.ID); err != nil {
		s.log.Warn("quiz cache invalidation failed", zap.String("quiz_id", quiz.ID), zap.Error(err))
	}

	if user, err := s.users.GetUser(ctx, viewer.UserID); err == nil {
		result.Username = user.Username
	}
	s.log.Info("result recorded",
		zap.String("result_id", result.ID),
		zap.String("quiz_id", result.QuizID),
		zap.String("user_id", result.UserID),
		zap.Int("score", result.Score),
		zap.Int("percentage", result.Percentage),
	)
	return result, nil
}

// Delete removes a result owned by the viewer (or any result for admins).
func (s *ResultService) Delete(ctx context.Context, viewer domain.Viewer, resultID string) error {
	if viewer.Anonymous() {
		return domain.ErrUnauthorized
	}
	result, err := s.results.GetResult(ctx, resultID)
	if err != nil {
		return err
	}
	if !viewer.CanManage(result.UserID) {
		return domain.ErrNotOwner
	}
	if err := s.results.DeleteResult(ctx, resultID); err != nil {
		return err
	}
	s.log.Info("result deleted", zap.String("result_id", resultID), zap.String("user_id", viewer.UserID))
	return nil
}

func (s *ResultService) scoreCard(quiz domain.Quiz, submissions []domain.AnswerSubmission, req SubmitRequest) (domain.ScoreCard, error) {
	computed := ScoreAnswers(quiz.Questions, submissions)
	if !s.trustClient {
		if declared(req.Declared) && !sameTotals(req.Declared, computed) {
			s.log.Warn("client score differs from server score",
				zap.String("quiz_id", quiz.ID),
				zap.Int("declared_score", req.Declared.Score),
				zap.Int("computed_score", computed.Score),
			)
		}
		return computed, nil
	}

	card := req.Declared
	card.Answers = req.Answers
	if err := CheckScoreCard(card); err != nil {
		return domain.ScoreCard{}, err
	}
	if !sameTotals(card, computed) {
		s.log.Warn("persisting client-declared score that differs from server score",
			zap.String("quiz_id", quiz.ID),
			zap.Int("declared_score", card.Score),
			zap.Int("computed_score", computed.Score),
		)
	}
	return card, nil
}

func declared(c domain.ScoreCard) bool {
	return c.MaxScore != 0 || c.Score != 0 || c.TotalQuestions != 0
}

func sameTotals(a, b domain.ScoreCard) bool {
	return a.Score == b.Score &&
		a.MaxScore == b.MaxScore &&
		a.Percentage == b.Percentage &&
		a.CorrectAnswers == b.CorrectAnswers &&
		a.TotalQuestions == b.TotalQuestions
}
