package app

import (
	"fmt"

	"quizhub/internal/domain"
)

// ScoreAnswers scores exactly the answers given against the quiz questions. Answers that
// reference an unknown question earn nothing; omitted questions still count towards
// MaxScore and TotalQuestions. The result is deterministic for fixed inputs.
func ScoreAnswers(questions []domain.Question, answers []domain.AnswerSubmission) domain.ScoreCard {
	byID := make(map[string]domain.Question, len(questions))
	card := domain.ScoreCard{
		TotalQuestions: len(questions),
		Answers:        make([]domain.AnswerRecord, 0, len(answers)),
	}
	for _, q := range questions {
		byID[q.ID] = q
		card.MaxScore += q.Points
	}

	for _, a := range answers {
		record := domain.AnswerRecord{
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.SelectedAnswer,
		}
		if q, ok := byID[a.QuestionID]; ok && a.SelectedAnswer == q.CorrectAnswer {
			record.IsCorrect = true
			record.PointsEarned = q.Points
			card.Score += q.Points
			card.CorrectAnswers++
		}
		card.Answers = append(card.Answers, record)
	}

	card.Percentage = Percentage(card.Score, card.MaxScore)
	return card
}

// Percentage is round(100 * score / maxScore) with halves rounded up, computed in
// integers. It is 0 when maxScore is 0 and never exceeds 100.
func Percentage(score, maxScore int) int {
	if maxScore <= 0 || score <= 0 {
		return 0
	}
	if score >= maxScore {
		return 100
	}
	return (200*score + maxScore) / (2 * maxScore)
}

// CheckCompleteness requires exactly one answer per quiz question, no answers for
// foreign questions, and every selected index inside the question's option range.
func CheckCompleteness(questions []domain.Question, answers []domain.AnswerSubmission) error {
	if len(questions) == 0 {
		return domain.Invalid("quizId", "quiz has no questions")
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	seen := make(map[string]struct{}, len(answers))
	for i, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return domain.Invalid(fmt.Sprintf("answers[%d].questionId", i), "question does not belong to quiz")
		}
		if _, dup := seen[a.QuestionID]; dup {
			return domain.Invalid(fmt.Sprintf("answers[%d].questionId", i), "question answered more than once")
		}
		seen[a.QuestionID] = struct{}{}
		if a.SelectedAnswer < 0 || a.SelectedAnswer >= len(q.Options) {
			return domain.Invalid(fmt.Sprintf("answers[%d].selectedAnswer", i), "option index out of range")
		}
	}
	if len(seen) != len(questions) {
		return domain.Invalid("answers", fmt.Sprintf("expected %d answers, got %d", len(questions), len(seen)))
	}
	return nil
}

// CheckScoreCard verifies the invariants a stored result must satisfy.
func CheckScoreCard(card domain.ScoreCard) error {
	score, correct := 0, 0
	for _, a := range card.Answers {
		if a.PointsEarned < 0 {
			return domain.Invalid("answers", "pointsEarned must not be negative")
		}
		score += a.PointsEarned
		if a.IsCorrect {
			correct++
		} else if a.PointsEarned != 0 {
			return domain.Invalid("answers", "incorrect answer cannot earn points")
		}
	}
	switch {
	case card.Score < 0 || card.Score > card.MaxScore:
		return domain.Invalid("score", "must be between 0 and maxScore")
	case card.Score != score:
		return domain.Invalid("score", "does not match the sum of pointsEarned")
	case card.CorrectAnswers != correct:
		return domain.Invalid("correctAnswers", "does not match the answers marked correct")
	case card.Percentage != Percentage(card.Score, card.MaxScore):
		return domain.Invalid("percentage", "does not match score and maxScore")
	}
	return nil
}
