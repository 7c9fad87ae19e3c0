package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizhub/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username"`
	Email        string    `bun:"email"`
	PasswordHash string    `bun:"password_hash"`
	Role         string    `bun:"role"`
	CreatedAt    time.Time `bun:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at"`
}

func newUserRow(u domain.User) userRow {
	return userRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID            string    `bun:"id,pk"`
	Title         string    `bun:"title"`
	Description   string    `bun:"description"`
	Category      string    `bun:"category"`
	Difficulty    string    `bun:"difficulty"`
	CreatedBy     string    `bun:"created_by"`
	CreatedByName string    `bun:"created_by_name,scanonly"`
	IsPublic      bool      `bun:"is_public"`
	TotalPlays    int       `bun:"total_plays"`
	AverageScore  float64   `bun:"average_score"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

func newQuizRow(q domain.Quiz) quizRow {
	return quizRow{
		ID:           q.ID,
		Title:        q.Title,
		Description:  q.Description,
		Category:     string(q.Category),
		Difficulty:   string(q.Difficulty),
		CreatedBy:    q.CreatedBy,
		IsPublic:     q.IsPublic,
		TotalPlays:   q.TotalPlays,
		AverageScore: q.AverageScore,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

func (r quizRow) toDomain(questions []domain.Question) domain.Quiz {
	if questions == nil {
		questions = []domain.Question{}
	}
	return domain.Quiz{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Category:      domain.Category(r.Category),
		Difficulty:    domain.Difficulty(r.Difficulty),
		CreatedBy:     r.CreatedBy,
		CreatedByName: r.CreatedByName,
		Questions:     questions,
		IsPublic:      r.IsPublic,
		TotalPlays:    r.TotalPlays,
		AverageScore:  r.AverageScore,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// questionRow has no foreign key to quizzes; the cascade is done by the store and repaired
// by ReconcileOrphans.
type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID            string    `bun:"id,pk"`
	QuizID        string    `bun:"quiz_id"`
	QuestionText  string    `bun:"question_text"`
	Options       []string  `bun:"options,type:jsonb"`
	CorrectAnswer int       `bun:"correct_answer"`
	Points        int       `bun:"points"`
	Explanation   string    `bun:"explanation"`
	Position      int       `bun:"position"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

func newQuestionRow(q domain.Question) questionRow {
	return questionRow{
		ID:            q.ID,
		QuizID:        q.QuizID,
		QuestionText:  q.QuestionText,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
		Explanation:   q.Explanation,
		Position:      q.Order,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		QuestionText:  r.QuestionText,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Points:        r.Points,
		Explanation:   r.Explanation,
		Order:         r.Position,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID             string                `bun:"id,pk"`
	QuizID         string                `bun:"quiz_id"`
	UserID         string                `bun:"user_id"`
	Score          int                   `bun:"score"`
	MaxScore       int                   `bun:"max_score"`
	Percentage     int                   `bun:"percentage"`
	CorrectAnswers int                   `bun:"correct_answers"`
	TotalQuestions int                   `bun:"total_questions"`
	Answers        []domain.AnswerRecord `bun:"answers,type:jsonb"`
	CompletedAt    time.Time             `bun:"completed_at"`
	QuizTitle      string                `bun:"quiz_title,scanonly"`
	Username       string                `bun:"username,scanonly"`
}

func newResultRow(r domain.Result) resultRow {
	return resultRow{
		ID:             r.ID,
		QuizID:         r.QuizID,
		UserID:         r.UserID,
		Score:          r.Score,
		MaxScore:       r.MaxScore,
		Percentage:     r.Percentage,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		Answers:        r.Answers,
		CompletedAt:    r.CompletedAt,
	}
}

func (r resultRow) toDomain() domain.Result {
	return domain.Result{
		ID:             r.ID,
		QuizID:         r.QuizID,
		QuizTitle:      r.QuizTitle,
		UserID:         r.UserID,
		Username:       r.Username,
		Score:          r.Score,
		MaxScore:       r.MaxScore,
		Percentage:     r.Percentage,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		Answers:        r.Answers,
		CompletedAt:    r.CompletedAt,
	}
}
