package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"quizhub/internal/domain"
)

// Store is the bun-backed entity store for users, quizzes, questions and results.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	row := newUserRow(user)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, "u.id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, "lower(u.email) = lower(?)", email)
}

func (s *Store) getUser(ctx context.Context, where string, arg interface{}) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where(where, arg).Limit(1).Scan(ctx)
	if isNoRows(err) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain(), nil
}

// SetRole changes the role of the user registered with email.
func (s *Store) SetRole(ctx context.Context, email string, role domain.Role) (domain.User, error) {
	var row userRow
	_, err := s.db.NewUpdate().
		Model(&row).
		Set("role = ?", string(role)).
		Set("updated_at = now()").
		Where("lower(u.email) = lower(?)", email).
		Returning("*").
		Exec(ctx, &row)
	if isNoRows(err) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("update role: %w", err)
	}
	if row.ID == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := newQuizRow(quiz)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := s.selectQuizzes(&row).Where("q.id = ?", quizID).Scan(ctx)
	if isNoRows(err) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("select quiz: %w", err)
	}
	questions, err := s.questionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return row.toDomain(questions[quizID]), nil
}

func (s *Store) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	var rows []quizRow
	q := s.selectQuizzes(&rows)
	if filter.Category != "" {
		q = q.Where("q.category = ?", string(filter.Category))
	}
	if filter.Difficulty != "" {
		q = q.Where("q.difficulty = ?", string(filter.Difficulty))
	}
	if filter.CreatedBy != "" {
		q = q.Where("q.created_by = ?", filter.CreatedBy)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("q.title ILIKE ?", pattern).WhereOr("q.description ILIKE ?", pattern)
		})
	}
	if v := filter.Visibility; !v.Unrestricted {
		if v.OwnerID != "" {
			q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
				return sq.Where("q.is_public").WhereOr("q.created_by = ?", v.OwnerID)
			})
		} else {
			q = q.Where("q.is_public")
		}
	}
	if err := q.Order("q.created_at DESC", "q.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	questions, err := s.questionsByQuiz(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain(questions[r.ID])
	}
	return out, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := newQuizRow(quiz)
	res, err := s.db.NewUpdate().
		Model(&row).
		Column("title", "description", "category", "difficulty", "is_public", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return affectedOr(res, domain.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		res, err := tx.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		return affectedOr(res, domain.ErrQuizNotFound)
	})
}

func (s *Store) AddQuestion(ctx context.Context, question *domain.Question) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// the row lock serializes concurrent appends to the same quiz
		var quizID string
		err := tx.NewSelect().
			Model((*quizRow)(nil)).
			Column("id").
			Where("id = ?", question.QuizID).
			For("UPDATE").
			Scan(ctx, &quizID)
		if isNoRows(err) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return fmt.Errorf("lock quiz: %w", err)
		}

		count, err := tx.NewSelect().Model((*questionRow)(nil)).Where("quiz_id = ?", quizID).Count(ctx)
		if err != nil {
			return fmt.Errorf("count questions: %w", err)
		}
		question.Order = count
		row := newQuestionRow(*question)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateQuestion(ctx context.Context, question domain.Question) error {
	row := newQuestionRow(question)
	res, err := s.db.NewUpdate().
		Model(&row).
		Column("question_text", "options", "correct_answer", "points", "explanation", "updated_at").
		WherePK().
		Where("quiz_id = ?", question.QuizID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return affectedOr(res, domain.ErrQuestionNotFound)
}

const renumberQuestionsSQL = `
UPDATE questions AS qn SET position = ranked.rn - 1
FROM (
	SELECT id, row_number() OVER (ORDER BY position, created_at) AS rn
	FROM questions WHERE quiz_id = ?
) AS ranked
WHERE qn.id = ranked.id`

func (s *Store) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*questionRow)(nil)).
			Where("id = ?", questionID).
			Where("quiz_id = ?", quizID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		if err := affectedOr(res, domain.ErrQuestionNotFound); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, renumberQuestionsSQL, quizID); err != nil {
			return fmt.Errorf("renumber questions: %w", err)
		}
		return nil
	})
}

func (s *Store) ReconcileOrphans(ctx context.Context) (int, error) {
	res, err := s.db.NewDelete().
		Model((*questionRow)(nil)).
		Where("NOT EXISTS (SELECT 1 FROM quizzes AS qz WHERE qz.id = qn.quiz_id)").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned questions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

const bumpQuizPlaysSQL = `
UPDATE quizzes
SET average_score = (average_score * total_plays + ?) / (total_plays + 1),
	total_plays = total_plays + 1
WHERE id = ?`

// RecordResult bumps the quiz counters and inserts the result in one transaction. The
// counter update comes first so a missing quiz aborts before anything is written.
func (s *Store) RecordResult(ctx context.Context, result domain.Result) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.ExecContext(ctx, bumpQuizPlaysSQL, result.Percentage, result.QuizID)
		if err != nil {
			return fmt.Errorf("bump quiz plays: %w", err)
		}
		if err := affectedOr(res, domain.ErrQuizNotFound); err != nil {
			return err
		}
		row := newResultRow(result)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		return nil
	})
}

func (s *Store) GetResult(ctx context.Context, resultID string) (domain.Result, error) {
	var row resultRow
	err := s.db.NewSelect().
		Model(&row).
		ColumnExpr("r.*").
		ColumnExpr("q.title AS quiz_title").
		ColumnExpr("u.username AS username").
		Join("LEFT JOIN quizzes AS q ON q.id = r.quiz_id").
		Join("LEFT JOIN users AS u ON u.id = r.user_id").
		Where("r.id = ?", resultID).
		Scan(ctx)
	if isNoRows(err) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("select result: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteResult(ctx context.Context, resultID string) error {
	res, err := s.db.NewDelete().Model((*resultRow)(nil)).Where("id = ?", resultID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return affectedOr(res, domain.ErrResultNotFound)
}

func (s *Store) selectQuizzes(model interface{}) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(model).
		ColumnExpr("q.*").
		ColumnExpr("u.username AS created_by_name").
		Join("LEFT JOIN users AS u ON u.id = q.created_by")
}

func (s *Store) questionsByQuiz(ctx context.Context, quizIDs ...string) (map[string][]domain.Question, error) {
	out := make(map[string][]domain.Question, len(quizIDs))
	if len(quizIDs) == 0 {
		return out, nil
	}
	var rows []questionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id IN (?)", bun.In(quizIDs)).
		Order("quiz_id", "position ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	for _, r := range rows {
		out[r.QuizID] = append(out[r.QuizID], r.toDomain())
	}
	return out, nil
}

func affectedOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
