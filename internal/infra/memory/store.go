package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"quizhub/internal/domain"
)

// Store is an in-memory implementation of the user, quiz and result repositories plus the
// leaderboard reader. It backs tests and the database-less development mode.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	quizzes   map[string]domain.Quiz
	questions map[string]domain.Question
	results   map[string]domain.Result
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string]domain.Question),
		results:   make(map[string]domain.Result),
	}
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return domain.ErrDuplicateUser
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// SetRole changes the role of the user registered with email.
func (s *Store) SetRole(_ context.Context, email string, role domain.Role) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u.Role = role
			s.users[id] = u
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.Questions = nil
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.assemble(quiz), nil
}

func (s *Store) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if filter.Matches(q) {
			out = append(out, s.assemble(q))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	existing.Title = quiz.Title
	existing.Description = quiz.Description
	existing.Category = quiz.Category
	existing.Difficulty = quiz.Difficulty
	existing.IsPublic = quiz.IsPublic
	existing.UpdatedAt = quiz.UpdatedAt
	s.quizzes[quiz.ID] = existing
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	for id, q := range s.questions {
		if q.QuizID == quizID {
			delete(s.questions, id)
		}
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) AddQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	question.Order = len(s.questionsOf(question.QuizID))
	stored := *question
	stored.Options = append([]string(nil), question.Options...)
	s.questions[question.ID] = stored
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[question.ID]
	if !ok || existing.QuizID != question.QuizID {
		return domain.ErrQuestionNotFound
	}
	question.Order = existing.Order
	question.CreatedAt = existing.CreatedAt
	question.Options = append([]string(nil), question.Options...)
	s.questions[question.ID] = question
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, quizID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[questionID]
	if !ok || existing.QuizID != quizID {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	for i, q := range s.questionsOf(quizID) {
		q.Order = i
		s.questions[q.ID] = q
	}
	return nil
}

func (s *Store) ReconcileOrphans(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, q := range s.questions {
		if _, ok := s.quizzes[q.QuizID]; !ok {
			delete(s.questions, id)
			removed++
		}
	}
	return removed, nil
}

// InsertOrphanQuestion stores a question without checking its quiz, simulating a delete
// that was interrupted between its two steps.
func (s *Store) InsertOrphanQuestion(question domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = question
}

func (s *Store) RecordResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[result.QuizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.AverageScore = (quiz.AverageScore*float64(quiz.TotalPlays) + float64(result.Percentage)) / float64(quiz.TotalPlays+1)
	quiz.TotalPlays++
	s.quizzes[quiz.ID] = quiz

	result.Answers = append([]domain.AnswerRecord(nil), result.Answers...)
	s.results[result.ID] = result
	return nil
}

func (s *Store) GetResult(_ context.Context, resultID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[resultID]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return s.decorate(result), nil
}

func (s *Store) DeleteResult(_ context.Context, resultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[resultID]; !ok {
		return domain.ErrResultNotFound
	}
	delete(s.results, resultID)
	return nil
}

func (s *Store) QuizLeaderboard(_ context.Context, quizID string, limit int) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.QuizID == quizID {
			out = append(out, s.decorate(r))
		}
	}
	sortByRank(out)
	return truncate(out, limit), nil
}

func (s *Store) GlobalStats(_ context.Context, top int) (domain.GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make(map[string]struct{})
	public := make([]domain.Result, 0)
	for _, r := range s.results {
		quiz, ok := s.quizzes[r.QuizID]
		if !ok || !quiz.IsPublic {
			continue
		}
		players[r.UserID] = struct{}{}
		public = append(public, s.decorate(r))
	}
	sortByRank(public)
	return domain.GlobalStats{
		TotalGames:   len(public),
		TotalPlayers: len(players),
		TopScores:    truncate(public, top),
	}, nil
}

func (s *Store) ResultsByUser(_ context.Context, userID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, s.decorate(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *Store) AdminOverview(_ context.Context, mostPlayed int) (domain.AdminOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	overview := domain.AdminOverview{
		Users:            len(s.users),
		TotalGamesPlayed: len(s.results),
	}
	plays := make([]domain.PlayCount, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		overview.Quizzes.Total++
		if q.IsPublic {
			overview.Quizzes.Public++
		} else {
			overview.Quizzes.Private++
		}
		plays = append(plays, domain.PlayCount{
			QuizID:        q.ID,
			Title:         q.Title,
			CreatedBy:     q.CreatedBy,
			CreatedByName: s.users[q.CreatedBy].Username,
			TotalPlays:    q.TotalPlays,
		})
	}
	sort.SliceStable(plays, func(i, j int) bool {
		if plays[i].TotalPlays == plays[j].TotalPlays {
			return plays[i].QuizID < plays[j].QuizID
		}
		return plays[i].TotalPlays > plays[j].TotalPlays
	})
	if len(plays) > mostPlayed {
		plays = plays[:mostPlayed]
	}
	overview.MostPlayed = plays
	return overview, nil
}

// questionsOf returns the questions of one quiz in display order. Callers hold the lock.
func (s *Store) questionsOf(quizID string) []domain.Question {
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func (s *Store) assemble(quiz domain.Quiz) domain.Quiz {
	quiz.Questions = s.questionsOf(quiz.ID)
	for i := range quiz.Questions {
		quiz.Questions[i].Options = append([]string(nil), quiz.Questions[i].Options...)
	}
	quiz.CreatedByName = s.users[quiz.CreatedBy].Username
	return quiz
}

func (s *Store) decorate(r domain.Result) domain.Result {
	r.Username = s.users[r.UserID].Username
	if quiz, ok := s.quizzes[r.QuizID]; ok {
		r.QuizTitle = quiz.Title
	}
	r.Answers = append([]domain.AnswerRecord(nil), r.Answers...)
	return r
}

func sortByRank(results []domain.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].CompletedAt.Equal(results[j].CompletedAt) {
			return results[i].CompletedAt.Before(results[j].CompletedAt)
		}
		return results[i].ID < results[j].ID
	})
}

func truncate(results []domain.Result, limit int) []domain.Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
