package domain

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Difficulty of a quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "facile"
	DifficultyMedium Difficulty = "medio"
	DifficultyHard   Difficulty = "difficile"
)

// Category is the closed set of quiz topics.
type Category string

const (
	CategoryGeography Category = "Geografia"
	CategoryHistory   Category = "Storia"
	CategoryScience   Category = "Scienza"
	CategorySport     Category = "Sport"
	CategoryGeneral   Category = "Cultura Generale"
	CategoryTech      Category = "Tecnologia"
	CategoryArt       Category = "Arte"
	CategoryMusic     Category = "Musica"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryGeography, CategoryHistory, CategoryScience, CategorySport,
	CategoryGeneral, CategoryTech, CategoryArt, CategoryMusic,
}

// Quiz is a named, ordered collection of questions.
// CreatedBy is set once at creation and never reassigned.
type Quiz struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      Category   `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	CreatedBy     string     `json:"createdBy"`
	CreatedByName string     `json:"createdByName,omitempty"`
	Questions     []Question `json:"questions"`
	IsPublic      bool       `json:"isPublic"`
	TotalPlays    int        `json:"totalPlays"`
	AverageScore  float64    `json:"averageScore"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// MaxScore is the sum of points over every question of the quiz.
func (q Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// OwnedBy reports whether userID created the quiz.
func (q Quiz) OwnedBy(userID string) bool {
	return userID != "" && q.CreatedBy == userID
}

// Question is one multiple-choice prompt.
// CorrectAnswer is a zero-based index into Options.
type Question struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quizId"`
	QuestionText  string    `json:"questionText"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
	Points        int       `json:"points"`
	Explanation   string    `json:"explanation,omitempty"`
	Order         int       `json:"order"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AnswerSubmission is one (question, selected option) pair sent by a player.
type AnswerSubmission struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
}

// AnswerRecord is the scored form of an AnswerSubmission stored on a Result.
type AnswerRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer int    `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	PointsEarned   int    `json:"pointsEarned"`
}

// ScoreCard is the output of scoring a set of answers against a quiz.
type ScoreCard struct {
	Score          int            `json:"score"`
	MaxScore       int            `json:"maxScore"`
	Percentage     int            `json:"percentage"`
	CorrectAnswers int            `json:"correctAnswers"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        []AnswerRecord `json:"answers"`
}

// Result is an immutable record of one completed play-through.
type Result struct {
	ID             string         `json:"id"`
	QuizID         string         `json:"quizId"`
	QuizTitle      string         `json:"quizTitle,omitempty"`
	UserID         string         `json:"userId"`
	Username       string         `json:"username,omitempty"`
	Score          int            `json:"score"`
	MaxScore       int            `json:"maxScore"`
	Percentage     int            `json:"percentage"`
	CorrectAnswers int            `json:"correctAnswers"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        []AnswerRecord `json:"answers"`
	CompletedAt    time.Time      `json:"completedAt"`
}

// GlobalStats aggregates results of public quizzes only.
type GlobalStats struct {
	TotalGames   int      `json:"totalGames"`
	TotalPlayers int      `json:"totalPlayers"`
	TopScores    []Result `json:"topScores"`
}

// UserStats are derived aggregates over every result of one user.
type UserStats struct {
	TotalGames          int `json:"totalGames"`
	AverageScore        int `json:"averageScore"`
	BestScore           int `json:"bestScore"`
	TotalCorrectAnswers int `json:"totalCorrectAnswers"`
	TotalQuestions      int `json:"totalQuestions"`
}

// QuizCounts splits the quiz population by visibility.
type QuizCounts struct {
	Total   int `json:"total"`
	Public  int `json:"public"`
	Private int `json:"private"`
}

// PlayCount is a lightweight quiz view used by the admin "most played" list.
type PlayCount struct {
	QuizID        string `json:"quizId"`
	Title         string `json:"title"`
	CreatedBy     string `json:"createdBy"`
	CreatedByName string `json:"createdByName,omitempty"`
	TotalPlays    int    `json:"totalPlays"`
}

// AdminOverview is the admin dashboard summary.
type AdminOverview struct {
	Quizzes          QuizCounts  `json:"quizzes"`
	Users            int         `json:"users"`
	TotalGamesPlayed int         `json:"totalGamesPlayed"`
	MostPlayed       []PlayCount `json:"mostPlayedQuizzes"`
}
