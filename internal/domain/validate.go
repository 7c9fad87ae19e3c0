package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultQuestionPoints = 10
	minOptions            = 2
	maxOptions            = 4
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ParseCategory accepts only members of Categories.
func ParseCategory(raw string) (Category, error) {
	for _, c := range Categories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", Invalid("category", fmt.Sprintf("unknown category %q", raw))
}

// ParseDifficulty accepts facile, medio or difficile.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(raw); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", Invalid("difficulty", fmt.Sprintf("unknown difficulty %q", raw))
}

// Validate checks the quiz metadata. Questions are validated separately.
func (q Quiz) Validate() error {
	if err := lengthBetween("title", q.Title, 3, 100); err != nil {
		return err
	}
	if err := lengthBetween("description", q.Description, 1, 500); err != nil {
		return err
	}
	if _, err := ParseCategory(string(q.Category)); err != nil {
		return err
	}
	if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
		return err
	}
	return nil
}

// Validate checks the question, including that CorrectAnswer indexes into Options.
// It must be called again whenever Options change.
func (q Question) Validate() error {
	if err := lengthBetween("questionText", q.QuestionText, 5, 500); err != nil {
		return err
	}
	if n := len(q.Options); n < minOptions || n > maxOptions {
		return Invalid("options", fmt.Sprintf("must have between %d and %d options", minOptions, maxOptions))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return Invalid("options", fmt.Sprintf("option %d is empty", i))
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return Invalid("correctAnswer", "index out of range")
	}
	if q.Points < 1 || q.Points > 100 {
		return Invalid("points", "must be between 1 and 100")
	}
	if utf8.RuneCountInString(q.Explanation) > 300 {
		return Invalid("explanation", "must be at most 300 characters")
	}
	return nil
}

// ValidateRegistration checks the fields needed to create an account.
func ValidateRegistration(username, email, password string) error {
	if utf8.RuneCountInString(strings.TrimSpace(username)) < 3 {
		return Invalid("username", "must be at least 3 characters")
	}
	if !emailPattern.MatchString(email) {
		return Invalid("email", "invalid email")
	}
	if utf8.RuneCountInString(password) < 6 {
		return Invalid("password", "must be at least 6 characters")
	}
	return nil
}

func lengthBetween(field, value string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n == 0 {
		return Invalid(field, "is required")
	}
	if n < min || n > max {
		return Invalid(field, fmt.Sprintf("must be between %d and %d characters", min, max))
	}
	return nil
}
