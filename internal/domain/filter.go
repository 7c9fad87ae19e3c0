package domain

import "strings"

// Viewer is the identity a read or write is performed as. The zero value is anonymous.
type Viewer struct {
	UserID string
	Role   Role
}

// Anonymous reports whether no user is attached.
func (v Viewer) Anonymous() bool { return v.UserID == "" }

// IsAdmin reports whether the viewer has the admin role.
func (v Viewer) IsAdmin() bool { return !v.Anonymous() && v.Role == RoleAdmin }

// CanManage reports whether the viewer may mutate something owned by ownerID.
func (v Viewer) CanManage(ownerID string) bool {
	return v.IsAdmin() || (!v.Anonymous() && v.UserID == ownerID)
}

// VisibilityClause is the OR-composed sub-clause of a QuizFilter:
// isPublic = true OR createdBy = OwnerID. Unrestricted disables it entirely.
type VisibilityClause struct {
	Unrestricted bool
	OwnerID      string
}

// Matches evaluates the clause against one quiz.
func (c VisibilityClause) Matches(q Quiz) bool {
	if c.Unrestricted || q.IsPublic {
		return true
	}
	return c.OwnerID != "" && q.CreatedBy == c.OwnerID
}

// QuizFilter is the fixed set of optional clauses used to list quizzes. All clauses are
// combined with AND; empty clauses match everything.
type QuizFilter struct {
	Category   Category
	Difficulty Difficulty
	// Search is matched case-insensitively as a substring of title or description.
	Search     string
	Visibility VisibilityClause
	// CreatedBy restricts to quizzes owned by one user ("my quizzes").
	CreatedBy string
}

// NewQuizFilter builds the listing filter for a viewer. Anonymous viewers see public
// quizzes, users see public quizzes plus their own, admins see everything.
func NewQuizFilter(v Viewer, category Category, difficulty Difficulty, search string) QuizFilter {
	f := QuizFilter{
		Category:   category,
		Difficulty: difficulty,
		Search:     strings.TrimSpace(search),
	}
	switch {
	case v.IsAdmin():
		f.Visibility = VisibilityClause{Unrestricted: true}
	case !v.Anonymous():
		f.Visibility = VisibilityClause{OwnerID: v.UserID}
	}
	return f
}

// Matches evaluates every clause against one quiz.
func (f QuizFilter) Matches(q Quiz) bool {
	if f.Category != "" && q.Category != f.Category {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if f.CreatedBy != "" && q.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(q.Title), needle) &&
			!strings.Contains(strings.ToLower(q.Description), needle) {
			return false
		}
	}
	return f.Visibility.Matches(q)
}
