package domain

import "testing"

func TestVisibilityUnion(t *testing.T) {
	private := Quiz{ID: "p", Title: "Private", CreatedBy: "owner", IsPublic: false}
	public := Quiz{ID: "q", Title: "Public", CreatedBy: "someone", IsPublic: true}

	cases := []struct {
		name          string
		viewer        Viewer
		seesPrivate   bool
		seesPublicToo bool
	}{
		{"anonymous", Viewer{}, false, true},
		{"owner", Viewer{UserID: "owner", Role: RoleUser}, true, true},
		{"other user", Viewer{UserID: "other", Role: RoleUser}, false, true},
		{"admin", Viewer{UserID: "root", Role: RoleAdmin}, true, true},
	}
	for _, tc := range cases {
		f := NewQuizFilter(tc.viewer, "", "", "")
		if got := f.Matches(private); got != tc.seesPrivate {
			t.Fatalf("%s: private visible = %v, want %v", tc.name, got, tc.seesPrivate)
		}
		if got := f.Matches(public); got != tc.seesPublicToo {
			t.Fatalf("%s: public visible = %v, want %v", tc.name, got, tc.seesPublicToo)
		}
	}
}

func TestFiltersApplyOnTopOfVisibility(t *testing.T) {
	quiz := Quiz{
		Title:       "Capitali d'Europa",
		Description: "Quiz sulle capitali",
		Category:    CategoryGeography,
		Difficulty:  DifficultyEasy,
		CreatedBy:   "owner",
		IsPublic:    false,
	}
	owner := Viewer{UserID: "owner"}

	if !NewQuizFilter(owner, CategoryGeography, DifficultyEasy, "  EUROPA ").Matches(quiz) {
		t.Fatalf("expected match on category, difficulty and case-insensitive search")
	}
	if NewQuizFilter(owner, CategoryHistory, "", "").Matches(quiz) {
		t.Fatalf("category mismatch must exclude")
	}
	if NewQuizFilter(owner, "", DifficultyHard, "").Matches(quiz) {
		t.Fatalf("difficulty mismatch must exclude")
	}
	if NewQuizFilter(owner, "", "", "asia").Matches(quiz) {
		t.Fatalf("search miss must exclude")
	}
	if !NewQuizFilter(owner, "", "", "capitali").Matches(quiz) {
		t.Fatalf("search must also look at the description")
	}
	if NewQuizFilter(Viewer{UserID: "other"}, CategoryGeography, "", "").Matches(quiz) {
		t.Fatalf("filters must not widen visibility")
	}
}

func TestViewerPermissions(t *testing.T) {
	admin := Viewer{UserID: "a", Role: RoleAdmin}
	user := Viewer{UserID: "u", Role: RoleUser}
	anon := Viewer{Role: RoleAdmin}

	if !admin.CanManage("someone") || !user.CanManage("u") || user.CanManage("someone") {
		t.Fatalf("unexpected CanManage results")
	}
	if anon.IsAdmin() || anon.CanManage("") {
		t.Fatalf("a viewer without a user id is anonymous regardless of role")
	}
}
