package controller

import (
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

// Filters are the user's current selections. Zero values select everything.
type Filters struct {
	Search       string // case-insensitive substring of the description
	Category     string // exact category, "" for all
	Priority     *int   // exact priority, nil for all
	ArchivedOnly bool   // only archived todos
}

// IsZero reports whether f selects every todo.
func (f Filters) IsZero() bool {
	return f.Search == "" && f.Category == "" && f.Priority == nil && !f.ArchivedOnly
}

// Match reports whether t is part of the filtered view.
func (f Filters) Match(t model.Todo) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.ArchivedOnly && !t.Archived {
		return false
	}
	return true
}

// Apply returns the todos matching f, in order. todos is not modified.
func Apply(todos []model.Todo, f Filters) []model.Todo {
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
