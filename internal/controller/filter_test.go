package controller

import (
	"testing"

	"github.com/Makepad-fr/tada/internal/model"
)

func TestFiltersIsZero(t *testing.T) {
	zero := 0
	tests := []struct {
		name string
		f    Filters
		want bool
	}{
		{"empty", Filters{}, true},
		{"search", Filters{Search: "x"}, false},
		{"category", Filters{Category: "home"}, false},
		{"priority zero", Filters{Priority: &zero}, false},
		{"archived", Filters{ArchivedOnly: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.IsZero(); got != tt.want {
				t.Errorf("IsZero: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyKeepsOrder(t *testing.T) {
	todos := []model.Todo{
		{Description: "c task"},
		{Description: "a task"},
		{Description: "b chore"},
		{Description: "d task"},
	}
	got := Apply(todos, Filters{Search: "Task"})
	want := []string{"c task", "a task", "d task"}
	if len(got) != len(want) {
		t.Fatalf("Apply: got %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Description != want[i] {
			t.Errorf("item %d: got %q, want %q", i, got[i].Description, want[i])
		}
	}
}

func TestApplyOnEmptyState(t *testing.T) {
	got := Apply(nil, Filters{Search: "x"})
	if got == nil || len(got) != 0 {
		t.Errorf("Apply(nil): got %#v, want empty non-nil slice", got)
	}
}
