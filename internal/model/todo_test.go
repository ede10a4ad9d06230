package model

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestTodoUnmarshalKeepsUnknownFields(t *testing.T) {
	in := `{"id":7,"description":"Feed the cat","category":"Pets","priority":1,
		"comments":[{"content":"done twice","userId":"u1"}],"assignedTo":"u2"}`

	var got Todo
	if err := json.Unmarshal([]byte(in), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != NumericID(7) {
		t.Errorf("ID: got %q, want 7", got.ID)
	}
	if got.Description != "Feed the cat" || got.Category != "Pets" || got.Priority != 1 {
		t.Errorf("known fields: got %+v", got)
	}
	if string(got.Extra["assignedTo"]) != `"u2"` {
		t.Errorf("Extra[assignedTo]: got %s", got.Extra["assignedTo"])
	}
	if _, ok := got.Extra["description"]; ok {
		t.Error("known field leaked into Extra")
	}
	if len(got.Comments) != 1 || got.Comments[0].Content != "done twice" {
		t.Fatalf("Comments: got %+v", got.Comments)
	}
	if string(got.Comments[0].Extra["userId"]) != `"u1"` {
		t.Errorf("comment Extra[userId]: got %s", got.Comments[0].Extra["userId"])
	}
}

func TestTodoMarshalWritesExtraBack(t *testing.T) {
	todo := Todo{
		ID:          StringID("abc"),
		Description: "Bake a cake",
		Priority:    PriorityHigh,
		Extra:       map[string]json.RawMessage{"parentId": json.RawMessage(`"p1"`)},
	}
	b, err := json.Marshal(todo)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if obj["id"] != "abc" {
		t.Errorf("id: got %v, want abc", obj["id"])
	}
	if obj["parentId"] != "p1" {
		t.Errorf("parentId: got %v, want p1", obj["parentId"])
	}
	if obj["priority"] != float64(PriorityHigh) {
		t.Errorf("priority: got %v", obj["priority"])
	}
}

func TestTodoWithoutExtraDecodesToNilMap(t *testing.T) {
	var got Todo
	if err := json.Unmarshal([]byte(`{"id":1,"description":"a","category":"x","priority":2}`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Todo{ID: NumericID(1), Description: "a", Category: "x", Priority: 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestIDForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
		out  string
	}{
		{"number", `5`, NumericID(5), `5`},
		{"string", `"5"`, StringID("5"), `"5"`},
		{"uuid", `"0b6f1f0e-1c1d-4d63-9d0c-4ad1f0d3a8c1"`, StringID("0b6f1f0e-1c1d-4d63-9d0c-4ad1f0d3a8c1"), `"0b6f1f0e-1c1d-4d63-9d0c-4ad1f0d3a8c1"`},
		{"null", `null`, ID{}, `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if id != tt.want {
				t.Errorf("got %#v, want %#v", id, tt.want)
			}
			b, err := json.Marshal(id)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.out {
				t.Errorf("marshal: got %s, want %s", b, tt.out)
			}
		})
	}

	if NumericID(5) == StringID("5") {
		t.Error("numeric and string IDs must differ")
	}
	var id ID
	if err := json.Unmarshal([]byte(`true`), &id); err == nil {
		t.Error("expected error for boolean id")
	}
}

func TestOverdue(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		todo Todo
		want bool
	}{
		{"no due date", Todo{}, false},
		{"past due", Todo{DueDate: &past}, true},
		{"past due but completed", Todo{DueDate: &past, Completed: true}, false},
		{"due later", Todo{DueDate: &future}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.todo.Overdue(now); got != tt.want {
				t.Errorf("Overdue: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriorityName(t *testing.T) {
	if got := PriorityName(PriorityMedium); got != "medium" {
		t.Errorf("got %q", got)
	}
	if got := PriorityName(7); got != "p7" {
		t.Errorf("got %q", got)
	}
}

func TestTodoKeepsEmptyKnownFields(t *testing.T) {
	in := `{"id":3,"description":"a","category":"","priority":0,"completed":false,
		"archived":false,"tags":[],"dueDate":null,"comments":[]}`

	var todo Todo
	if err := json.Unmarshal([]byte(in), &todo); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, err := json.Marshal(todo)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"category", "completed", "archived", "tags", "dueDate", "comments"} {
		if _, ok := obj[k]; !ok {
			t.Errorf("%s dropped on re-encode: %s", k, b)
		}
	}

	todo.Completed = true
	todo.Tags = []string{"x"}
	if b, err = json.Marshal(todo); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var changed Todo
	if err := json.Unmarshal(b, &changed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !changed.Completed || len(changed.Tags) != 1 {
		t.Errorf("set fields must win over kept empties: %s", b)
	}
	if _, ok := changed.Extra["completed"]; ok {
		t.Error("non-empty known field leaked into Extra")
	}
}
