// Package model holds the records mirrored from the to-do API.
package model

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Priority levels used by the API. Any integer is accepted on the wire.
const (
	PriorityLow = iota
	PriorityMedium
	PriorityHigh
)

// Todo is a server-owned task record. Fields the client does not model are
// kept in Extra and written back unchanged.
type Todo struct {
	ID          ID         `json:"id"`
	Description string     `json:"description"`
	Category    string     `json:"category,omitempty"`
	Priority    int        `json:"priority"`
	Completed   bool       `json:"completed,omitempty"`
	Archived    bool       `json:"archived,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Comment is a text annotation attached to exactly one Todo.
type Comment struct {
	Content string `json:"content"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Fields is a partial field mapping sent as a create or update body.
type Fields map[string]any

var (
	todoKeys    = []string{"id", "description", "category", "priority", "completed", "archived", "tags", "dueDate", "comments"}
	commentKeys = []string{"content"}

	// todoOmitted are the omitempty keys. When the server sends them empty
	// they stay in Extra so encoding writes them back.
	todoOmitted = []string{"category", "completed", "archived", "tags", "dueDate", "comments"}
)

func (t *Todo) UnmarshalJSON(b []byte) error {
	type plain Todo
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	extra, err := splitExtra(b, todoKeys, todoOmitted)
	if err != nil {
		return err
	}
	p.Extra = extra
	*t = Todo(p)
	return nil
}

func (t Todo) MarshalJSON() ([]byte, error) {
	type plain Todo
	b, err := json.Marshal(plain(t))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, t.Extra)
}

func (c *Comment) UnmarshalJSON(b []byte) error {
	type plain Comment
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	extra, err := splitExtra(b, commentKeys, nil)
	if err != nil {
		return err
	}
	p.Extra = extra
	*c = Comment(p)
	return nil
}

func (c Comment) MarshalJSON() ([]byte, error) {
	type plain Comment
	b, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, c.Extra)
}

// Overdue reports whether the todo has a due date before now and is still open.
func (t Todo) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	return t.DueDate.Before(now)
}

// PriorityName returns a short label for a priority level.
func PriorityName(p int) string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return "p" + itoa(p)
}

// splitExtra returns the keys of b that are not known. Keys in omitted are
// also returned when their value is empty.
func splitExtra(b []byte, known, omitted []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		if v, ok := all[k]; ok && slices.Contains(omitted, k) && isEmptyJSON(v) {
			continue
		}
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func isEmptyJSON(v json.RawMessage) bool {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return false
	}
	switch buf.String() {
	case "null", "false", `""`, "[]", "{}":
		return true
	}
	return false
}

func mergeExtra(b []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return b, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}
