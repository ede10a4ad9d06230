package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
)

type call struct {
	op      string
	id      model.ID
	fields  model.Fields
	content string
}

type stubAPI struct {
	mu    sync.Mutex
	todos []model.Todo
	calls []call
	err   error
}

func (s *stubAPI) record(c call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *stubAPI) List(context.Context) ([]model.Todo, error) {
	s.record(call{op: "list"})
	return s.todos, s.err
}

func (s *stubAPI) Create(_ context.Context, f model.Fields) (model.Todo, error) {
	s.record(call{op: "create", fields: f})
	d, _ := f["description"].(string)
	return model.Todo{ID: model.NumericID(99), Description: d}, s.err
}

func (s *stubAPI) Update(_ context.Context, id model.ID, f model.Fields) (model.Todo, error) {
	s.record(call{op: "update", id: id, fields: f})
	for _, t := range s.todos {
		if t.ID == id {
			if v, ok := f["completed"].(bool); ok {
				t.Completed = v
			}
			if v, ok := f["archived"].(bool); ok {
				t.Archived = v
			}
			if v, ok := f["description"].(string); ok {
				t.Description = v
			}
			return t, s.err
		}
	}
	return model.Todo{ID: id}, s.err
}

func (s *stubAPI) AddComment(_ context.Context, id model.ID, content string) (model.Todo, error) {
	s.record(call{op: "comment", id: id, content: content})
	return model.Todo{ID: id, Comments: []model.Comment{{Content: content}}}, s.err
}

func (s *stubAPI) last() call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return call{}
	}
	return s.calls[len(s.calls)-1]
}

var sample = []model.Todo{
	{ID: model.NumericID(1), Description: "Buy milk", Category: "home", Priority: 1},
	{ID: model.NumericID(2), Description: "Call bob", Category: "work", Priority: 2},
	{ID: model.NumericID(3), Description: "Old task", Category: "home", Archived: true},
}

// setup binds a controller to a fresh binding and feeds the initial render
// into the model.
func setup(t *testing.T) (Model, *Binding, *stubAPI) {
	t.Helper()
	api := &stubAPI{todos: sample}
	b := NewBinding()
	_, err := controller.New(context.Background(), controller.Config{API: api, Logger: logging.Discard()}, b)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	m := New(context.Background(), b)
	m.search.Cursor.SetMode(cursor.CursorStatic)
	m.input.Cursor.SetMode(cursor.CursorStatic)
	todos, ok := b.attach(nil)
	if !ok {
		t.Fatal("initial load was not buffered")
	}
	return step(t, m, renderMsg{todos: todos}), b, api
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs any returned command to completion, feeding
// its message back.
func press(t *testing.T, m Model, b *Binding, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	return drain(t, next.(Model), b, cmd)
}

func drain(t *testing.T, m Model, b *Binding, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, b, c)
		}
	case opDoneMsg:
		next, follow := m.Update(msg)
		m = next.(Model)
		if todos, ok := b.attach(nil); ok {
			m = step(t, m, renderMsg{todos: todos})
		}
		m = drain(t, m, b, follow)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func descriptions(m Model) []string {
	var out []string
	for _, it := range m.list.Items() {
		out = append(out, it.(todoItem).todo.Description)
	}
	return out
}

func TestBindingBuffersUntilAttached(t *testing.T) {
	b := NewBinding()
	b.Render(sample[:1])
	b.Render(sample[:2])

	var got []tea.Msg
	todos, ok := b.attach(func(msg tea.Msg) { got = append(got, msg) })
	if !ok || len(todos) != 2 {
		t.Fatalf("pending = %v, %v; want latest list of 2", todos, ok)
	}
	b.Render(sample)
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(got))
	}
	if r := got[0].(renderMsg); len(r.todos) != 3 {
		t.Fatalf("sent %d todos, want 3", len(r.todos))
	}
	if _, ok := b.attach(nil); ok {
		t.Fatal("pending after attach should be empty")
	}
}

func TestInitialRenderShowsAll(t *testing.T) {
	m, _, _ := setup(t)
	if got := descriptions(m); len(got) != 3 {
		t.Fatalf("items = %v", got)
	}
	if want := []string{"home", "work"}; strings.Join(m.categories, ",") != strings.Join(want, ",") {
		t.Fatalf("categories = %v, want %v", m.categories, want)
	}
}

func TestCategoryTabCycles(t *testing.T) {
	m, b, _ := setup(t)
	tab := tea.KeyMsg{Type: tea.KeyTab}

	m = press(t, m, b, tab)
	if b.Filters().Category != "home" {
		t.Fatalf("category = %q, want home", b.Filters().Category)
	}
	if got := descriptions(m); strings.Join(got, ",") != "Buy milk,Old task" {
		t.Fatalf("items = %v", got)
	}

	m = press(t, m, b, tab)
	if got := descriptions(m); strings.Join(got, ",") != "Call bob" {
		t.Fatalf("items = %v", got)
	}

	m = press(t, m, b, tab)
	if b.Filters().Category != "" || len(descriptions(m)) != 3 {
		t.Fatalf("tab past last category should reset, got %q / %v", b.Filters().Category, descriptions(m))
	}
}

func TestPriorityAndArchiveToggles(t *testing.T) {
	m, b, _ := setup(t)

	m = press(t, m, b, runes("p"))
	if p := b.Filters().Priority; p == nil || *p != model.PriorityLow {
		t.Fatalf("priority = %v, want low", p)
	}
	m = press(t, m, b, runes("p"))
	if got := descriptions(m); strings.Join(got, ",") != "Buy milk" {
		t.Fatalf("items = %v", got)
	}
	m = press(t, m, b, runes("p"))
	m = press(t, m, b, runes("p"))
	if b.Filters().Priority != nil {
		t.Fatal("priority should cycle back to all")
	}

	m = press(t, m, b, runes("A"))
	if got := descriptions(m); strings.Join(got, ",") != "Old task" {
		t.Fatalf("archived only = %v", got)
	}
}

func TestSearchTyping(t *testing.T) {
	m, b, _ := setup(t)
	m = press(t, m, b, runes("/"))
	if m.mode != modeSearch {
		t.Fatal("slash should open search")
	}
	m = press(t, m, b, runes("BOB"))
	if b.Filters().Search != "BOB" {
		t.Fatalf("search = %q", b.Filters().Search)
	}
	if got := descriptions(m); strings.Join(got, ",") != "Call bob" {
		t.Fatalf("items = %v", got)
	}

	m = press(t, m, b, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeBrowse || b.Filters().Search != "" || len(descriptions(m)) != 3 {
		t.Fatalf("esc should clear search, mode=%v search=%q", m.mode, b.Filters().Search)
	}
}

func TestAddForm(t *testing.T) {
	m, b, api := setup(t)
	m = press(t, m, b, runes("a"))
	if m.mode != modeAdd {
		t.Fatal("a should open the add form")
	}

	m = press(t, m, b, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeAdd || m.errMsg == "" {
		t.Fatal("empty description should be rejected in place")
	}

	m = press(t, m, b, runes("Water plants"))
	m = press(t, m, b, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != modeBrowse {
		t.Fatal("form should close after submit")
	}
	c := api.last()
	if c.op != "create" || c.fields["description"] != "Water plants" {
		t.Fatalf("last call = %+v", c)
	}
	if got := descriptions(m); len(got) != 4 || got[3] != "Water plants" {
		t.Fatalf("items = %v", got)
	}
}

func TestToggleCompletedAndArchive(t *testing.T) {
	m, b, api := setup(t)

	m = press(t, m, b, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	c := api.last()
	if c.op != "update" || c.id != model.NumericID(1) || c.fields["completed"] != true {
		t.Fatalf("last call = %+v", c)
	}
	if !m.list.Items()[0].(todoItem).todo.Completed {
		t.Fatal("first todo should render completed")
	}

	press(t, m, b, runes("x"))
	c = api.last()
	if c.op != "update" || c.fields["archived"] != true {
		t.Fatalf("last call = %+v", c)
	}
}

func TestMutationKeepsActiveFilter(t *testing.T) {
	m, b, api := setup(t)
	m = press(t, m, b, tea.KeyMsg{Type: tea.KeyTab})
	if got := descriptions(m); strings.Join(got, ",") != "Buy milk,Old task" {
		t.Fatalf("items = %v", got)
	}

	m = press(t, m, b, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if c := api.last(); c.op != "update" {
		t.Fatalf("last call = %+v", c)
	}
	if b.Filters().Category != "home" {
		t.Fatalf("category = %q, want home", b.Filters().Category)
	}
	if got := descriptions(m); strings.Join(got, ",") != "Buy milk,Old task" {
		t.Fatalf("list should still match the category filter, got %v", got)
	}
	if !m.list.Items()[0].(todoItem).todo.Completed {
		t.Fatal("toggled todo should render completed")
	}

	m = press(t, m, b, runes("r"))
	if got := descriptions(m); strings.Join(got, ",") != "Buy milk,Old task" {
		t.Fatalf("reload should keep the filter, got %v", got)
	}
}

func TestEditAndComment(t *testing.T) {
	m, b, api := setup(t)

	m = press(t, m, b, runes("e"))
	if m.input.Value() != "Buy milk" {
		t.Fatalf("edit should prefill, got %q", m.input.Value())
	}
	m = press(t, m, b, runes(" now"))
	m = press(t, m, b, tea.KeyMsg{Type: tea.KeyEnter})
	if c := api.last(); c.op != "update" || c.fields["description"] != "Buy milk now" {
		t.Fatalf("last call = %+v", c)
	}

	m = press(t, m, b, runes("c"))
	m = press(t, m, b, runes("soon"))
	press(t, m, b, tea.KeyMsg{Type: tea.KeyEnter})
	if c := api.last(); c.op != "comment" || c.id != model.NumericID(1) || c.content != "soon" {
		t.Fatalf("last call = %+v", c)
	}
}

func TestFailedOperationShowsStatus(t *testing.T) {
	m, b, api := setup(t)
	api.err = errors.New("boom")

	m = press(t, m, b, runes("r"))
	if !strings.Contains(m.status, "reload failed") {
		t.Fatalf("status = %q", m.status)
	}
	if len(descriptions(m)) != 3 {
		t.Fatal("failed reload should keep the list")
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := setup(t)
	for _, k := range []tea.KeyMsg{runes("q"), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: want quit", k)
		}
	}
}

func TestNextPriority(t *testing.T) {
	var p *int
	var seen []string
	for range 4 {
		p = nextPriority(p)
		if p == nil {
			seen = append(seen, "all")
		} else {
			seen = append(seen, model.PriorityName(*p))
		}
	}
	if got := strings.Join(seen, ","); got != "low,medium,high,all" {
		t.Fatalf("cycle = %s", got)
	}
}
