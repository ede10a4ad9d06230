package tui

import (
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
)

// renderMsg carries a list rendered by the controller into the program.
type renderMsg struct {
	todos []model.Todo
}

// Binding is the controller's view while the program runs. Controller calls
// happen on command goroutines, so renders travel as messages and filter
// inputs are read under a lock.
type Binding struct {
	mu         sync.Mutex
	filters    controller.Filters
	ctrl       *controller.Controller
	send       func(tea.Msg)
	pending    []model.Todo
	hasPending bool
}

func NewBinding() *Binding { return &Binding{} }

// Bind implements controller.Binder.
func (b *Binding) Bind(c *controller.Controller) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctrl = c
}

func (b *Binding) Filters() controller.Filters {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters
}

// Render forwards todos to the program, or keeps the latest list until one
// is attached.
func (b *Binding) Render(todos []model.Todo) {
	todos = slices.Clone(todos)
	b.mu.Lock()
	send := b.send
	if send == nil {
		b.pending, b.hasPending = todos, true
	}
	b.mu.Unlock()
	if send != nil {
		send(renderMsg{todos: todos})
	}
}

func (b *Binding) setFilters(f controller.Filters) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters = f
}

func (b *Binding) controller() *controller.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl
}

// attach routes renders to send and returns whatever was rendered before.
// A nil send detaches.
func (b *Binding) attach(send func(tea.Msg)) ([]model.Todo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
	todos, ok := b.pending, b.hasPending
	b.pending, b.hasPending = nil, false
	return todos, ok
}
