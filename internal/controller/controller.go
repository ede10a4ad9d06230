// Package controller keeps an in-memory mirror of the remote to-do list,
// applies server responses to it and drives a view.
//
// Every operation is one request followed by one render. Failures are logged
// and leave local state untouched; nothing is retried or rolled back because
// state only changes after the server confirms.
package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todoapi"
)

// API is the remote source of truth.
type API interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, fields model.Fields) (model.Todo, error)
	Update(ctx context.Context, id model.ID, changes model.Fields) (model.Todo, error)
	AddComment(ctx context.Context, id model.ID, content string) (model.Todo, error)
}

// View reads filter inputs and displays a list.
type View interface {
	Filters() Filters
	Render(todos []model.Todo)
}

// Binder is implemented by views that dispatch user events to the controller.
type Binder interface {
	Bind(c *Controller)
}

// Config configures a Controller. Either APIEndpoint or API must be set.
type Config struct {
	APIEndpoint  string
	OnTodoUpdate func(model.Todo) // optional, called after create and update
	API          API              // overrides APIEndpoint
	Logger       *log.Logger
}

// Controller owns the local todo sequence.
type Controller struct {
	api      API
	view     View
	onUpdate func(model.Todo)
	log      *log.Logger

	mu     sync.Mutex
	todos  []model.Todo
	loaded bool
}

// New binds view and performs the initial load. A failed load is logged and
// leaves the controller empty but usable; see Loaded.
func New(ctx context.Context, cfg Config, view View) (*Controller, error) {
	if view == nil {
		return nil, errors.New("view is nil")
	}
	api := cfg.API
	if api == nil {
		client, err := todoapi.New(cfg.APIEndpoint)
		if err != nil {
			return nil, fmt.Errorf("api client: %w", err)
		}
		api = client
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		api:      api,
		view:     view,
		onUpdate: cfg.OnTodoUpdate,
		log:      logger,
		todos:    []model.Todo{},
	}
	if b, ok := view.(Binder); ok {
		b.Bind(c)
	}
	_ = c.Load(ctx)
	return c, nil
}

// Load replaces local state with the server's list and renders it.
func (c *Controller) Load(ctx context.Context) error {
	todos, err := c.api.List(ctx)
	if err != nil {
		c.log.Error("load todos", "err", err)
		return err
	}
	c.mu.Lock()
	c.todos = todos
	c.loaded = true
	c.mu.Unlock()

	c.Render()
	return nil
}

// Create submits fields and appends the server's todo.
func (c *Controller) Create(ctx context.Context, fields model.Fields) error {
	todo, err := c.api.Create(ctx, fields)
	if err != nil {
		c.log.Error("add todo", "err", err)
		return err
	}
	c.mu.Lock()
	c.todos = append(c.todos, todo)
	c.mu.Unlock()

	c.Render()
	c.notify(todo)
	return nil
}

// Update sends changes for id and swaps in the server's representation.
func (c *Controller) Update(ctx context.Context, id model.ID, changes model.Fields) error {
	todo, err := c.api.Update(ctx, id, changes)
	if err != nil {
		c.log.Error("update todo", "id", id, "err", err)
		return err
	}
	c.replace(id, todo)

	c.Render()
	c.notify(todo)
	return nil
}

// AddComment posts a comment on todoID and swaps in the updated todo.
func (c *Controller) AddComment(ctx context.Context, todoID model.ID, content string) error {
	todo, err := c.api.AddComment(ctx, todoID, content)
	if err != nil {
		c.log.Error("add comment", "id", todoID, "err", err)
		return err
	}
	c.replace(todoID, todo)

	c.Render()
	return nil
}

// Filter renders the subset selected by the view's current inputs and
// returns it. Stored state is not changed.
func (c *Controller) Filter() []model.Todo {
	f := c.view.Filters()
	c.mu.Lock()
	filtered := Apply(c.todos, f)
	c.mu.Unlock()

	c.RenderView(filtered)
	return filtered
}

// Render shows the full local state.
func (c *Controller) Render() {
	c.RenderView(c.Todos())
}

// RenderView shows todos, one element each, in order.
func (c *Controller) RenderView(todos []model.Todo) {
	c.view.Render(todos)
}

// Todos returns a copy of the local state.
func (c *Controller) Todos() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.todos)
}

// Loaded reports whether any load has succeeded.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// replace swaps every element whose id equals id. The slice is rebuilt so
// copies handed out earlier never change underneath their holders.
func (c *Controller) replace(id model.ID, todo model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]model.Todo, len(c.todos))
	for i, t := range c.todos {
		if t.ID == id {
			next[i] = todo
		} else {
			next[i] = t
		}
	}
	c.todos = next
}

func (c *Controller) notify(todo model.Todo) {
	if c.onUpdate != nil {
		c.onUpdate(todo)
	}
}
