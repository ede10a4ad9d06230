// Package fakeapi is an in-memory implementation of the to-do HTTP contract.
// It backs tests and the --demo mode; it is not a production server.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/model"
)

var (
	errNotFound        = errors.New("todo not found")
	errInvalidInput    = errors.New("invalid input")
	errInvalidPriority = errors.New("invalid priority")
)

// Server keeps todos in memory and serves them under any mount point.
type Server struct {
	mu       sync.Mutex
	todos    []model.Todo
	failNext int
	now      func() time.Time
}

// New returns a server seeded with todos. Seeds without an id get one.
func New(seed ...model.Todo) *Server {
	s := &Server{now: time.Now}
	for _, t := range seed {
		if t.ID.IsZero() {
			t.ID = newID()
		}
		s.todos = append(s.todos, t)
	}
	return s
}

// Handler routes the contract relative to its mount point.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.injectFailure)
	r.Get("/", s.list)
	r.Post("/", s.create)
	r.Put("/{todoID}", s.update)
	r.Post("/{todoID}/comments", s.addComment)
	return r
}

// Mount returns a router serving the contract under prefix, e.g. "/todos".
// Cross-origin requests are allowed so browser clients can use the demo.
func (s *Server) Mount(prefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Mount(prefix, s.Handler())
	return r
}

// FailNext makes the next request answer with status and no state change.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = status
}

// Todos returns a copy of the stored todos.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.todos)
}

// Listen serves the contract on addr under /todos until ctx is done and
// returns the endpoint URL.
func (s *Server) Listen(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: s.Mount("/todos"), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return "http://" + ln.Addr().String() + "/todos", nil
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.failNext
		s.failNext = 0
		s.mu.Unlock()
		if status != 0 {
			respondError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	todos := s.Todos()
	if todos == nil {
		todos = []model.Todo{}
	}
	respondJSON(w, http.StatusOK, todos)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var fields model.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	delete(fields, "id")

	todo, err := apply(model.Todo{ID: newID()}, fields)
	if err == nil {
		err = validate(todo)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.todos = append(s.todos, todo)
	s.mu.Unlock()
	respondJSON(w, http.StatusCreated, todo)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var changes model.Fields
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	delete(changes, "id")

	todo, err := s.modify(chi.URLParam(r, "todoID"), func(t model.Todo) (model.Todo, error) {
		next, err := apply(t, changes)
		if err != nil {
			return t, err
		}
		return next, validate(next)
	})
	s.respondTodo(w, todo, err)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	todo, err := s.modify(chi.URLParam(r, "todoID"), func(t model.Todo) (model.Todo, error) {
		if strings.TrimSpace(req.Content) == "" || t.Archived {
			return t, errInvalidInput
		}
		createdAt, _ := json.Marshal(s.now().UTC())
		id, _ := json.Marshal(uuid.NewString())
		t.Comments = append(slices.Clone(t.Comments), model.Comment{
			Content: req.Content,
			Extra:   map[string]json.RawMessage{"id": id, "createdAt": createdAt},
		})
		return t, nil
	})
	s.respondTodo(w, todo, err)
}

// modify applies fn to the todo with the given id under the lock.
func (s *Server) modify(id string, fn func(model.Todo) (model.Todo, error)) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID.String() != id {
			continue
		}
		next, err := fn(t)
		if err != nil {
			return model.Todo{}, err
		}
		s.todos[i] = next
		return next, nil
	}
	return model.Todo{}, errNotFound
}

func (s *Server) respondTodo(w http.ResponseWriter, todo model.Todo, err error) {
	switch {
	case errors.Is(err, errNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondJSON(w, http.StatusOK, todo)
	}
}

// apply overlays fields on t through its JSON form, so unknown keys are kept.
func apply(t model.Todo, fields model.Fields) (model.Todo, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return t, err
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		return t, err
	}
	for k, v := range fields {
		obj[k] = v
	}
	if b, err = json.Marshal(obj); err != nil {
		return t, err
	}
	var out model.Todo
	if err := json.Unmarshal(b, &out); err != nil {
		return t, fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	return out, nil
}

func validate(t model.Todo) error {
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("%w: description is required", errInvalidInput)
	}
	if t.Priority < model.PriorityLow || t.Priority > model.PriorityHigh {
		return errInvalidPriority
	}
	return nil
}

func newID() model.ID { return model.StringID(uuid.NewString()) }

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
