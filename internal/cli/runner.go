// Package cli implements the tada subcommands on top of the controller.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/todoapi"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Options carries what the subcommands need from main.
type Options struct {
	Config  *config.Config
	Logger  *log.Logger
	Auth    *auth.Store
	Metrics *todoapi.Metrics // optional

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type runner struct {
	Options
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	r := &runner{Options: opt}
	if r.In == nil {
		r.In = os.Stdin
	}
	if r.Out == nil {
		r.Out = os.Stdout
	}
	if r.Err == nil {
		r.Err = os.Stderr
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}

	if len(args) == 0 {
		PrintHelp(r.Err)
		return ExitUsage
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(r.Out)
		return ExitOK
	case "ls":
		return r.list(ctx, a)
	case "ui":
		return r.interactive(ctx)
	case "add":
		return r.add(ctx, a)
	case "edit":
		return r.edit(ctx, a)
	case "done":
		if len(a) != 1 {
			return r.usage("usage: tada done <id>")
		}
		return r.toggle(ctx, a[0], "completed")
	case "archive":
		if len(a) != 1 {
			return r.usage("usage: tada archive <id>")
		}
		return r.toggle(ctx, a[0], "archived")
	case "comment":
		if len(a) < 2 {
			return r.usage("usage: tada comment <id> <text...>")
		}
		return r.comment(ctx, a[0], strings.Join(a[1:], " "))
	case "export":
		if len(a) != 1 {
			return r.usage("usage: tada export <file>")
		}
		return r.export(ctx, a[0])
	case "auth":
		return r.auth(a)
	}

	r.fail("unknown subcommand: " + cmd)
	fmt.Fprintln(r.Err)
	PrintHelp(r.Err)
	return ExitUsage
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `tada - a client for a remote to-do list

Usage:
  tada [flags] <subcommand> [args]

Subcommands:
  ls [--search s] [--category c] [--priority n] [--archived]
                                    List todos
  ui                                Interactive terminal UI
  add [--category c] [--priority n] <description...>
                                    Add a todo
  edit <id> key=value...            Change fields (description and category
                                    are text; other values JSON or text)
  done <id>                         Toggle completed
  archive <id>                      Toggle archived
  comment <id> <text...>            Comment on a todo
  export <file>                     Save the list as JSON
  auth <login|logout|status|whoami> Token authentication

Flags:
  --endpoint url     API base URL (env TADA_ENDPOINT)
  --log-level lvl    debug, info, warn, error (env TADA_LOG_LEVEL)
  --timeout d        per-request timeout (env TADA_TIMEOUT)
  --metrics-addr a   serve Prometheus metrics (env TADA_METRICS_ADDR)
  --group            group ls output by pending/done
  --demo             use an in-process demo API

Examples:
  tada add --category home "Buy milk"
  tada ls --search milk
  tada edit 3 priority=2 description="Call bob"
  tada done 3
`)
}

// -------------- subcommand impls ----------------

func (r *runner) list(ctx context.Context, args []string) int {
	fs := r.flagSet("ls")
	search := fs.String("search", "", "keep descriptions containing text")
	category := fs.String("category", "", "keep one category")
	priority := fs.String("priority", "", "keep one priority (0-2)")
	archived := fs.Bool("archived", false, "show archived todos only")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	f := controller.Filters{Search: *search, Category: *category, ArchivedOnly: *archived}
	if *priority != "" {
		p, err := strconv.Atoi(*priority)
		if err != nil {
			return r.usage("ls: priority is not a number: " + *priority)
		}
		f.Priority = &p
	}

	view := ui.NewListView(f, r.Config.Group)
	c, code := r.controller(ctx, view, nil)
	if c == nil {
		return code
	}
	c.Filter()
	view.Print(r.Out)
	return ExitOK
}

func (r *runner) interactive(ctx context.Context) int {
	b := tui.NewBinding()
	if c, code := r.controller(ctx, b, nil); c == nil {
		return code
	}
	if err := tui.Run(ctx, b); err != nil {
		r.fail("ui: " + err.Error())
		return ExitFailure
	}
	return ExitOK
}

func (r *runner) add(ctx context.Context, args []string) int {
	fs := r.flagSet("add")
	category := fs.String("category", "", "category")
	priority := fs.Int("priority", model.PriorityLow, "priority (0-2)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	description := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if description == "" {
		return r.usage("usage: tada add [--category c] [--priority n] <description...>")
	}

	fields := model.Fields{"description": description, "priority": *priority}
	if *category != "" {
		fields["category"] = *category
	}

	var added model.Todo
	c, code := r.controller(ctx, ui.NewListView(controller.Filters{}, false), func(t model.Todo) { added = t })
	if c == nil {
		return code
	}
	if err := c.Create(ctx, fields); err != nil {
		r.fail("add: " + err.Error())
		return ExitFailure
	}
	r.ok("added #" + added.ID.String())
	return ExitOK
}

func (r *runner) edit(ctx context.Context, args []string) int {
	if len(args) < 2 {
		return r.usage("usage: tada edit <id> key=value...")
	}
	changes, err := ParseAssignments(args[1:])
	if err != nil {
		return r.usage("edit: " + err.Error())
	}

	c, code := r.controller(ctx, ui.NewListView(controller.Filters{}, false), nil)
	if c == nil {
		return code
	}
	t, ok := find(c, args[0])
	if !ok {
		return r.unknownID(args[0])
	}
	id := t.ID
	if err := c.Update(ctx, id, changes); err != nil {
		r.fail("edit: " + err.Error())
		return ExitFailure
	}
	r.ok("updated #" + id.String())
	return ExitOK
}

// toggle flips a boolean field of one todo.
func (r *runner) toggle(ctx context.Context, rawID, field string) int {
	c, code := r.controller(ctx, ui.NewListView(controller.Filters{}, false), nil)
	if c == nil {
		return code
	}
	t, ok := find(c, rawID)
	if !ok {
		return r.unknownID(rawID)
	}
	id := t.ID

	current := t.Completed
	if field == "archived" {
		current = t.Archived
	}
	if err := c.Update(ctx, id, model.Fields{field: !current}); err != nil {
		r.fail(field + ": " + err.Error())
		return ExitFailure
	}
	r.ok("toggled " + field + " on #" + id.String())
	return ExitOK
}

func (r *runner) comment(ctx context.Context, rawID, content string) int {
	content = strings.TrimSpace(content)
	if content == "" {
		return r.usage("comment: empty text")
	}
	c, code := r.controller(ctx, ui.NewListView(controller.Filters{}, false), nil)
	if c == nil {
		return code
	}
	t, ok := find(c, rawID)
	if !ok {
		return r.unknownID(rawID)
	}
	id := t.ID
	if err := c.AddComment(ctx, id, content); err != nil {
		r.fail("comment: " + err.Error())
		return ExitFailure
	}
	r.ok("commented on #" + id.String())
	return ExitOK
}

func (r *runner) export(ctx context.Context, path string) int {
	c, code := r.controller(ctx, ui.NewListView(controller.Filters{}, false), nil)
	if c == nil {
		return code
	}
	todos := c.Todos()
	if err := jsonstore.Save(path, todos); err != nil {
		r.fail("export: " + err.Error())
		return ExitFailure
	}
	r.ok(fmt.Sprintf("exported %d todos to %s", len(todos), path))
	return ExitOK
}

// ---------------------------------------------------
// Auth subcommands
// ---------------------------------------------------

func (r *runner) auth(args []string) int {
	const usage = "usage: tada auth <login|logout|status|whoami>"
	if len(args) != 1 {
		return r.usage(usage)
	}
	if r.Auth == nil {
		r.fail("no credential store")
		return ExitFailure
	}
	switch args[0] {
	case "login":
		return r.authLogin()
	case "logout":
		return r.authLogout()
	case "status":
		return r.authStatus()
	case "whoami":
		return r.authWhoAmI()
	}
	return r.usage(usage)
}

func (r *runner) authLogin() int {
	fmt.Fprint(r.Out, "Paste your token: ")
	sc := bufio.NewScanner(r.In)
	if !sc.Scan() {
		err := sc.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		r.fail("read token: " + err.Error())
		return ExitFailure
	}
	if err := r.Auth.Set(sc.Text(), nil); err != nil {
		r.fail("save token: " + err.Error())
		return ExitFailure
	}
	r.ok("logged in")
	return ExitOK
}

func (r *runner) authLogout() int {
	ti, _ := r.Auth.Get()
	if ti != nil && ti.Source == "env" {
		r.ok("token is provided by " + auth.EnvToken + " env var (nothing to delete)")
		return ExitOK
	}
	if err := r.Auth.Delete(); err != nil {
		r.fail("logout: " + err.Error())
		return ExitFailure
	}
	r.ok("logged out")
	return ExitOK
}

func (r *runner) authStatus() int {
	ti, err := r.Auth.Get()
	if err != nil {
		r.fail("status: " + err.Error())
		return ExitFailure
	}
	if ti == nil {
		fmt.Fprintln(r.Out, ui.MutedStyle.Render("not logged in"))
		fmt.Fprintln(r.Out, "Run: tada auth login")
		return ExitOK
	}
	fmt.Fprintf(r.Out, "source: %s\n", ti.Source)
	if ti.ExpiresAt != nil {
		fmt.Fprintf(r.Out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(r.Out, "expires: (unknown)")
	}
	fmt.Fprintln(r.Out, "env override: "+auth.EnvToken)
	return ExitOK
}

// whoami decodes a JWT payload locally (unverified); opaque tokens print basic info.
func (r *runner) authWhoAmI() int {
	ti, _ := r.Auth.Get()
	if ti == nil {
		r.fail("not logged in. Run: tada auth login")
		return ExitUsage
	}
	if payload, ok := auth.Claims(ti.Token); ok {
		fmt.Fprintln(r.Out, "JWT payload:")
		fmt.Fprintln(r.Out, payload)
		return ExitOK
	}
	fmt.Fprintln(r.Out, "Opaque token (cannot introspect locally).")
	fmt.Fprintln(r.Out, "source:", ti.Source)
	return ExitOK
}

// -------------- helpers --------------

// controller builds the API client and controller. A nil controller comes
// with the exit code to return. A failed initial load is a failure.
func (r *runner) controller(ctx context.Context, view controller.View, onUpdate func(model.Todo)) (*controller.Controller, int) {
	opts := []todoapi.Option{todoapi.WithTimeout(r.Config.Timeout), todoapi.WithMetrics(r.Metrics)}
	if r.Auth != nil {
		if token := r.Auth.Token(); token != "" {
			opts = append(opts, todoapi.WithToken(token))
		}
	}
	client, err := todoapi.New(r.Config.Endpoint, opts...)
	if err != nil {
		r.fail(err.Error())
		return nil, ExitFailure
	}

	c, err := controller.New(ctx, controller.Config{
		APIEndpoint:  r.Config.Endpoint,
		OnTodoUpdate: onUpdate,
		API:          client,
		Logger:       r.Logger,
	}, view)
	if err != nil {
		r.fail(err.Error())
		return nil, ExitFailure
	}
	if !c.Loaded() {
		r.fail("could not load todos from " + client.Endpoint())
		return nil, ExitFailure
	}
	return c, ExitOK
}

func (r *runner) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.Err)
	return fs
}

func (r *runner) unknownID(raw string) int {
	r.fail("no todo with id " + raw)
	fmt.Fprintln(r.Err, ui.MutedStyle.Render("Hint: run `tada ls` to see ids"))
	return ExitUsage
}

func (r *runner) usage(msg string) int {
	r.fail(msg)
	return ExitUsage
}

func (r *runner) ok(msg string)   { ui.OK(r.Out, msg) }
func (r *runner) fail(msg string) { ui.Fail(r.Err, msg) }

// find matches raw against the text form of each id, so numeric and string
// ids the server issued are both reachable as typed.
func find(c *controller.Controller, raw string) (model.Todo, bool) {
	for _, t := range c.Todos() {
		if t.ID.String() == raw {
			return t, true
		}
	}
	return model.Todo{}, false
}

// textKeys always take the value as typed.
var textKeys = []string{"description", "category"}

// ParseAssignments turns key=value arguments into fields. Text fields keep
// the value as typed. Other values that parse as JSON keep their type
// (priority=2, completed=true, tags=["a"]); anything else is a string.
func ParseAssignments(args []string) (model.Fields, error) {
	fields := model.Fields{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if key == "id" {
			return nil, errors.New("id cannot be changed")
		}
		var v any = value
		if !slices.Contains(textKeys, key) {
			if err := json.Unmarshal([]byte(value), &v); err != nil {
				v = value
			}
		}
		fields[key] = v
	}
	return fields, nil
}
