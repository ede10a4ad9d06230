package ui

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
)

const maxDescription = 80

// ListView is a controller view with fixed filters. It keeps the last
// rendered list so a command can print it once it is done.
type ListView struct {
	filters controller.Filters
	group   bool
	now     func() time.Time

	mu   sync.Mutex
	last []model.Todo
}

// NewListView returns a view reporting filters; group splits pending and done.
func NewListView(filters controller.Filters, group bool) *ListView {
	return &ListView{filters: filters, group: group, now: time.Now}
}

func (v *ListView) Filters() controller.Filters { return v.filters }

func (v *ListView) Render(todos []model.Todo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = slices.Clone(todos)
}

// Last returns the most recently rendered list.
func (v *ListView) Last() []model.Todo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.last)
}

// Print writes the last rendered list as a framed panel.
func (v *ListView) Print(w io.Writer) {
	fmt.Fprintln(w, Panel(v.Lines()))
}

// Lines builds the panel content: header, progress and one line per todo.
func (v *ListView) Lines() []string {
	todos := v.Last()
	d, p := stats(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		TitleStyle.Render("Todos"),
		SuccessStyle.Render("✔"), d,
		PendingStyle.Render("•"), p,
		AccentStyle.Render("Total"), len(todos),
	)

	lines := []string{header, MutedStyle.Render(ProgressBar(d, d+p, 28))}
	if !v.filters.IsZero() {
		lines = append(lines, MutedStyle.Render(DescribeFilters(v.filters)))
	}
	lines = append(lines, "")

	if v.group {
		lines = append(lines, v.groupLines(todos)...)
	} else {
		lines = append(lines, v.flatLines(todos)...)
	}
	lines = append(lines, "")
	lines = append(lines, MutedStyle.Render("Tip: add with `tada add \"Water the plants\"`"))
	return lines
}

func (v *ListView) flatLines(todos []model.Todo) []string {
	if len(todos) == 0 {
		return []string{MutedStyle.Render("no items")}
	}
	now := v.now()
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		box := MutedStyle.Render(BoxUnchecked)
		desc := truncate(t.Description)
		if t.Completed {
			box = SuccessStyle.Render(BoxChecked)
			desc = DoneStyle.Render(desc)
		}
		out = append(out, fmt.Sprintf("%s %s %s%s",
			MutedStyle.Render(fmt.Sprintf("#%-4s", t.ID)), box, desc, MutedStyle.Render(Details(t, now))))
	}
	return out
}

func (v *ListView) groupLines(todos []model.Todo) []string {
	var pend, done []model.Todo
	for _, t := range todos {
		if t.Completed {
			done = append(done, t)
		} else {
			pend = append(pend, t)
		}
	}
	var lines []string
	lines = append(lines, AccentStyle.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, MutedStyle.Render("(none)"))
	} else {
		lines = append(lines, v.flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, AccentStyle.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, MutedStyle.Render("(none)"))
	} else {
		lines = append(lines, v.flatLines(done)...)
	}
	return lines
}

// Details is the muted suffix after a description: category, priority,
// comment count and markers.
func Details(t model.Todo, now time.Time) string {
	var parts []string
	if t.Category != "" {
		parts = append(parts, t.Category)
	}
	parts = append(parts, model.PriorityName(t.Priority))
	if n := len(t.Comments); n == 1 {
		parts = append(parts, "1 comment")
	} else if n > 1 {
		parts = append(parts, fmt.Sprintf("%d comments", n))
	}
	if t.Overdue(now) {
		parts = append(parts, "overdue")
	}
	if t.Archived {
		parts = append(parts, "archived")
	}
	return "  · " + strings.Join(parts, " · ")
}

// DescribeFilters summarizes active filters, e.g. `search "bob" · category home`.
func DescribeFilters(f controller.Filters) string {
	var parts []string
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", f.Search))
	}
	if f.Category != "" {
		parts = append(parts, "category "+f.Category)
	}
	if f.Priority != nil {
		parts = append(parts, "priority "+model.PriorityName(*f.Priority))
	}
	if f.ArchivedOnly {
		parts = append(parts, "archived only")
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, " · ")
}

func stats(todos []model.Todo) (done, pending int) {
	for _, t := range todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxDescription {
		return string(r[:maxDescription-3]) + "..."
	}
	return s
}
