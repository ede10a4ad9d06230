// Package tui is the interactive terminal view: a search box, category and
// priority selectors, an archive toggle, inline add/edit/comment forms and
// the list itself.
package tui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeAdd
	modeEdit
	modeComment
)

const opFilter = "filter"

// opDoneMsg reports the end of a controller call.
type opDoneMsg struct {
	op  string
	err error
}

var priorityCycle = []int{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}

// todoItem adapts a Todo to list.Item.
type todoItem struct {
	todo model.Todo
}

func (i todoItem) FilterValue() string { return i.todo.Description }

// Custom delegate to control how items render (single line)
type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}
	box := ui.MutedStyle.Render(ui.BoxUnchecked)
	text := it.todo.Description
	if it.todo.Completed {
		box = ui.SuccessStyle.Render(ui.BoxChecked)
		text = ui.DoneStyle.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.SelectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+box+" "+text+ui.MutedStyle.Render(ui.Details(it.todo, d.now())))
}

var (
	searchBind   = key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search"))
	categoryBind = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "category"))
	priorityBind = key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority"))
	archivedBind = key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "archived"))
	addBind      = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind     = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	commentBind  = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment"))
	toggleBind   = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done"))
	archiveBind  = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "archive"))
	reloadBind   = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload"))
)

// Model is the Bubble Tea model. All controller calls are returned as commands.
type Model struct {
	ctx     context.Context
	binding *Binding

	list   list.Model
	search textinput.Model
	input  textinput.Model
	mode   mode
	target model.ID // todo being edited or commented
	errMsg string   // last input validation error

	filters    controller.Filters
	categories []string
	status     string
	busy       int

	width, height int
}

// New builds the model around a bound binding.
func New(ctx context.Context, b *Binding) Model {
	l := list.New(nil, itemDelegate{now: time.Now}, 0, 0)
	l.Title = header(nil)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = ui.TitleStyle
	l.Styles.HelpStyle = ui.HelpStyle
	l.Styles.PaginationStyle = ui.HelpStyle
	l.SetStatusBarItemName("todo", "todos")
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{searchBind, addBind, toggleBind, categoryBind, priorityBind}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{searchBind, categoryBind, priorityBind, archivedBind,
			addBind, editBind, commentBind, toggleBind, archiveBind, reloadBind}
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search descriptions..."
	search.CharLimit = 200

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 500

	m := Model{
		ctx:     ctx,
		binding: b,
		list:    l,
		search:  search,
		input:   input,
		filters: b.Filters(),
		width:   80,
		height:  24,
	}
	m.resize()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, b *Binding) error {
	p := tea.NewProgram(New(ctx, b), tea.WithAltScreen(), tea.WithContext(ctx))
	if todos, ok := b.attach(p.Send); ok {
		go p.Send(renderMsg{todos: todos})
	}
	defer b.attach(nil)

	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case renderMsg:
		m.setTodos(msg.todos)
		return m, nil

	case opDoneMsg:
		m.busy--
		m.status = ""
		if msg.err != nil {
			m.status = ui.ErrorStyle.Render("✖ " + msg.op + " failed")
			return m, nil
		}
		// Mutations and reloads render the full list; narrow it again so
		// it matches the filter bar.
		if msg.op != opFilter && !m.filters.IsZero() {
			cmd := m.applyFilters()
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeAdd, modeEdit, modeComment:
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.search, cmd = m.search.Update(msg)
	case modeAdd, modeEdit, modeComment:
		m.input, cmd = m.input.Update(msg)
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.mode = modeSearch
		cmd = m.search.Focus()
	case "tab":
		m.filters.Category = nextCategory(m.filters.Category, m.categories)
		cmd = m.applyFilters()
	case "p":
		m.filters.Priority = nextPriority(m.filters.Priority)
		cmd = m.applyFilters()
	case "A":
		m.filters.ArchivedOnly = !m.filters.ArchivedOnly
		cmd = m.applyFilters()
	case "a":
		cmd = m.startInput(modeAdd, model.ID{}, "", "New todo description...")
	case "e":
		if t, ok := m.selected(); ok {
			cmd = m.startInput(modeEdit, t.ID, t.Description, "Edit description...")
		}
	case "c":
		if t, ok := m.selected(); ok {
			cmd = m.startInput(modeComment, t.ID, "", "Comment...")
		}
	case " ", "space":
		if t, ok := m.selected(); ok {
			changes := model.Fields{"completed": !t.Completed}
			cmd = m.dispatch("update", func(ctx context.Context, c *controller.Controller) error {
				return c.Update(ctx, t.ID, changes)
			})
		}
	case "x":
		if t, ok := m.selected(); ok {
			changes := model.Fields{"archived": !t.Archived}
			cmd = m.dispatch("archive", func(ctx context.Context, c *controller.Controller) error {
				return c.Update(ctx, t.ID, changes)
			})
		}
	case "r":
		cmd = m.dispatch("reload", func(ctx context.Context, c *controller.Controller) error {
			return c.Load(ctx)
		})
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.search.Blur()
		m.mode = modeBrowse
		return m, nil
	case "esc":
		m.search.SetValue("")
		m.search.Blur()
		m.mode = modeBrowse
		m.filters.Search = ""
		cmd := m.applyFilters()
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.filters.Search {
		m.filters.Search = v
		cmd = tea.Batch(cmd, m.applyFilters())
	}
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stopInput()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			m.errMsg = "cannot be empty"
			return m, nil
		}
		id := m.target
		var cmd tea.Cmd
		switch m.mode {
		case modeAdd:
			fields := model.Fields{"description": value}
			if m.filters.Category != "" {
				fields["category"] = m.filters.Category
			}
			if m.filters.Priority != nil {
				fields["priority"] = *m.filters.Priority
			}
			cmd = m.dispatch("add", func(ctx context.Context, c *controller.Controller) error {
				return c.Create(ctx, fields)
			})
		case modeEdit:
			cmd = m.dispatch("edit", func(ctx context.Context, c *controller.Controller) error {
				return c.Update(ctx, id, model.Fields{"description": value})
			})
		case modeComment:
			cmd = m.dispatch("comment", func(ctx context.Context, c *controller.Controller) error {
				return c.AddComment(ctx, id, value)
			})
		}
		m.stopInput()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startInput(md mode, id model.ID, value, placeholder string) tea.Cmd {
	m.mode = md
	m.target = id
	m.errMsg = ""
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Placeholder = placeholder
	m.resize()
	return m.input.Focus()
}

func (m *Model) stopInput() {
	m.mode = modeBrowse
	m.target = model.ID{}
	m.errMsg = ""
	m.input.SetValue("")
	m.input.Blur()
	m.resize()
}

// applyFilters publishes the selections and asks the controller to filter.
func (m *Model) applyFilters() tea.Cmd {
	m.binding.setFilters(m.filters)
	return m.dispatch(opFilter, func(_ context.Context, c *controller.Controller) error {
		c.Filter()
		return nil
	})
}

// dispatch runs fn on a command goroutine.
func (m *Model) dispatch(op string, fn func(context.Context, *controller.Controller) error) tea.Cmd {
	c := m.binding.controller()
	if c == nil {
		return nil
	}
	m.busy++
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx, c)}
	}
}

func (m *Model) setTodos(todos []model.Todo) {
	for _, t := range todos {
		if t.Category != "" && !slices.Contains(m.categories, t.Category) {
			m.categories = append(m.categories, t.Category)
		}
	}
	slices.Sort(m.categories)

	items := make([]list.Item, len(todos))
	for i, t := range todos {
		items[i] = todoItem{todo: t}
	}
	m.list.SetItems(items)
	m.list.Title = header(todos)
}

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(todoItem)
	return it.todo, ok
}

func (m *Model) resize() {
	reserved := 6
	if m.mode != modeBrowse {
		reserved = 9
	}
	m.list.SetSize(max(m.width-4, 20), max(m.height-reserved, 5))
}

func (m Model) View() string {
	parts := []string{m.list.View(), m.filterBar()}

	switch m.mode {
	case modeSearch:
		parts = append(parts, m.search.View())
	case modeAdd, modeEdit, modeComment:
		title := map[mode]string{modeAdd: "Add new todo", modeEdit: "Edit todo", modeComment: "Comment"}[m.mode]
		if m.errMsg != "" {
			title += " · " + ui.ErrorStyle.Render(m.errMsg)
		}
		bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
		parts = append(parts, bar.Render(title+"\n"+m.input.View()))
	}
	if m.busy > 0 {
		parts = append(parts, ui.MutedStyle.Render("working..."))
	} else if m.status != "" {
		parts = append(parts, m.status)
	}
	return ui.Panel(parts)
}

func (m Model) filterBar() string {
	category := m.filters.Category
	if category == "" {
		category = "all"
	}
	priority := "all"
	if m.filters.Priority != nil {
		priority = model.PriorityName(*m.filters.Priority)
	}
	archived := "off"
	if m.filters.ArchivedOnly {
		archived = "on"
	}
	search := m.filters.Search
	if search == "" {
		search = "-"
	}
	return ui.MutedStyle.Render(fmt.Sprintf("search: %s   category: %s   priority: %s   archived only: %s",
		search, category, priority, archived))
}

// header is the list title with live counts.
func header(todos []model.Todo) string {
	done := 0
	for _, t := range todos {
		if t.Completed {
			done++
		}
	}
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		ui.TitleStyle.Render("Todos"),
		ui.SuccessStyle.Render("✔"), done,
		ui.PendingStyle.Render("•"), len(todos)-done,
		ui.AccentStyle.Render("Total"), len(todos),
	)
}

func nextCategory(cur string, categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	if cur == "" {
		return categories[0]
	}
	i := slices.Index(categories, cur)
	if i < 0 || i == len(categories)-1 {
		return ""
	}
	return categories[i+1]
}

func nextPriority(cur *int) *int {
	next := 0
	switch {
	case cur == nil:
		next = priorityCycle[0]
	default:
		i := slices.Index(priorityCycle, *cur)
		if i < 0 || i == len(priorityCycle)-1 {
			return nil
		}
		next = priorityCycle[i+1]
	}
	return &next
}
