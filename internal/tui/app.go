// Package tui is the interactive shell around the batch coordinator. It
// follows the usual bubbletea shape: the App model holds all state, Update
// reacts to messages, View renders a string.
//
// The shell never blocks on a running batch. A tick message polls the
// coordinator's lifecycle flag and the results are gathered exactly once,
// when the flag reads done. After gathering, the spent coordinator is
// replaced with a fresh one so the next run starts clean.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/conveyorhq/conveyor/internal/batch"
	"github.com/conveyorhq/conveyor/internal/model"
)

const pollEvery = 100 * time.Millisecond

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4BB543"))
	failureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	summaryFrame  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	helpBar       = dimStyle.MarginTop(1)
	defaultHeight = 24
)

// tickMsg drives the poll loop while a batch is running.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(pollEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// CoordinatorFactory builds a fresh coordinator for every run.
type CoordinatorFactory func() *batch.Coordinator

// App is the shell's model.
type App struct {
	ctx     context.Context
	factory CoordinatorFactory
	coord   *batch.Coordinator

	items  []model.Item
	cursor int
	input  textinput.Model
	spin   spinner.Model

	summary string
	failed  bool
	errMsg  string

	width  int
	height int
}

// NewApp stages the given items into a fresh coordinator. ctx bounds every
// run started from the shell.
func NewApp(ctx context.Context, factory CoordinatorFactory, items []model.Item) *App {
	input := textinput.New()
	input.Placeholder = "path to add"
	input.Prompt = "> "
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &App{
		ctx:     ctx,
		factory: factory,
		coord:   factory(),
		items:   dedupe(items),
		input:   input,
		spin:    spin,
		height:  defaultHeight,
	}
}

// dedupe drops repeated items, keeping the first occurrence's position.
func dedupe(items []model.Item) []model.Item {
	seen := make(map[model.Item]struct{}, len(items))
	ret := make([]model.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		ret = append(ret, item)
	}
	return ret
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// running reports whether a batch is in flight. It reads the lifecycle flag,
// so a batch that finished since the last tick already counts as not running.
func (a *App) running() bool {
	s := a.coord.State()
	return s == batch.StateRunning
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tickMsg:
		if a.coord.State() != batch.StateDone {
			return a, tick()
		}
		a.gather()
		return a, nil

	case spinner.TickMsg:
		if !a.running() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit
		case "enter":
			if a.running() {
				return a, nil
			}
			if path := strings.TrimSpace(a.input.Value()); path != "" {
				a.addItem(model.Item(path))
				a.input.SetValue("")
				return a, nil
			}
			return a, a.startRun()
		case "ctrl+x":
			if !a.running() {
				a.removeSelected()
			}
			return a, nil
		case "up":
			if a.cursor > 0 {
				a.cursor--
			}
			return a, nil
		case "down":
			if a.cursor < len(a.items)-1 {
				a.cursor++
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// addItem stages item unless it already is: the list is a set, staging the
// same file twice must not process it twice.
func (a *App) addItem(item model.Item) {
	for _, staged := range a.items {
		if staged == item {
			return
		}
	}
	a.items = append(a.items, item)
	a.summary = ""
	a.errMsg = ""
}

func (a *App) removeSelected() {
	if len(a.items) == 0 {
		return
	}
	a.items = append(a.items[:a.cursor], a.items[a.cursor+1:]...)
	if a.cursor >= len(a.items) && a.cursor > 0 {
		a.cursor--
	}
	a.summary = ""
	a.errMsg = ""
}

// startRun stages the current item list and dispatches the batch. The
// returned command is the first poll tick; Update keeps ticking until the
// coordinator reports done.
func (a *App) startRun() tea.Cmd {
	if len(a.items) == 0 {
		a.errMsg = "nothing to process, add a path first"
		return nil
	}

	a.coord.SetItems(a.items)
	if err := a.coord.Start(a.ctx); err != nil {
		a.errMsg = err.Error()
		return nil
	}
	a.summary = ""
	a.errMsg = ""
	return tea.Batch(a.spin.Tick, tick())
}

// gather drains the finished run and retires the coordinator. Called at most
// once per run: the fresh replacement reads uninitialized, so the done branch
// cannot fire again until the next start.
func (a *App) gather() {
	outcomes := a.coord.TakeResults()
	a.summary = model.Summary(outcomes)
	a.failed = false
	for _, o := range outcomes {
		if o.Failed() {
			a.failed = true
			break
		}
	}
	a.coord = a.factory()
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("CONVEYOR"))
	b.WriteString("\n\n")

	if len(a.items) == 0 {
		b.WriteString(dimStyle.Render("no files staged"))
		b.WriteString("\n")
	}
	for i, item := range a.items {
		if i == a.cursor {
			b.WriteString(cursorStyle.Render("▸ " + string(item)))
		} else {
			b.WriteString("  " + string(item))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case a.running():
		b.WriteString(a.spin.View())
		b.WriteString(dimStyle.Render(" processing…"))
		b.WriteString("\n")
	case a.errMsg != "":
		b.WriteString(failureStyle.Render(a.errMsg))
		b.WriteString("\n")
		b.WriteString(a.input.View())
		b.WriteString("\n")
	case a.summary != "":
		style := successStyle
		if a.failed {
			style = failureStyle
		}
		b.WriteString(summaryFrame.Render(style.Render(a.summary)))
		b.WriteString("\n")
		b.WriteString(a.input.View())
		b.WriteString("\n")
	default:
		b.WriteString(a.input.View())
		b.WriteString("\n")
	}

	b.WriteString(helpBar.Render("enter → add path / start run    ctrl+x → remove    esc → quit"))
	return b.String()
}

// Run drives the shell until the user quits.
func Run(ctx context.Context, factory CoordinatorFactory, items []model.Item) error {
	app := NewApp(ctx, factory, items)
	p := tea.NewProgram(app, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running shell: %w", err)
	}
	return nil
}
