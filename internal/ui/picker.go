// Package ui provides optional terminal interfaces.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/nibzard/fanout/internal/parallel"
)

// ErrCancelled is returned when the user quits the picker without choosing.
var ErrCancelled = errors.New("selection cancelled")

// Choice is one selectable entry.
type Choice struct {
	Name        string
	Description string
}

// Selection is what the user picked.
type Selection struct {
	Kind     parallel.Kind
	Workload string
}

// StrategyChoices are the execution strategies in menu order, matching the
// numeric selectors parallel.ParseKind accepts.
var StrategyChoices = []Choice{
	{Name: "thread", Description: "goroutine pool sharing one address space"},
	{Name: "process", Description: "pool of isolated worker processes"},
}

// RunPicker asks for a strategy and then a workload.
func RunPicker(ctx context.Context, workloads []Choice) (Selection, error) {
	if !IsTTY(os.Stdout) {
		return Selection{}, fmt.Errorf("picker requires a TTY")
	}
	if len(workloads) == 0 {
		return Selection{}, errors.New("no workloads to pick from")
	}

	model := newPickerModel(workloads)
	program := tea.NewProgram(model, tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return Selection{}, err
	}
	m, ok := finalModel.(*pickerModel)
	if !ok || m.cancelled {
		return Selection{}, ErrCancelled
	}
	return m.selection()
}

const (
	stepStrategy = iota
	stepWorkload
	stepDone
)

type pickerModel struct {
	steps     [][]Choice
	titles    []string
	step      int
	cursor    int
	chosen    []int
	cancelled bool
}

func newPickerModel(workloads []Choice) *pickerModel {
	return &pickerModel{
		steps:  [][]Choice{StrategyChoices, workloads},
		titles: []string{"Select execution strategy", "Select workload"},
		chosen: make([]int, 0, 2),
	}
}

func (m *pickerModel) Init() tea.Cmd {
	return nil
}

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.step == stepDone {
		return m, nil
	}
	choices := m.steps[m.step]

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(choices)-1 {
			m.cursor++
		}
	case "enter", " ":
		return m.choose(m.cursor)
	case "backspace", "left", "h":
		if m.step > stepStrategy {
			m.step--
			m.cursor = m.chosen[len(m.chosen)-1]
			m.chosen = m.chosen[:len(m.chosen)-1]
		}
	default:
		if n, err := strconv.Atoi(key.String()); err == nil && n >= 1 && n <= len(choices) {
			return m.choose(n - 1)
		}
	}
	return m, nil
}

func (m *pickerModel) choose(i int) (tea.Model, tea.Cmd) {
	m.chosen = append(m.chosen, i)
	m.step++
	m.cursor = 0
	if m.step == stepDone {
		return m, tea.Quit
	}
	return m, nil
}

func (m *pickerModel) selection() (Selection, error) {
	if len(m.chosen) != stepDone {
		return Selection{}, ErrCancelled
	}
	kind, err := parallel.ParseKind(StrategyChoices[m.chosen[stepStrategy]].Name)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Kind: kind, Workload: m.steps[stepWorkload][m.chosen[stepWorkload]].Name}, nil
}

func (m *pickerModel) View() string {
	if m.step == stepDone || m.cancelled {
		return ""
	}
	var b strings.Builder
	writeTitle(&b, m.titles[m.step])
	for i, c := range m.steps[m.step] {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %d. %-10s %s\n", cursor, i+1, c.Name, c.Description))
	}
	b.WriteString("\n")
	writeFooter(&b, m.step > stepStrategy)
	return b.String()
}

func writeTitle(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeFooter(b *strings.Builder, canGoBack bool) {
	b.WriteString("up/down to move | enter or number to choose")
	if canGoBack {
		b.WriteString(" | backspace to go back")
	}
	b.WriteString(" | q to quit\n")
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
