package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pathd.dev/pathd/sim"
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type tickDoneMsg sim.TickResult

type watchModel struct {
	runner   *sim.Runner
	ticks    int
	interval time.Duration

	progress progress.Model
	last     sim.TickResult
	done     bool
	haveTick bool
}

func newWatchModel(runner *sim.Runner, ticks int, interval time.Duration) watchModel {
	return watchModel{
		runner:   runner,
		ticks:    ticks,
		interval: interval,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (m watchModel) step() tea.Cmd {
	return func() tea.Msg {
		dt := m.interval.Seconds()
		if dt <= 0 {
			dt = 0.1
		}
		tr := m.runner.Step(dt)
		if m.interval > 0 {
			time.Sleep(m.interval)
		}
		return tickDoneMsg(tr)
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.step()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, _ := docStyle.GetFrameSize()
		m.progress.Width = msg.Width - h*2
	case tickDoneMsg:
		m.last = sim.TickResult(msg)
		m.haveTick = true
		if m.last.Tick+1 >= m.ticks {
			m.done = true
			return m, tea.Quit
		}
		return m, m.step()
	}
	return m, nil
}

func (m watchModel) View() string {
	if !m.haveTick {
		return docStyle.Render("planning...")
	}
	r := m.last.Result
	status := "ok"
	if !r.Success {
		status = r.ErrorMessage
	}
	body := fmt.Sprintf(
		"%s\n\ntick: %d/%d\nego: (%.2f, %.2f)\npoints: %d\nsolve: %.2f ms\nsolver: %s after %d iterations\nstatus: %s",
		m.progress.ViewAs(float64(m.last.Tick+1)/float64(m.ticks)),
		m.last.Tick+1, m.ticks,
		m.last.Ego.Position.X, m.last.Ego.Position.Y,
		len(r.Trajectory),
		r.ComputationTimeMS,
		r.QP.Status, r.QP.Iterations,
		status,
	)
	return docStyle.Render(body + "\n")
}

// watch runs the replay inside a live terminal view and returns the last
// tick once the replay finishes or the user quits.
func watch(ctx context.Context, runner *sim.Runner, ticks int, interval time.Duration) (sim.TickResult, error) {
	m := newWatchModel(runner, ticks, interval)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return sim.TickResult{}, err
	}
	return final.(watchModel).last, nil
}
