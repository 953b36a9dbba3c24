// Package tui is the live training monitor: a bubbletea program fed by the
// harness that redraws the loss and NFE curves as epochs finish.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nodecast/internal/viz"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// EpochUpdate is one finished epoch pushed by the harness.
type EpochUpdate struct {
	Model     string
	Seed      int64
	Epoch     int
	TrainLoss float64
	ValLoss   float64
	NFE       int
}

type doneMsg struct{}

// Monitor renders a stream of epoch updates until the channel closes.
type Monitor struct {
	updates <-chan EpochUpdate

	model       string
	seed        int64
	epoch       int
	trainLosses []float64
	valLosses   []float64
	nfes        []float64
	finished    bool
}

func NewMonitor(updates <-chan EpochUpdate) Monitor {
	return Monitor{updates: updates}
}

func (m Monitor) wait() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return doneMsg{}
		}
		return u
	}
}

func (m Monitor) Init() tea.Cmd {
	return m.wait()
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case EpochUpdate:
		if msg.Model != m.model || msg.Seed != m.seed {
			// New model run: start fresh curves.
			m.model = msg.Model
			m.seed = msg.Seed
			m.trainLosses = nil
			m.valLosses = nil
			m.nfes = nil
		}
		m.epoch = msg.Epoch
		m.trainLosses = append(m.trainLosses, msg.TrainLoss)
		m.valLosses = append(m.valLosses, msg.ValLoss)
		m.nfes = append(m.nfes, float64(msg.NFE))
		return m, m.wait()

	case doneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Monitor) View() string {
	if m.model == "" {
		return metaStyle.Render("waiting for the first epoch...") + "\n"
	}

	s := titleStyle.Render("nodecast training") + "\n"
	s += metaStyle.Render(fmt.Sprintf("model %s | seed %d | epoch %d", m.model, m.seed, m.epoch)) + "\n\n"
	s += viz.LossPanel(m.trainLosses, m.valLosses) + "\n"
	s += viz.NFEPanel(m.nfes) + "\n"
	if m.finished {
		s += doneStyle.Render("run complete") + "\n"
	}
	s += helpStyle.Render("q: quit")
	return s
}
