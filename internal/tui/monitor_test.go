package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestMonitorAccumulatesEpochs(t *testing.T) {
	m := NewMonitor(nil)

	next, _ := m.Update(EpochUpdate{Model: "node_euler", Seed: 1, Epoch: 0, TrainLoss: 1, ValLoss: 1.1, NFE: 100})
	next, _ = next.Update(EpochUpdate{Model: "node_euler", Seed: 1, Epoch: 1, TrainLoss: 0.5, ValLoss: 0.6, NFE: 100})
	mon := next.(Monitor)

	if len(mon.trainLosses) != 2 {
		t.Fatalf("got %d epochs, want 2", len(mon.trainLosses))
	}
	view := mon.View()
	if !strings.Contains(view, "node_euler") || !strings.Contains(view, "epoch 1") {
		t.Error("view should show the current model and epoch")
	}
}

func TestMonitorResetsOnNewModel(t *testing.T) {
	m := NewMonitor(nil)

	next, _ := m.Update(EpochUpdate{Model: "node_euler", Seed: 1, Epoch: 0, TrainLoss: 1})
	next, _ = next.Update(EpochUpdate{Model: "lstm", Seed: 1, Epoch: 0, TrainLoss: 2})
	mon := next.(Monitor)

	if len(mon.trainLosses) != 1 {
		t.Fatalf("curves should reset for a new model, got %d points", len(mon.trainLosses))
	}
	if mon.model != "lstm" {
		t.Errorf("model = %s, want lstm", mon.model)
	}
}

func TestMonitorQuitKeys(t *testing.T) {
	m := NewMonitor(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit")
	}
}

func TestMonitorDone(t *testing.T) {
	m := NewMonitor(nil)
	next, _ := m.Update(EpochUpdate{Model: "mlp", Seed: 0, Epoch: 0})
	next, cmd := next.Update(doneMsg{})
	if cmd == nil {
		t.Fatal("done should quit")
	}
	if !strings.Contains(next.(Monitor).View(), "run complete") {
		t.Error("view should announce completion")
	}
}
