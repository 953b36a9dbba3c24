package viz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/nodecast/internal/dataset"
)

func TestCurve(t *testing.T) {
	out := Curve("loss", []float64{1, 0.8, 0.5, 0.4, 0.35})
	if !strings.Contains(out, "loss") {
		t.Error("curve should carry its caption")
	}

	short := Curve("loss", []float64{1})
	if !strings.Contains(short, "not enough points") {
		t.Error("single point should degrade gracefully")
	}
}

func TestLossPanel(t *testing.T) {
	out := LossPanel([]float64{1, 0.5, 0.25}, []float64{1.1, 0.6, 0.3})
	for _, want := range []string{"training loss", "train mse", "val mse"} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q", want)
		}
	}
}

func TestSummaryTable(t *testing.T) {
	out := SummaryTable(
		[]string{"node_euler", "persistence_naive"},
		map[string]float64{"node_euler": 0.1, "persistence_naive": 0.9},
		map[string]float64{"node_euler": 0.01, "persistence_naive": 0.02},
	)
	if !strings.Contains(out, "node_euler") || !strings.Contains(out, "0.9") {
		t.Error("summary should list every model with its score")
	}
}

func TestSaveLossPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loss.png")
	if err := SaveLossPlot(path, []float64{1, 0.5, 0.3}, []float64{1.2, 0.7, 0.4}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Error("expected a non-empty png")
	}
}

func TestSaveForecastPlot(t *testing.T) {
	ref := dataset.NewTrajectories(1, 10, 1)
	fc := dataset.NewTrajectories(1, 4, 1)
	for i := 0; i < 10; i++ {
		ref.Set(0, i, 0, float64(i))
	}
	path := filepath.Join(t.TempDir(), "forecast.png")
	if err := SaveForecastPlot(path, "sine", ref, fc, 0); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := SaveForecastPlot(path, "sine", ref, fc, 5); err == nil {
		t.Error("out-of-range trajectory should error")
	}
}
