package dynamo

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCounterReadAndReset(t *testing.T) {
	c := &Counter{}
	if c.Value() != 0 {
		t.Fatalf("fresh counter should read zero, got %d", c.Value())
	}

	for i := 0; i < 17; i++ {
		c.Inc()
	}
	if c.Value() != 17 {
		t.Errorf("expected 17 evaluations, got %d", c.Value())
	}

	got := c.ReadAndReset()
	if got != 17 {
		t.Errorf("ReadAndReset returned %d, expected 17", got)
	}
	if c.Value() != 0 {
		t.Errorf("counter should be zero after ReadAndReset, got %d", c.Value())
	}
}

func TestCounterMonotone(t *testing.T) {
	c := &Counter{}
	prev := 0
	for i := 0; i < 10; i++ {
		c.Inc()
		if v := c.Value(); v <= prev {
			t.Fatalf("counter not monotone: %d after %d", v, prev)
		} else {
			prev = v
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
	}{
		{"euler", Euler},
		{"rk4", RK4},
		{"dopri5", Dopri5},
		{"rk45", Dopri5},
		{"Euler", Euler},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if err != nil {
			t.Errorf("ParseMethod(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseMethod("leapfrog"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestIsFinite(t *testing.T) {
	z := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if !IsFinite(z) {
		t.Error("finite matrix reported as non-finite")
	}
	z.Set(1, 1, math.NaN())
	if IsFinite(z) {
		t.Error("NaN matrix reported as finite")
	}
}
