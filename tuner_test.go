package oski

import (
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"
)

func TestBudgetUsesLargerOfTraceAndObserved(t *testing.T) {
	streaming := 10 * time.Millisecond
	hints := Workload{KernelSpMV: 100} // trace = 1000ms
	observed := 200 * time.Millisecond
	got := Budget(streaming, hints, observed, 0.25)
	want := time.Duration(float64(1000*time.Millisecond) * 0.25)
	if got != want {
		t.Errorf("Budget = %v, want %v", got, want)
	}
}

func TestBudgetFallsBackToObserved(t *testing.T) {
	streaming := time.Millisecond
	hints := Workload{KernelSpMV: 1} // trace = 1ms
	observed := 400 * time.Millisecond
	got := Budget(streaming, hints, observed, 0.25)
	want := time.Duration(float64(400*time.Millisecond) * 0.25)
	if got != want {
		t.Errorf("Budget = %v, want %v", got, want)
	}
}

func TestTunerKeepsTunedWhenFasterByMargin(t *testing.T) {
	a := blockFriendlyCSR(t)
	h := &BlockSizeHeuristic{MaxR: 2, MaxC: 2, SampleProb: 1.0, MatrixType: "BCSR", ValueType: "float64"}
	profile := FlatProfile(2, 2)
	profile.Perf[1][1] = 100 // make 2x2 attractive so Evaluate returns non-nil
	h.Profile = profile

	tuner := NewTuner(h)
	bench := func(m mat.Matrix) time.Duration {
		if _, ok := m.(*CSR); ok {
			return 100 * time.Millisecond
		}
		return 10 * time.Millisecond // tuned representation is much faster
	}
	cfg := NewConfig(WithThreads(1))
	result, err := tuner.Tune(a, Workload{KernelSpMV: 1}, time.Millisecond, time.Second, cfg, bench)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if result.Outcome != New {
		t.Fatalf("Outcome = %v, want New", result.Outcome)
	}
	if result.Recipe == nil || result.Tuned == nil {
		t.Fatal("expected recipe and tuned representation to be set")
	}
}

func TestTunerDiscardsWhenNotFasterEnough(t *testing.T) {
	a := blockFriendlyCSR(t)
	h := &BlockSizeHeuristic{MaxR: 2, MaxC: 2, SampleProb: 1.0, MatrixType: "BCSR", ValueType: "float64"}
	profile := FlatProfile(2, 2)
	profile.Perf[1][1] = 100
	h.Profile = profile

	tuner := NewTuner(h)
	bench := func(m mat.Matrix) time.Duration {
		return 50 * time.Millisecond // identical timing: tuned doesn't clear the 5% bar
	}
	cfg := NewConfig(WithThreads(1))
	result, err := tuner.Tune(a, Workload{KernelSpMV: 1}, time.Millisecond, time.Second, cfg, bench)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if result.Outcome != AsIs {
		t.Fatalf("Outcome = %v, want AsIs", result.Outcome)
	}
}

func TestTunerReturnsAsIsWhenNoHeuristicApplies(t *testing.T) {
	m := 4
	ptr := []int{0, 1, 2, 3, 4}
	ind := []int{0, 1, 2, 3}
	val := []float64{1, 2, 3, 4}
	a, err := NewCSR(m, m, ptr, ind, val, Properties{Shape: SymmetricLower, Sorted: true, Unique: true}, true, DefaultConfig)
	if err != nil {
		t.Fatalf("NewCSR: %v", err)
	}
	h := &BlockSizeHeuristic{MaxR: 2, MaxC: 2, SampleProb: 1.0, MatrixType: "BCSR", ValueType: "float64"}
	tuner := NewTuner(h)
	cfg := NewConfig(WithThreads(1))
	result, err := tuner.Tune(a, nil, time.Millisecond, time.Millisecond, cfg, nil)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if result.Outcome != AsIs {
		t.Fatalf("Outcome = %v, want AsIs", result.Outcome)
	}
}

func TestTunerZeroBudgetStopsImmediately(t *testing.T) {
	a := blockFriendlyCSR(t)
	h := &BlockSizeHeuristic{MaxR: 2, MaxC: 2, SampleProb: 1.0, MatrixType: "BCSR", ValueType: "float64"}
	tuner := NewTuner(h)
	cfg := NewConfig(WithThreads(1), WithTuningFraction(0))
	result, err := tuner.Tune(a, Workload{KernelSpMV: 1}, time.Millisecond, time.Millisecond, cfg, nil)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if result.Outcome != AsIs {
		t.Fatalf("Outcome = %v, want AsIs", result.Outcome)
	}
}
