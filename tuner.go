package oski

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// TuneOutcome is the tuner's verdict, per spec.md §4.7: AS_IS means the
// input representation was kept; New means a tuned representation replaced
// it.
type TuneOutcome int

const (
	AsIs TuneOutcome = iota
	New
)

// TuneResult carries what the tuner decided and, if it installed a tuned
// representation, the recipe and representation that produced it.
type TuneResult struct {
	Outcome       TuneOutcome
	Recipe        *Recipe
	Tuned         mat.Matrix
	DisableNormal bool
	DisableTrans  bool
}

// Tuner orchestrates a registered list of heuristics under a time budget,
// per spec.md §4.7's algorithm. The list order is the priority order:
// heuristics earlier in the slice are tried first.
type Tuner struct {
	Heuristics []Heuristic
}

// NewTuner builds a Tuner from an ordered heuristic list.
func NewTuner(heuristics ...Heuristic) *Tuner {
	return &Tuner{Heuristics: heuristics}
}

// Budget computes the tuning time budget, per spec.md §4.7:
// max(estimated_trace_time(workHints), observedKernelTime) * fraction.
// estimated_trace_time approximates each workload call as costing one unit
// of streamingTime, the minimal-pass measurement taken once at matrix
// creation that "sets the unit cost".
func Budget(streamingTime time.Duration, workHints Workload, observedKernelTime time.Duration, fraction float64) time.Duration {
	var totalCalls float64
	for _, w := range workHints {
		totalCalls += w
	}
	estimatedTrace := time.Duration(float64(streamingTime) * totalCalls)

	budget := observedKernelTime
	if estimatedTrace > budget {
		budget = estimatedTrace
	}
	return time.Duration(float64(budget) * fraction)
}

// Benchmark times one warm SpMV-equivalent pass over m, for comparing a
// tuned representation against the reference. Callers typically pass a
// closure that runs BlockMV/Dusmv once with zero-filled vectors, matching
// spec.md §4.7's "same zero-filled vectors" benchmarking rule.
type Benchmark func(m mat.Matrix) time.Duration

// keepMargin is the minimum improvement a tuned representation must show
// over the reference to be kept, per spec.md §4.7 ("> 5%").
const keepMargin = 0.05

// Tune runs the algorithm of spec.md §4.7 against a single CSR matrix. It
// does not mutate a; installing the tuned representation is the caller's
// (TunableMatrix's) job. Neither Tune nor TunableMatrix.Tune frees the input
// CSR after a tuned representation is kept, whether or not it was shared.
func (t *Tuner) Tune(a *CSR, workHints Workload, streamingTime, observedKernelTime time.Duration, cfg *Config, bench Benchmark) (*TuneResult, error) {
	timeLeft := Budget(streamingTime, workHints, observedKernelTime, cfg.TuningFraction)

	for _, h := range t.Heuristics {
		if timeLeft <= 0 {
			break
		}
		if !h.Applicable(a) {
			continue
		}
		cost := h.EstimatedCost(a)
		if cost > timeLeft {
			continue
		}

		start := time.Now()
		result, err := h.Evaluate(a, workHints, cfg)
		elapsed := time.Since(start)
		timeLeft -= elapsed
		if err != nil {
			// A heuristic that errors declined to contribute; §4.7 only
			// distinguishes "returned a result" from "returned None", so an
			// error is treated the same as None rather than aborting the
			// whole tune.
			continue
		}
		if result == nil {
			continue
		}

		recipe, err := NewRecipe(result.Type, result.R, result.C)
		if err != nil {
			continue
		}
		tuned, err := recipe.Apply(a)
		if err != nil {
			continue
		}

		if bench != nil {
			tunedTime := bench(tuned)
			refTime := bench(a)
			if float64(refTime)*(1-keepMargin) > float64(tunedTime) {
				return &TuneResult{Outcome: New, Recipe: recipe, Tuned: tuned, DisableNormal: result.DisableNormal, DisableTrans: result.DisableTrans}, nil
			}
			continue
		}
		return &TuneResult{Outcome: New, Recipe: recipe, Tuned: tuned, DisableNormal: result.DisableNormal, DisableTrans: result.DisableTrans}, nil
	}

	return &TuneResult{Outcome: AsIs}, nil
}
