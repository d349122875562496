package oski

import "time"

// KernelID names a kernel the heuristic's workload (C6) can weight.
type KernelID string

const (
	KernelSpMV      KernelID = "spmv"
	KernelSpMVTrans KernelID = "spmv_trans"
)

// Workload maps a kernel to its observed or hinted call count, per
// spec.md §4.5 ("a mapping from kernel-id to observed or hinted call count").
type Workload map[KernelID]float64

// HeuristicResult is what a heuristic's Evaluate returns: the chosen block
// size and the set of kernels to disable on the resulting tuned matrix
// (spec.md §4.5: "the configuration also records which kernels to disable").
type HeuristicResult struct {
	Type          string // "BCSR" or "MBCSR"
	R, C          int
	DisableNormal bool
	DisableTrans  bool
	EstimatedTime float64
}

// Heuristic is the interface the tuner (C7) drives. BlockSizeHeuristic is
// the only implementation this engine ships (BCSR/MBCSR register blocking);
// the interface exists, per DESIGN NOTES §9, so additional heuristics can be
// registered without changing the tuner.
type Heuristic interface {
	Name() string
	Applicable(a *CSR) bool
	EstimatedCost(a *CSR) time.Duration
	Evaluate(a *CSR, w Workload, cfg *Config) (*HeuristicResult, error)
}

// BlockSizeHeuristic implements spec.md §4.5: it estimates fill for
// candidate (r, c) in [1,MaxR] x [1,MaxC], loads a register profile, and
// picks argmin fill[r,c] * sum_k weight_k/perf[r,c]. A single profile is
// loaded and its perf[r,c] is used for every kernel k in the workload; no
// per-kernel profile is read.
type BlockSizeHeuristic struct {
	MaxR, MaxC  int
	SampleProb  float64
	Profile     *RegisterProfile
	MatrixType  string
	ValueType   string
}

func (h *BlockSizeHeuristic) Name() string { return "register-block-size" }

// Applicable refuses symmetric half-stored matrices, since this engine has
// no fused symmetric BCSR/MBCSR kernel (spec.md §4.5: "refuses ... if
// symmetric half-storage is present but the matching fused kernels aren't
// implemented"). A caller wanting to tune a symmetric matrix must first
// expand it (CSR.ExpandSymmetric) and tune the result.
func (h *BlockSizeHeuristic) Applicable(a *CSR) bool {
	if a.Properties().Shape.halfSymmetric() {
		return false
	}
	m, n := a.Dims()
	return m > 0 && n > 0 && a.NNZ() > 0
}

// EstimatedCost approximates the heuristic's own runtime as proportional to
// nnz * MaxR * MaxC * SampleProb, the dominant cost of EstimateFill.
func (h *BlockSizeHeuristic) EstimatedCost(a *CSR) time.Duration {
	cost := float64(a.NNZ()) * float64(h.MaxR*h.MaxC) * h.SampleProb
	return time.Duration(cost) * time.Nanosecond
}

func (h *BlockSizeHeuristic) Evaluate(a *CSR, w Workload, cfg *Config) (*HeuristicResult, error) {
	const op = "oski.BlockSizeHeuristic.Evaluate"
	if !h.Applicable(a) {
		return nil, newError(op, TuneNotApplicable, "")
	}

	profile := h.Profile
	if profile == nil {
		var err error
		profile, err = LoadProfile(cfg.ProfileDir, h.MatrixType, "int", h.ValueType, h.MaxR, h.MaxC)
		if err != nil {
			return nil, err
		}
	}

	fill, err := EstimateFill(a, h.MaxR, h.MaxC, h.SampleProb, nil)
	if err != nil {
		return nil, err
	}

	bestR, bestC := 1, 1
	bestTime := estimatedTime(fill, profile, w, 1, 1)
	for r := 1; r <= h.MaxR; r++ {
		for c := 1; c <= h.MaxC; c++ {
			t := estimatedTime(fill, profile, w, r, c)
			if t < bestTime {
				bestTime, bestR, bestC = t, r, c
			}
		}
	}

	if bestR == 1 && bestC == 1 {
		// No re-blocking would help; nothing to tune.
		return nil, nil
	}

	repType := "BCSR"
	if m, n := a.Dims(); m == n && bestR == bestC {
		repType = "MBCSR"
	}
	return &HeuristicResult{Type: repType, R: bestR, C: bestC, EstimatedTime: bestTime}, nil
}

func estimatedTime(fill *FillTable, profile *RegisterProfile, w Workload, r, c int) float64 {
	var sum float64
	if len(w) == 0 {
		w = Workload{KernelSpMV: 1}
	}
	for _, weight := range w {
		perf := profile.At(r, c)
		if perf <= 0 {
			perf = 1
		}
		sum += weight / perf
	}
	return fill.At(r, c) * sum
}
