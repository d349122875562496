package oski

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/jbowman-labs/oski-go/blas"
)

// TunableMatrix is the tunable matrix handle of spec.md §3: a CSR input, an
// optional tuned representation installed by Tune, a fixed partition plan,
// and the executor that dispatches SpMV across it. It deliberately stops at
// the handle lifecycle spec.md §4.7 and §4.9 describe (create, Tune, SpMV,
// Destroy) rather than growing the rest of the original pOSKI handle's
// surface (a public work-hints API, named kernel trace recording, HB file
// loading): spec.md §1 names those explicit non-goals.
//
// A TunableMatrix is not safe for concurrent SpMV/Tune calls against the
// same handle; callers needing that must synchronize externally, the same
// contract the teacher's CSR documents for concurrent mutation.
type TunableMatrix struct {
	ID uuid.UUID

	cfg   *Config
	mu    sync.Mutex
	input *CSR
	owns  bool

	partitions    []*Partition
	partitionReps []mat.Matrix // CSR until Tune installs a BCSR/MBCSR per partition

	tuner    *Tuner
	recipe   *Recipe // nil until Tune installs one
	disabled disabledKernels

	executor Executor

	streamingTime      time.Duration
	workHints          Workload
	observedKernelTime time.Duration
}

// NewTunableMatrix wraps (ptr, ind, val) as a CSR and builds the partition
// plan and executor cfg selects, per spec.md §4.6 and §4.10. shared has the
// same meaning as NewCSR's: true borrows the caller's slices, false deep
// copies them. The returned handle starts untuned (AsIs); call Tune to run
// the heuristic pipeline of spec.md §4.7.
func NewTunableMatrix(m, n int, ptr, ind []int, val []float64, props Properties, shared bool, cfg *Config) (*TunableMatrix, error) {
	const op = "oski.NewTunableMatrix"
	if cfg == nil {
		cfg = DefaultConfig
	}

	input, err := NewCSR(m, n, ptr, ind, val, props, shared, cfg)
	if err != nil {
		return nil, err
	}

	t := &TunableMatrix{
		ID:       uuid.New(),
		cfg:      cfg,
		input:    input,
		owns:     !shared,
		disabled: disabledKernels{},
		executor: NewExecutor(cfg),
		tuner: NewTuner(&BlockSizeHeuristic{
			MaxR: 4, MaxC: 4, SampleProb: 1.0,
			MatrixType: "CSR", ValueType: "double",
		}),
		workHints:     Workload{},
		streamingTime: measureStreamingTime(input),
	}

	nthreads := AdjustThreadCount(cfg.PartitionType, cfg.NumThreads, m, input.NNZ())
	npart := AdjustPartitionCount(cfg.NumPartitions, nthreads)

	var parts []*Partition
	switch cfg.PartitionType {
	case SemiOneD:
		parts, err = PartitionSemiOneD(input, npart)
	default:
		parts, err = PartitionOneD(input, npart)
	}
	if err != nil {
		return nil, newError(op, BadArg, "%v", err)
	}

	t.partitions = parts
	t.partitionReps = make([]mat.Matrix, len(parts))
	for i, p := range parts {
		t.partitionReps[i] = p.Sub
	}
	return t, nil
}

// measureStreamingTime times a single minimal streaming pass over a (one
// read of every stored value), the unit cost spec.md §4.7's trace-time
// estimate scales workHints by.
func measureStreamingTime(a *CSR) time.Duration {
	val := a.RawVal()
	start := time.Now()
	var sum float64
	for _, v := range val {
		sum += v
	}
	elapsed := time.Since(start)
	_ = sum // only the timing, not the value, matters
	if elapsed <= 0 {
		return time.Nanosecond
	}
	return elapsed
}

// Properties returns the handle's asserted input properties.
func (t *TunableMatrix) Properties() Properties { return t.input.Properties() }

// Dims returns the logical matrix dimensions.
func (t *TunableMatrix) Dims() (int, int) { return t.input.Dims() }

// Tuned reports whether Tune has installed a tuned representation.
func (t *TunableMatrix) Tuned() bool { return t.recipe != nil }

// Recipe returns the transformation program Tune installed, or nil if the
// handle is still AsIs.
func (t *TunableMatrix) Recipe() *Recipe { return t.recipe }

// Tune runs the tuner's heuristic pipeline (spec.md §4.7) against the
// handle's input matrix under its accumulated workload hints and observed
// call time. If a heuristic's chosen recipe benchmarks more than 5% faster
// than the untuned representation, it is applied uniformly to every
// partition's sub-matrix and installed; otherwise the handle is left AsIs.
// Tune is idempotent: calling it again after a successful tune is a no-op
// that returns AsIs.
func (t *TunableMatrix) Tune() (TuneOutcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recipe != nil {
		return AsIs, nil
	}

	result, err := t.tuner.Tune(t.input, t.workHints, t.streamingTime, t.observedKernelTime, t.cfg, t.benchmark)
	if err != nil {
		return AsIs, err
	}
	if result.Outcome != New {
		return AsIs, nil
	}

	reps := make([]mat.Matrix, len(t.partitions))
	for i, p := range t.partitions {
		rep, err := result.Recipe.Apply(p.Sub)
		if err != nil {
			// A partition's sub-matrix refused the same recipe its parent
			// accepted (e.g. a shape ConvertToMBCSR rejects); fall back to
			// leaving the whole handle AsIs rather than half-tuning it.
			return AsIs, nil
		}
		reps[i] = rep
	}

	t.partitionReps = reps
	t.recipe = result.Recipe
	if result.DisableNormal {
		t.disabled.disable(Normal, result.Recipe.Args[0], result.Recipe.Args[1])
	}
	if result.DisableTrans {
		t.disabled.disable(Trans, result.Recipe.Args[0], result.Recipe.Args[1])
	}
	return New, nil
}

// benchmark times one reference SpMV call (Normal, zero-filled vectors)
// against the whole, unpartitioned representation m, matching spec.md
// §4.7's "same zero-filled vectors" benchmarking rule.
func (t *TunableMatrix) benchmark(m mat.Matrix) time.Duration {
	rows, cols := m.Dims()
	x := make([]float64, cols)
	y := make([]float64, rows)
	start := time.Now()
	_ = dispatchSpMV(m, Normal, 1, x, 1, y, 1, nil)
	return time.Since(start)
}

// SpMV computes y = beta*y + alpha*op(A)*x, dispatching across the handle's
// partition plan and executor (spec.md §4.9). x and y must be plain,
// unit-stride vectors sized for op: for Normal, len(x) == n and len(y) ==
// m; for Trans, len(x) == m and len(y) == n.
func (t *TunableMatrix) SpMV(op Op, alpha float64, x []float64, beta float64, y []float64) error {
	const errOp = "oski.TunableMatrix.SpMV"
	t.mu.Lock()
	defer t.mu.Unlock()

	m, n := t.input.Dims()
	outRows, inRows := m, n
	if op == Trans {
		outRows, inRows = n, m
	}
	if len(x) != inRows {
		return newError(errOp, BadArg, "len(x) = %d, want %d", len(x), inRows)
	}
	if len(y) != outRows {
		return newError(errOp, BadArg, "len(y) = %d, want %d", len(y), outRows)
	}

	start := time.Now()
	defer func() {
		t.observedKernelTime += time.Since(start)
		if op == Trans {
			t.workHints[KernelSpMVTrans]++
		} else {
			t.workHints[KernelSpMV]++
		}
	}()

	yview := NewVectorView(y, outRows, 1, RowMajor)
	pv := BuildOutputPartition(yview, t.partitions, t.cfg.PartitionType, op)
	if !pv.Private {
		blas.ScaleY(y, 1, outRows, beta)
	}

	tasks := make([]Task, len(t.partitions))
	for i, p := range t.partitions {
		i, p := i, p
		rep := t.partitionReps[i]
		outView := pv.Views[i]
		tasks[i] = func() error {
			var xData []float64
			var xStride int
			var yData []float64
			var yStride int

			if op == Normal {
				xData, xStride = x, 1
				yData, yStride = outView.Column(0)
			} else {
				xData, xStride = x[p.RowStart:p.RowEnd], 1
				yData, yStride = outView.Column(0)
			}
			return dispatchSpMV(rep, op, alpha, xData, xStride, yData, yStride, t.disabled)
		}
	}

	if err := t.executor.Run(tasks); err != nil {
		return newError(errOp, Runtime, "%v", err)
	}

	if pv.Private {
		return Reduce(yview, pv, beta, t.executor)
	}
	return nil
}

// Destroy releases the input CSR's owned storage (a no-op if the handle was
// created in shared mode) and shuts down a ThreadPoolExecutor, if any.
// Destroy is not safe to call concurrently with SpMV or Tune.
func (t *TunableMatrix) Destroy() {
	if t.owns {
		t.input.Destroy()
	}
	if tp, ok := t.executor.(*ThreadPoolExecutor); ok {
		tp.Shutdown()
	}
}

// dispatchSpMV runs a single-threaded SpMV-equivalent call against one
// representation (a partition's CSR, or its tuned BCSR/MBCSR). A block
// store runs through dispatchBlock, which honors disabled kernel keys by
// calling blas.BlockMV directly; a CSR always goes to blas.Dusmv (CSR has
// no (r, c) to disable).
func dispatchSpMV(rep mat.Matrix, op Op, alpha float64, x []float64, incx int, y []float64, incy int, disabled disabledKernels) error {
	const errOp = "oski.dispatchSpMV"
	switch m := rep.(type) {
	case *CSR:
		blas.Dusmv(op == Trans, alpha, m.toSparseMatrix(), x, incx, y, incy)
		return nil
	case *MBCSR:
		dispatchBlock(&m.BCSR, op, alpha, x, incx, y, incy, disabled, m.blockMatrix())
		return nil
	case *BCSR:
		dispatchBlock(m, op, alpha, x, incx, y, incy, disabled, m.blockMatrix())
		return nil
	default:
		return newError(errOp, NotImplemented, "unsupported representation %T", rep)
	}
}

// dispatchBlock runs bm's blocked kernel (via the kernel registry, falling
// back to blas.BlockMV directly when the (op, r, c) key is unregistered or
// disabled) and then its tail, if any.
func dispatchBlock(b *BCSR, op Op, alpha float64, x []float64, incx int, y []float64, incy int, disabled disabledKernels, bm *blas.BlockMatrix) {
	r, c := b.BlockSize()
	if fn, ok := lookupKernel(op, r, c, incx, incy, disabled); ok {
		fn(alpha, bm, x, incx, y, incy)
	} else {
		blas.BlockMV(op == Trans, alpha, bm, x, incx, y, incy)
	}
	dispatchTail(b, op == Trans, alpha, x, incx, y, incy)
}

// dispatchTail runs the leftover unblocked rows' plain CSR kernel, if any,
// translating between the tail's locally-0-based row numbering and its
// absolute row offset in the full matrix. For Normal, the tail's rows are
// the output (y is offset, x is not); for Trans, they are the contraction
// dimension (x is offset, y is not, since transposed output indices are
// absolute columns regardless of which rows contributed to them).
func dispatchTail(b *BCSR, transA bool, alpha float64, x []float64, incx int, y []float64, incy int) {
	tail := b.tailMatrix()
	if tail == nil {
		return
	}
	offset := b.tailRowOffset()
	if !transA {
		blas.Dusmv(false, alpha, tail, x, incx, y[offset*incy:], incy)
	} else {
		blas.Dusmv(true, alpha, tail, x[offset*incx:], incx, y, incy)
	}
}
