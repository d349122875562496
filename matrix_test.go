package oski

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

// fourByFourCSR is the dense matrix
//
//	[1 2 0 0]
//	[0 3 4 0]
//	[0 0 5 6]
//	[7 0 0 8]
func fourByFourCSR(t *testing.T) *CSR {
	t.Helper()
	c, err := NewCSR(4, 4,
		[]int{0, 2, 4, 6, 8},
		[]int{0, 1, 1, 2, 2, 3, 0, 3},
		[]float64{1, 2, 3, 4, 5, 6, 7, 8},
		Properties{Sorted: true, Unique: true, Shape: General}, true, nil)
	if err != nil {
		t.Fatalf("NewCSR: %v", err)
	}
	return c
}

func assertVec(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func newFourByFourHandle(t *testing.T, opts ...Option) *TunableMatrix {
	t.Helper()
	m := fourByFourCSR(t)
	cfg := NewConfig(opts...)
	tm, err := NewTunableMatrix(4, 4, m.RawPtr(), m.RawInd(), m.RawVal(), m.Properties(), true, cfg)
	if err != nil {
		t.Fatalf("NewTunableMatrix: %v", err)
	}
	return tm
}

func TestNewTunableMatrixDimsAndID(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(1))
	m, n := tm.Dims()
	if m != 4 || n != 4 {
		t.Fatalf("Dims = (%d, %d), want (4, 4)", m, n)
	}
	if tm.ID == uuid.Nil {
		t.Fatalf("ID was not assigned")
	}
	if tm.Tuned() {
		t.Fatal("a fresh handle must not report Tuned")
	}
}

func TestSpMVNormalOneD(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(2), WithPartitions(2), WithPartitionType(OneD))
	x := []float64{1, 1, 1, 1}
	y := make([]float64, 4)
	if err := tm.SpMV(Normal, 1, x, 0, y); err != nil {
		t.Fatalf("SpMV: %v", err)
	}
	assertVec(t, y, []float64{3, 7, 11, 15})
}

func TestSpMVTransposeOneD(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(2), WithPartitions(2), WithPartitionType(OneD))
	x := []float64{1, 1, 1, 1}
	y := make([]float64, 4)
	if err := tm.SpMV(Trans, 1, x, 0, y); err != nil {
		t.Fatalf("SpMV: %v", err)
	}
	assertVec(t, y, []float64{8, 5, 9, 14})
}

// TestSpMVSemiOneDReduces exercises the straddled-row-boundary case of
// spec.md §4.9: with 3 SemiOneD partitions over this 4x4 matrix's 8 nonzero
// entries, row 1's two entries land in different partitions, forcing a
// reduction fold over private buffers.
func TestSpMVSemiOneDReduces(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(3), WithPartitionType(SemiOneD))
	if len(tm.partitions) != 3 {
		t.Fatalf("got %d partitions, want 3 (fixture assumes the exact split)", len(tm.partitions))
	}
	x := []float64{1, 1, 1, 1}
	y := make([]float64, 4)
	if err := tm.SpMV(Normal, 1, x, 0, y); err != nil {
		t.Fatalf("SpMV: %v", err)
	}
	assertVec(t, y, []float64{3, 7, 11, 15})
}

func TestSpMVAppliesAlphaAndBeta(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(1))
	x := []float64{1, 1, 1, 1}
	y := []float64{100, 100, 100, 100}
	if err := tm.SpMV(Normal, 2, x, 0.5, y); err != nil {
		t.Fatalf("SpMV: %v", err)
	}
	// y = 0.5*100 + 2*(Ax) = 50 + 2*[3,7,11,15]
	assertVec(t, y, []float64{56, 64, 72, 80})
}

// TestSpMVBetaAppliedOnceUnderReduction guards against the classic
// private-buffer-reduction bug: beta must scale the caller's y exactly
// once, not once per contributing partition.
func TestSpMVBetaAppliedOnceUnderReduction(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(3), WithPartitionType(SemiOneD))
	x := []float64{1, 1, 1, 1}
	y := []float64{10, 10, 10, 10}
	if err := tm.SpMV(Normal, 1, x, 1, y); err != nil {
		t.Fatalf("SpMV: %v", err)
	}
	// y = 1*y_old + Ax = [10,10,10,10] + [3,7,11,15]
	assertVec(t, y, []float64{13, 17, 21, 25})
}

func TestSpMVRejectsWrongLength(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(1))
	err := tm.SpMV(Normal, 1, []float64{1, 2, 3}, 0, make([]float64, 4))
	if err == nil {
		t.Fatal("expected an error for a mis-sized x")
	}
	if oerr, ok := err.(*Error); !ok || oerr.Code != BadArg {
		t.Fatalf("err = %v, want BadArg", err)
	}
}

func TestTunableMatrixDestroyFreesOwnedInput(t *testing.T) {
	m := fourByFourCSR(t)
	cfg := NewConfig(WithThreads(1), WithPartitions(1))
	tm, err := NewTunableMatrix(4, 4, append([]int(nil), m.RawPtr()...), append([]int(nil), m.RawInd()...),
		append([]float64(nil), m.RawVal()...), m.Properties(), false, cfg)
	if err != nil {
		t.Fatalf("NewTunableMatrix: %v", err)
	}
	tm.Destroy()
	if tm.input.RawPtr() != nil {
		t.Fatal("Destroy on an owned handle should release the input's storage")
	}
}

func TestTunableMatrixDestroySharedLeavesCallerSliceIntact(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(1))
	tm.Destroy()
	if tm.input.RawPtr() == nil {
		t.Fatal("Destroy on a shared handle must not nil out borrowed storage")
	}
}

// fiveByFourWithTail has 5 rows so a 2x2 BCSR conversion leaves row 4 as an
// unblocked tail, exercising dispatchTail's offset translation for both ops.
//
//	[1 2 0 0]
//	[3 4 0 0]
//	[0 0 5 6]
//	[0 0 7 8]
//	[9 0 0 0]
func fiveByFourWithTail(t *testing.T) *CSR {
	t.Helper()
	c, err := NewCSR(5, 4,
		[]int{0, 2, 4, 6, 8, 9},
		[]int{0, 1, 0, 1, 2, 3, 2, 3, 0},
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		Properties{Sorted: true, Unique: true, Shape: General}, true, nil)
	if err != nil {
		t.Fatalf("NewCSR: %v", err)
	}
	return c
}

func TestDispatchSpMVBCSRWithTailMatchesDenseNormal(t *testing.T) {
	a := fiveByFourWithTail(t)
	bc, err := ConvertToBCSR(a, 2, 2)
	if err != nil {
		t.Fatalf("ConvertToBCSR: %v", err)
	}
	x := []float64{1, 1, 1, 1}
	y := make([]float64, 5)
	if err := dispatchSpMV(bc, Normal, 1, x, 1, y, 1, nil); err != nil {
		t.Fatalf("dispatchSpMV: %v", err)
	}
	assertVec(t, y, []float64{3, 7, 11, 15, 9})
}

func TestDispatchSpMVBCSRWithTailMatchesDenseTrans(t *testing.T) {
	a := fiveByFourWithTail(t)
	bc, err := ConvertToBCSR(a, 2, 2)
	if err != nil {
		t.Fatalf("ConvertToBCSR: %v", err)
	}
	x := []float64{1, 1, 1, 1, 1}
	y := make([]float64, 4)
	if err := dispatchSpMV(bc, Trans, 1, x, 1, y, 1, nil); err != nil {
		t.Fatalf("dispatchSpMV: %v", err)
	}
	assertVec(t, y, []float64{13, 6, 12, 14})
}

// TestSpMVUsesInstalledTunedRepresentation simulates what Tune installs
// (uniform per-partition BCSR conversion) without depending on its
// timing-based keep/discard decision, then checks SpMV still matches the
// untuned reference.
func TestSpMVUsesInstalledTunedRepresentation(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(1))
	recipe, err := NewRecipe("BCSR", 2, 2)
	if err != nil {
		t.Fatalf("NewRecipe: %v", err)
	}
	for i, p := range tm.partitions {
		rep, err := recipe.Apply(p.Sub)
		if err != nil {
			t.Fatalf("recipe.Apply: %v", err)
		}
		tm.partitionReps[i] = rep
	}
	tm.recipe = recipe

	x := []float64{1, 1, 1, 1}
	y := make([]float64, 4)
	if err := tm.SpMV(Normal, 1, x, 0, y); err != nil {
		t.Fatalf("SpMV: %v", err)
	}
	assertVec(t, y, []float64{3, 7, 11, 15})
	if !tm.Tuned() {
		t.Fatal("Tuned() should report true once a recipe is installed")
	}
}

func TestTuneIsIdempotentOnceInstalled(t *testing.T) {
	tm := newFourByFourHandle(t, WithThreads(1), WithPartitions(1))
	recipe, err := NewRecipe("BCSR", 2, 2)
	if err != nil {
		t.Fatalf("NewRecipe: %v", err)
	}
	tm.recipe = recipe
	outcome, err := tm.Tune()
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if outcome != AsIs {
		t.Fatalf("Tune on an already-tuned handle = %v, want AsIs", outcome)
	}
}
