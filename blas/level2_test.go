package blas

import "testing"

func TestDusmvIdentity(t *testing.T) {
	a := &SparseMatrix{
		I: 3, J: 3,
		Indptr: []int{0, 1, 2, 3},
		Ind:    []int{0, 1, 2},
		Data:   []float64{1, 1, 1},
	}
	x := []float64{7, 11, 13}
	y := make([]float64, 3)
	ScaleY(y, 1, 3, 0)
	Dusmv(false, 1, a, x, 1, y, 1)
	for i, want := range x {
		if y[i] != want {
			t.Errorf("y[%d] = %v, want %v", i, y[i], want)
		}
	}
}

func TestDusmvAlphaZero(t *testing.T) {
	a := &SparseMatrix{I: 2, J: 2, Indptr: []int{0, 1, 2}, Ind: []int{0, 1}, Data: []float64{5, 5}}
	y := []float64{3, 4}
	ScaleY(y, 1, 2, 1) // beta=1, no-op
	Dusmv(false, 0, a, []float64{1, 1}, 1, y, 1)
	if y[0] != 3 || y[1] != 4 {
		t.Errorf("alpha=0 must leave y untouched, got %v", y)
	}
}

func blockFriendly() *BlockMatrix {
	// 4x4: dense 2x2 at (0..2,0..2) = [[1,2],[3,4]], plus a lone (3,3)=5
	// handled separately as a 1x1 tail outside this block matrix in real
	// use; here we model only the 2x2-blocked portion (rows 0..2).
	return &BlockMatrix{
		M: 4, N: 4, R: 2, C: 2, Bm: 1,
		Bptr: []int{0, 1},
		Bind: []int{0},
		Bval: []float64{1, 2, 3, 4},
	}
}

func TestBlockMVNormal(t *testing.T) {
	a := blockFriendly()
	x := []float64{1, 1, 1, 1}
	y := make([]float64, 4)
	ScaleY(y, 1, 4, 0)
	BlockMV(false, 1, a, x, 1, y, 1)
	want := []float64{3, 7, 0, 0}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("y = %v, want %v", y, want)
			break
		}
	}
}

func TestBlockMVTranspose(t *testing.T) {
	a := blockFriendly()
	x := []float64{1, 1, 0, 0}
	y := make([]float64, 4)
	ScaleY(y, 1, 4, 0)
	BlockMV(true, 1, a, x, 1, y, 1)
	// A^T * [1,1,0,0]^T over the 2x2 tile [[1,2],[3,4]]: col0=1+3=4, col1=2+4=6
	want := []float64{4, 6, 0, 0}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("y = %v, want %v", y, want)
			break
		}
	}
}

func TestBlockMVWithDiag(t *testing.T) {
	a := &BlockMatrix{
		M: 2, N: 2, R: 2, C: 2, Bm: 1,
		Bptr:    []int{0, 0},
		Diag:    []float64{1, 2, 3, 4},
		DiagRow: 0,
	}
	x := []float64{1, 1}
	y := make([]float64, 2)
	ScaleY(y, 1, 2, 0)
	BlockMV(false, 1, a, x, 1, y, 1)
	want := []float64{3, 7}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("y = %v, want %v", y, want)
			break
		}
	}
}
