package oski

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jbowman-labs/oski-go/blas"
)

var (
	_ mat.Matrix = (*BCSR)(nil)
	_ mat.Matrix = (*MBCSR)(nil)
)

// BCSR is a block-CSR store (spec.md §3, §4.2): CSR re-blocked into dense
// r*c tiles. M = floor(m/r) full block-rows are stored densely; any
// leftover m mod r rows are kept as a plain CSR tail (spec.md §4.2: "Leftover
// rows are recursively converted at a smaller row block size" - here that
// recursion bottoms out at r=1,c=1, i.e. the tail is left as CSR, which is
// exactly the r=1 c=1 block store).
type BCSR struct {
	m, n     int
	r, c     int
	bm       int // M, number of full block-rows
	bptr     []int
	bind     []int
	bval     []float64
	tail     *CSR // rows [bm*r, m), nil if none
	origNNZ  int  // nnz of the CSR this was converted from, for FillRatio
}

// Dims returns the logical matrix dimensions (not the block-row/col counts).
func (b *BCSR) Dims() (int, int) { return b.m, b.n }

// BlockSize returns the (r, c) register block size.
func (b *BCSR) BlockSize() (int, int) { return b.r, b.c }

// NumBlockRows returns M, the number of full r-row block-rows.
func (b *BCSR) NumBlockRows() int { return b.bm }

// NumBlocks returns the total count of stored r*c blocks (excluding the tail).
func (b *BCSR) NumBlocks() int {
	if b.bm == 0 {
		return 0
	}
	return b.bptr[b.bm]
}

// FillRatio returns |block entries| / |original nnz|, per spec.md §3.
func (b *BCSR) FillRatio() float64 {
	if b.origNNZ == 0 {
		if b.NumBlocks() == 0 {
			return 1
		}
		return 1e308 // +inf stand-in to keep float comparisons total
	}
	entries := b.NumBlocks() * b.r * b.c
	if b.tail != nil {
		entries += b.tail.NNZ()
	}
	return float64(entries) / float64(b.origNNZ)
}

// At returns the element at (i, j). It is implemented by scanning the block
// row, not intended for hot-path use (kernels in package blas operate on the
// raw arrays directly).
func (b *BCSR) At(i, j int) float64 {
	if i < 0 || i >= b.m {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= b.n {
		panic(mat.ErrColAccess)
	}
	if i >= b.bm*b.r {
		return b.tail.At(i-b.bm*b.r, j)
	}
	I := i / b.r
	di := i % b.r
	for k := b.bptr[I]; k < b.bptr[I+1]; k++ {
		j0 := b.bind[k]
		if j >= j0 && j < j0+b.c {
			return b.bval[k*b.r*b.c+di*b.c+(j-j0)]
		}
	}
	return 0
}

// T returns the transpose as a mat.Transpose view whose At reads through
// BCSR.At with the indices swapped; no transposed block store is built,
// because rows and columns are blocked asymmetrically ((r, c) vs (c, r)).
func (b *BCSR) T() mat.Matrix { return mat.Transpose{Matrix: b} }

// blockMatrix returns the raw view BlockMV operates on.
func (b *BCSR) blockMatrix() *blas.BlockMatrix {
	return &blas.BlockMatrix{
		M: b.m, N: b.n, R: b.r, C: b.c, Bm: b.bm,
		Bptr: b.bptr, Bind: b.bind, Bval: b.bval,
	}
}

// tailMatrix returns the leftover unblocked rows as a blas.SparseMatrix, or
// nil if there is none.
func (b *BCSR) tailMatrix() *blas.SparseMatrix {
	if b.tail == nil {
		return nil
	}
	return b.tail.toSparseMatrix()
}

// tailRowOffset returns the absolute row index the tail's row 0 corresponds to.
func (b *BCSR) tailRowOffset() int { return b.bm * b.r }

// MBCSR is a BCSR with the diagonal blocks additionally extracted into a
// separate dense array (spec.md §3, §4.2), letting the SpMV kernel skip a
// range check for the diagonal and specialize its inner loop.
type MBCSR struct {
	BCSR
	bdiag   []float64 // bm * r*r
	diagRow int       // d0: first row covered by the diagonal-block range
}

// Diagonal block range, per spec.md §3: [d0, d0+M*r).
func (b *MBCSR) DiagonalRange() (d0, d1 int) {
	return b.diagRow, b.diagRow + b.bm*b.r
}

// blockMatrix overrides BCSR.blockMatrix to include the separately stored
// diagonal blocks, so BlockMV's diagonal pass runs against them.
func (b *MBCSR) blockMatrix() *blas.BlockMatrix {
	bm := b.BCSR.blockMatrix()
	bm.Diag = b.bdiag
	bm.DiagRow = b.diagRow
	return bm
}

// FillRatio overrides BCSR.FillRatio to add back the diagonal tiles'
// entries, which blockMatrix excludes from the inherited Bptr/Bind/Bval (see
// ConvertToMBCSR) and stores separately in bdiag.
func (b *MBCSR) FillRatio() float64 {
	if b.origNNZ == 0 {
		if b.NumBlocks() == 0 && len(b.bdiag) == 0 {
			return 1
		}
		return 1e308
	}
	entries := b.NumBlocks()*b.r*b.c + len(b.bdiag)
	if b.tail != nil {
		entries += b.tail.NNZ()
	}
	return float64(entries) / float64(b.origNNZ)
}

// T overrides BCSR.T so the transpose view reads through MBCSR.At and
// therefore sees the separately stored diagonal tiles.
func (b *MBCSR) T() mat.Matrix { return mat.Transpose{Matrix: b} }

func (b *MBCSR) At(i, j int) float64 {
	d0, d1 := b.DiagonalRange()
	if i >= d0 && i < d1 && j >= d0 && j < d1 {
		I := (i - d0) / b.r
		di := (i - d0) % b.r
		dj := j - d0 - I*b.r
		if dj >= 0 && dj < b.r {
			return b.bdiag[I*b.r*b.r+di*b.r+dj]
		}
	}
	return b.BCSR.At(i, j)
}
