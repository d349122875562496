package blas

// SparseMatrix is a minimal CSR view used by Dusmv as the unblocked
// reference kernel (the r=1, c=1 degenerate case) and for BCSR's unblocked
// tail rows.
type SparseMatrix struct {
	I, J   int
	Indptr []int
	Ind    []int
	Data   []float64
}

// BlockMatrix is the raw block-CSR array view BlockMV operates on: Bm
// block-rows of block size R x C, stored row-major per block. Diag and
// DiagRow are optional (MBCSR); Diag == nil means a plain BCSR.
type BlockMatrix struct {
	M, N   int // logical dimensions
	R, C   int // register block size
	Bm     int // number of full block-rows
	Bptr   []int
	Bind   []int
	Bval   []float64

	Diag    []float64 // Bm * R*R, or nil for plain BCSR
	DiagRow int       // d0, first row covered by Diag
}
