package blas

// Dusmm (sparse matrix multiply, C <- C + alpha*A*B or C <- C + alpha*A^T*B)
// multiplies a dense matrix B (k columns) by sparse matrix a (or its
// transpose) and accumulates into dense matrix C. ldb and ldc are the
// leading dimensions (column strides) of B and C. It is implemented as k
// independent Dusmv calls, one per column, matching spec.md §6's multivector
// vector-view model.
func Dusmm(transA bool, k int, alpha float64, a *SparseMatrix, b []float64, ldb int, c []float64, ldc int) {
	if alpha == 0 {
		return
	}
	for i := 0; i < k; i++ {
		Dusmv(transA, alpha, a, b[i*ldb:], 1, c[i*ldc:], 1)
	}
}

// BlockMM is the BlockMV analogue of Dusmm: k independent BlockMV calls
// against the columns of a dense multivector.
func BlockMM(transA bool, k int, alpha float64, a *BlockMatrix, b []float64, ldb int, c []float64, ldc int) {
	if alpha == 0 {
		return
	}
	for i := 0; i < k; i++ {
		BlockMV(transA, alpha, a, b[i*ldb:], 1, c[i*ldc:], 1)
	}
}
