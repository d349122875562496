package blas

// ScaleY applies y <- beta*y over n logical elements with stride incy. beta
// == 0 zeroes y outright rather than multiplying, so a NaN or Inf already in
// y does not survive a beta=0 call (spec.md §8: "SpMV(A, op, alpha, x, 0, y)
// with all-zero x yields y = 0").
func ScaleY(y []float64, incy int, n int, beta float64) {
	if beta == 0 {
		for i := 0; i < n; i++ {
			y[i*incy] = 0
		}
		return
	}
	if beta == 1 {
		return
	}
	for i := 0; i < n; i++ {
		y[i*incy] *= beta
	}
}

// Dusmv (sparse matrix/vector multiply, y <- y + alpha*A*x or
// y <- y + alpha*A^T*x) multiplies dense vector x by sparse matrix a (or its
// transpose) and accumulates into the dense vector y. It does not apply
// beta; callers scale y first with ScaleY. This is the unblocked r=1,c=1
// reference kernel, also used for a BCSR's leftover tail rows.
func Dusmv(transA bool, alpha float64, a *SparseMatrix, x []float64, incx int, y []float64, incy int) {
	if alpha == 0 {
		return
	}
	r := a.I
	if transA {
		for i := 0; i < r; i++ {
			begin, end := a.Indptr[i], a.Indptr[i+1]
			Dusaxpy(alpha*x[i*incx], a.Data[begin:end], a.Ind[begin:end], y, incy)
		}
	} else {
		for i := 0; i < r; i++ {
			begin, end := a.Indptr[i], a.Indptr[i+1]
			y[i*incy] += alpha * Dusdot(a.Data[begin:end], a.Ind[begin:end], x, incx)
		}
	}
}

// BlockMV is the register-blocked SpMV kernel of spec.md §4.3: it
// accumulates alpha*A*x (or alpha*A^T*x) into y for the (R,C)-blocked
// portion of a BlockMatrix. Like Dusmv, it does not apply beta - callers
// scale y first with ScaleY over the full logical output range, once,
// before any kernel call touches it.
//
// Block-row order is left-to-right within a block-row, then block-rows in
// increasing order, and diagonal contributions (if a.Diag is set) are added
// last; this fixed order keeps a single-threaded run's summation
// bit-for-bit reproducible across repeated calls, per spec.md §4.3.
func BlockMV(transA bool, alpha float64, a *BlockMatrix, x []float64, incx int, y []float64, incy int) {
	if alpha == 0 {
		return
	}
	r, c := a.R, a.C
	xloc := make([]float64, c)
	acc := make([]float64, r)

	if !transA {
		for I := 0; I < a.Bm; I++ {
			for di := range acc {
				acc[di] = 0
			}
			for k := a.Bptr[I]; k < a.Bptr[I+1]; k++ {
				j0 := a.Bind[k]
				for dj := 0; dj < c; dj++ {
					xloc[dj] = x[(j0+dj)*incx]
				}
				tile := a.Bval[k*r*c : (k+1)*r*c]
				for di := 0; di < r; di++ {
					row := tile[di*c : di*c+c]
					var s float64
					for dj := 0; dj < c; dj++ {
						s += row[dj] * xloc[dj]
					}
					acc[di] += s
				}
			}
			base := I * r
			for di := 0; di < r; di++ {
				y[(base+di)*incy] += alpha * acc[di]
			}
		}
	} else {
		xrow := make([]float64, r)
		for I := 0; I < a.Bm; I++ {
			base := I * r
			for di := 0; di < r; di++ {
				xrow[di] = x[(base+di)*incx]
			}
			for k := a.Bptr[I]; k < a.Bptr[I+1]; k++ {
				j0 := a.Bind[k]
				tile := a.Bval[k*r*c : (k+1)*r*c]
				for dj := 0; dj < c; dj++ {
					var s float64
					for di := 0; di < r; di++ {
						s += tile[di*c+dj] * xrow[di]
					}
					y[(j0+dj)*incy] += alpha * s
				}
			}
		}
	}

	blockMVDiag(transA, alpha, a, x, incx, y, incy)
}

// blockMVDiag multiplies the separately-stored MBCSR diagonal blocks (if
// any) in their own pass over the same row-range, per spec.md §4.3.
func blockMVDiag(transA bool, alpha float64, a *BlockMatrix, x []float64, incx int, y []float64, incy int) {
	if a.Diag == nil || alpha == 0 {
		return
	}
	r := a.R
	d0 := a.DiagRow
	for I := 0; I < a.Bm; I++ {
		tile := a.Diag[I*r*r : (I+1)*r*r]
		base := d0 + I*r
		if !transA {
			for di := 0; di < r; di++ {
				var s float64
				for dj := 0; dj < r; dj++ {
					s += tile[di*r+dj] * x[(base+dj)*incx]
				}
				y[(base+di)*incy] += alpha * s
			}
		} else {
			for dj := 0; dj < r; dj++ {
				var s float64
				for di := 0; di < r; di++ {
					s += tile[di*r+dj] * x[(base+di)*incx]
				}
				y[(base+dj)*incy] += alpha * s
			}
		}
	}
}
