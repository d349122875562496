package oski

import "sort"

// ConvertToBCSR re-blocks a CSR matrix into a dense-block (r, c) BCSR, per
// spec.md §4.2. Conversion runs in two passes over the non-zeros: a
// counting pass that finds, for each r-row block-row, the sorted set of
// distinct block-columns J = floor(j/c) touched by any non-zero (using a
// visited-flag array cleared by a second scan to keep the pass O(nnz)), and
// a copying pass that allocates the block arrays and fills each tile.
// Leftover rows (m mod r) are kept as a plain CSR tail rather than
// recursively re-blocked at a smaller size, which is the r=1,c=1
// degenerate case of the same recursion.
func ConvertToBCSR(a *CSR, r, c int) (*BCSR, error) {
	const op = "oski.ConvertToBCSR"
	if r <= 0 || c <= 0 {
		return nil, newError(op, BadArg, "block size (%d, %d) must be positive", r, c)
	}
	m, n := a.Dims()
	base := a.Base()
	ind, val := a.RawInd(), a.RawVal()

	bm := m / r
	tailRows := m - bm*r

	nBlockCols := (n + c - 1) / c
	if nBlockCols == 0 {
		nBlockCols = 1
	}
	visited := make([]bool, nBlockCols)

	bptr := make([]int, bm+1)
	colsPerRow := make([][]int, bm)

	count := 0
	touched := make([]int, 0, 16)
	for I := 0; I < bm; I++ {
		bptr[I] = count
		touched = touched[:0]
		for di := 0; di < r; di++ {
			row := I*r + di
			lo, hi := a.RowRange(row)
			for k := lo; k < hi; k++ {
				j := ind[k] - base
				J := j / c
				if !visited[J] {
					visited[J] = true
					touched = append(touched, J)
				}
			}
		}
		sort.Ints(touched)
		cols := make([]int, len(touched))
		copy(cols, touched)
		colsPerRow[I] = cols
		count += len(cols)
		for _, J := range touched {
			visited[J] = false
		}
	}
	bptr[bm] = count

	bind := make([]int, count)
	bval := make([]float64, count*r*c)

	idx := 0
	for I := 0; I < bm; I++ {
		for _, J := range colsPerRow[I] {
			j0 := J * c
			if j0+c > n {
				j0 = n - c
			}
			if j0 < 0 {
				j0 = 0
			}
			bind[idx] = j0
			idx++
		}
	}

	for I := 0; I < bm; I++ {
		cols := colsPerRow[I]
		blockBase := bptr[I]
		for di := 0; di < r; di++ {
			row := I*r + di
			lo, hi := a.RowRange(row)
			for k := lo; k < hi; k++ {
				j := ind[k] - base
				J := j / c
				pos := sort.SearchInts(cols, J)
				blockIdx := blockBase + pos
				j0 := bind[blockIdx]
				bval[blockIdx*r*c+di*c+(j-j0)] = val[k]
			}
		}
	}

	var tail *CSR
	if tailRows > 0 {
		var err error
		tail, err = sliceRowsCSR(a, bm*r, m)
		if err != nil {
			return nil, err
		}
	}

	return &BCSR{
		m: m, n: n, r: r, c: c, bm: bm,
		bptr: bptr, bind: bind, bval: bval,
		tail: tail, origNNZ: a.NNZ(),
	}, nil
}

// sliceRowsCSR extracts rows [i0, i1) of a as an independent (copy-mode) CSR.
func sliceRowsCSR(a *CSR, i0, i1 int) (*CSR, error) {
	_, n := a.Dims()
	base := a.Base()
	lo, hi := a.ptr[i0], a.ptr[i1]
	ptr := make([]int, i1-i0+1)
	for i := i0; i <= i1; i++ {
		ptr[i-i0] = a.ptr[i] - lo
	}
	ind := append([]int(nil), a.ind[lo:hi]...)
	val := append([]float64(nil), a.val[lo:hi]...)
	return NewCSR(i1-i0, n, ptr, ind, val, Properties{Base: base, Sorted: a.props.Sorted, Unique: a.props.Unique, Shape: General}, true, &Config{BypassCheck: true})
}

// ConvertToMBCSR builds a BCSR and additionally extracts each block-row's
// r*r diagonal tile into a separate dense array (spec.md §3, §4.2), so the
// SpMV kernel can specialize the diagonal without a bounds check. The
// extracted tile is removed from the inherited BCSR's bptr/bind/bval, not
// merely copied out of them: MBCSR.blockMatrix hands BlockMV's main loop
// and blockMVDiag's diagonal pass the same Bptr/Bind/Bval, so a diagonal
// block left in place would be summed into y twice. MBCSR requires a square
// matrix and r == c, since the extracted tile must itself be square.
func ConvertToMBCSR(a *CSR, r, c int) (*MBCSR, error) {
	const op = "oski.ConvertToMBCSR"
	m, n := a.Dims()
	if m != n {
		return nil, newError(op, BadArg, "MBCSR requires a square matrix, got %dx%d", m, n)
	}
	if r != c {
		return nil, newError(op, BadArg, "MBCSR requires square blocks, got (%d, %d)", r, c)
	}

	base, err := ConvertToBCSR(a, r, c)
	if err != nil {
		return nil, err
	}

	bdiag := make([]float64, base.bm*r*r)
	bptr := make([]int, base.bm+1)
	bind := make([]int, 0, len(base.bind))
	bval := make([]float64, 0, len(base.bval))

	for I := 0; I < base.bm; I++ {
		bptr[I] = len(bind)
		lo, hi := base.bptr[I], base.bptr[I+1]
		diagJ0 := I * r
		for k := lo; k < hi; k++ {
			j0 := base.bind[k]
			tile := base.bval[k*r*c : (k+1)*r*c]
			if j0 == diagJ0 {
				copy(bdiag[I*r*r:(I+1)*r*r], tile)
				continue
			}
			bind = append(bind, j0)
			bval = append(bval, tile...)
		}
	}
	bptr[base.bm] = len(bind)
	base.bptr, base.bind, base.bval = bptr, bind, bval

	return &MBCSR{BCSR: *base, bdiag: bdiag, diagRow: 0}, nil
}

// ToCSR reverse-converts a BCSR back to CSR, materializing every explicit
// entry (including block-induced stored zeros) in row-major, sorted order,
// per spec.md §4.2.
func (b *BCSR) ToCSR() (*CSR, error) {
	ptr := make([]int, b.m+1)
	var ind []int
	var val []float64

	for I := 0; I < b.bm; I++ {
		rowBlocks := make([][2]int, 0) // (col, value) accumulated per physical row below
		_ = rowBlocks
		for di := 0; di < b.r; di++ {
			row := I*b.r + di
			ptr[row] = len(ind)
			for k := b.bptr[I]; k < b.bptr[I+1]; k++ {
				j0 := b.bind[k]
				for dj := 0; dj < b.c; dj++ {
					v := b.bval[k*b.r*b.c+di*b.c+dj]
					ind = append(ind, j0+dj)
					val = append(val, v)
				}
			}
		}
	}
	if b.tail != nil {
		tm, _ := b.tail.Dims()
		for i := 0; i < tm; i++ {
			row := b.bm*b.r + i
			ptr[row] = len(ind)
			lo, hi := b.tail.RowRange(i)
			ind = append(ind, b.tail.ind[lo:hi]...)
			val = append(val, b.tail.val[lo:hi]...)
		}
	}
	ptr[b.m] = len(ind)

	out, err := NewCSR(b.m, b.n, ptr, ind, val, Properties{Shape: General}, true, &Config{BypassCheck: true})
	if err != nil {
		return nil, err
	}
	out.SortIndices()
	return out, nil
}

// ToCSR reverse-converts an MBCSR back to CSR. The diagonal tile was
// excluded from the inherited BCSR's bptr/bind/bval (see ConvertToMBCSR),
// so it is merged back in here before delegating to BCSR.ToCSR; block
// order within a block-row doesn't matter since BCSR.ToCSR sorts each
// physical row's indices before returning.
func (b *MBCSR) ToCSR() (*CSR, error) {
	r, c := b.r, b.c
	bptr := make([]int, b.bm+1)
	bind := make([]int, 0, len(b.bind)+b.bm)
	bval := make([]float64, 0, len(b.bval)+b.bm*r*r)

	for I := 0; I < b.bm; I++ {
		bptr[I] = len(bind)
		lo, hi := b.bptr[I], b.bptr[I+1]
		bind = append(bind, b.bind[lo:hi]...)
		bval = append(bval, b.bval[lo*r*c:hi*r*c]...)

		diag := b.bdiag[I*r*r : (I+1)*r*r]
		stored := false
		for _, v := range diag {
			if v != 0 {
				stored = true
				break
			}
		}
		if stored {
			bind = append(bind, I*r)
			bval = append(bval, diag...)
		}
	}
	bptr[b.bm] = len(bind)

	plain := BCSR{m: b.m, n: b.n, r: r, c: c, bm: b.bm, bptr: bptr, bind: bind, bval: bval, tail: b.tail, origNNZ: b.origNNZ}
	return plain.ToCSR()
}
