package oski

import "sort"

// Partition is one sub-matrix produced by Partition* below. RowStart/RowEnd
// is the output row-range this partition's Sub touches: for OneD it is
// disjoint from every other partition's range; for SemiOneD it may overlap
// by exactly the boundary row on either side.
type Partition struct {
	Index          int
	RowStart       int
	RowEnd         int
	Sub            *CSR
	NNZStart       int
	NNZEnd         int
}

// AdjustThreadCount clamps nthreads per spec.md §4.6: OneD requires
// nthreads <= nrows; SemiOneD requires nthreads <= nnz.
func AdjustThreadCount(kind PartitionType, nthreads, nrows, nnz int) int {
	limit := nrows
	if kind == SemiOneD {
		limit = nnz
	}
	if limit <= 0 {
		return 1
	}
	if nthreads > limit {
		return limit
	}
	if nthreads < 1 {
		return 1
	}
	return nthreads
}

// AdjustPartitionCount enforces npartitions >= nthreads and npartitions mod
// nthreads == 0. If P doesn't already divide evenly, it is trimmed DOWN to
// the nearest multiple of nthreads, never rounded up past the caller's
// request (original_source's poski_Partition_OneD.c / _SemiOneD.c both trim
// this way; SPEC_FULL.md's EXPANSION on §4.6).
func AdjustPartitionCount(p, nthreads int) int {
	if nthreads < 1 {
		nthreads = 1
	}
	if p < nthreads {
		return nthreads
	}
	return (p / nthreads) * nthreads
}

// PartitionOneD splits a by rows into p partitions with roughly equal
// non-zero counts, per spec.md §4.6's greedy-sweep rule. Every partition
// gets at least one row; the last partition absorbs any remainder.
func PartitionOneD(a *CSR, p int) ([]*Partition, error) {
	const op = "oski.PartitionOneD"
	m, _ := a.Dims()
	if p <= 0 {
		return nil, newError(op, BadArg, "partition count must be positive, got %d", p)
	}
	if p > m {
		p = m
	}

	gptr := a.RawPtr()
	total := a.NNZ()

	parts := make([]*Partition, 0, p)
	rowStart := 0
	nnzConsumed := 0
	for pIdx := 0; pIdx < p; pIdx++ {
		if pIdx == p-1 {
			sub, err := sliceRowsCSR(a, rowStart, m)
			if err != nil {
				return nil, err
			}
			parts = append(parts, &Partition{
				Index: pIdx, RowStart: rowStart, RowEnd: m, Sub: sub,
				NNZStart: gptr[rowStart], NNZEnd: total,
			})
			break
		}

		remaining := total - nnzConsumed
		target := ceilDiv(remaining, p-pIdx)
		threshold := gptr[rowStart] + target

		i := rowStart
		for i < m-1 && gptr[i+1] < threshold {
			i++
		}
		rowEnd := i + 1
		if rowEnd <= rowStart {
			rowEnd = rowStart + 1
		}
		if rowEnd > m-(p-1-pIdx) {
			// Leave at least one row for each remaining partition.
			rowEnd = m - (p - 1 - pIdx)
		}

		sub, err := sliceRowsCSR(a, rowStart, rowEnd)
		if err != nil {
			return nil, err
		}
		parts = append(parts, &Partition{
			Index: pIdx, RowStart: rowStart, RowEnd: rowEnd, Sub: sub,
			NNZStart: gptr[rowStart], NNZEnd: gptr[rowEnd],
		})
		nnzConsumed = gptr[rowEnd]
		rowStart = rowEnd
	}
	return parts, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// PartitionSemiOneD splits a by non-zero count into p partitions, per
// spec.md §4.6. Each partition p owns the contiguous slice of the flattened
// non-zero array [s_p, s_{p+1}), built by distributing floor(nnz/P) to each
// partition plus one extra to the first (nnz mod P) partitions. A row whose
// non-zeros straddle s_p is split: both partitions materialize a (possibly
// partial) copy of that row, so their SpMV outputs for it must later be
// reduced (§4.9). Sub-matrices always own their ind/val slices (a deep copy)
// since a straddled boundary row needs a private, trimmed row-pointer array
// anyway.
func PartitionSemiOneD(a *CSR, p int) ([]*Partition, error) {
	const op = "oski.PartitionSemiOneD"
	if p <= 0 {
		return nil, newError(op, BadArg, "partition count must be positive, got %d", p)
	}
	m, n := a.Dims()
	total := a.NNZ()
	if p > total {
		p = total
	}
	if total == 0 {
		p = 1
	}

	gptr := a.RawPtr()
	ind, val := a.RawInd(), a.RawVal()
	base := a.Base()

	target := total / p
	rem := total % p

	parts := make([]*Partition, 0, p)
	s := 0
	for pIdx := 0; pIdx < p; pIdx++ {
		t := target
		if pIdx < rem {
			t++
		}
		e := s + t
		if pIdx == p-1 {
			e = total
		}

		rowStart := rowContaining(gptr, s)
		rowEnd := rowStart
		if e > s {
			rowEnd = rowContaining(gptr, e-1)
		}

		numRows := rowEnd - rowStart + 1
		ptr := make([]int, numRows+1)
		for i := 0; i <= numRows; i++ {
			v := gptr[rowStart+i]
			if v < s {
				v = s
			}
			if v > e {
				v = e
			}
			ptr[i] = v - s
		}

		subInd := append([]int(nil), ind[s:e]...)
		subVal := append([]float64(nil), val[s:e]...)
		sub, err := NewCSR(numRows, n, ptr, subInd, subVal,
			Properties{Base: base, Shape: General}, true, &Config{BypassCheck: true})
		if err != nil {
			return nil, newError(op, OutOfMemory, "%v", err)
		}

		parts = append(parts, &Partition{
			Index: pIdx, RowStart: rowStart, RowEnd: rowEnd + 1, Sub: sub,
			NNZStart: s, NNZEnd: e,
		})
		s = e
	}
	return parts, nil
}

// rowContaining returns the row i such that gptr[i] <= nnzIdx < gptr[i+1].
func rowContaining(gptr []int, nnzIdx int) int {
	m := len(gptr) - 1
	return sort.Search(m, func(i int) bool { return gptr[i+1] > nnzIdx })
}

// Overlapping reports whether partitions produced by this partitioning may
// write overlapping output rows and therefore need a reduction pass (§4.9):
// true for SemiOneD and for any OneD-transpose SpMV (the transpose swaps
// row/column roles, so a row-disjoint input partition no longer implies a
// row-disjoint output).
func (k PartitionType) Overlapping(op Op) bool {
	if k == SemiOneD {
		return true
	}
	return op == Trans
}
