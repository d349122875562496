package oski

// Reduce folds a PartitionedVector's per-partition output buffers into y,
// applying beta exactly once, per spec.md §4.9. If pv.Private is false
// (OneD-normal), every view already aliases y directly and Reduce is a
// no-op beyond the beta scale, which the caller is expected to have already
// applied via blas.ScaleY before dispatching the kernels.
//
// When pv.Private is true, the reduction work itself is split across
// exec's workers by output row-range: for each row i, Reduce sums the i-th
// entry of every sub-buffer whose RowRanges[k] covers i (partition index
// ascending, a fixed order so repeated runs are bit-for-bit identical),
// zeroes those cells so the private buffers are reusable without a separate
// clear pass, and writes y[i] <- t + beta*y[i].
func Reduce(y *VectorView, pv *PartitionedVector, beta float64, exec Executor) error {
	if !pv.Private {
		return nil
	}
	if exec == nil {
		exec = serialExecutor{}
	}

	rows := y.NumRows
	workers := len(pv.Views)
	if workers == 0 {
		workers = 1
	}

	tasks := make([]Task, 0, workers)
	chunk := ceilDiv(rows, workers)
	if chunk < 1 {
		chunk = 1
	}
	for s := 0; s < rows; s += chunk {
		e := s + chunk
		if e > rows {
			e = rows
		}
		s, e := s, e
		tasks = append(tasks, func() error {
			reduceRowRange(y, pv, beta, s, e)
			return nil
		})
	}
	return exec.Run(tasks)
}

func reduceRowRange(y *VectorView, pv *PartitionedVector, beta float64, rowStart, rowEnd int) {
	for i := rowStart; i < rowEnd; i++ {
		for col := 0; col < y.NumCols; col++ {
			var t float64
			for k, view := range pv.Views {
				lo, hi := pv.RowRanges[k][0], pv.RowRanges[k][1]
				if i < lo || i >= hi {
					continue
				}
				local := i - lo
				t += view.At(local, col)
				view.Set(local, col, 0)
			}
			if beta == 0 {
				y.Set(i, col, t)
			} else {
				y.Set(i, col, t+beta*y.At(i, col))
			}
		}
	}
}
