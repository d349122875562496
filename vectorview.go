package oski

// Layout distinguishes how a multivector's columns are laid out in memory.
type Layout int

const (
	RowMajor Layout = iota
	ColMajor
)

// VectorView is a dense vector or multivector descriptor: `(ptr, num_rows,
// num_cols, row_stride, col_stride, layout)` per spec.md §3. A plain vector
// is a VectorView with NumCols == 1.
type VectorView struct {
	Data      []float64
	Offset    int
	NumRows   int
	NumCols   int
	RowStride int
	ColStride int
	Layout    Layout
}

// NewVectorView wraps data as a numRows x numCols view with the natural
// strides for layout.
func NewVectorView(data []float64, numRows, numCols int, layout Layout) *VectorView {
	v := &VectorView{Data: data, NumRows: numRows, NumCols: numCols, Layout: layout}
	switch layout {
	case ColMajor:
		v.RowStride = 1
		v.ColStride = numRows
	default:
		v.RowStride = numCols
		v.ColStride = 1
	}
	return v
}

// At returns element (i, j).
func (v *VectorView) At(i, j int) float64 {
	return v.Data[v.Offset+i*v.RowStride+j*v.ColStride]
}

// Set writes element (i, j).
func (v *VectorView) Set(i, j int, val float64) {
	v.Data[v.Offset+i*v.RowStride+j*v.ColStride] = val
}

// Column returns column j as a (data, stride) pair suitable for the blas
// package's incx/incy-strided kernel calls: element i of the column is
// data[i*stride].
func (v *VectorView) Column(j int) ([]float64, int) {
	start := v.Offset + j*v.ColStride
	return v.Data[start:], v.RowStride
}

// SubRows returns a view over rows [r0, r1) sharing the same backing array.
func (v *VectorView) SubRows(r0, r1 int) *VectorView {
	return &VectorView{
		Data: v.Data, Offset: v.Offset + r0*v.RowStride,
		NumRows: r1 - r0, NumCols: v.NumCols,
		RowStride: v.RowStride, ColStride: v.ColStride, Layout: v.Layout,
	}
}

// PartitionedVector is a vector of per-partition sub-views aligned with a
// partition plan, per spec.md §3. Private reports whether each view is a
// freshly allocated, zero-initialized buffer that must later be folded back
// into the user's vector by reduce.go (true for SemiOneD outputs and for
// OneD-transpose outputs); when false, each view borrows a disjoint slice of
// the user's own buffer directly and no reduction step runs.
type PartitionedVector struct {
	Views     []*VectorView
	RowRanges [][2]int // absolute [start, end) each view's data corresponds to
	Private   bool
}

// BuildInputView returns a shared, unpartitioned input view over x. For a
// Normal SpMV every partition reads all of x, since partitioning is always
// by rows of A (spec.md §4.6 splits rows or non-zeros, never columns); a
// Trans SpMV (TunableMatrix.SpMV) instead hands each partition only the
// slice of x matching its own row range.
func BuildInputView(x []float64, numCols int, layout Layout) *VectorView {
	n := len(x) / max(numCols, 1)
	return NewVectorView(x, n, numCols, layout)
}

// BuildOutputPartition builds the per-partition output views for a parallel
// SpMV, per spec.md §4.9:
//   - OneD-normal: each partition writes directly into its disjoint row
//     range of y; Private is false, no reduction needed.
//   - SemiOneD-normal: each partition gets a private zero-initialized
//     buffer sized to its own row range [RowStart, RowEnd), since only
//     adjacent partitions can ever share a row.
//   - Transpose (OneD or SemiOneD): each partition gets a private
//     zero-initialized buffer spanning the full output [0, outRows), since
//     a transpose sub-SpMV may write to any output row regardless of which
//     input rows it owns.
func BuildOutputPartition(y *VectorView, parts []*Partition, kind PartitionType, op Op) *PartitionedVector {
	if !kind.Overlapping(op) {
		views := make([]*VectorView, len(parts))
		ranges := make([][2]int, len(parts))
		for i, p := range parts {
			views[i] = y.SubRows(p.RowStart, p.RowEnd)
			ranges[i] = [2]int{p.RowStart, p.RowEnd}
		}
		return &PartitionedVector{Views: views, RowRanges: ranges, Private: false}
	}

	outRows := y.NumRows
	views := make([]*VectorView, len(parts))
	ranges := make([][2]int, len(parts))
	for i, p := range parts {
		lo, hi := p.RowStart, p.RowEnd
		if op == Trans {
			lo, hi = 0, outRows
		}
		buf := make([]float64, (hi-lo)*y.NumCols)
		views[i] = NewVectorView(buf, hi-lo, y.NumCols, y.Layout)
		ranges[i] = [2]int{lo, hi}
	}
	return &PartitionedVector{Views: views, RowRanges: ranges, Private: true}
}
