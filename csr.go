package oski

import (
	"math"
	"sort"

	"github.com/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jbowman-labs/oski-go/blas"
)

var _ mat.Matrix = (*CSR)(nil)

// CSR is the canonical sparse matrix representation (spec.md §3, §4.1): row
// pointers, column indices and values in compressed-sparse-row order. It
// implements gonum.org/v1/gonum/mat.Matrix so it composes with the rest of
// the gonum ecosystem, the way the teacher's CSR does.
//
// A CSR is created in shared mode (it borrows the caller's ptr/ind/val
// slices; the caller must not mutate or free them for the lifetime of the
// CSR) or copy mode (it owns a private deep copy). Destroy releases owned
// storage; it is a no-op on a shared CSR.
type CSR struct {
	m, n, nnz int
	ptr       []int
	ind       []int
	val       []float64
	props     Properties
	owns      bool
}

// NewCSR wraps raw (ptr, ind, val) arrays as a CSR. If shared is true the
// matrix borrows the supplied slices; otherwise it deep-copies them. Unless
// cfg.BypassCheck is set, the asserted properties in props are validated in
// O(nnz) and returned as a *Error with code FalseAssertedProperty on the
// first violation found. Properties may be strengthened (e.g. an unsorted
// assertion found to be sorted) but never weakened.
func NewCSR(m, n int, ptr, ind []int, val []float64, props Properties, shared bool, cfg *Config) (*CSR, error) {
	const op = "oski.NewCSR"
	if m < 0 || n < 0 {
		return nil, newError(op, BadArg, "negative dimension m=%d n=%d", m, n)
	}
	if len(ind) != len(val) {
		return nil, newError(op, BadArg, "ind and val length mismatch: %d vs %d", len(ind), len(val))
	}
	if cfg == nil {
		cfg = DefaultConfig
	}

	if !cfg.BypassCheck {
		if err := CheckProperties(m, n, ptr, ind, props); err != nil {
			return nil, err
		}
		if isSortedProperty(m, ptr, ind, props.Base) {
			props.strengthenSorted()
		}
	}

	c := &CSR{m: m, n: n, nnz: len(val), props: props}
	if shared {
		c.ptr, c.ind, c.val = ptr, ind, val
		c.owns = false
	} else {
		c.ptr = append([]int(nil), ptr...)
		c.ind = append([]int(nil), ind...)
		c.val = append([]float64(nil), val...)
		c.owns = true
	}
	return c, nil
}

func isSortedProperty(m int, ptr, ind []int, base int) bool {
	for i := 0; i < m; i++ {
		for k := ptr[i] + 1; k < ptr[i+1]; k++ {
			if ind[k] < ind[k-1] {
				return false
			}
		}
	}
	return true
}

// Dims returns the matrix's logical row and column counts.
func (c *CSR) Dims() (int, int) { return c.m, c.n }

// NNZ returns the number of explicitly stored entries.
func (c *CSR) NNZ() int { return c.nnz }

// Properties returns the (possibly strengthened) asserted properties.
func (c *CSR) Properties() Properties { return c.props }

// RowRange returns the half-open range of storage offsets [lo, hi) into
// Ind/Val for row i (0-based). It returns ptr[i] and ptr[i+1] unchanged:
// row pointers are read as 0-based offsets whatever the index base, and
// only column indices carry the base.
func (c *CSR) RowRange(i int) (lo, hi int) {
	return c.ptr[i], c.ptr[i+1]
}

// RawPtr, RawInd and RawVal expose the backing arrays for use by the
// partitioner, converter and kernels. Callers must treat them as read-only
// unless they hold exclusive ownership (copy mode).
func (c *CSR) RawPtr() []int      { return c.ptr }
func (c *CSR) RawInd() []int      { return c.ind }
func (c *CSR) RawVal() []float64  { return c.val }
func (c *CSR) Base() int          { return c.props.Base }

// toSparseMatrix returns the blas package's 0-based SparseMatrix view of c,
// translating indices by -Base() when c's asserted base is 1: the blas
// kernels (Dusdot, Dusaxpy, Dusmv) index directly into dense vectors with
// no base offset of their own.
func (c *CSR) toSparseMatrix() *blas.SparseMatrix {
	ind := c.ind
	if c.props.Base != 0 {
		adj := make([]int, len(ind))
		for i, v := range ind {
			adj[i] = v - c.props.Base
		}
		ind = adj
	}
	return &blas.SparseMatrix{I: c.m, J: c.n, Indptr: c.ptr, Ind: ind, Data: c.val}
}

// At returns the element at (i, j), honoring shape: zero below the diagonal
// of a stored-upper matrix (and vice versa), 1 on an implicit unit diagonal,
// and the mirrored entry for symmetric half storage. At panics if i or j is
// out of range, matching gonum's convention for dense/sparse mat.Matrix
// implementations.
func (c *CSR) At(i, j int) float64 {
	if i < 0 || i >= c.m {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= c.n {
		panic(mat.ErrColAccess)
	}
	return c.at(i, j)
}

func (c *CSR) at(i, j int) float64 {
	if c.props.ImplicitUnit && i == j {
		if v, ok := c.scan(i, j); ok {
			return v
		}
		return 1
	}
	if v, ok := c.scan(i, j); ok {
		return v
	}
	if c.props.Shape.halfSymmetric() {
		belowStoredTriangle := (c.props.Shape.lower() && j > i) || (!c.props.Shape.lower() && j < i)
		if belowStoredTriangle {
			if v, ok := c.scan(j, i); ok {
				if c.props.Shape.hermitian() {
					return v // real-valued Conj is identity
				}
				return v
			}
		}
	}
	if c.props.Shape.triangular() {
		return 0
	}
	return 0
}

func (c *CSR) scan(i, j int) (float64, bool) {
	base := c.props.Base
	lo, hi := c.ptr[i], c.ptr[i+1]
	if c.props.Sorted {
		k := sort.Search(hi-lo, func(x int) bool { return c.ind[lo+x]-base >= j })
		if k < hi-lo && c.ind[lo+k]-base == j {
			return c.val[lo+k], true
		}
		return 0, false
	}
	for k := lo; k < hi; k++ {
		if c.ind[k]-base == j {
			return c.val[k], true
		}
	}
	return 0, false
}

// T returns the transpose. Because CSR and CSC share the identical compressed
// layout (only the row/column roles are swapped), this is a zero-copy view:
// mutations to the transpose are visible in the original and vice versa.
func (c *CSR) T() mat.Matrix {
	return &csrTranspose{c}
}

type csrTranspose struct{ csr *CSR }

func (t *csrTranspose) Dims() (int, int) { r, c := t.csr.Dims(); return c, r }
func (t *csrTranspose) At(i, j int) float64 { return t.csr.At(j, i) }
func (t *csrTranspose) T() mat.Matrix       { return t.csr }

// Set writes a value into an existing storage slot. It returns a *Error with
// code LogicalZeroNotStored if (i, j) has no explicit slot (spec.md §4.1):
// unlike a dense matrix, CSR.Set never changes the sparsity pattern. If the
// matrix is half-stored symmetric/Hermitian, the mirrored slot (j, i) is
// written too when present.
func (c *CSR) Set(i, j int, v float64) error {
	const op = "oski.CSR.Set"
	if i < 0 || i >= c.m || j < 0 || j >= c.n {
		return newError(op, BadArg, "index (%d, %d) out of range for %dx%d matrix", i, j, c.m, c.n)
	}
	if !c.setAt(i, j, v) {
		return newError(op, LogicalZeroNotStored, "(%d, %d) has no storage slot", i, j)
	}
	if c.props.Shape.halfSymmetric() && i != j {
		c.setAt(j, i, v)
	}
	return nil
}

func (c *CSR) setAt(i, j int, v float64) bool {
	base := c.props.Base
	lo, hi := c.ptr[i], c.ptr[i+1]
	for k := lo; k < hi; k++ {
		if c.ind[k]-base == j {
			c.val[k] = v
			return true
		}
	}
	return false
}

// GetEntry is an alias for At returning (value, error) instead of panicking,
// for callers that prefer not to pre-validate bounds themselves.
func (c *CSR) GetEntry(i, j int) (float64, error) {
	const op = "oski.CSR.GetEntry"
	if i < 0 || i >= c.m || j < 0 || j >= c.n {
		return 0, newError(op, BadArg, "index (%d, %d) out of range for %dx%d matrix", i, j, c.m, c.n)
	}
	return c.at(i, j), nil
}

// Diagonal returns the dense diagonal of the matrix, honoring an implicit
// unit diagonal.
func (c *CSR) Diagonal() []float64 {
	n := c.m
	if c.n < n {
		n = c.n
	}
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = c.at(i, i)
	}
	return d
}

// Submatrix returns the dense values of the half-open rectangular region
// [i0,i1) x [j0,j1), row-major. It is the "get clique/subset" operation of
// spec.md §4.1, implemented directly rather than as its own storage format
// since nothing downstream needs a persistent submatrix view (partitioning,
// C8, produces real CSR sub-matrices instead; see partition.go).
func (c *CSR) Submatrix(i0, i1, j0, j1 int) []float64 {
	rows, cols := i1-i0, j1-j0
	out := make([]float64, rows*cols)
	for i := i0; i < i1; i++ {
		for j := j0; j < j1; j++ {
			out[(i-i0)*cols+(j-j0)] = c.at(i, j)
		}
	}
	return out
}

// RowNNZ returns the number of explicit entries in row i.
func (c *CSR) RowNNZ(i int) int {
	return c.ptr[i+1] - c.ptr[i]
}

// CountZeroRows returns the number of rows with no explicitly stored entries.
func (c *CSR) CountZeroRows() int {
	n := 0
	for i := 0; i < c.m; i++ {
		if c.RowNNZ(i) == 0 {
			n++
		}
	}
	return n
}

// OneNorm returns the matrix 1-norm: the maximum absolute column sum.
func (c *CSR) OneNorm() float64 {
	colSums := make([]float64, c.n)
	base := c.props.Base
	for i := 0; i < c.m; i++ {
		for k := c.ptr[i]; k < c.ptr[i+1]; k++ {
			colSums[c.ind[k]-base] += math.Abs(c.val[k])
		}
	}
	if len(colSums) == 0 {
		return 0
	}
	return floats.Max(colSums)
}

// SortIndices sorts the column indices (and matching values) within every
// row in place. It is idempotent and records Sorted=true on completion
// (spec.md §4.1).
func (c *CSR) SortIndices() {
	if c.props.Sorted {
		return
	}
	for i := 0; i < c.m; i++ {
		lo, hi := c.ptr[i], c.ptr[i+1]
		ind := c.ind[lo:hi]
		val := c.val[lo:hi]
		sort.Sort(&rowSorter{ind, val})
	}
	c.props.strengthenSorted()
}

type rowSorter struct {
	ind []int
	val []float64
}

func (s *rowSorter) Len() int           { return len(s.ind) }
func (s *rowSorter) Less(i, j int) bool { return s.ind[i] < s.ind[j] }
func (s *rowSorter) Swap(i, j int) {
	s.ind[i], s.ind[j] = s.ind[j], s.ind[i]
	s.val[i], s.val[j] = s.val[j], s.val[i]
}

// ExpandSymmetric materializes a half-stored symmetric/Hermitian matrix into
// a new, fully-stored, sorted CSR, per spec.md §4.1. (i, j) and (j, i) both
// appear; an implicit unit diagonal is materialized explicitly. It returns a
// *Error with code BadArg if the receiver's shape is not one of the
// symmetric/Hermitian half-stored shapes.
func (c *CSR) ExpandSymmetric() (*CSR, error) {
	const op = "oski.CSR.ExpandSymmetric"
	if !c.props.Shape.halfSymmetric() {
		return nil, newError(op, BadArg, "shape %v is not half-stored symmetric/Hermitian", c.props.Shape)
	}
	base := c.props.Base

	rows := make([][2]int, 0, c.nnz*2)
	vals := make([]float64, 0, c.nnz*2)
	rowOf := make([]int, 0, c.nnz*2)

	add := func(i, j int, v float64) {
		rowOf = append(rowOf, i)
		rows = append(rows, [2]int{i, j})
		vals = append(vals, v)
	}

	for i := 0; i < c.m; i++ {
		for k := c.ptr[i]; k < c.ptr[i+1]; k++ {
			j := c.ind[k] - base
			v := c.val[k]
			add(i, j, v)
			if j != i {
				mv := v
				if c.props.Shape.hermitian() {
					mv = v // real-valued; conjugate is identity
				}
				add(j, i, mv)
			}
		}
		if c.props.ImplicitUnit {
			add(i, i, 1)
		}
	}

	n := c.m
	counts := make([]int, n+1)
	for _, r := range rowOf {
		counts[r+1]++
	}
	for i := 0; i < n; i++ {
		counts[i+1] += counts[i]
	}
	newInd := make([]int, len(rows))
	newVal := make([]float64, len(rows))
	cursor := append([]int(nil), counts...)
	for k, rc := range rows {
		i := rc[0]
		pos := cursor[i]
		newInd[pos] = rc[1]
		newVal[pos] = vals[k]
		cursor[i]++
	}

	out := &CSR{
		m: c.m, n: c.n, nnz: len(newVal),
		ptr: counts, ind: newInd, val: newVal,
		props: Properties{Base: 0, Sorted: false, Unique: true, Shape: General},
		owns:  true,
	}
	out.SortIndices()
	return out, nil
}

// ToDense returns a dense copy of the matrix as *mat.Dense, honoring shape.
func (c *CSR) ToDense() *mat.Dense {
	d := mat.NewDense(c.m, c.n, nil)
	for i := 0; i < c.m; i++ {
		for j := 0; j < c.n; j++ {
			if v := c.at(i, j); v != 0 {
				d.Set(i, j, v)
			}
		}
	}
	return d
}

// Destroy releases owned storage. It is safe, but unnecessary, to call on a
// shared CSR (owns is false and nothing is freed); Go's GC will reclaim
// owned slices once dereferenced, but Destroy nils them immediately so a
// stale reference can't observe freed data, matching the explicit lifecycle
// contract of spec.md §3.
func (c *CSR) Destroy() {
	if c.owns {
		c.ptr, c.ind, c.val = nil, nil, nil
	}
}
