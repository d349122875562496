package oski

import (
	"fmt"

	"github.com/jbowman-labs/oski-go/blas"
)

// Op selects which operator SpMV applies: the matrix itself or its
// transpose. Conjugate/conjugate-transpose variants from spec.md §4.3 are
// not distinct ops here: this engine's matrices carry float64 values (the
// gonum mat.Matrix contract they implement is real-valued), so conjugation
// is the identity and the conj/conj-trans variants alias Normal/Trans
// exactly as spec.md §4.3 describes for real builds.
type Op int

const (
	Normal Op = iota
	Trans
)

func (op Op) String() string {
	if op == Trans {
		return "trans"
	}
	return "normal"
}

// strideClass classifies a vector stride as unit (the common, fast case) or
// general, matching the kernel keying of spec.md §4.3. It exists purely to
// document/organize the registry; BlockMV itself handles any positive
// stride without needing a distinct code path per class.
type strideClass int

const (
	strideUnit strideClass = iota
	strideGeneral
)

func classOf(stride int) strideClass {
	if stride == 1 {
		return strideUnit
	}
	return strideGeneral
}

// kernelKey identifies one SpMV kernel variant, per spec.md §4.3:
// (op, block-rows r, block-cols c, input-stride class, output-stride class).
type kernelKey struct {
	op     Op
	r, c   int
	sx, sy strideClass
}

// kernelFunc is the shape every registered SpMV kernel variant has.
type kernelFunc func(alpha float64, a *blas.BlockMatrix, x []float64, incx int, y []float64, incy int)

// kernelRegistry is the compile-time function table DESIGN NOTES §9 calls
// for in place of the original per-(r,c) macro-generated variant family: a
// small map from kernel key to implementation, built once at init and never
// mutated afterwards (the read-only "module registry" of spec.md §5).
var kernelRegistry = map[kernelKey]kernelFunc{}

func registerKernel(op Op, sx, sy strideClass, fn kernelFunc) {
	// (r, c) are runtime parameters of BlockMV itself - see SPEC_FULL.md's
	// C4 section: Go has no const generics, so rather than generating one
	// function per (r, c) this registers one generic function per (op,
	// strideX class, strideY class) and BlockMV's loop bounds do the work
	// unrolling would otherwise do. The registry still supports disabling
	// an (op, r, c) triple independently (disabledKernels.disable), which is the part
	// of the variant table the heuristic (C6) actually needs to control.
	for r := 1; r <= maxRegisteredBlockSize; r++ {
		for c := 1; c <= maxRegisteredBlockSize; c++ {
			kernelRegistry[kernelKey{op, r, c, sx, sy}] = fn
		}
	}
}

// maxRegisteredBlockSize bounds the (r, c) space the registry answers
// Lookup for; callers asking about a larger block size get ok=false and
// fall back to direct blas.BlockMV, which has no such bound.
const maxRegisteredBlockSize = 64

func init() {
	normalFn := func(alpha float64, a *blas.BlockMatrix, x []float64, incx int, y []float64, incy int) {
		blas.BlockMV(false, alpha, a, x, incx, y, incy)
	}
	transFn := func(alpha float64, a *blas.BlockMatrix, x []float64, incx int, y []float64, incy int) {
		blas.BlockMV(true, alpha, a, x, incx, y, incy)
	}
	for _, sx := range []strideClass{strideUnit, strideGeneral} {
		for _, sy := range []strideClass{strideUnit, strideGeneral} {
			registerKernel(Normal, sx, sy, normalFn)
			registerKernel(Trans, sx, sy, transFn)
		}
	}
}

// disabledKernels tracks kernel keys a tuned matrix handle has chosen to
// disable (spec.md §4.5: "the configuration also records which kernels to
// disable on the tuned matrix"). It is per-handle state, not global.
type disabledKernels map[kernelKey]bool

func (d disabledKernels) disable(op Op, r, c int) {
	d[kernelKey{op, r, c, strideUnit, strideUnit}] = true
	d[kernelKey{op, r, c, strideUnit, strideGeneral}] = true
	d[kernelKey{op, r, c, strideGeneral, strideUnit}] = true
	d[kernelKey{op, r, c, strideGeneral, strideGeneral}] = true
}

func (d disabledKernels) isDisabled(op Op, r, c, incx, incy int) bool {
	if d == nil {
		return false
	}
	return d[kernelKey{op, r, c, classOf(incx), classOf(incy)}]
}

// lookupKernel returns the registered kernel for (op, r, c, incx, incy), or
// ok=false if the block size exceeds maxRegisteredBlockSize or the key was
// explicitly disabled - callers fall back to calling blas.BlockMV directly.
func lookupKernel(op Op, r, c, incx, incy int, disabled disabledKernels) (kernelFunc, bool) {
	if disabled.isDisabled(op, r, c, incx, incy) {
		return nil, false
	}
	key := kernelKey{op, r, c, classOf(incx), classOf(incy)}
	fn, ok := kernelRegistry[key]
	return fn, ok
}

func (k kernelKey) String() string {
	return fmt.Sprintf("%s(r=%d,c=%d,sx=%d,sy=%d)", k.op, k.r, k.c, k.sx, k.sy)
}
