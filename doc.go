/*
Package oski provides a parallel, auto-tuning sparse BLAS engine whose central
operation is sparse matrix-vector multiplication (SpMV): given a sparse
matrix A, scalars alpha and beta, and dense vectors x and y, it computes

	y <- beta*y + alpha*op(A)*x

where op(A) is either A or its transpose.

The package takes an already-assembled CSR (Compressed Sparse Row) matrix as
input (construction from scratch is out of scope) and does two things with
it that a plain sparse BLAS call does not:

 1. Tuning: it estimates, for a handful of candidate register block sizes
    (r, c), how much the matrix would "fill in" if re-stored as dense r*c
    blocks, scores each candidate against a per-platform performance
    profile, and - if the estimated win clears a benchmark threshold -
    materializes a re-blocked representation (BCSR or MBCSR) that the SpMV
    kernels run faster against.

 2. Partitioning: it splits the matrix by row-range (OneD) or non-zero
    count (SemiOneD) into sub-matrices that independent worker goroutines
    can multiply against private slices of the input/output vectors, with a
    reduction step folding overlapping partial outputs back into the
    caller-visible result.

The concrete matrix types (CSR, BCSR, MBCSR) implement
gonum.org/v1/gonum/mat.Matrix so the tuned representations compose with the
rest of the gonum ecosystem; the dense vector descriptor VectorView does not.

File format loading (Harwell-Boeing), a CLI/test harness and general-purpose
logging are treated as external collaborators and are out of scope; this
package only exposes the seams (NewCSR, TunableMatrix) such callers use.
*/
package oski
