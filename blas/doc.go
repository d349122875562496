/*
Package blas provides the low-level sparse BLAS routines the tuning engine's
kernels are built from: Level 1 gather/scatter/axpy/dot over sparse vectors,
a plain CSR-based Level 2 SpMV (Dusmv) used as the reference path and for
unblocked tails, and the register-blocked SpMV inner loop (BlockMV) that is
the real SpMV kernel family of spec.md §4.3, operating directly on block-CSR
arrays rather than through any matrix type.

See http://www.netlib.org/blas/blast-forum/chapter3.pdf for the naming
convention these routines follow.
*/
package blas
