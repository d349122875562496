package blas

// Dusdot (Sparse dot product (r <- x^T*y)) computes the dot product of
// sparse vector x and dense vector y. indx gives the index values of x
// within y, incy the stride for y.
func Dusdot(x []float64, indx []int, y []float64, incy int) (dot float64) {
	for i, index := range indx {
		dot += x[i] * y[index*incy]
	}
	return
}
