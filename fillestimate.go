package oski

import "golang.org/x/exp/rand"

// FillTable holds estimated fill ratios fill[r][c] for r in [1,R], c in
// [1,C], per spec.md §4.4. Indexing is 1-based in concept but 0-based in
// storage: Table[r-1][c-1].
type FillTable struct {
	R, C           int
	Table          [][]float64
	RowsConsidered int // total sampled block-rows across all r, for bias diagnostics
}

// At returns fill[r][c] (1-based r, c).
func (f *FillTable) At(r, c int) float64 {
	return f.Table[r-1][c-1]
}

// EstimateFill estimates, for every candidate block size (r, c) with
// 1 <= r <= maxR and 1 <= c <= maxC, the fill ratio a BCSR conversion at
// that size would induce, per spec.md §4.4. p is the per-block-row sampling
// probability; p=1 samples every block-row but is still an estimate, not an
// exact fill, because leftover rows (m mod r) are always excluded (§9 Open
// Question 1, resolved in SPEC_FULL.md: excluded from both the sampled
// block-row count and nnz_sampled, for every r).
func EstimateFill(a *CSR, maxR, maxC int, p float64, rng *rand.Rand) (*FillTable, error) {
	const op = "oski.EstimateFill"
	if maxR <= 0 || maxC <= 0 {
		return nil, newError(op, BadArg, "maxR, maxC must be positive, got (%d, %d)", maxR, maxC)
	}
	if p <= 0 || p > 1 {
		return nil, newError(op, BadArg, "sampling probability must be in (0, 1], got %v", p)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	m, n := a.Dims()
	base := a.Base()
	ind := a.RawInd()

	table := make([][]float64, maxR)
	totalRowsConsidered := 0

	for r := 1; r <= maxR; r++ {
		M := m / r
		nnzSampled := 0
		blocksSampledByC := make([]int, maxC+1) // 1-based c
		blockRowsSampled := 0

		for I := 0; I < M; I++ {
			if rng.Float64() >= p {
				continue
			}
			blockRowsSampled++
			nnzInBlockRow := 0
			for di := 0; di < r; di++ {
				lo, hi := a.RowRange(I*r + di)
				nnzInBlockRow += hi - lo
			}
			nnzSampled += nnzInBlockRow

			for c := 1; c <= maxC; c++ {
				nBlockCols := (n + c - 1) / c
				if nBlockCols == 0 {
					nBlockCols = 1
				}
				visited := make([]bool, nBlockCols)
				touched := 0
				for di := 0; di < r; di++ {
					lo, hi := a.RowRange(I*r + di)
					for k := lo; k < hi; k++ {
						J := (ind[k] - base) / c
						if !visited[J] {
							visited[J] = true
							touched++
						}
					}
				}
				blocksSampledByC[c] += touched
			}
		}
		totalRowsConsidered += blockRowsSampled

		row := make([]float64, maxC)
		for c := 1; c <= maxC; c++ {
			blocks := blocksSampledByC[c]
			switch {
			case nnzSampled == 0 && blocks == 0:
				row[c-1] = 1
			case nnzSampled == 0:
				row[c-1] = posInf
			default:
				row[c-1] = float64(r*c*blocks) / float64(nnzSampled)
			}
		}
		table[r-1] = row
	}

	return &FillTable{R: maxR, C: maxC, Table: table, RowsConsidered: totalRowsConsidered}, nil
}

const posInf = 1e308 // stand-in "+inf" per spec.md §4.4, keeps ordering total without importing math.Inf everywhere

// FillAt11IsOne is a documented invariant (spec.md §8): fill[1,1] == 1.0
// always, since a 1x1 "block" never introduces any stored zero. Callers
// relying on this should still compute it through EstimateFill; this helper
// exists only to make the invariant easy to assert in tests.
func FillAt11IsOne(f *FillTable) bool {
	return f.At(1, 1) == 1.0
}
