package oski

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RegisterProfile is a per-platform table perf[r][c] of measured dense
// block-SpMV throughput (Mflop/s, or an abstract score), per spec.md §4.5.
type RegisterProfile struct {
	MaxR, MaxC int
	Perf       [][]float64 // Perf[r-1][c-1]
}

// At returns perf[r][c] (1-based).
func (p *RegisterProfile) At(r, c int) float64 {
	if r < 1 || r > p.MaxR || c < 1 || c > p.MaxC {
		return 0
	}
	return p.Perf[r-1][c-1]
}

// FlatProfile returns a degenerate profile scoring every (r, c) equally, so
// the heuristic's ranking collapses to "lowest fill wins" when no measured
// profile is available. This keeps "skip if not applicable" semantics
// intact rather than failing outright (SPEC_FULL.md, C6).
func FlatProfile(maxR, maxC int) *RegisterProfile {
	perf := make([][]float64, maxR)
	for r := range perf {
		row := make([]float64, maxC)
		for c := range row {
			row[c] = 1
		}
		perf[r] = row
	}
	return &RegisterProfile{MaxR: maxR, MaxC: maxC, Perf: perf}
}

// ParseProfile reads the plain-text register profile format of spec.md §6:
// each non-comment line is "r c v mflops", where v=1 selects the SpMV
// profile (the only kernel this engine's heuristic currently scores; lines
// with a different v are skipped rather than rejected, since a profile file
// may carry entries for kernels - triangular solve, AtA - this engine does
// not implement).
func ParseProfile(r io.Reader) (*RegisterProfile, error) {
	const op = "oski.ParseProfile"
	scanner := bufio.NewScanner(r)
	maxR, maxC := 0, 0
	type entry struct {
		r, c int
		v    int
		perf float64
	}
	var entries []entry

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, newError(op, Syntax, "line %d: expected 4 fields, got %d", line, len(fields))
		}
		ri, err1 := strconv.Atoi(fields[0])
		ci, err2 := strconv.Atoi(fields[1])
		vi, err3 := strconv.Atoi(fields[2])
		perf, err4 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, newError(op, Syntax, "line %d: malformed entry %q", line, text)
		}
		if vi != 1 {
			continue
		}
		entries = append(entries, entry{ri, ci, vi, perf})
		if ri > maxR {
			maxR = ri
		}
		if ci > maxC {
			maxC = ci
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, newError(op, Syntax, "%v", err)
	}
	if maxR == 0 || maxC == 0 {
		return nil, newError(op, Syntax, "no SpMV (v=1) entries found")
	}

	profile := FlatProfile(maxR, maxC)
	for i := range profile.Perf {
		for j := range profile.Perf[i] {
			profile.Perf[i][j] = math.NaN() // mark unseen cells, filled below
		}
	}
	for _, e := range entries {
		profile.Perf[e.r-1][e.c-1] = e.perf
	}
	// Any (r,c) never mentioned in the file falls back to the minimum
	// observed performance, a conservative estimate that won't make an
	// untested block size look artificially attractive.
	minPerf := math.Inf(1)
	for _, e := range entries {
		if e.perf < minPerf {
			minPerf = e.perf
		}
	}
	for i := range profile.Perf {
		for j := range profile.Perf[i] {
			if math.IsNaN(profile.Perf[i][j]) {
				profile.Perf[i][j] = minPerf
			}
		}
	}
	return profile, nil
}

// profileFileName implements the naming convention of
// poski-v1.0.0/oski/oski-1.0.1h/src/heur/regprof/regprofmgr.c: one file per
// (matrix type, index type, value type) triple.
func profileFileName(matrixType, indexType, valueType string) string {
	return fmt.Sprintf("%s_%s_%s.prof", matrixType, indexType, valueType)
}

// LoadProfile loads the register profile for (matrixType, indexType,
// valueType) from dir. If the file does not exist, it returns a FlatProfile
// of size defaultMaxR x defaultMaxC rather than an error - a missing profile
// is common (no benchmarking run for this platform yet) and must not break
// tuning, only make it pick by fill ratio alone.
func LoadProfile(dir, matrixType, indexType, valueType string, defaultMaxR, defaultMaxC int) (*RegisterProfile, error) {
	const op = "oski.LoadProfile"
	if dir == "" {
		return FlatProfile(defaultMaxR, defaultMaxC), nil
	}
	path := filepath.Join(dir, profileFileName(matrixType, indexType, valueType))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FlatProfile(defaultMaxR, defaultMaxC), nil
		}
		return nil, newError(op, OutOfMemory, "opening %s: %v", path, err)
	}
	defer f.Close()
	return ParseProfile(f)
}
