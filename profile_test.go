package oski

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writeFile %s: %v", path, err)
	}
}

func TestParseProfileValid(t *testing.T) {
	text := `# comment
1 1 1 500.0
1 2 1 600.0
2 1 1 650.0
2 2 1 700.0
`
	p, err := ParseProfile(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if p.MaxR != 2 || p.MaxC != 2 {
		t.Fatalf("dims = (%d,%d), want (2,2)", p.MaxR, p.MaxC)
	}
	if p.At(1, 1) != 500.0 || p.At(2, 2) != 700.0 {
		t.Errorf("unexpected perf values: %+v", p.Perf)
	}
}

func TestParseProfileSkipsNonSpMVEntries(t *testing.T) {
	text := `1 1 1 500.0
1 1 2 999.0
2 2 1 700.0
`
	p, err := ParseProfile(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if p.At(1, 1) != 500.0 {
		t.Errorf("v=2 entry should have been ignored, got At(1,1)=%v", p.At(1, 1))
	}
	// (1,2) and (2,1) were never mentioned with v=1; must fall back to the
	// minimum observed SpMV performance, not zero.
	if p.At(1, 2) != 500.0 {
		t.Errorf("unseen cell should fall back to min observed perf 500.0, got %v", p.At(1, 2))
	}
}

func TestParseProfileMalformedLine(t *testing.T) {
	if _, err := ParseProfile(strings.NewReader("1 1 1\n")); err == nil {
		t.Fatal("expected Syntax error for short line")
	}
	if _, err := ParseProfile(strings.NewReader("x 1 1 500.0\n")); err == nil {
		t.Fatal("expected Syntax error for non-numeric field")
	}
	if _, err := ParseProfile(strings.NewReader("# only comments\n")); err == nil {
		t.Fatal("expected Syntax error for no SpMV entries")
	}
}

func TestFlatProfileUniform(t *testing.T) {
	p := FlatProfile(3, 4)
	if p.MaxR != 3 || p.MaxC != 4 {
		t.Fatalf("dims = (%d,%d), want (3,4)", p.MaxR, p.MaxC)
	}
	for r := 1; r <= 3; r++ {
		for c := 1; c <= 4; c++ {
			if p.At(r, c) != 1 {
				t.Errorf("FlatProfile(%d,%d) = %v, want 1", r, c, p.At(r, c))
			}
		}
	}
}

func TestLoadProfileMissingFileFallsBackToFlat(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadProfile(dir, "BCSR", "int", "float64", 3, 3)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.MaxR != 3 || p.MaxC != 3 || p.At(2, 2) != 1 {
		t.Errorf("expected flat fallback profile, got %+v", p)
	}
}

func TestLoadProfileEmptyDirFallsBackToFlat(t *testing.T) {
	p, err := LoadProfile("", "BCSR", "int", "float64", 2, 2)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.At(1, 1) != 1 {
		t.Errorf("expected flat profile for empty dir")
	}
}

func TestLoadProfileReadsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, profileFileName("BCSR", "int", "float64")), "1 1 1 123.0\n2 2 1 456.0\n")
	p, err := LoadProfile(dir, "BCSR", "int", "float64", 2, 2)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.At(1, 1) != 123.0 || p.At(2, 2) != 456.0 {
		t.Errorf("unexpected loaded profile: %+v", p.Perf)
	}
}

func TestProfileFileName(t *testing.T) {
	got := profileFileName("BCSR", "int", "float64")
	want := "BCSR_int_float64.prof"
	if got != want {
		t.Errorf("profileFileName = %q, want %q", got, want)
	}
}
