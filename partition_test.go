package oski

import "testing"

func TestPartitionOneDCoversAllRowsDisjoint(t *testing.T) {
	a := blockFriendlyCSR(t)
	parts, err := PartitionOneD(a, 2)
	if err != nil {
		t.Fatalf("PartitionOneD: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d partitions, want 2", len(parts))
	}
	if parts[0].RowStart != 0 || parts[len(parts)-1].RowEnd != 4 {
		t.Errorf("partitions don't span [0,4): %+v", parts)
	}
	for i := 1; i < len(parts); i++ {
		if parts[i].RowStart != parts[i-1].RowEnd {
			t.Errorf("gap/overlap between partition %d and %d: %+v, %+v", i-1, i, parts[i-1], parts[i])
		}
	}
	nnzSum := 0
	for _, p := range parts {
		nnzSum += p.Sub.NNZ()
	}
	if nnzSum != a.NNZ() {
		t.Errorf("partitioned nnz sum = %d, want %d", nnzSum, a.NNZ())
	}
}

func TestPartitionOneDEveryPartitionHasARow(t *testing.T) {
	a := blockFriendlyCSR(t)
	parts, err := PartitionOneD(a, 4)
	if err != nil {
		t.Fatalf("PartitionOneD: %v", err)
	}
	if len(parts) != 4 {
		t.Fatalf("got %d partitions, want 4", len(parts))
	}
	for _, p := range parts {
		if p.RowEnd <= p.RowStart {
			t.Errorf("partition %d has no rows: %+v", p.Index, p)
		}
	}
}

func TestPartitionOneDClampsToRowCount(t *testing.T) {
	a := blockFriendlyCSR(t)
	parts, err := PartitionOneD(a, 100)
	if err != nil {
		t.Fatalf("PartitionOneD: %v", err)
	}
	if len(parts) != 4 {
		t.Errorf("got %d partitions, want 4 (clamped to nrows)", len(parts))
	}
}

func TestPartitionSemiOneDCanStraddleARow(t *testing.T) {
	a := blockFriendlyCSR(t)
	parts, err := PartitionSemiOneD(a, 2)
	if err != nil {
		t.Fatalf("PartitionSemiOneD: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d partitions, want 2", len(parts))
	}
	straddles := false
	for i := 1; i < len(parts); i++ {
		if parts[i].RowStart < parts[i-1].RowEnd-1 {
			t.Fatalf("unexpected gap/backwards overlap: %+v, %+v", parts[i-1], parts[i])
		}
		if parts[i].RowStart == parts[i-1].RowEnd-1 {
			straddles = true
		}
	}
	if !straddles {
		t.Error("expected at least one straddled boundary row for this fixture")
	}
	nnzSum := 0
	for _, p := range parts {
		nnzSum += p.NNZEnd - p.NNZStart
	}
	if nnzSum != a.NNZ() {
		t.Errorf("nnz sum = %d, want %d", nnzSum, a.NNZ())
	}
}

func TestPartitionSemiOneDRoughlyBalancedNNZ(t *testing.T) {
	a := blockFriendlyCSR(t)
	parts, err := PartitionSemiOneD(a, 5)
	if err != nil {
		t.Fatalf("PartitionSemiOneD: %v", err)
	}
	for _, p := range parts {
		if p.NNZEnd-p.NNZStart > 2 {
			t.Errorf("partition %d owns %d nnz, expected <=2 for p=5,nnz=5", p.Index, p.NNZEnd-p.NNZStart)
		}
	}
}

func TestPartitionTypeOverlapping(t *testing.T) {
	if OneD.Overlapping(Normal) {
		t.Error("OneD-normal must not require reduction")
	}
	if !OneD.Overlapping(Trans) {
		t.Error("OneD-transpose must require reduction")
	}
	if !SemiOneD.Overlapping(Normal) {
		t.Error("SemiOneD always requires reduction")
	}
}

func TestAdjustThreadCount(t *testing.T) {
	if got := AdjustThreadCount(OneD, 8, 4, 100); got != 4 {
		t.Errorf("OneD clamp: got %d, want 4", got)
	}
	if got := AdjustThreadCount(SemiOneD, 8, 4, 3); got != 3 {
		t.Errorf("SemiOneD clamp: got %d, want 3", got)
	}
	if got := AdjustThreadCount(OneD, 2, 10, 100); got != 2 {
		t.Errorf("no clamp needed: got %d, want 2", got)
	}
}

func TestAdjustPartitionCountRoundsDown(t *testing.T) {
	if got := AdjustPartitionCount(10, 4); got != 8 {
		t.Errorf("AdjustPartitionCount(10,4) = %d, want 8 (round down, never up)", got)
	}
	if got := AdjustPartitionCount(4, 4); got != 4 {
		t.Errorf("AdjustPartitionCount(4,4) = %d, want 4", got)
	}
	if got := AdjustPartitionCount(3, 4); got != 4 {
		t.Errorf("AdjustPartitionCount(3,4) = %d, want 4 (floor to nthreads)", got)
	}
}
