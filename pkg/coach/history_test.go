package coach

import "testing"

func TestHistoryEviction(t *testing.T) {
	h := NewHistory(3)

	for i := 0; i < 5; i++ {
		h.Append(float64(i) / 10)
	}

	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Oldest entries were evicted; sequence stays monotonic.
	if entries[0].Seq != 2 || entries[2].Seq != 4 {
		t.Errorf("unexpected sequence range %d..%d", entries[0].Seq, entries[2].Seq)
	}
}

func TestHistoryPercentScaling(t *testing.T) {
	h := NewHistory(10)
	e := h.Append(0.913)
	if e.ConfidencePercent != 91.3 {
		t.Errorf("expected 91.3, got %v", e.ConfidencePercent)
	}
}

func TestHistoryClearResetsSequence(t *testing.T) {
	h := NewHistory(10)
	h.Append(0.5)
	h.Append(0.6)

	h.Clear()
	if h.Len() != 0 {
		t.Errorf("expected empty history, got %d", h.Len())
	}

	e := h.Append(0.7)
	if e.Seq != 0 {
		t.Errorf("expected sequence restart at 0, got %d", e.Seq)
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistoryCapacity+10; i++ {
		h.Append(0.5)
	}
	if h.Len() != DefaultHistoryCapacity {
		t.Errorf("expected capacity %d, got %d", DefaultHistoryCapacity, h.Len())
	}
}
