package usecase

import (
	"fmt"
	"testing"
)

func TestDeduplicatorMarksAndChecks(t *testing.T) {
	d := NewDeduplicator(10)

	if d.IsProcessed("a") {
		t.Error("unmarked key reported processed")
	}
	d.MarkProcessed("a")
	if !d.IsProcessed("a") {
		t.Error("marked key not reported processed")
	}

	// Re-marking is idempotent.
	d.MarkProcessed("a")
	if d.Len() != 1 {
		t.Errorf("Len = %d after duplicate mark, want 1", d.Len())
	}
}

func TestDeduplicatorBoundedEviction(t *testing.T) {
	d := NewDeduplicator(1000)

	for i := 0; i < 2000; i++ {
		d.MarkProcessed(fmt.Sprintf("evt-%d", i))
	}

	if d.Len() > 1001 {
		t.Errorf("Len = %d, want bounded near capacity", d.Len())
	}
	if !d.IsProcessed("evt-1999") {
		t.Error("most recent key was evicted")
	}
	if d.IsProcessed("evt-0") {
		t.Error("oldest key survived eviction")
	}
}
