package permission

import "testing"

func TestSetBasics(t *testing.T) {
	s := NewSet(3, 1, 2, 3, 1)
	if s.Len() != 3 {
		t.Fatalf("expected dedup to 3, got %d", s.Len())
	}
	if !s.Has(2) || s.Has(4) {
		t.Fatalf("Has misbehaved")
	}
	if !s.HasAny(9, 8, 1) || s.HasAny(9, 8) {
		t.Fatalf("HasAny misbehaved")
	}
	if got := s.IDs(); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("IDs not sorted: %v", got)
	}
}

func TestSetEqual(t *testing.T) {
	if !NewSet(1, 2).Equal(NewSet(2, 1)) {
		t.Fatalf("expected equal")
	}
	if NewSet(1, 2).Equal(NewSet(1, 3)) {
		t.Fatalf("expected not equal")
	}
	if !NewSet().Empty() {
		t.Fatalf("expected empty")
	}
}
