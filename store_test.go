package pregel

import "testing"

type storeTestValue struct {
	Count int
	Label string
}

func TestUnmanagedStoreGetSet(t *testing.T) {
	s := newVertexStore[string, storeTestValue](false)

	if _, ok := s.get("a"); ok {
		t.Fatalf("get on empty store should report not-ok")
	}

	s.set("a", storeTestValue{Count: 1, Label: "x"})
	got, ok := s.get("a")
	if !ok || got.Count != 1 || got.Label != "x" {
		t.Fatalf("get(\"a\") = %+v, %v, want {1 x}, true", got, ok)
	}
}

func TestManagedStoreRoundTripsThroughGob(t *testing.T) {
	s := newVertexStore[string, storeTestValue](true)

	s.set("a", storeTestValue{Count: 7, Label: "y"})
	got, ok := s.get("a")
	if !ok || got.Count != 7 || got.Label != "y" {
		t.Fatalf("get(\"a\") = %+v, %v, want {7 y}, true", got, ok)
	}
}

func TestManagedStoreValuesAreIndependentCopies(t *testing.T) {
	s := newVertexStore[string, storeTestValue](true)
	s.set("a", storeTestValue{Count: 1})

	first, _ := s.get("a")
	first.Count = 999

	second, _ := s.get("a")
	if second.Count != 1 {
		t.Fatalf("mutating a decoded value leaked into the store: second.Count = %d, want 1", second.Count)
	}
}

func TestVertexStoreAllReturnsEverySetKey(t *testing.T) {
	for _, managed := range []bool{false, true} {
		s := newVertexStore[string, int](managed)
		s.set("a", 1)
		s.set("b", 2)

		all := s.all()
		if len(all) != 2 || all["a"] != 1 || all["b"] != 2 {
			t.Fatalf("managed=%v: all() = %v, want {a:1 b:2}", managed, all)
		}
	}
}
