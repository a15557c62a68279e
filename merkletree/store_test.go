package merkletree

import "testing"

func TestStoreInsertAndGet(t *testing.T) {
	s := NewStore(8)
	n := Node{Coord: Coordinate{X: 1, Y: 0}}
	s.Insert(n)

	got, ok := s.Get(n.Coord)
	if !ok || got.Coord != n.Coord {
		t.Fatalf("Get after Insert = (%v, %v), want (%v, true)", got, ok, n.Coord)
	}

	if _, ok := s.Get(Coordinate{X: 99, Y: 0}); ok {
		t.Errorf("Get on an unretained coordinate should return false")
	}
}

func TestStoreSealPreventsInsert(t *testing.T) {
	s := NewStore(8)
	s.Seal()

	defer func() {
		if recover() == nil {
			t.Errorf("expected Insert on a sealed store to panic")
		}
	}()
	s.Insert(Node{Coord: Coordinate{X: 0, Y: 0}})
}
