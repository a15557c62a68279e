package ndm

import (
	"fmt"
	"testing"

	"github.com/dapol-go/dapol/dapolerr"
	"github.com/dapol-go/dapol/secret"
)

func testMaster() secret.Secret {
	var m secret.Secret
	m[0] = 0xAB
	return m
}

func TestPlaceIsCollisionFree(t *testing.T) {
	var ids [][]byte
	for i := 0; i < 50; i++ {
		ids = append(ids, []byte(fmt.Sprintf("entity-%d", i)))
	}
	p, err := Place(ids, testMaster(), 16)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if p.Len() != len(ids) {
		t.Fatalf("Len() = %d, want %d", p.Len(), len(ids))
	}

	seen := make(map[uint64]bool)
	for _, id := range ids {
		x, ok := p.IndexOf(id)
		if !ok {
			t.Fatalf("entity %q not placed", id)
		}
		if seen[x] {
			t.Fatalf("x-coordinate %d assigned to more than one entity", x)
		}
		seen[x] = true

		got, ok := p.EntityAt(x)
		if !ok || got != string(id) {
			t.Fatalf("EntityAt(%d) = %q, want %q", x, got, id)
		}
	}
}

func TestPlaceIsDeterministic(t *testing.T) {
	ids := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	m := testMaster()

	p1, err := Place(ids, m, 8)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Place(ids, m, 8)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range ids {
		x1, _ := p1.IndexOf(id)
		x2, _ := p2.IndexOf(id)
		if x1 != x2 {
			t.Errorf("placement of %q differs across identical runs: %d vs %d", id, x1, x2)
		}
	}
}

func TestPlaceIsOrderInvariantAsASet(t *testing.T) {
	ids := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	reversed := [][]byte{[]byte("c"), []byte("b"), []byte("a")}
	m := testMaster()

	p1, err := Place(ids, m, 8)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Place(reversed, m, 8)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range ids {
		x1, _ := p1.IndexOf(id)
		x2, _ := p2.IndexOf(id)
		if x1 != x2 {
			t.Errorf("placement of %q depends on input order: %d vs %d", id, x1, x2)
		}
	}
}

func TestPlaceRejectsInvalidHeight(t *testing.T) {
	_, err := Place([][]byte{[]byte("a")}, testMaster(), 0)
	if err == nil {
		t.Fatal("expected an error for height 0")
	}
	var derr *dapolerr.Error
	if e, ok := err.(*dapolerr.Error); !ok || e.Kind != dapolerr.HeightOutOfRange {
		t.Errorf("got %v (%T), want Kind HeightOutOfRange", err, derr)
	}
}
