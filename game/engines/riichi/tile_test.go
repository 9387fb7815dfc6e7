package riichi

import "testing"

func TestKindProperties(t *testing.T) {
	if Man5.Suit() != 0 || Pin5.Suit() != 1 || Sou5.Suit() != 2 || East.Suit() != -1 {
		t.Fatalf("suit mapping broken")
	}
	if Man1.Number() != 1 || Sou9.Number() != 9 || Chun.Number() != 0 {
		t.Fatalf("number mapping broken")
	}

	n := 0
	for k := Kind(0); k < NumKinds; k++ {
		if k.IsYaochuu() {
			n++
		}
	}
	if n != len(yaochuuKinds) {
		t.Fatalf("yaochuu kind count = %d, want %d", n, len(yaochuuKinds))
	}
	if Man2.IsYaochuu() || !Man9.IsYaochuu() || !Hatsu.IsYaochuu() {
		t.Fatalf("yaochuu membership broken")
	}
}

func TestTileKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{Man1, Pin9, Sou5, Chun} {
		for c := 0; c < 4; c++ {
			tile := TileOf(k, c)
			if tile.Kind() != k || tile.CopyIndex() != c {
				t.Fatalf("round trip failed for %v copy %d", k, c)
			}
		}
	}
}

func TestWindCycle(t *testing.T) {
	if WindEast.Kind() != East || WindNorth.Kind() != North {
		t.Fatalf("wind to kind mapping broken")
	}
	w := WindEast
	for i := 0; i < 4; i++ {
		w = w.Next()
	}
	if w != WindEast {
		t.Fatalf("wind cycle does not close")
	}
}
