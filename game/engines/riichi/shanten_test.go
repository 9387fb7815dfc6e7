package riichi

import "testing"

func counts(kinds ...Kind) Counts {
	var c Counts
	for _, k := range kinds {
		c[k]++
	}
	return c
}

func TestSearcher_KokushiShantenAndAgari(t *testing.T) {
	s := NewSearcher()

	// 13-sided kokushi tenpai: all 13 terminals/honors, no pair.
	h13 := counts(
		Man1, Man9, Pin1, Pin9, Sou1, Sou9,
		East, South, West, North, Haku, Hatsu, Chun,
	)
	if got := s.Shanten(h13, 0); got != 0 {
		t.Fatalf("kokushi shanten expected 0, got %d", got)
	}

	// Any duplicate completes it.
	h14 := h13
	h14[Man1]++
	if !s.IsWinning(h14, 0) {
		t.Fatalf("kokushi agari expected true")
	}

	// With a fixed meld the kokushi interpretation is off the table.
	if got := s.Shanten(h13, 1); got == 0 {
		t.Fatalf("kokushi shanten with melds should not be 0, got %d", got)
	}
}

func TestSearcher_ChiitoiShantenAndWaits(t *testing.T) {
	s := NewSearcher()

	// 6 pairs + 1 single => tenpai waiting on the single.
	h13 := counts(
		Man1, Man1, Man2, Man2, Man3, Man3,
		Pin1, Pin1, Pin2, Pin2, Sou1, Sou1,
		East,
	)
	if got := s.Shanten(h13, 0); got != 0 {
		t.Fatalf("chiitoi shanten expected 0, got %d", got)
	}
	waits := s.Waits(h13, 0)
	if len(waits) != 1 || waits[0] != East {
		t.Fatalf("chiitoi waits expected [East], got %v", waits)
	}

	h14 := h13
	h14[East]++
	if !s.IsWinning(h14, 0) {
		t.Fatalf("chiitoi agari expected true")
	}
}

func TestSearcher_NormalAgari(t *testing.T) {
	s := NewSearcher()

	// 123m 789m 123p 123s + EE
	h14 := counts(
		Man1, Man2, Man3, Man7, Man8, Man9,
		Pin1, Pin2, Pin3, Sou1, Sou2, Sou3,
		East, East,
	)
	if !s.IsWinning(h14, 0) {
		t.Fatalf("normal agari expected true")
	}

	// Same shape short a meld, with one fixed.
	h11 := counts(
		Man7, Man8, Man9,
		Pin1, Pin2, Pin3, Sou1, Sou2, Sou3,
		East, East,
	)
	if !s.IsWinning(h11, 1) {
		t.Fatalf("agari with one fixed meld expected true")
	}
}

func TestSearcher_RyanmenWaits(t *testing.T) {
	s := NewSearcher()

	// 123m 123p 123s 78m + EE waits 6m/9m.
	h13 := counts(
		Man1, Man2, Man3, Man7, Man8,
		Pin1, Pin2, Pin3, Sou1, Sou2, Sou3,
		East, East,
	)
	waits := s.Waits(h13, 0)
	seen := map[Kind]bool{}
	for _, w := range waits {
		seen[w] = true
	}
	if !seen[Man6] || !seen[Man9] || len(waits) != 2 {
		t.Fatalf("expected waits [6m 9m], got %v", waits)
	}
}

func TestSearcher_ShanponTenpai(t *testing.T) {
	s := NewSearcher()

	// 111m 222m 333m 44m 55m: tenpai on the 4m/5m shanpon.
	h13 := counts(
		Man1, Man1, Man1, Man2, Man2, Man2, Man3, Man3, Man3,
		Man4, Man4, Man5, Man5,
	)
	if got := s.Shanten(h13, 0); got != 0 {
		t.Fatalf("shanpon shanten expected 0, got %d", got)
	}
	waits := s.Waits(h13, 0)
	seen := map[Kind]bool{}
	for _, w := range waits {
		seen[w] = true
	}
	if !seen[Man4] || !seen[Man5] {
		t.Fatalf("expected waits to include 4m and 5m, got %v", waits)
	}
}

func TestSearcher_ShantenCounts(t *testing.T) {
	s := NewSearcher()

	cases := []struct {
		name  string
		hand  Counts
		melds int
		want  int
	}{
		{
			name: "one away from tenpai",
			// 123m 123p 123s 7m EE + S: trading the S for 8m would be tenpai
			hand: counts(
				Man1, Man2, Man3, Man7,
				Pin1, Pin2, Pin3, Sou1, Sou2, Sou3,
				East, East, South,
			),
			want: 1,
		},
		{
			name: "complete hand",
			hand: counts(
				Man1, Man2, Man3, Man7, Man8, Man9,
				Pin1, Pin2, Pin3, Sou1, Sou2, Sou3,
				East, East,
			),
			want: -1,
		},
		{
			name: "tenpai with fixed melds",
			// concealed 789m 123p E after two calls, tanki on the E
			hand:  counts(Man7, Man8, Man9, Pin1, Pin2, Pin3, East),
			melds: 2,
			want:  0,
		},
	}
	for _, tc := range cases {
		if got := s.Shanten(tc.hand, tc.melds); got != tc.want {
			t.Fatalf("%s: shanten expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
