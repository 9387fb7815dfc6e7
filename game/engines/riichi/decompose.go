package riichi

// groupType classifies one block of a decomposed winning hand.
type groupType int

const (
	groupRun groupType = iota
	groupTriplet
	groupKan
	groupPair
)

// group is one block: a run is identified by its lowest kind.
type group struct {
	typ  groupType
	kind Kind
	open bool
	// ronOpen marks the triplet completed by the claimed tile itself,
	// which counts as open for fu and concealed-triplet yaku.
	ronOpen bool
}

// waitShape is the shape the winning tile completed, for fu.
type waitShape int

const (
	waitRyanmen waitShape = iota
	waitShanpon
	waitKanchan
	waitPenchan
	waitTanki
)

func (w waitShape) fu() int {
	switch w {
	case waitKanchan, waitPenchan, waitTanki:
		return 2
	default:
		return 0
	}
}

// decomposeStandard splits the concealed counts into a pair plus runs and
// triplets, returning every distinct grouping. Empty result means the counts
// do not form a standard winning shape.
func decomposeStandard(c Counts) [][]group {
	var out [][]group
	for k := Kind(0); k < NumKinds; k++ {
		if c[k] < 2 {
			continue
		}
		c[k] -= 2
		var sets []group
		collectSets(&c, 0, &sets, func(sets []group) {
			groups := make([]group, 0, len(sets)+1)
			groups = append(groups, group{typ: groupPair, kind: k})
			groups = append(groups, sets...)
			out = append(out, groups)
		})
		c[k] += 2
	}
	return out
}

// collectSets enumerates every split of the counts into runs and triplets.
// Branching only at the first occupied kind keeps each grouping unique.
func collectSets(c *Counts, start int, sets *[]group, emit func([]group)) {
	i := start
	for i < int(NumKinds) && c[i] == 0 {
		i++
	}
	if i == int(NumKinds) {
		emit(append([]group(nil), *sets...))
		return
	}
	k := Kind(i)
	if c[i] >= 3 {
		c[i] -= 3
		*sets = append(*sets, group{typ: groupTriplet, kind: k})
		collectSets(c, i, sets, emit)
		*sets = (*sets)[:len(*sets)-1]
		c[i] += 3
	}
	if sequenceFits(i) && c[i+1] > 0 && c[i+2] > 0 {
		c[i]--
		c[i+1]--
		c[i+2]--
		*sets = append(*sets, group{typ: groupRun, kind: k})
		collectSets(c, i, sets, emit)
		*sets = (*sets)[:len(*sets)-1]
		c[i]++
		c[i+1]++
		c[i+2]++
	}
}

// candidate is one scoring interpretation: a full grouping of the hand plus
// the block and shape the win tile completed.
type candidate struct {
	groups []group
	wait   waitShape
	// winGroup indexes the block holding the win tile.
	winGroup int
	chiitoi  bool
	kokushi  bool
}

// meldGroups maps called melds onto scoring blocks.
func meldGroups(melds []Meld) []group {
	out := make([]group, 0, len(melds))
	for _, m := range melds {
		switch m.Kind {
		case MeldChi:
			out = append(out, group{typ: groupRun, kind: lowestRunKind(m), open: true})
		case MeldPon:
			out = append(out, group{typ: groupTriplet, kind: m.TileKind(), open: true})
		case MeldOpenKan, MeldAddedKan:
			out = append(out, group{typ: groupKan, kind: m.TileKind(), open: true})
		case MeldClosedKan:
			out = append(out, group{typ: groupKan, kind: m.TileKind()})
		}
	}
	return out
}

func lowestRunKind(m Meld) Kind {
	low := m.Tiles[0].Kind()
	for _, t := range m.Tiles[1:] {
		if k := t.Kind(); k < low {
			low = k
		}
	}
	return low
}

// runWaitShape classifies how winKind completes the run starting at low.
func runWaitShape(low, winKind Kind) waitShape {
	switch winKind {
	case low + 1:
		return waitKanchan
	case low:
		if low.Number() == 7 {
			return waitPenchan // 89 waiting 7
		}
		return waitRyanmen
	default: // low + 2
		if low.Number() == 1 {
			return waitPenchan // 12 waiting 3
		}
		return waitRyanmen
	}
}

// winCandidates enumerates every scoring interpretation of a standard win.
// The concealed counts include the winning tile; tsumo keeps a completed
// triplet concealed, ron does not.
func winCandidates(concealed Counts, melds []Meld, winKind Kind, tsumo bool) []candidate {
	fixed := meldGroups(melds)
	var out []candidate
	for _, dec := range decomposeStandard(concealed) {
		groups := make([]group, 0, len(dec)+len(fixed))
		groups = append(groups, dec...)
		groups = append(groups, fixed...)
		for i, g := range dec {
			if g.open {
				continue
			}
			switch g.typ {
			case groupPair:
				if g.kind == winKind {
					out = append(out, candidate{groups: groups, wait: waitTanki, winGroup: i})
				}
			case groupTriplet:
				if g.kind == winKind {
					cnd := candidate{groups: groups, wait: waitShanpon, winGroup: i}
					if !tsumo {
						cnd.groups = append([]group(nil), groups...)
						cnd.groups[i].ronOpen = true
					}
					out = append(out, cnd)
				}
			case groupRun:
				if winKind >= g.kind && winKind <= g.kind+2 && winKind.Suit() == g.kind.Suit() {
					out = append(out, candidate{
						groups:   groups,
						wait:     runWaitShape(g.kind, winKind),
						winGroup: i,
					})
				}
			}
		}
	}
	return out
}
