package riichi

// yakuContext is everything a checker may look at: the scoring flags, one
// grouping of the hand, and the kind counts over every tile including melds
// and the winning tile.
type yakuContext struct {
	win      WinContext
	groups   []group
	wait     waitShape
	chiitoi  bool
	kokushi  bool
	// kokushi13 marks the thirteen-sided kokushi wait.
	kokushi13 bool
	menzen    bool
	winKind   Kind
	allKinds  Counts
}

// yakuEntry is one registered check. Normal entries return han with the
// open-hand reduction already applied; yakuman entries return units.
type yakuEntry struct {
	name  string
	check func(*yakuContext) int
}

func (yc *yakuContext) setsOf(pred func(Kind) bool) int {
	n := 0
	for _, g := range yc.groups {
		if (g.typ == groupTriplet || g.typ == groupKan) && pred(g.kind) {
			n++
		}
	}
	return n
}

func (yc *yakuContext) concealedSets() int {
	n := 0
	for _, g := range yc.groups {
		if (g.typ == groupTriplet || g.typ == groupKan) && !g.open && !g.ronOpen {
			n++
		}
	}
	return n
}

func (yc *yakuContext) kans() int {
	n := 0
	for _, g := range yc.groups {
		if g.typ == groupKan {
			n++
		}
	}
	return n
}

func (yc *yakuContext) runs() int {
	n := 0
	for _, g := range yc.groups {
		if g.typ == groupRun {
			n++
		}
	}
	return n
}

func (yc *yakuContext) runAt(k Kind) bool {
	for _, g := range yc.groups {
		if g.typ == groupRun && g.kind == k {
			return true
		}
	}
	return false
}

func (yc *yakuContext) pairKind() (Kind, bool) {
	for _, g := range yc.groups {
		if g.typ == groupPair {
			return g.kind, true
		}
	}
	return 0, false
}

func (yc *yakuContext) hasSetOf(k Kind) bool {
	for _, g := range yc.groups {
		if (g.typ == groupTriplet || g.typ == groupKan) && g.kind == k {
			return true
		}
	}
	return false
}

// suitShape reports how many number suits appear and whether honors do.
func (yc *yakuContext) suitShape() (suits int, honors bool) {
	var seen [3]bool
	for k := Kind(0); k < NumKinds; k++ {
		if yc.allKinds[k] == 0 {
			continue
		}
		if k.IsHonor() {
			honors = true
		} else if !seen[k.Suit()] {
			seen[k.Suit()] = true
			suits++
		}
	}
	return suits, honors
}

func (yc *yakuContext) isYakuhaiKind(k Kind) bool {
	return k.IsDragon() || k == yc.win.SeatWind.Kind() || k == yc.win.RoundWind.Kind()
}

// pinfuShape is shared by the pinfu checker and the fu calculation: four
// runs, a valueless pair, and an open-ended wait on a closed hand.
func pinfuShape(yc *yakuContext) bool {
	if !yc.menzen || yc.chiitoi || yc.kokushi || yc.wait != waitRyanmen {
		return false
	}
	if yc.runs() != 4 {
		return false
	}
	pk, ok := yc.pairKind()
	return ok && !yc.isYakuhaiKind(pk)
}

// dupRunPairs counts identical-run pairs for iipeikou and ryanpeikou.
func dupRunPairs(yc *yakuContext) int {
	if !yc.menzen {
		return 0
	}
	var runCount [NumKinds]int
	for _, g := range yc.groups {
		if g.typ == groupRun {
			runCount[g.kind]++
		}
	}
	pairs := 0
	for _, n := range runCount {
		pairs += n / 2
	}
	return pairs
}

func openAdjusted(yc *yakuContext, closed int) int {
	if yc.menzen {
		return closed
	}
	return closed - 1
}

var greenKinds = map[Kind]bool{
	Sou2: true, Sou3: true, Sou4: true, Sou6: true, Sou8: true, Hatsu: true,
}

func allKindsMatch(yc *yakuContext, pred func(Kind) bool) bool {
	for k := Kind(0); k < NumKinds; k++ {
		if yc.allKinds[k] > 0 && !pred(k) {
			return false
		}
	}
	return true
}

// yakumanRegistry holds the limit hands. Units stack across entries.
var yakumanRegistry = []yakuEntry{
	{"tenhou", func(yc *yakuContext) int {
		if yc.win.Tenhou {
			return 1
		}
		return 0
	}},
	{"chihou", func(yc *yakuContext) int {
		if yc.win.Chihou {
			return 1
		}
		return 0
	}},
	{"kokushi musou", func(yc *yakuContext) int {
		if !yc.kokushi {
			return 0
		}
		if yc.kokushi13 {
			return 2
		}
		return 1
	}},
	{"suuankou", func(yc *yakuContext) int {
		if yc.chiitoi || yc.kokushi || yc.concealedSets() != 4 {
			return 0
		}
		if yc.wait == waitTanki {
			return 2
		}
		return 1
	}},
	{"daisangen", func(yc *yakuContext) int {
		if yc.setsOf(Kind.IsDragon) == 3 {
			return 1
		}
		return 0
	}},
	{"daisuushii", func(yc *yakuContext) int {
		if yc.setsOf(Kind.IsWind) == 4 {
			return 2
		}
		return 0
	}},
	{"shousuushii", func(yc *yakuContext) int {
		if yc.setsOf(Kind.IsWind) != 3 {
			return 0
		}
		if pk, ok := yc.pairKind(); ok && pk.IsWind() {
			return 1
		}
		return 0
	}},
	{"tsuuiisou", func(yc *yakuContext) int {
		if !yc.kokushi && allKindsMatch(yc, Kind.IsHonor) {
			return 1
		}
		return 0
	}},
	{"chinroutou", func(yc *yakuContext) int {
		if allKindsMatch(yc, Kind.IsTerminal) {
			return 1
		}
		return 0
	}},
	{"ryuuiisou", func(yc *yakuContext) int {
		if allKindsMatch(yc, func(k Kind) bool { return greenKinds[k] }) {
			return 1
		}
		return 0
	}},
	{"chuuren poutou", checkChuuren},
	{"suukantsu", func(yc *yakuContext) int {
		if yc.kans() == 4 {
			return 1
		}
		return 0
	}},
}

func checkChuuren(yc *yakuContext) int {
	if !yc.menzen || yc.chiitoi || yc.kokushi || yc.kans() > 0 {
		return 0
	}
	suits, honors := yc.suitShape()
	if suits != 1 || honors {
		return 0
	}
	base := Kind(yc.winKind.Suit() * 9)
	junsei := true
	for n := 0; n < 9; n++ {
		want := uint8(1)
		if n == 0 || n == 8 {
			want = 3
		}
		have := yc.allKinds[base+Kind(n)]
		switch {
		case have == want:
		case have == want+1:
			if base+Kind(n) != yc.winKind {
				junsei = false
			}
		default:
			return 0
		}
	}
	// exactly one kind carries the extra copy
	total := 0
	for n := 0; n < 9; n++ {
		total += int(yc.allKinds[base+Kind(n)])
	}
	if total != 14 {
		return 0
	}
	if junsei {
		return 2
	}
	return 1
}

// yakuRegistry holds the regular hands in display order.
var yakuRegistry = []yakuEntry{
	{"riichi", func(yc *yakuContext) int {
		if yc.win.Riichi && !yc.win.Daburi {
			return 1
		}
		return 0
	}},
	{"double riichi", func(yc *yakuContext) int {
		if yc.win.Daburi {
			return 2
		}
		return 0
	}},
	{"ippatsu", func(yc *yakuContext) int {
		if yc.win.Ippatsu && yc.win.Riichi {
			return 1
		}
		return 0
	}},
	{"menzen tsumo", func(yc *yakuContext) int {
		if yc.win.Tsumo && yc.menzen {
			return 1
		}
		return 0
	}},
	{"pinfu", func(yc *yakuContext) int {
		if pinfuShape(yc) {
			return 1
		}
		return 0
	}},
	{"tanyao", func(yc *yakuContext) int {
		if allKindsMatch(yc, func(k Kind) bool { return !k.IsYaochuu() }) {
			return 1
		}
		return 0
	}},
	{"iipeikou", func(yc *yakuContext) int {
		if dupRunPairs(yc) == 1 {
			return 1
		}
		return 0
	}},
	{"ryanpeikou", func(yc *yakuContext) int {
		if dupRunPairs(yc) == 2 {
			return 3
		}
		return 0
	}},
	{"yakuhai haku", yakuhaiCheck(Haku)},
	{"yakuhai hatsu", yakuhaiCheck(Hatsu)},
	{"yakuhai chun", yakuhaiCheck(Chun)},
	{"seat wind", func(yc *yakuContext) int {
		if yc.hasSetOf(yc.win.SeatWind.Kind()) {
			return 1
		}
		return 0
	}},
	{"round wind", func(yc *yakuContext) int {
		if yc.hasSetOf(yc.win.RoundWind.Kind()) {
			return 1
		}
		return 0
	}},
	{"sanshoku doujun", func(yc *yakuContext) int {
		for n := 0; n <= 6; n++ {
			if yc.runAt(Kind(n)) && yc.runAt(Kind(9+n)) && yc.runAt(Kind(18+n)) {
				return openAdjusted(yc, 2)
			}
		}
		return 0
	}},
	{"sanshoku doukou", func(yc *yakuContext) int {
		for n := 0; n <= 8; n++ {
			if yc.hasSetOf(Kind(n)) && yc.hasSetOf(Kind(9+n)) && yc.hasSetOf(Kind(18+n)) {
				return 2
			}
		}
		return 0
	}},
	{"ittsu", func(yc *yakuContext) int {
		for s := 0; s < 3; s++ {
			base := Kind(s * 9)
			if yc.runAt(base) && yc.runAt(base+3) && yc.runAt(base+6) {
				return openAdjusted(yc, 2)
			}
		}
		return 0
	}},
	{"chanta", func(yc *yakuContext) int {
		if _, honors := yc.suitShape(); !honors {
			return 0
		}
		if !everyGroupYaochuu(yc) || yc.runs() == 0 {
			return 0
		}
		return openAdjusted(yc, 2)
	}},
	{"junchan", func(yc *yakuContext) int {
		if _, honors := yc.suitShape(); honors {
			return 0
		}
		if !everyGroupYaochuu(yc) || yc.runs() == 0 {
			return 0
		}
		return openAdjusted(yc, 3)
	}},
	{"honroutou", func(yc *yakuContext) int {
		if yc.runs() == 0 && allKindsMatch(yc, Kind.IsYaochuu) {
			return 2
		}
		return 0
	}},
	{"toitoi", func(yc *yakuContext) int {
		if !yc.chiitoi && yc.setsOf(func(Kind) bool { return true }) == 4 {
			return 2
		}
		return 0
	}},
	{"sanankou", func(yc *yakuContext) int {
		if yc.concealedSets() == 3 {
			return 2
		}
		return 0
	}},
	{"sankantsu", func(yc *yakuContext) int {
		if yc.kans() == 3 {
			return 2
		}
		return 0
	}},
	{"shousangen", func(yc *yakuContext) int {
		if yc.setsOf(Kind.IsDragon) != 2 {
			return 0
		}
		if pk, ok := yc.pairKind(); ok && pk.IsDragon() {
			return 2
		}
		return 0
	}},
	{"honitsu", func(yc *yakuContext) int {
		if suits, honors := yc.suitShape(); suits == 1 && honors {
			return openAdjusted(yc, 3)
		}
		return 0
	}},
	{"chinitsu", func(yc *yakuContext) int {
		if suits, honors := yc.suitShape(); suits == 1 && !honors {
			return openAdjusted(yc, 6)
		}
		return 0
	}},
	{"chiitoitsu", func(yc *yakuContext) int {
		if yc.chiitoi {
			return 2
		}
		return 0
	}},
	{"haitei", func(yc *yakuContext) int {
		if yc.win.Haitei && yc.win.Tsumo {
			return 1
		}
		return 0
	}},
	{"houtei", func(yc *yakuContext) int {
		if yc.win.Houtei && !yc.win.Tsumo {
			return 1
		}
		return 0
	}},
	{"rinshan", func(yc *yakuContext) int {
		if yc.win.Rinshan && yc.win.Tsumo {
			return 1
		}
		return 0
	}},
	{"chankan", func(yc *yakuContext) int {
		if yc.win.Chankan {
			return 1
		}
		return 0
	}},
}

func yakuhaiCheck(k Kind) func(*yakuContext) int {
	return func(yc *yakuContext) int {
		if yc.hasSetOf(k) {
			return 1
		}
		return 0
	}
}

// everyGroupYaochuu reports whether each block touches a terminal or honor:
// runs must start at 1 or end at 9, sets and the pair must be yaochuu.
func everyGroupYaochuu(yc *yakuContext) bool {
	for _, g := range yc.groups {
		if g.typ == groupRun {
			if n := g.kind.Number(); n != 1 && n != 7 {
				return false
			}
			continue
		}
		if !g.kind.IsYaochuu() {
			return false
		}
	}
	return true
}
