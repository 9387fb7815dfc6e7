package riichi

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

const (
	deadWallSize  = 14
	handTiles     = 13
	dealtTiles    = 4 * handTiles // 52
	liveWallSize  = TotalTiles - dealtTiles - deadWallSize // 70
	maxKanDraws   = 4
	maxDoraShown  = 5
	deadLiveSplit = TotalTiles - deadWallSize // 122
)

// WallBuilder produces the full 136-tile ordering for a round. The same
// seed must always yield the same ordering.
type WallBuilder interface {
	BuildWall(seed []byte) [TotalTiles]Tile
}

// SeededWallBuilder is the default builder: SHA-256 of the seed feeds a
// Fisher-Yates permutation of the 136 tile IDs.
type SeededWallBuilder struct{}

func (SeededWallBuilder) BuildWall(seed []byte) [TotalTiles]Tile {
	sum := sha256.Sum256(seed)
	src := rand.NewSource(int64(binary.BigEndian.Uint64(sum[:8])))
	perm := rand.New(src).Perm(TotalTiles)

	var order [TotalTiles]Tile
	for i, v := range perm {
		order[i] = Tile(v)
	}
	return order
}

// Wall is the round's tile supply as a value type. The layout of the
// ordering is fixed: [0,52) initial hands, [52,122) live wall drawn from
// the head, [122,136) dead wall. Within the dead wall, indices 0-3 are
// the rinshan draws, 4+i the dora indicators and 9+i the ura indicators
// for reveal i. Every mutator returns a new value.
type Wall struct {
	order     [TotalTiles]Tile
	drawn     int
	rinshan   int
	doraShown int
}

// NewWall splits a built ordering into the four initial hands and the
// drawable wall. Hands come back sorted.
func NewWall(order [TotalTiles]Tile) (Wall, [4][]Tile) {
	var hands [4][]Tile
	for s := 0; s < 4; s++ {
		h := make([]Tile, handTiles)
		copy(h, order[s*handTiles:(s+1)*handTiles])
		sortTiles(h)
		hands[s] = h
	}
	return Wall{order: order, doraShown: 1}, hands
}

// Remaining is the number of live tiles still drawable. Each rinshan draw
// shortens the live wall by one so the dead wall stays at 14.
func (w Wall) Remaining() int {
	return liveWallSize - w.drawn - w.rinshan
}

// Draw takes the next live tile from the head of the wall.
func (w Wall) Draw() (Tile, Wall, bool) {
	if w.Remaining() <= 0 {
		return NoTile, w, false
	}
	t := w.order[dealtTiles+w.drawn]
	w.drawn++
	return t, w, true
}

// DrawRinshan takes a replacement tile from the dead wall after a kan.
func (w Wall) DrawRinshan() (Tile, Wall, bool) {
	if w.rinshan >= maxKanDraws || w.Remaining() <= 0 {
		return NoTile, w, false
	}
	t := w.order[deadLiveSplit+w.rinshan]
	w.rinshan++
	return t, w, true
}

// RevealDora flips the next dora indicator.
func (w Wall) RevealDora() (Tile, Wall, bool) {
	if w.doraShown >= maxDoraShown {
		return NoTile, w, false
	}
	w.doraShown++
	return w.order[deadLiveSplit+4+w.doraShown-1], w, true
}

// DoraIndicators returns the indicators revealed so far, in reveal order.
func (w Wall) DoraIndicators() []Tile {
	out := make([]Tile, w.doraShown)
	copy(out, w.order[deadLiveSplit+4:deadLiveSplit+4+w.doraShown])
	return out
}

// UraIndicators returns the ura indicators matching the revealed dora
// count. Only a riichi winner ever sees these.
func (w Wall) UraIndicators() []Tile {
	out := make([]Tile, w.doraShown)
	copy(out, w.order[deadLiveSplit+9:deadLiveSplit+9+w.doraShown])
	return out
}

func (w Wall) KansDrawn() int { return w.rinshan }

func (w Wall) DoraShown() int { return w.doraShown }

// CanRinshan reports whether a kan could still take its replacement draw.
func (w Wall) CanRinshan() bool {
	return w.rinshan < maxKanDraws && w.Remaining() > 0
}

// DoraFromIndicator maps an indicator kind to the kind it promotes:
// the next number in the suit wrapping 9 to 1, winds cycling E-S-W-N
// and dragons cycling Haku-Hatsu-Chun.
func DoraFromIndicator(ind Kind) Kind {
	switch {
	case ind.IsNumber():
		if ind.Number() == 9 {
			return ind - 8
		}
		return ind + 1
	case ind.IsWind():
		if ind == North {
			return East
		}
		return ind + 1
	default:
		if ind == Chun {
			return Haku
		}
		return ind + 1
	}
}
