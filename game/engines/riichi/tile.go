package riichi

import "sort"

// Kind identifies one of the 34 tile types.
type Kind int

const (
	// characters (man)
	Man1 Kind = iota
	Man2
	Man3
	Man4
	Man5
	Man6
	Man7
	Man8
	Man9

	// circles (pin)
	Pin1
	Pin2
	Pin3
	Pin4
	Pin5
	Pin6
	Pin7
	Pin8
	Pin9

	// bamboo (sou)
	Sou1
	Sou2
	Sou3
	Sou4
	Sou5
	Sou6
	Sou7
	Sou8
	Sou9

	// winds and dragons
	East
	South
	West
	North
	Haku
	Hatsu
	Chun
)

const (
	NumKinds   = 34
	TotalTiles = 136
)

// Tile is one physical tile, an integer in [0,135]. Four consecutive IDs
// share a kind, so kind = tile/4 and the copy index = tile%4. Individual
// copies stay distinguishable through discards and melds.
type Tile int

// NoTile marks an absent tile in records that carry an optional one.
const NoTile Tile = -1

func (t Tile) Kind() Kind     { return Kind(t / 4) }
func (t Tile) CopyIndex() int { return int(t) % 4 }
func (t Tile) Valid() bool    { return t >= 0 && t < TotalTiles }

func (t Tile) String() string {
	if !t.Valid() {
		return "??"
	}
	return t.Kind().String()
}

// TileOf returns the physical tile with the given kind and copy index.
func TileOf(k Kind, copy int) Tile { return Tile(int(k)*4 + copy) }

func (k Kind) IsNumber() bool { return k >= Man1 && k <= Sou9 }
func (k Kind) IsHonor() bool  { return k >= East && k <= Chun }
func (k Kind) IsWind() bool   { return k >= East && k <= North }
func (k Kind) IsDragon() bool { return k >= Haku && k <= Chun }

// Suit returns 0/1/2 for man/pin/sou and -1 for honors.
func (k Kind) Suit() int {
	switch {
	case k >= Man1 && k <= Man9:
		return 0
	case k >= Pin1 && k <= Pin9:
		return 1
	case k >= Sou1 && k <= Sou9:
		return 2
	default:
		return -1
	}
}

// Number returns the 1-9 face value of a number tile, 0 for honors.
func (k Kind) Number() int {
	if !k.IsNumber() {
		return 0
	}
	return int(k)%9 + 1
}

func (k Kind) IsTerminal() bool {
	n := k.Number()
	return n == 1 || n == 9
}

// IsYaochuu reports whether the kind is a terminal or an honor.
func (k Kind) IsYaochuu() bool { return k.IsHonor() || k.IsTerminal() }

var kindNames = [NumKinds]string{
	"1m", "2m", "3m", "4m", "5m", "6m", "7m", "8m", "9m",
	"1p", "2p", "3p", "4p", "5p", "6p", "7p", "8p", "9p",
	"1s", "2s", "3s", "4s", "5s", "6s", "7s", "8s", "9s",
	"E", "S", "W", "N", "Hk", "Ht", "Ch",
}

func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return "??"
	}
	return kindNames[k]
}

// yaochuuKinds lists the 13 terminal/honor kinds, in kind order. Used for
// kyuushu kyuuhai and kokushi checks.
var yaochuuKinds = [13]Kind{
	Man1, Man9, Pin1, Pin9, Sou1, Sou9,
	East, South, West, North, Haku, Hatsu, Chun,
}

// Wind is a seat or round wind.
type Wind int

const (
	WindEast Wind = iota
	WindSouth
	WindWest
	WindNorth
)

// Kind maps a wind to its tile kind.
func (w Wind) Kind() Kind { return East + Kind(w) }

func (w Wind) Next() Wind { return (w + 1) % 4 }

func (w Wind) String() string {
	switch w {
	case WindEast:
		return "east"
	case WindSouth:
		return "south"
	case WindWest:
		return "west"
	case WindNorth:
		return "north"
	default:
		return "unknown"
	}
}

// Counts is the 34-format histogram of a tile set.
type Counts [NumKinds]uint8

func CountsOf(tiles ...Tile) Counts {
	var c Counts
	for _, t := range tiles {
		if t.Valid() {
			c[t.Kind()]++
		}
	}
	return c
}

func (c Counts) Total() int {
	n := 0
	for i := 0; i < NumKinds; i++ {
		n += int(c[i])
	}
	return n
}

func sortTiles(ts []Tile) {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
}

func cloneTiles(ts []Tile) []Tile {
	if ts == nil {
		return nil
	}
	out := make([]Tile, len(ts))
	copy(out, ts)
	return out
}
