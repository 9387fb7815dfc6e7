package riichi

// MeldKind distinguishes the five call shapes.
type MeldKind int

const (
	MeldChi MeldKind = iota
	MeldPon
	MeldOpenKan
	MeldClosedKan
	MeldAddedKan
)

func (k MeldKind) String() string {
	switch k {
	case MeldChi:
		return "chi"
	case MeldPon:
		return "pon"
	case MeldOpenKan:
		return "open_kan"
	case MeldClosedKan:
		return "closed_kan"
	case MeldAddedKan:
		return "added_kan"
	default:
		return "unknown"
	}
}

// Meld is an immutable called set. Tiles hold 3 or 4 physical IDs, Caller
// the calling seat, From the discarder (the caller itself for closed and
// added kan) and Called the tile that completed the set.
type Meld struct {
	Kind   MeldKind
	Tiles  []Tile
	Caller int
	From   int
	Called Tile
}

// Open reports whether the meld exposes the hand. Only the closed kan
// keeps the hand concealed.
func (m Meld) Open() bool { return m.Kind != MeldClosedKan }

func (m Meld) IsKan() bool {
	return m.Kind == MeldOpenKan || m.Kind == MeldClosedKan || m.Kind == MeldAddedKan
}

// TileKind returns the kind of a pon/kan set. For chi it is the called
// tile's kind.
func (m Meld) TileKind() Kind {
	if m.Kind == MeldChi {
		return m.Called.Kind()
	}
	if len(m.Tiles) == 0 {
		return -1
	}
	return m.Tiles[0].Kind()
}

func (m Meld) clone() Meld {
	m.Tiles = cloneTiles(m.Tiles)
	return m
}

func cloneMelds(ms []Meld) []Meld {
	if ms == nil {
		return nil
	}
	out := make([]Meld, len(ms))
	for i, m := range ms {
		out[i] = m.clone()
	}
	return out
}
