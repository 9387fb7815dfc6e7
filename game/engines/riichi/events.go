package riichi

// Broadcast is the fan-out target meaning "every seat".
const Broadcast = -1

// Event is a typed domain event produced by a transition.
type Event interface {
	EventType() string
}

// Routed pairs an event with its fan-out target: Broadcast or a seat.
type Routed struct {
	Target int
	Event  Event
}

func toSeat(seat int, ev Event) Routed { return Routed{Target: seat, Event: ev} }
func toAll(ev Event) Routed            { return Routed{Target: Broadcast, Event: ev} }

// GameStartedEvent opens a game. Broadcast once.
type GameStartedEvent struct {
	GameID string
	Seats  [4]SeatInfo
	Dealer int
}

func (GameStartedEvent) EventType() string { return "game_started" }

// RoundStartedEvent carries one seat's view of the fresh deal. Per-seat:
// the concealed hand must not leak to the other three.
type RoundStartedEvent struct {
	Seat          int
	Hand          []Tile
	Dealer        int
	Wind          Wind
	HandNum       int
	Honba         int
	Sticks        int
	DoraIndicator Tile
	Scores        [4]int
}

func (RoundStartedEvent) EventType() string { return "round_started" }

// DrawEvent goes to the drawing seat only.
type DrawEvent struct {
	Seat    int
	Tile    Tile
	Rinshan bool
}

func (DrawEvent) EventType() string { return "draw" }

// DiscardEvent is broadcast; the riichi flag marks the sideways tile.
type DiscardEvent struct {
	Seat      int
	Tile      Tile
	Tsumogiri bool
	Riichi    bool
}

func (DiscardEvent) EventType() string { return "discard" }

// CallKind orders call responses; smaller beats larger among melds, ron
// beats any meld.
type CallKind int

const (
	CallRon CallKind = iota
	CallOpenKan
	CallPon
	CallChi
	CallPass
)

func (k CallKind) String() string {
	switch k {
	case CallRon:
		return "ron"
	case CallOpenKan:
		return "kan"
	case CallPon:
		return "pon"
	case CallChi:
		return "chi"
	case CallPass:
		return "pass"
	default:
		return "unknown"
	}
}

// meldPriority ranks competing meld claims: open-kan 0, pon 1, chi 2.
func meldPriority(k CallKind) int {
	switch k {
	case CallOpenKan:
		return 0
	case CallPon:
		return 1
	case CallChi:
		return 2
	default:
		return 99
	}
}

// CallOption is one legal call offered to a seat.
type CallOption struct {
	Kind CallKind
	// Chi holds the explicit two-tile completions when Kind is CallChi.
	Chi [][2]Tile
}

// CallPromptEvent is delivered to each eligible caller with only its own
// options.
type CallPromptEvent struct {
	Seat      int
	Tile      Tile
	Discarder int
	Chankan   bool
	Options   []CallOption
}

func (CallPromptEvent) EventType() string { return "call_prompt" }

// MeldEvent is broadcast when a call is applied.
type MeldEvent struct {
	Meld Meld
}

func (MeldEvent) EventType() string { return "meld" }

// RiichiDeclaredEvent is broadcast when the declaration commits (the
// 1000-point stick moves to the pool).
type RiichiDeclaredEvent struct {
	Seat   int
	Daburi bool
	Score  int
	Sticks int
}

func (RiichiDeclaredEvent) EventType() string { return "riichi_declared" }

// DoraRevealedEvent is broadcast for the initial indicator's successors
// (kan dora).
type DoraRevealedEvent struct {
	Indicator Tile
	Count     int
}

func (DoraRevealedEvent) EventType() string { return "dora_revealed" }

// FuritenEvent tells a seat its effective furiten state flipped.
type FuritenEvent struct {
	Seat   int
	Active bool
}

func (FuritenEvent) EventType() string { return "furiten" }

// ResultType classifies a round outcome.
type ResultType string

const (
	ResultTsumo     ResultType = "tsumo"
	ResultRon       ResultType = "ron"
	ResultDoubleRon ResultType = "double_ron"
	ResultExhausted ResultType = "exhaustive_draw"
	ResultAbortive  ResultType = "abortive_draw"
	ResultNagashi   ResultType = "nagashi_mangan"
)

// Abortive draw reasons.
const (
	AbortFourWinds = "four_winds"
	AbortFourKans  = "four_kans"
	AbortTripleRon = "triple_ron"
	AbortKyuushu   = "kyuushu"
)

// YakuValue names one scored yaku and its han contribution.
type YakuValue struct {
	Name string
	Han  int
}

// WinResult is one winner's line in a round result.
type WinResult struct {
	Seat    int
	WinTile Tile
	Han     int
	Fu      int
	Yaku    []YakuValue
	Points  int // total received before stick pool
}

// RoundResult is the terminal record of a round. Winners are in seat
// order. Deltas already include honba and the stick pool.
type RoundResult struct {
	Type          ResultType
	Reason        string // abortive detail: four_winds, four_kans, triple_ron, kyuushu
	Winners       []WinResult
	Loser         int // discarder on ron/chankan, -1 otherwise
	Tenpai        [4]bool
	Deltas        [4]int
	Scores        [4]int
	DealerRotates bool
	HonbaNext     int
	SticksNext    int
	Ura           []Tile
}

func (r RoundResult) clone() RoundResult {
	if r.Winners != nil {
		w := make([]WinResult, len(r.Winners))
		copy(w, r.Winners)
		for i := range w {
			if w[i].Yaku != nil {
				y := make([]YakuValue, len(w[i].Yaku))
				copy(y, w[i].Yaku)
				w[i].Yaku = y
			}
		}
		r.Winners = w
	}
	r.Ura = cloneTiles(r.Ura)
	return r
}

// RoundEndEvent is broadcast with the full result.
type RoundEndEvent struct {
	Result RoundResult
}

func (RoundEndEvent) EventType() string { return "round_end" }

// Standing is one line of the final table.
type Standing struct {
	Rank  int
	Seat  int
	Name  string
	Score int
}

// GameEndEvent is broadcast once when the game finishes.
type GameEndEvent struct {
	Reason    string
	Standings []Standing
}

func (GameEndEvent) EventType() string { return "game_end" }

// SnapshotEvent rebuilds a reconnecting seat's view. It rides the
// round_started wire type with the extra public state attached.
type SnapshotEvent struct {
	Seat           int
	Hand           []Tile
	Drawn          Tile
	Dealer         int
	Wind           Wind
	HandNum        int
	Honba          int
	Sticks         int
	DoraIndicators []Tile
	Scores         [4]int
	Current        int
	Discards       [4][]Discard
	Melds          [4][]Meld
	RiichiSeats    [4]bool
	WallRemaining  int
}

func (SnapshotEvent) EventType() string { return "round_started" }
