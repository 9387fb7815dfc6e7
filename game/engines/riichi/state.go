package riichi

import "fmt"

// GameLength selects the rotation limit.
type GameLength int

const (
	LengthEast    GameLength = iota // east round only, 4 dealerships
	LengthHanchan                   // east + south, 8 dealerships
)

// enchousenLimit caps extension play at the end of the west round.
const enchousenLimit = 12

// riichiStickValue is the deposit committed with a riichi declaration.
const riichiStickValue = 1000

// tenpaiPayment is the total exchanged between tenpai and noten seats on an
// exhaustive draw.
const tenpaiPayment = 3000

// Rules are the game-level settings the engine honours. They are fixed at
// game creation; the controller fills them from configuration.
type Rules struct {
	InitialScore       int
	TargetScore        int
	Length             GameLength
	Enchousen          bool
	MaxRonWinners      int  // 1 head-bump, 2 double ron, 3 allows triple
	KanDoraImmediately bool // added/open kan indicator timing
}

// DefaultRules matches standard hanchan play.
func DefaultRules() Rules {
	return Rules{
		InitialScore:       25000,
		TargetScore:        30000,
		Length:             LengthHanchan,
		Enchousen:          true,
		MaxRonWinners:      2,
		KanDoraImmediately: false,
	}
}

func (r Rules) dealershipLimit() int {
	if r.Length == LengthEast {
		return 4
	}
	return 8
}

// RoundPhase is the lifecycle of one dealt hand.
type RoundPhase int

const (
	RoundPlaying RoundPhase = iota
	RoundFinished
)

// GamePhase is the lifecycle of a whole game.
type GamePhase int

const (
	GamePlaying GamePhase = iota
	GameRoundOver
	GameFinished
)

// RoundState is the full state of one dealt hand. It is treated as an
// immutable value: transitions clone it, mutate the clone and hand the
// new value back to the owner cell.
type RoundState struct {
	Wall    Wall
	Players [4]Player

	Dealer  int
	Wind    Wind
	HandNum int
	Honba   int
	Sticks  int // riichi stick pool

	Current int
	Prompt  *CallPrompt
	Phase   RoundPhase

	// PendingDora counts kan indicators waiting for the deferred reveal
	// timing (after the kan player's discard settles).
	PendingDora int

	// LastDiscard mirrors the newest live discard while its call window
	// is open.
	LastDiscard     Tile
	LastDiscarder   int
	WallEmptyAtLast bool // houtei marker for the final discard
}

func (rs RoundState) clone() RoundState {
	for i := range rs.Players {
		rs.Players[i] = rs.Players[i].clone()
	}
	if rs.Prompt != nil {
		rs.Prompt = rs.Prompt.clone()
	}
	return rs
}

// totalDiscards counts discards across all seats, claimed ones included.
func (rs RoundState) totalDiscards() int {
	n := 0
	for i := range rs.Players {
		n += len(rs.Players[i].Discards)
	}
	return n
}

// totalMelds counts called sets across all seats.
func (rs RoundState) totalMelds() int {
	n := 0
	for i := range rs.Players {
		n += len(rs.Players[i].Melds)
	}
	return n
}

// totalKans counts kans and the seats contributing them.
func (rs RoundState) totalKans() (kans, seats int) {
	for i := range rs.Players {
		if n := rs.Players[i].kanCount(); n > 0 {
			kans += n
			seats++
		}
	}
	return kans, seats
}

// SeatInfo describes one seat for the lifetime of a game.
type SeatInfo struct {
	Seat int
	Name string
	IsAI bool
}

// GameState is one game: the live round plus game-level accumulators.
type GameState struct {
	ID    string
	Seed  []byte
	Rules Rules
	Seats [4]SeatInfo

	Round RoundState
	Phase GamePhase

	// DealersSeen counts dealerships including the current one; the
	// east round ends after 4, a hanchan after 8, enchousen caps at 12.
	DealersSeen int
	// RoundSeq increments per dealt hand and salts the wall seed.
	RoundSeq int

	// Pending carries the rotation decided at round end until every seat
	// has confirmed the advance.
	Pending   *RoundResult
	Confirmed [4]bool
}

func (gs GameState) clone() GameState {
	gs.Round = gs.Round.clone()
	if gs.Pending != nil {
		p := gs.Pending.clone()
		gs.Pending = &p
	}
	// Seed is written once at creation and only read afterwards.
	return gs
}

// ScoreTotal is the conserved sum: seat scores plus the stick pool.
func (gs GameState) ScoreTotal() int {
	n := gs.Round.Sticks * 1000
	for i := range gs.Round.Players {
		n += gs.Round.Players[i].Score
	}
	return n
}

// RuleError reports an action the rules forbid. It reaches only the
// offending seat and never alters state.
type RuleError struct {
	Action string
	Seat   int
	Reason string

	// Fabricated marks input no honest client can produce, such as an
	// out-of-range tile ID. The boundary drops the connection for these
	// instead of answering with an error.
	Fabricated bool
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("seat %d: %s: %s", e.Seat, e.Action, e.Reason)
}

func ruleErr(action string, seat int, format string, args ...any) error {
	return &RuleError{Action: action, Seat: seat, Reason: fmt.Sprintf(format, args...)}
}

func fabricatedErr(action string, seat int, format string, args ...any) error {
	return &RuleError{Action: action, Seat: seat, Reason: fmt.Sprintf(format, args...), Fabricated: true}
}
