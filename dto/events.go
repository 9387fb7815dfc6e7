package dto

import (
	"encoding/json"
	"fmt"

	"github.com/janryu/janryu/game/engines/riichi"
)

// Stable codes carried by error frames.
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeRateLimited    = "RATE_LIMITED"
	CodeNotInGame      = "NOT_IN_GAME"
	CodeGameError      = "GAME_ERROR"
	CodeActionFailed   = "ACTION_FAILED"
)

// Compact encodings. A draw packs seat and tile into one integer, a
// discard adds the riichi and tsumogiri flags on top. Replays store the
// wire frames, so both must round-trip exactly.
const (
	drawSpan    = 4 * riichi.TotalTiles // 544
	discardSpan = 4 * drawSpan          // 2176
)

// PackDraw encodes seat*136 + tile, in [0,543].
func PackDraw(seat int, tile riichi.Tile) int {
	return seat*riichi.TotalTiles + int(tile)
}

// UnpackDraw inverts PackDraw.
func UnpackDraw(d int) (seat int, tile riichi.Tile, ok bool) {
	if d < 0 || d >= drawSpan {
		return 0, riichi.NoTile, false
	}
	return d / riichi.TotalTiles, riichi.Tile(d % riichi.TotalTiles), true
}

// PackDiscard encodes ((riichi<<1)|tsumogiri)*544 + seat*136 + tile, in
// [0,2175]. declared marks the riichi declaration discard.
func PackDiscard(seat int, tile riichi.Tile, tsumogiri, declared bool) int {
	flag := 0
	if declared {
		flag |= 2
	}
	if tsumogiri {
		flag |= 1
	}
	return flag*drawSpan + seat*riichi.TotalTiles + int(tile)
}

// UnpackDiscard inverts PackDiscard.
func UnpackDiscard(d int) (seat int, tile riichi.Tile, tsumogiri, declared, ok bool) {
	if d < 0 || d >= discardSpan {
		return 0, riichi.NoTile, false, false, false
	}
	flag := d / drawSpan
	rest := d % drawSpan
	seat = rest / riichi.TotalTiles
	tile = riichi.Tile(rest % riichi.TotalTiles)
	return seat, tile, flag&1 != 0, flag&2 != 0, true
}

// SeatDTO mirrors riichi.SeatInfo.
type SeatDTO struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	IsAI bool   `json:"is_ai"`
}

type GameStartedDTO struct {
	Type   string    `json:"type"`
	GameID string    `json:"game_id"`
	Seats  []SeatDTO `json:"seats"`
	Dealer int       `json:"dealer"`
}

type RoundStartedDTO struct {
	Type          string `json:"type"`
	Seat          int    `json:"seat"`
	Hand          []int  `json:"hand"`
	Dealer        int    `json:"dealer"`
	Wind          string `json:"wind"`
	HandNum       int    `json:"hand_num"`
	Honba         int    `json:"honba"`
	Sticks        int    `json:"sticks"`
	DoraIndicator int    `json:"dora_indicator"`
	Scores        [4]int `json:"scores"`
}

type DrawDTO struct {
	Type    string `json:"type"`
	D       int    `json:"d"`
	Rinshan bool   `json:"rinshan,omitempty"`
}

type DiscardDTO struct {
	Type string `json:"type"`
	D    int    `json:"d"`
}

type CallOptionDTO struct {
	Kind string   `json:"kind"`
	Chi  [][2]int `json:"chi,omitempty"`
}

type CallPromptDTO struct {
	Type      string          `json:"type"`
	Seat      int             `json:"seat"`
	Tile      int             `json:"tile"`
	Discarder int             `json:"discarder"`
	Chankan   bool            `json:"chankan,omitempty"`
	Options   []CallOptionDTO `json:"options"`
}

// MeldDTO appears flattened inside meld events and nested inside
// snapshots.
type MeldDTO struct {
	Kind   string `json:"kind"`
	Tiles  []int  `json:"tiles"`
	Caller int    `json:"caller"`
	From   int    `json:"from"`
	Called int    `json:"called"`
}

type MeldEventDTO struct {
	Type string `json:"type"`
	MeldDTO
}

type RiichiDeclaredDTO struct {
	Type   string `json:"type"`
	Seat   int    `json:"seat"`
	Daburi bool   `json:"daburi,omitempty"`
	Score  int    `json:"score"`
	Sticks int    `json:"sticks"`
}

type DoraRevealedDTO struct {
	Type      string `json:"type"`
	Indicator int    `json:"indicator"`
	Count     int    `json:"count"`
}

type FuritenDTO struct {
	Type   string `json:"type"`
	Seat   int    `json:"seat"`
	Active bool   `json:"active"`
}

type YakuDTO struct {
	Name string `json:"name"`
	Han  int    `json:"han"`
}

type WinnerDTO struct {
	Seat    int       `json:"seat"`
	WinTile int       `json:"win_tile"`
	Han     int       `json:"han"`
	Fu      int       `json:"fu"`
	Yaku    []YakuDTO `json:"yaku"`
	Points  int       `json:"points"`
}

type ResultDTO struct {
	Type          string      `json:"type"`
	Reason        string      `json:"reason,omitempty"`
	Winners       []WinnerDTO `json:"winners,omitempty"`
	Loser         int         `json:"loser"`
	Tenpai        [4]bool     `json:"tenpai"`
	Deltas        [4]int      `json:"deltas"`
	Scores        [4]int      `json:"scores"`
	DealerRotates bool        `json:"dealer_rotates"`
	HonbaNext     int         `json:"honba_next"`
	SticksNext    int         `json:"sticks_next"`
	Ura           []int       `json:"ura,omitempty"`
}

type RoundEndDTO struct {
	Type   string    `json:"type"`
	Result ResultDTO `json:"result"`
}

type StandingDTO struct {
	Rank  int    `json:"rank"`
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type GameEndDTO struct {
	Type      string        `json:"type"`
	Reason    string        `json:"reason"`
	Standings []StandingDTO `json:"standings"`
}

// DiscardRec is one discard-pile entry inside a snapshot.
type DiscardRec struct {
	Tile      int  `json:"tile"`
	Tsumogiri bool `json:"tsumogiri,omitempty"`
	Riichi    bool `json:"riichi,omitempty"`
	Called    bool `json:"called,omitempty"`
}

// SnapshotDTO rides the round_started wire type with the public table
// state attached; clients tell the two apart by the snapshot flag.
type SnapshotDTO struct {
	Type           string          `json:"type"`
	Snapshot       bool            `json:"snapshot"`
	Seat           int             `json:"seat"`
	Hand           []int           `json:"hand"`
	Drawn          int             `json:"drawn"`
	Dealer         int             `json:"dealer"`
	Wind           string          `json:"wind"`
	HandNum        int             `json:"hand_num"`
	Honba          int             `json:"honba"`
	Sticks         int             `json:"sticks"`
	DoraIndicators []int           `json:"dora_indicators"`
	Scores         [4]int          `json:"scores"`
	Current        int             `json:"current"`
	Discards       [4][]DiscardRec `json:"discards"`
	Melds          [4][]MeldDTO    `json:"melds"`
	RiichiSeats    [4]bool         `json:"riichi_seats"`
	WallRemaining  int             `json:"wall_remaining"`
}

type ErrorDTO struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type ChatDTO struct {
	Type string `json:"type"`
	Seat int    `json:"seat"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// SessionAckDTO confirms an admission or a token rotation. Token is what
// the client must present on its next reconnect; Seat is -1 before the
// game has started.
type SessionAckDTO struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	GameID string `json:"game_id"`
	Seat   int    `json:"seat"`
}

// EventDTO maps one engine event to its wire shape. An unknown event
// type is an internal bug, never a client problem.
func EventDTO(ev riichi.Event) (any, error) {
	switch e := ev.(type) {
	case riichi.GameStartedEvent:
		seats := make([]SeatDTO, len(e.Seats))
		for i, s := range e.Seats {
			seats[i] = SeatDTO{Seat: s.Seat, Name: s.Name, IsAI: s.IsAI}
		}
		return GameStartedDTO{Type: e.EventType(), GameID: e.GameID, Seats: seats, Dealer: e.Dealer}, nil

	case riichi.RoundStartedEvent:
		return RoundStartedDTO{
			Type:          e.EventType(),
			Seat:          e.Seat,
			Hand:          tileInts(e.Hand),
			Dealer:        e.Dealer,
			Wind:          e.Wind.String(),
			HandNum:       e.HandNum,
			Honba:         e.Honba,
			Sticks:        e.Sticks,
			DoraIndicator: int(e.DoraIndicator),
			Scores:        e.Scores,
		}, nil

	case riichi.DrawEvent:
		return DrawDTO{Type: e.EventType(), D: PackDraw(e.Seat, e.Tile), Rinshan: e.Rinshan}, nil

	case riichi.DiscardEvent:
		return DiscardDTO{Type: e.EventType(), D: PackDiscard(e.Seat, e.Tile, e.Tsumogiri, e.Riichi)}, nil

	case riichi.CallPromptEvent:
		opts := make([]CallOptionDTO, len(e.Options))
		for i, o := range e.Options {
			opt := CallOptionDTO{Kind: o.Kind.String()}
			for _, pair := range o.Chi {
				opt.Chi = append(opt.Chi, [2]int{int(pair[0]), int(pair[1])})
			}
			opts[i] = opt
		}
		return CallPromptDTO{
			Type:      e.EventType(),
			Seat:      e.Seat,
			Tile:      int(e.Tile),
			Discarder: e.Discarder,
			Chankan:   e.Chankan,
			Options:   opts,
		}, nil

	case riichi.MeldEvent:
		return MeldEventDTO{Type: e.EventType(), MeldDTO: meldDTO(e.Meld)}, nil

	case riichi.RiichiDeclaredEvent:
		return RiichiDeclaredDTO{Type: e.EventType(), Seat: e.Seat, Daburi: e.Daburi, Score: e.Score, Sticks: e.Sticks}, nil

	case riichi.DoraRevealedEvent:
		return DoraRevealedDTO{Type: e.EventType(), Indicator: int(e.Indicator), Count: e.Count}, nil

	case riichi.FuritenEvent:
		return FuritenDTO{Type: e.EventType(), Seat: e.Seat, Active: e.Active}, nil

	case riichi.RoundEndEvent:
		return RoundEndDTO{Type: e.EventType(), Result: resultDTO(e.Result)}, nil

	case riichi.GameEndEvent:
		st := make([]StandingDTO, len(e.Standings))
		for i, s := range e.Standings {
			st[i] = StandingDTO{Rank: s.Rank, Seat: s.Seat, Name: s.Name, Score: s.Score}
		}
		return GameEndDTO{Type: e.EventType(), Reason: e.Reason, Standings: st}, nil

	case riichi.SnapshotEvent:
		snap := SnapshotDTO{
			Type:           e.EventType(),
			Snapshot:       true,
			Seat:           e.Seat,
			Hand:           tileInts(e.Hand),
			Drawn:          int(e.Drawn),
			Dealer:         e.Dealer,
			Wind:           e.Wind.String(),
			HandNum:        e.HandNum,
			Honba:          e.Honba,
			Sticks:         e.Sticks,
			DoraIndicators: tileInts(e.DoraIndicators),
			Scores:         e.Scores,
			Current:        e.Current,
			RiichiSeats:    e.RiichiSeats,
			WallRemaining:  e.WallRemaining,
		}
		for s := 0; s < 4; s++ {
			for _, d := range e.Discards[s] {
				snap.Discards[s] = append(snap.Discards[s], DiscardRec{
					Tile:      int(d.Tile),
					Tsumogiri: d.Tsumogiri,
					Riichi:    d.Riichi,
					Called:    d.Called,
				})
			}
			for _, m := range e.Melds[s] {
				snap.Melds[s] = append(snap.Melds[s], meldDTO(m))
			}
		}
		return snap, nil

	default:
		return nil, fmt.Errorf("no wire shape for event %T", ev)
	}
}

// EncodeEvent renders one engine event as a frame.
func EncodeEvent(ev riichi.Event) ([]byte, error) {
	v, err := EventDTO(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// EncodeError builds an error frame with a stable code.
func EncodeError(code, reason string) []byte {
	data, _ := json.Marshal(ErrorDTO{Type: "error", Code: code, Reason: reason})
	return data
}

// EncodeChat builds a chat fan-out frame.
func EncodeChat(seat int, name, text string) []byte {
	data, _ := json.Marshal(ChatDTO{Type: "chat", Seat: seat, Name: name, Text: text})
	return data
}

// EncodeSessionAck builds the admission/rotation acknowledgement frame.
func EncodeSessionAck(token, gameID string, seat int) []byte {
	data, _ := json.Marshal(SessionAckDTO{Type: "session", Token: token, GameID: gameID, Seat: seat})
	return data
}

func tileInts(ts []riichi.Tile) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = int(t)
	}
	return out
}

func meldDTO(m riichi.Meld) MeldDTO {
	return MeldDTO{
		Kind:   m.Kind.String(),
		Tiles:  tileInts(m.Tiles),
		Caller: m.Caller,
		From:   m.From,
		Called: int(m.Called),
	}
}

func resultDTO(r riichi.RoundResult) ResultDTO {
	out := ResultDTO{
		Type:          string(r.Type),
		Reason:        r.Reason,
		Loser:         r.Loser,
		Tenpai:        r.Tenpai,
		Deltas:        r.Deltas,
		Scores:        r.Scores,
		DealerRotates: r.DealerRotates,
		HonbaNext:     r.HonbaNext,
		SticksNext:    r.SticksNext,
		Ura:           tileInts(r.Ura),
	}
	for _, w := range r.Winners {
		win := WinnerDTO{Seat: w.Seat, WinTile: int(w.WinTile), Han: w.Han, Fu: w.Fu, Points: w.Points}
		for _, y := range w.Yaku {
			win.Yaku = append(win.Yaku, YakuDTO{Name: y.Name, Han: y.Han})
		}
		out.Winners = append(out.Winners, win)
	}
	return out
}
