// Package dto is the wire boundary: it validates and decodes client
// frames and renders engine events as client frames. Nothing in here
// touches game state.
package dto

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/janryu/janryu/game/engines/riichi"
)

// Client message kinds. Every client frame is one JSON object with an
// integer t selecting its shape.
const (
	KindAction    = 3
	KindChat      = 4
	KindPing      = 5
	KindReconnect = 6
	KindJoin      = 7
)

// Limits bound what a single client frame may contain. Callers wire them
// from configuration; zero values are not defaulted here.
type Limits struct {
	MaxFrameBytes  int64
	MaxStringBytes int
	MaxArrayLen    int
	MaxObjectKeys  int
	MaxDepth       int
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes:  4096,
		MaxStringBytes: 1024,
		MaxArrayLen:    64,
		MaxObjectKeys:  64,
		MaxDepth:       8,
	}
}

// GameAction is the decoded t=3 payload. KanType is advisory: the engine
// works the kan form out from the hand, but a nonsense value is still a
// protocol violation.
type GameAction struct {
	Type     riichi.ActionType
	Tile     riichi.Tile
	Sequence [2]riichi.Tile
	KanType  string
}

// Action binds the decoded payload to a seat.
func (a GameAction) Action(seat int) riichi.Action {
	return riichi.Action{Seat: seat, Type: a.Type, Tile: a.Tile, Sequence: a.Sequence}
}

// ClientMessage is one decoded client frame.
type ClientMessage struct {
	T      int
	Action *GameAction // t=3
	Text   string      // t=4
	Token  string      // t=6
	Ticket string      // t=7
}

type envelope struct {
	T      int             `json:"t"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
	Text   string          `json:"text"`
	Token  string          `json:"token"`
	Ticket string          `json:"ticket"`
}

type actionPayload struct {
	TileID        *int   `json:"tile_id"`
	SequenceTiles []int  `json:"sequence_tiles"`
	KanType       string `json:"kan_type"`
}

// DecodeClient validates one client frame against the limits and decodes
// it. Every error it returns is a protocol violation: the caller answers
// with INVALID_MESSAGE and counts a strike.
func DecodeClient(data []byte, lim Limits) (ClientMessage, error) {
	if err := checkFrame(data, lim); err != nil {
		return ClientMessage{}, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ClientMessage{}, ErrMalformedFrame
	}

	msg := ClientMessage{T: env.T}
	switch env.T {
	case KindAction:
		act, err := decodeAction(env.Action, env.Data)
		if err != nil {
			return ClientMessage{}, err
		}
		msg.Action = &act
	case KindChat:
		msg.Text = env.Text
	case KindPing:
	case KindReconnect:
		if env.Token == "" {
			return ClientMessage{}, ErrBadPayload
		}
		msg.Token = env.Token
	case KindJoin:
		if env.Ticket == "" {
			return ClientMessage{}, ErrBadPayload
		}
		msg.Ticket = env.Ticket
	default:
		return ClientMessage{}, ErrBadKind
	}
	return msg, nil
}

func decodeAction(name string, data json.RawMessage) (GameAction, error) {
	typ, ok := riichi.ParseActionType(name)
	if !ok {
		return GameAction{}, ErrBadAction
	}
	var p actionPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return GameAction{}, ErrBadPayload
		}
	}

	act := GameAction{
		Type:     typ,
		Tile:     riichi.NoTile,
		Sequence: [2]riichi.Tile{riichi.NoTile, riichi.NoTile},
		KanType:  p.KanType,
	}
	switch p.KanType {
	case "", "closed", "added", "open":
	default:
		return GameAction{}, ErrBadPayload
	}

	switch typ {
	case riichi.ActDiscard, riichi.ActRiichi, riichi.ActKan:
		if p.TileID == nil {
			return GameAction{}, ErrBadPayload
		}
		tile := riichi.Tile(*p.TileID)
		if !tile.Valid() {
			return GameAction{}, ErrBadPayload
		}
		act.Tile = tile
	case riichi.ActChi:
		if len(p.SequenceTiles) != 2 {
			return GameAction{}, ErrBadPayload
		}
		for i, id := range p.SequenceTiles {
			tile := riichi.Tile(id)
			if !tile.Valid() {
				return GameAction{}, ErrBadPayload
			}
			act.Sequence[i] = tile
		}
	}
	return act, nil
}

// frame is one open container during validation.
type frame struct {
	object  bool
	keyNext bool
	count   int
}

// checkFrame walks the token stream once, enforcing the size, count and
// depth limits before anything is unmarshalled into a struct. The top
// level must be a single object.
func checkFrame(data []byte, lim Limits) error {
	if lim.MaxFrameBytes > 0 && int64(len(data)) > lim.MaxFrameBytes {
		return ErrFrameTooLarge
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var stack []frame
	done := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ErrMalformedFrame
		}
		if done {
			return ErrMalformedFrame
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				done = true
			} else {
				closeValue(stack)
			}
			continue
		}

		if len(stack) == 0 {
			d, ok := tok.(json.Delim)
			if !ok || d != '{' {
				return ErrNotObject
			}
			stack = append(stack, frame{object: true, keyNext: true})
			continue
		}

		top := &stack[len(stack)-1]
		if top.object && top.keyNext {
			key, ok := tok.(string)
			if !ok {
				return ErrMalformedFrame
			}
			if len(key) > lim.MaxStringBytes {
				return ErrStringTooLong
			}
			top.count++
			if top.count > lim.MaxObjectKeys {
				return ErrTooManyKeys
			}
			top.keyNext = false
			continue
		}
		if !top.object {
			top.count++
			if top.count > lim.MaxArrayLen {
				return ErrArrayTooLong
			}
		}

		if d, ok := tok.(json.Delim); ok {
			if len(stack) >= lim.MaxDepth {
				return ErrTooDeep
			}
			stack = append(stack, frame{object: d == '{', keyNext: d == '{'})
			continue
		}
		if s, ok := tok.(string); ok && len(s) > lim.MaxStringBytes {
			return ErrStringTooLong
		}
		closeValue(stack)
	}
	if !done {
		return ErrMalformedFrame
	}
	return nil
}

func closeValue(stack []frame) {
	top := &stack[len(stack)-1]
	if top.object {
		top.keyNext = true
	}
}
