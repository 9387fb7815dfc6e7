package dto

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/janryu/janryu/game/engines/riichi"
)

func TestDecodeClientActionMapping(t *testing.T) {
	cases := []struct {
		frame    string
		wantType riichi.ActionType
		wantTile riichi.Tile
		wantSeq  [2]riichi.Tile
	}{
		{`{"t":3,"action":"discard","data":{"tile_id":53}}`, riichi.ActDiscard, 53, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"declare_riichi","data":{"tile_id":12}}`, riichi.ActRiichi, 12, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"declare_tsumo"}`, riichi.ActTsumo, riichi.NoTile, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"call_ron"}`, riichi.ActRon, riichi.NoTile, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"call_pon"}`, riichi.ActPon, riichi.NoTile, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"call_chi","data":{"sequence_tiles":[100,104]}}`, riichi.ActChi, riichi.NoTile, [2]riichi.Tile{100, 104}},
		{`{"t":3,"action":"call_kan","data":{"tile_id":0,"kan_type":"closed"}}`, riichi.ActKan, 0, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"call_kyuushu"}`, riichi.ActKyuushu, riichi.NoTile, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"pass"}`, riichi.ActPass, riichi.NoTile, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
		{`{"t":3,"action":"confirm_round"}`, riichi.ActConfirmRound, riichi.NoTile, [2]riichi.Tile{riichi.NoTile, riichi.NoTile}},
	}
	for _, tc := range cases {
		msg, err := DecodeClient([]byte(tc.frame), DefaultLimits())
		if err != nil {
			t.Fatalf("decode %s: %v", tc.frame, err)
		}
		if msg.T != KindAction || msg.Action == nil {
			t.Fatalf("%s did not decode as an action", tc.frame)
		}
		if msg.Action.Type != tc.wantType || msg.Action.Tile != tc.wantTile || msg.Action.Sequence != tc.wantSeq {
			t.Fatalf("%s decoded as %+v", tc.frame, msg.Action)
		}
	}

	msg, err := DecodeClient([]byte(`{"t":3,"action":"discard","data":{"tile_id":53}}`), DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	act := msg.Action.Action(2)
	if act.Seat != 2 || act.Type != riichi.ActDiscard || act.Tile != 53 {
		t.Fatalf("seat binding produced %+v", act)
	}
}

func TestDecodeClientOtherKinds(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"t":4,"text":"hello"}`), DefaultLimits())
	if err != nil || msg.T != KindChat || msg.Text != "hello" {
		t.Fatalf("chat decode = %+v, %v", msg, err)
	}
	msg, err = DecodeClient([]byte(`{"t":5}`), DefaultLimits())
	if err != nil || msg.T != KindPing {
		t.Fatalf("ping decode = %+v, %v", msg, err)
	}
	msg, err = DecodeClient([]byte(`{"t":6,"token":"tok-1"}`), DefaultLimits())
	if err != nil || msg.T != KindReconnect || msg.Token != "tok-1" {
		t.Fatalf("reconnect decode = %+v, %v", msg, err)
	}
	msg, err = DecodeClient([]byte(`{"t":7,"ticket":"pay.sig"}`), DefaultLimits())
	if err != nil || msg.T != KindJoin || msg.Ticket != "pay.sig" {
		t.Fatalf("join decode = %+v, %v", msg, err)
	}
}

func TestDecodeClientViolations(t *testing.T) {
	manyKeys := `{"t":5`
	for i := 0; i < 64; i++ {
		manyKeys += fmt.Sprintf(`,"k%d":1`, i)
	}
	manyKeys += `}`

	cases := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"oversize frame", `{"t":4,"text":"` + strings.Repeat("a", 4200) + `"}`, ErrFrameTooLarge},
		{"oversize string", `{"t":4,"text":"` + strings.Repeat("a", 1025) + `"}`, ErrStringTooLong},
		{"oversize key", `{"` + strings.Repeat("k", 1025) + `":1,"t":5}`, ErrStringTooLong},
		{"oversize array", `{"t":5,"a":[` + strings.Repeat("0,", 64) + `0]}`, ErrArrayTooLong},
		{"too many keys", manyKeys, ErrTooManyKeys},
		{"too deep", strings.Repeat(`{"a":`, 9) + `1` + strings.Repeat(`}`, 9), ErrTooDeep},
		{"top-level array", `[1,2]`, ErrNotObject},
		{"top-level number", `7`, ErrNotObject},
		{"truncated", `{"t":`, ErrMalformedFrame},
		{"trailing data", `{"t":5}{}`, ErrMalformedFrame},
		{"empty", ``, ErrMalformedFrame},
		{"non-integer t", `{"t":"3"}`, ErrMalformedFrame},
		{"missing t", `{}`, ErrBadKind},
		{"unknown kind", `{"t":1}`, ErrBadKind},
		{"unknown action", `{"t":3,"action":"bogus"}`, ErrBadAction},
		{"discard without tile", `{"t":3,"action":"discard"}`, ErrBadPayload},
		{"tile out of range", `{"t":3,"action":"discard","data":{"tile_id":136}}`, ErrBadPayload},
		{"chi with one tile", `{"t":3,"action":"call_chi","data":{"sequence_tiles":[4]}}`, ErrBadPayload},
		{"chi tile out of range", `{"t":3,"action":"call_chi","data":{"sequence_tiles":[4,999]}}`, ErrBadPayload},
		{"bad kan type", `{"t":3,"action":"call_kan","data":{"tile_id":0,"kan_type":"sideways"}}`, ErrBadPayload},
		{"reconnect without token", `{"t":6}`, ErrBadPayload},
		{"join without ticket", `{"t":7}`, ErrBadPayload},
	}
	for _, tc := range cases {
		_, err := DecodeClient([]byte(tc.frame), DefaultLimits())
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestCheckFrameBoundaries(t *testing.T) {
	lim := DefaultLimits()

	ok := []string{
		`{"t":4,"text":"` + strings.Repeat("a", 1024) + `"}`,
		`{"t":5,"a":[` + strings.Repeat("0,", 63) + `0]}`,
		strings.Repeat(`{"a":`, 8) + `1` + strings.Repeat(`}`, 8),
		`{"t":5,"mixed":[{"x":[1,2]},"s",null,true]}`,
	}
	for _, frame := range ok {
		if err := checkFrame([]byte(frame), lim); err != nil {
			t.Fatalf("frame rejected at the limit: %v", err)
		}
	}

	manyKeys := `{"k0":1`
	for i := 1; i < 64; i++ {
		manyKeys += fmt.Sprintf(`,"k%d":1`, i)
	}
	manyKeys += `}`
	if err := checkFrame([]byte(manyKeys), lim); err != nil {
		t.Fatalf("64 keys rejected: %v", err)
	}
}
