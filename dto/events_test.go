package dto

import (
	"encoding/json"
	"testing"

	"github.com/janryu/janryu/game/engines/riichi"
)

func TestPackDrawRoundTrip(t *testing.T) {
	for seat := 0; seat < 4; seat++ {
		for tile := riichi.Tile(0); tile < riichi.TotalTiles; tile++ {
			d := PackDraw(seat, tile)
			if d < 0 || d >= drawSpan {
				t.Fatalf("PackDraw(%d,%d) = %d out of range", seat, tile, d)
			}
			s, tl, ok := UnpackDraw(d)
			if !ok || s != seat || tl != tile {
				t.Fatalf("UnpackDraw(%d) = (%d,%d,%v), want (%d,%d)", d, s, tl, ok, seat, tile)
			}
		}
	}
	for _, d := range []int{-1, drawSpan, drawSpan + 1} {
		if _, _, ok := UnpackDraw(d); ok {
			t.Fatalf("UnpackDraw(%d) accepted", d)
		}
	}
}

func TestPackDiscardRoundTrip(t *testing.T) {
	for seat := 0; seat < 4; seat++ {
		for tile := riichi.Tile(0); tile < riichi.TotalTiles; tile++ {
			for _, tsumogiri := range []bool{false, true} {
				for _, declared := range []bool{false, true} {
					d := PackDiscard(seat, tile, tsumogiri, declared)
					if d < 0 || d >= discardSpan {
						t.Fatalf("PackDiscard out of range: %d", d)
					}
					s, tl, tg, dc, ok := UnpackDiscard(d)
					if !ok || s != seat || tl != tile || tg != tsumogiri || dc != declared {
						t.Fatalf("UnpackDiscard(%d) = (%d,%d,%v,%v,%v)", d, s, tl, tg, dc, ok)
					}
				}
			}
		}
	}
	// flag 3 (riichi tsumogiri), seat 2, tile 7
	if got := PackDiscard(2, 7, true, true); got != 3*544+2*136+7 {
		t.Fatalf("PackDiscard formula drifted: %d", got)
	}
	for _, d := range []int{-1, discardSpan} {
		if _, _, _, _, ok := UnpackDiscard(d); ok {
			t.Fatalf("UnpackDiscard(%d) accepted", d)
		}
	}
}

func mustFrame(t *testing.T, ev riichi.Event) map[string]any {
	t.Helper()
	data, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("encode %T: %v", ev, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("frame for %T is not an object: %v", ev, err)
	}
	return m
}

func TestEncodeEventShapes(t *testing.T) {
	m := mustFrame(t, riichi.DrawEvent{Seat: 1, Tile: 5, Rinshan: true})
	if m["type"] != "draw" || m["d"] != float64(1*136+5) || m["rinshan"] != true {
		t.Fatalf("draw frame = %v", m)
	}

	m = mustFrame(t, riichi.DiscardEvent{Seat: 3, Tile: 100, Riichi: true})
	if m["type"] != "discard" || m["d"] != float64(2*544+3*136+100) {
		t.Fatalf("discard frame = %v", m)
	}

	m = mustFrame(t, riichi.MeldEvent{Meld: riichi.Meld{
		Kind:   riichi.MeldPon,
		Tiles:  []riichi.Tile{40, 41, 42},
		Caller: 2,
		From:   0,
		Called: 40,
	}})
	if m["type"] != "meld" || m["kind"] != "pon" || m["caller"] != float64(2) {
		t.Fatalf("meld frame = %v", m)
	}

	m = mustFrame(t, riichi.CallPromptEvent{
		Seat:      1,
		Tile:      52,
		Discarder: 0,
		Options: []riichi.CallOption{
			{Kind: riichi.CallChi, Chi: [][2]riichi.Tile{{48, 56}}},
		},
	})
	if m["type"] != "call_prompt" || m["tile"] != float64(52) {
		t.Fatalf("call_prompt frame = %v", m)
	}
	if _, hasChankan := m["chankan"]; hasChankan {
		t.Fatalf("chankan flag leaked into a plain prompt: %v", m)
	}

	m = mustFrame(t, riichi.RiichiDeclaredEvent{Seat: 2, Score: 24000, Sticks: 1})
	if m["type"] != "riichi_declared" || m["score"] != float64(24000) {
		t.Fatalf("riichi frame = %v", m)
	}
}

func TestEncodeEventUnknown(t *testing.T) {
	if _, err := EncodeEvent(bogusEvent{}); err == nil {
		t.Fatalf("unknown event type was encoded")
	}
}

type bogusEvent struct{}

func (bogusEvent) EventType() string { return "bogus" }

func TestRoundStartedVersusSnapshot(t *testing.T) {
	started := mustFrame(t, riichi.RoundStartedEvent{
		Seat:          1,
		Hand:          []riichi.Tile{0, 4, 8},
		Dealer:        0,
		Wind:          riichi.WindEast,
		HandNum:       1,
		DoraIndicator: 120,
		Scores:        [4]int{25000, 25000, 25000, 25000},
	})
	if started["type"] != "round_started" {
		t.Fatalf("round_started frame = %v", started)
	}
	if _, has := started["snapshot"]; has {
		t.Fatalf("fresh deal carries a snapshot flag: %v", started)
	}

	snap := mustFrame(t, riichi.SnapshotEvent{
		Seat:          2,
		Hand:          []riichi.Tile{0, 4, 8},
		Drawn:         riichi.NoTile,
		Wind:          riichi.WindSouth,
		Current:       3,
		WallRemaining: 42,
	})
	if snap["type"] != "round_started" || snap["snapshot"] != true {
		t.Fatalf("snapshot frame = %v", snap)
	}
	if snap["drawn"] != float64(-1) || snap["current"] != float64(3) || snap["wall_remaining"] != float64(42) {
		t.Fatalf("snapshot frame = %v", snap)
	}
}

func TestRoundEndFrame(t *testing.T) {
	m := mustFrame(t, riichi.RoundEndEvent{Result: riichi.RoundResult{
		Type:   riichi.ResultRon,
		Loser:  2,
		Deltas: [4]int{0, 3900, -3900, 0},
		Winners: []riichi.WinResult{{
			Seat:    1,
			WinTile: 88,
			Han:     3,
			Fu:      30,
			Yaku:    []riichi.YakuValue{{Name: "pinfu", Han: 1}},
			Points:  3900,
		}},
	}})
	if m["type"] != "round_end" {
		t.Fatalf("round_end frame = %v", m)
	}
	result, ok := m["result"].(map[string]any)
	if !ok || result["type"] != "ron" || result["loser"] != float64(2) {
		t.Fatalf("result = %v", m["result"])
	}
	winners := result["winners"].([]any)
	w0 := winners[0].(map[string]any)
	if w0["win_tile"] != float64(88) || w0["han"] != float64(3) {
		t.Fatalf("winner line = %v", w0)
	}
}

func TestHelperFrames(t *testing.T) {
	var m map[string]any
	if err := json.Unmarshal(EncodeError(CodeRateLimited, "slow down"), &m); err != nil {
		t.Fatalf("error frame: %v", err)
	}
	if m["type"] != "error" || m["code"] != "RATE_LIMITED" || m["reason"] != "slow down" {
		t.Fatalf("error frame = %v", m)
	}
	if err := json.Unmarshal(EncodeChat(2, "south", "gg"), &m); err != nil {
		t.Fatalf("chat frame: %v", err)
	}
	if m["type"] != "chat" || m["seat"] != float64(2) || m["text"] != "gg" {
		t.Fatalf("chat frame = %v", m)
	}
}
