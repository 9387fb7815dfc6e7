// Package march fills tables: it turns a list of humans into a full
// four-seat configuration and runs the quick-match queue that feeds the
// game controller.
package march

import (
	cryptorand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"regexp"
)

// MaxSeats is the table size every match fills.
const MaxSeats = 4

// SeatConfig describes one seat of a freshly matched table; index in the
// returned array is the seat number.
type SeatConfig struct {
	Name string
	IsAI bool
}

var aiNamePattern = regexp.MustCompile(`^Tsumogiri [0-9]+$`)

// AssignSeats seats 1..4 humans at a four-seat table and fills the rest
// with stand-ins named "Tsumogiri 1", "Tsumogiri 2", ….
//
// One permutation sample decides everything: its first len(humans)
// entries give each human a seat, in order. Seat subset and seating order
// therefore randomise together, so even a four-human table gets shuffled
// rather than seated in join order.
//
// The same seed and name list always yields the same table.
func AssignSeats(humans []string, seed []byte) ([4]SeatConfig, error) {
	var seats [4]SeatConfig

	if len(humans) < 1 || len(humans) > 4 {
		return seats, fmt.Errorf("need 1..4 humans, got %d", len(humans))
	}
	seen := make(map[string]struct{}, len(humans))
	for _, name := range humans {
		if aiNamePattern.MatchString(name) {
			return seats, fmt.Errorf("name %q collides with stand-in names", name)
		}
		if _, dup := seen[name]; dup {
			return seats, fmt.Errorf("duplicate name %q", name)
		}
		seen[name] = struct{}{}
	}

	rng := rand.New(rand.NewSource(seedToInt64(seed)))
	perm := rng.Perm(4)

	for i, name := range humans {
		seats[perm[i]] = SeatConfig{Name: name}
	}
	ai := 1
	for seat := range seats {
		if seats[seat].Name == "" {
			seats[seat] = SeatConfig{Name: fmt.Sprintf("Tsumogiri %d", ai), IsAI: true}
			ai++
		}
	}
	return seats, nil
}

// seedToInt64 hashes an arbitrary seed down to a rand source. A nil or
// empty seed draws fresh entropy so unseeded tables still vary.
func seedToInt64(seed []byte) int64 {
	if len(seed) == 0 {
		var buf [8]byte
		cryptorand.Read(buf[:])
		return int64(binary.BigEndian.Uint64(buf[:]))
	}
	sum := sha256.Sum256(seed)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
