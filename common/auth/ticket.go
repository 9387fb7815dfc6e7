package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Admission tickets are two base64url segments, payload.signature, signed
// with HMAC-SHA256. The lobby mints one per (user, room) pair; the game
// server verifies it locally on join without any backend call.

var (
	ErrTicketFormat  = errors.New("ticket: malformed")
	ErrTicketSig     = errors.New("ticket: bad signature")
	ErrTicketExpired = errors.New("ticket: expired")
)

// TicketPayload is the signed admission claim.
type TicketPayload struct {
	User     string `json:"user"`
	Room     string `json:"room"`
	IssuedAt int64  `json:"iat"`
	Expires  int64  `json:"exp"`
}

var b64 = base64.RawURLEncoding

// Mint signs a ticket admitting user to room, valid for ttl.
func Mint(user, room string, ttl time.Duration, secret []byte) string {
	now := time.Now()
	payload := TicketPayload{
		User:     user,
		Room:     room,
		IssuedAt: now.Unix(),
		Expires:  now.Add(ttl).Unix(),
	}
	raw, _ := json.Marshal(payload)
	return b64.EncodeToString(raw) + "." + b64.EncodeToString(sign(raw, secret))
}

// Verify checks the signature and expiry and returns the payload.
func Verify(ticket string, secret []byte) (*TicketPayload, error) {
	dot := strings.IndexByte(ticket, '.')
	if dot < 0 || strings.IndexByte(ticket[dot+1:], '.') >= 0 {
		return nil, ErrTicketFormat
	}

	raw, err := b64.DecodeString(ticket[:dot])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketFormat, err)
	}
	sig, err := b64.DecodeString(ticket[dot+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketFormat, err)
	}

	if !hmac.Equal(sig, sign(raw, secret)) {
		return nil, ErrTicketSig
	}

	var payload TicketPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketFormat, err)
	}
	if payload.User == "" || payload.Room == "" {
		return nil, ErrTicketFormat
	}
	if time.Now().Unix() >= payload.Expires {
		return nil, ErrTicketExpired
	}
	return &payload, nil
}

func sign(payload, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
