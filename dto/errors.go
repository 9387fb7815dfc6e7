package dto

import "errors"

// Frame validation errors. Each one costs the sender a decode strike.
var (
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrNotObject      = errors.New("top level is not an object")
	ErrStringTooLong  = errors.New("string too long")
	ErrArrayTooLong   = errors.New("array too long")
	ErrTooManyKeys    = errors.New("too many object keys")
	ErrTooDeep        = errors.New("nesting too deep")
)

// Envelope errors.
var (
	ErrBadKind    = errors.New("unknown message kind")
	ErrBadAction  = errors.New("unknown action name")
	ErrBadPayload = errors.New("bad message payload")
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendChanFull     = errors.New("send channel full")
)

// Session errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrAlreadyConnected = errors.New("already connected")
	ErrWrongGame        = errors.New("session belongs to another game")
)
