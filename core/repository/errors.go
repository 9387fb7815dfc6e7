package repository

import "errors"

var (
	ErrGameNotFound      = errors.New("played game not found")
	ErrGameAlreadyExists = errors.New("played game already exists")
)
