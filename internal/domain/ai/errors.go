package ai

import "errors"

var (
	// ErrInvalidImage is returned when the uploaded image cannot be decoded
	ErrInvalidImage = errors.New("invalid image")
)
