package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrIntentNotFound     = errors.New("payment intent not found")
	ErrAlreadySettled     = errors.New("payment intent already settled")
	ErrInvalidState       = errors.New("event not valid in current conversation state")
	ErrNoPendingPhoto     = errors.New("no pending photo in session")
	ErrEmptyTransform     = errors.New("transform backend returned no image")
)
