package service

import "errors"

var (
	ErrResidentNotFound = errors.New("resident not found")
	ErrAlreadyProcessed = errors.New("resident already processed")
	ErrInvalidPayload   = errors.New("invalid callback payload")
	ErrPayloadTooLong   = errors.New("callback payload exceeds 64 bytes")
	ErrUnknownAction    = errors.New("unknown moderation action")
)
