package service

import "errors"

var (
	ErrInternalServer  = errors.New("internal server error")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid or expired session token")
)
