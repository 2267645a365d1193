package client

import "errors"

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNoSession   = errors.New("no active session")
)
