package remote

import "errors"

var (
	ErrUnknownMode    = errors.New("remote: unknown transport")
	ErrUnknownCommand = errors.New("remote: unknown command")
	ErrRejected       = errors.New("remote: command rejected")
)
