package process

import "errors"

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrEmptyImage       = errors.New("empty image")
)
