package cribdrag

import "errors"

// Session errors are recoverable: the REPL reports them and keeps going.
var (
	ErrInvalidCribLength = errors.New("invalid crib length")
	ErrIndexOutOfRange   = errors.New("crib index out of range")
	ErrInvalidKeyLength  = errors.New("invalid key length")
	ErrParse             = errors.New("parse error")
	ErrCribNotSet        = errors.New("you need to set a crib")
	ErrUnknownCommand    = errors.New("unknown command")
)
