package model

import (
	"errors"
)

var (
	ErrNotReady         = errors.New("items not staged, call SetItems first")
	ErrUnknownProcessor = errors.New("unknown processor")
	ErrItemsFailed      = errors.New("some items failed")
)
