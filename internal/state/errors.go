package state

import "errors"

var (
	ErrNotFound     = errors.New("slot not found")
	ErrCorruptState = errors.New("corrupt slot")
	ErrExists       = errors.New("slot already exists")
)
