package state

import "errors"

var (
	ErrNoRecord = errors.New("no applied-state record")
	ErrCorrupt  = errors.New("applied-state record corrupt")
)
