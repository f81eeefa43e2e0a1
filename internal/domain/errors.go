package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound    = errors.New("not found")
	ErrEmptyText   = errors.New("text is empty")
	ErrEmptyLabel  = errors.New("category label is empty")
	ErrNotStarted  = errors.New("remote playback did not start")
	ErrInterrupted = errors.New("utterance interrupted")
	ErrNoSlot      = errors.New("no such speech slot")
	ErrUnavailable = errors.New("speech engine unavailable")
)
