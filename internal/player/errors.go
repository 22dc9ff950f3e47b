package player

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPlaylist   = errors.New("playlist is empty")
	ErrTrackIndex      = errors.New("track index out of range")
	ErrDurationUnknown = errors.New("duration not known yet")

	errLoadSuperseded = errors.New("load superseded")
)

// PlaybackError is the media engine refusing to load or play. It is logged
// and the player stays in its last consistent state.
type PlaybackError struct {
	Op  string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
