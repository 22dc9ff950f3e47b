package player

import (
	"fmt"
	"time"
)

// Phase is the lifecycle position of the current track.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhasePlaying
	PhasePaused
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the controller.
type State struct {
	Phase         Phase         `json:"phase"`
	TrackIndex    int           `json:"track_index"`
	Track         Track         `json:"track"`
	IsPlaying     bool          `json:"is_playing"`
	IsRepeating   bool          `json:"is_repeating"`
	IsSeeking     bool          `json:"is_seeking"`
	Volume        float64       `json:"volume"`
	Position      time.Duration `json:"position"`
	Duration      time.Duration `json:"duration"`
	DurationKnown bool          `json:"duration_known"`
}

// Progress is what the progress bar and time labels display.
type Progress struct {
	Percent float64
	Elapsed string
	Total   string
}

// FormatTime renders d as m:ss. Negative durations render as 0:00.
func FormatTime(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
