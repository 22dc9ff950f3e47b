package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/myindsound/promo/internal/capture"
	"github.com/myindsound/promo/internal/player"
)

// syncWriter serialises writes from timer and playback goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// formView renders the capture form as terminal lines. Its methods run under
// the capture controller's lock, so they only print and signal.
type formView struct {
	out io.Writer

	requested chan struct{}
	thanked   chan struct{}
	thankOnce sync.Once
}

func newFormView(out io.Writer) *formView {
	return &formView{
		out:       out,
		requested: make(chan struct{}, 1),
		thanked:   make(chan struct{}),
	}
}

func (v *formView) ShowForm() {
	select {
	case v.requested <- struct{}{}:
	default:
	}
}

func (v *formView) CloseForm()  {}
func (v *formView) ClearError() {}

func (v *formView) ShowError(msg string) {
	fmt.Fprintf(v.out, "! %s\n", msg)
}

func (v *formView) SetSubmitting(submitting bool) {
	if submitting {
		fmt.Fprintln(v.out, "Submitting...")
	}
}

func (v *formView) ShowSuccess() {
	fmt.Fprintln(v.out, "Thanks! You're on the list.")
}

func (v *formView) ShowThankYou(code string) {
	if code != "" {
		fmt.Fprintf(v.out, "Your promo code: %s (type \"copy\" to copy it)\n", code)
	}
	v.thankOnce.Do(func() { close(v.thanked) })
}

func (v *formView) SetCopyLabel(label string) {
	if label != capture.LabelCopy {
		fmt.Fprintln(v.out, label)
	}
}

// playerView prints track and state changes. Progress is kept for the
// status command rather than printed on every tick.
type playerView struct {
	out io.Writer

	mu       sync.Mutex
	progress player.Progress
}

func (v *playerView) RenderTrack(t player.Track) {
	fmt.Fprintf(v.out, "♪ %s - %s\n", t.Title, t.Artist)
}

func (v *playerView) RenderPlaying(playing bool) {
	if playing {
		fmt.Fprintln(v.out, "▶ playing")
	} else {
		fmt.Fprintln(v.out, "❚❚ paused")
	}
}

func (v *playerView) RenderProgress(p player.Progress) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progress = p
}

func (v *playerView) RenderRepeat(repeat bool) {
	if repeat {
		fmt.Fprintln(v.out, "repeat on")
	} else {
		fmt.Fprintln(v.out, "repeat off")
	}
}

func (v *playerView) RenderVolume(level float64) {
	fmt.Fprintf(v.out, "volume %d%%\n", int(level*100+0.5))
}

func (v *playerView) Progress() player.Progress {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.progress
}
