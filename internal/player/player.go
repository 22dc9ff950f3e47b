package player

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	DefaultVolume = 0.7
	SkipStep      = 5 * time.Second
	VolumeStep    = 0.1
)

// Media is the native media element the controller drives. Implementations
// must not deliver Events synchronously from inside these methods.
type Media interface {
	Load(src string) error
	// Play may block until playback starts or is refused.
	Play(ctx context.Context) error
	Pause()
	CurrentTime() time.Duration
	SetCurrentTime(d time.Duration)
	// Duration reports false until metadata has been loaded.
	Duration() (time.Duration, bool)
	SetVolume(level float64)
	SetLoop(loop bool)
}

// Events are the native notifications a Media emits.
type Events interface {
	OnLoadedMetadata()
	OnTimeUpdate()
	OnEnded()
	OnPlay()
	OnPause()
}

// View renders controller state. Calls are made with the controller locked,
// so a View must not call back into the controller.
type View interface {
	RenderTrack(track Track)
	RenderPlaying(playing bool)
	RenderProgress(p Progress)
	RenderRepeat(repeat bool)
	RenderVolume(level float64)
}

// Gate decides whether playback is unlocked. When it is not, PlayClick asks
// the gate to show itself instead of playing.
type Gate interface {
	Captured() bool
	ShowGate()
}

type Controller struct {
	mu    sync.Mutex
	media Media
	view  View
	gate  Gate

	playlist []Track
	index    int
	phase    Phase

	playing   bool
	repeating bool
	seeking   bool

	volume     float64
	preference float64

	position      time.Duration
	duration      time.Duration
	durationKnown bool

	// generation is bumped by every play and pause request so a play that
	// resolves after a later request can be recognised as stale. wantPlay
	// records what the latest request asked for.
	generation uint64
	wantPlay   bool

	// loadGen is bumped by every track load. loadMu serialises media loads,
	// which run without mu.
	loadGen uint64
	loadMu  sync.Mutex
}

func New(media Media, playlist []Track) (*Controller, error) {
	if len(playlist) == 0 {
		return nil, ErrEmptyPlaylist
	}
	c := &Controller{
		media:      media,
		view:       nopView{},
		playlist:   append([]Track(nil), playlist...),
		volume:     DefaultVolume,
		preference: DefaultVolume,
	}
	media.SetVolume(DefaultVolume)
	return c, nil
}

func (c *Controller) SetView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == nil {
		v = nopView{}
	}
	c.view = v
	c.view.RenderVolume(c.volume)
	c.view.RenderRepeat(c.repeating)
}

func (c *Controller) SetGate(g Gate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = g
}

func (c *Controller) Playlist() []Track {
	return append([]Track(nil), c.playlist...)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Phase:         c.phase,
		TrackIndex:    c.index,
		Track:         c.playlist[c.index],
		IsPlaying:     c.playing,
		IsRepeating:   c.repeating,
		IsSeeking:     c.seeking,
		Volume:        c.volume,
		Position:      c.position,
		Duration:      c.duration,
		DurationKnown: c.durationKnown,
	}
}

// Load points the media element at the given track and waits for metadata.
// A load failure is logged and the phase stays Loading.
func (c *Controller) Load(index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.playlist) {
		c.mu.Unlock()
		return ErrTrackIndex
	}
	src, gen := c.beginLoadLocked(index)
	c.mu.Unlock()

	if err := c.load(src, gen); err != nil && !errors.Is(err, errLoadSuperseded) {
		return err
	}
	return nil
}

// beginLoadLocked resets the controller for index and returns the source to
// load with its load generation.
func (c *Controller) beginLoadLocked(index int) (string, uint64) {
	track := c.playlist[index]
	c.index = index
	c.phase = PhaseLoading
	c.position = 0
	c.duration = 0
	c.durationKnown = false
	c.loadGen++

	c.view.RenderTrack(track)
	c.renderProgressLocked()
	return track.Src, c.loadGen
}

// load runs the media load without c.mu. Loads are serialised on loadMu and
// a load that a newer one superseded is skipped or its result dropped, so the
// element always ends on the newest source.
func (c *Controller) load(src string, gen uint64) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if !c.currentLoad(gen) {
		return errLoadSuperseded
	}
	err := c.media.Load(src)
	if !c.currentLoad(gen) {
		return errLoadSuperseded
	}
	if err != nil {
		slog.Warn("player: failed to load track", "src", src, "error", err)
		return &PlaybackError{Op: "load", Err: err}
	}
	return nil
}

func (c *Controller) currentLoad(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.loadGen
}

// Play requests playback. The media call runs unlocked; if a pause or another
// play arrived meanwhile, this request's success is ignored.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseIdle {
		src, gen := c.beginLoadLocked(c.index)
		c.mu.Unlock()
		if err := c.load(src, gen); err != nil {
			if errors.Is(err, errLoadSuperseded) {
				return nil
			}
			return err
		}
		c.mu.Lock()
	}
	c.generation++
	c.wantPlay = true
	gen := c.generation
	c.mu.Unlock()

	err := c.media.Play(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		slog.Warn("player: playback failed", "error", err)
		return &PlaybackError{Op: "play", Err: err}
	}
	if gen != c.generation {
		if !c.wantPlay {
			c.media.Pause()
		}
		return nil
	}
	c.setPlayingLocked(true)
	return nil
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pauseLocked()
}

func (c *Controller) pauseLocked() {
	c.generation++
	c.wantPlay = false
	c.media.Pause()
	c.setPlayingLocked(false)
}

func (c *Controller) setPlayingLocked(playing bool) {
	c.playing = playing
	switch {
	case playing:
		c.phase = PhasePlaying
	case c.phase == PhasePlaying:
		c.phase = PhasePaused
	}
	c.view.RenderPlaying(playing)
}

func (c *Controller) TogglePlay(ctx context.Context) error {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	if playing {
		c.Pause()
		return nil
	}
	return c.Play(ctx)
}

// PlayClick is the play button: gated until the visitor has been captured.
func (c *Controller) PlayClick(ctx context.Context) error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()

	if gate != nil && !gate.Captured() {
		gate.ShowGate()
		return nil
	}
	return c.TogglePlay(ctx)
}

// Next advances the playlist. At the last track it wraps to the first only
// when repeat is on; otherwise playback stops and the index stays put.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	var target int
	switch {
	case c.index < len(c.playlist)-1:
		target = c.index + 1
	case c.repeating:
		target = 0
	default:
		if c.playing {
			c.pauseLocked()
		}
		c.mu.Unlock()
		return nil
	}
	src, gen := c.beginLoadLocked(target)
	c.mu.Unlock()

	return c.loadAndPlay(ctx, src, gen)
}

// Previous retreats the playlist; at the first track it restarts it instead.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	if c.index == 0 {
		c.media.SetCurrentTime(0)
		c.position = 0
		c.renderProgressLocked()
		c.mu.Unlock()
		return nil
	}
	src, gen := c.beginLoadLocked(c.index - 1)
	c.mu.Unlock()

	return c.loadAndPlay(ctx, src, gen)
}

// loadAndPlay plays once the load finishes. A superseded load leaves playback
// to the request that replaced it.
func (c *Controller) loadAndPlay(ctx context.Context, src string, gen uint64) error {
	if err := c.load(src, gen); err != nil {
		if errors.Is(err, errLoadSuperseded) {
			return nil
		}
		return err
	}
	return c.Play(ctx)
}

func (c *Controller) ToggleRepeat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeating = !c.repeating
	c.media.SetLoop(c.repeating)
	c.view.RenderRepeat(c.repeating)
	return c.repeating
}

// Seek moves playback to target, clamped into [0, duration].
func (c *Controller) Seek(target time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(target)
}

func (c *Controller) seekLocked(target time.Duration) error {
	duration, ok := c.media.Duration()
	if !ok {
		return ErrDurationUnknown
	}
	c.duration, c.durationKnown = duration, true

	target = min(max(target, 0), duration)
	c.media.SetCurrentTime(target)
	c.position = target
	if !c.seeking {
		c.renderProgressLocked()
	}
	return nil
}

// SeekFraction seeks to a fraction of the track, as when clicking the bar.
func (c *Controller) SeekFraction(f float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekFractionLocked(f)
}

func (c *Controller) seekFractionLocked(f float64) error {
	duration, ok := c.media.Duration()
	if !ok {
		return ErrDurationUnknown
	}
	return c.seekLocked(time.Duration(clamp01(f) * float64(duration)))
}

// BeginSeek starts a drag on the progress bar. Until EndSeek the display
// follows the pointer and time updates are not rendered.
func (c *Controller) BeginSeek(f float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeking = true
	c.renderDragLocked(f)
}

func (c *Controller) DragSeek(f float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seeking {
		return
	}
	c.renderDragLocked(f)
}

// EndSeek commits the drag position.
func (c *Controller) EndSeek(f float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seeking {
		return nil
	}
	c.seeking = false
	err := c.seekFractionLocked(f)
	c.renderProgressLocked()
	return err
}

func (c *Controller) renderDragLocked(f float64) {
	f = clamp01(f)
	p := Progress{Percent: f * 100, Elapsed: "0:00", Total: "0:00"}
	if c.durationKnown {
		p.Elapsed = FormatTime(time.Duration(f * float64(c.duration)))
		p.Total = FormatTime(c.duration)
	}
	c.view.RenderProgress(p)
}

// SkipBy moves playback by delta, clamped to the track.
func (c *Controller) SkipBy(delta time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(c.media.CurrentTime() + delta)
}

// SetVolume clamps level into [0, 1]. Non-zero levels become the level that
// un-muting restores.
func (c *Controller) SetVolume(level float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVolumeLocked(level)
}

func (c *Controller) setVolumeLocked(level float64) float64 {
	level = math.Round(clamp01(level)*100) / 100
	c.volume = level
	if level > 0 {
		c.preference = level
	}
	c.media.SetVolume(level)
	c.view.RenderVolume(level)
	return level
}

func (c *Controller) NudgeVolume(delta float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setVolumeLocked(c.volume + delta)
}

// ToggleMute switches between silence and the last non-zero level.
func (c *Controller) ToggleMute() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.volume > 0 {
		c.volume = 0
		c.media.SetVolume(0)
		c.view.RenderVolume(0)
		return 0
	}
	return c.setVolumeLocked(c.preference)
}

// HandleKey applies a keyboard shortcut and reports whether key was one.
func (c *Controller) HandleKey(ctx context.Context, key string) bool {
	switch key {
	case " ", "k":
		_ = c.TogglePlay(ctx)
	case "ArrowLeft":
		_ = c.SkipBy(-SkipStep)
	case "ArrowRight":
		_ = c.SkipBy(SkipStep)
	case "ArrowUp":
		c.NudgeVolume(VolumeStep)
	case "ArrowDown":
		c.NudgeVolume(-VolumeStep)
	case "m":
		c.ToggleMute()
	default:
		return false
	}
	return true
}

func (c *Controller) OnLoadedMetadata() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration, c.durationKnown = c.media.Duration()
	if c.phase == PhaseLoading {
		c.phase = PhaseReady
	}
	c.renderProgressLocked()
}

func (c *Controller) OnTimeUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = c.media.CurrentTime()
	if d, ok := c.media.Duration(); ok {
		c.duration, c.durationKnown = d, true
	}
	if c.seeking {
		return
	}
	c.renderProgressLocked()
}

// OnEnded fires when the track finishes without looping. It advances when a
// later track exists, otherwise stops and rewinds to the start.
func (c *Controller) OnEnded() {
	c.mu.Lock()
	if c.repeating {
		c.mu.Unlock()
		return
	}
	if c.index < len(c.playlist)-1 {
		c.mu.Unlock()
		_ = c.Next(context.Background())
		return
	}
	defer c.mu.Unlock()
	c.pauseLocked()
	c.media.SetCurrentTime(0)
	c.position = 0
	c.phase = PhaseEnded
	c.renderProgressLocked()
}

func (c *Controller) OnPlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPlayingLocked(true)
}

func (c *Controller) OnPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPlayingLocked(false)
}

func (c *Controller) renderProgressLocked() {
	p := Progress{Elapsed: FormatTime(c.position), Total: "0:00"}
	if c.durationKnown && c.duration > 0 {
		p.Percent = float64(c.position) / float64(c.duration) * 100
		p.Total = FormatTime(c.duration)
	}
	c.view.RenderProgress(p)
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return min(max(f, 0), 1)
}

type nopView struct{}

func (nopView) RenderTrack(Track)       {}
func (nopView) RenderPlaying(bool)      {}
func (nopView) RenderProgress(Progress) {}
func (nopView) RenderRepeat(bool)       {}
func (nopView) RenderVolume(float64)    {}

var _ Events = (*Controller)(nil)
