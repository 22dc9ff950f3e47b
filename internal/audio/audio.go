package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/myindsound/promo/internal/player"
)

const (
	outputRate      = beep.SampleRate(44100)
	resampleQuality = 4
	tickInterval    = 250 * time.Millisecond
	maxSourceBytes  = 64 << 20
)

var ErrNoSource = errors.New("no source loaded")

var speakerInit = sync.OnceValue(func() error {
	return speaker.Init(outputRate, outputRate.N(100*time.Millisecond))
})

type Config struct {
	// Root resolves relative sources. Absolute http(s) URLs are fetched.
	Root       string
	HTTPClient *http.Client
}

// Element is a player.Media backed by the system speaker. It decodes mp3
// sources fully into memory so they stay seekable. Events are delivered from
// their own goroutines; play state is reported only through return values.
type Element struct {
	root   string
	client *http.Client

	mu      sync.Mutex
	events  player.Events
	stream  beep.StreamSeekCloser
	format  beep.Format
	loop    *looper
	ctrl    *beep.Ctrl
	gain    *effects.Volume
	queued  bool
	playing bool
	level   float64
	looping bool

	stop chan struct{}
	once sync.Once
}

func New(cfg Config) *Element {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	e := &Element{
		root:   cfg.Root,
		client: client,
		level:  player.DefaultVolume,
		stop:   make(chan struct{}),
	}
	go e.tick()
	return e
}

func (e *Element) SetEvents(events player.Events) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = events
}

func (e *Element) Load(src string) error {
	data, err := fetch(context.Background(), e.client, e.root, src)
	if err != nil {
		return err
	}

	stream, format, err := mp3.Decode(readSeekNopCloser{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.detachLocked()

	e.stream = stream
	e.format = format
	e.loop = &looper{s: stream, loop: e.looping}
	e.ctrl = &beep.Ctrl{Streamer: beep.Resample(resampleQuality, format.SampleRate, outputRate, e.loop), Paused: true}
	e.gain = &effects.Volume{Streamer: e.ctrl, Base: 2}
	applyGain(e.gain, e.level)

	if events := e.events; events != nil {
		go events.OnLoadedMetadata()
	}
	return nil
}

// detachLocked drops the current stream from the speaker and closes it.
func (e *Element) detachLocked() {
	if e.stream == nil {
		return
	}
	if e.queued {
		speaker.Clear()
	}
	if err := e.stream.Close(); err != nil {
		slog.Debug("audio: closing stream", "error", err)
	}
	e.stream = nil
	e.queued = false
	e.playing = false
}

func (e *Element) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return ErrNoSource
	}
	if err := speakerInit(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()

	if !e.queued {
		stream := e.stream
		speaker.Play(beep.Seq(e.gain, beep.Callback(func() {
			go e.ended(stream)
		})))
		e.queued = true
	}
	e.playing = true
	return nil
}

// ended runs once the stream is drained without looping. stream guards
// against a callback that belongs to a source replaced since.
func (e *Element) ended(stream beep.StreamSeekCloser) {
	e.mu.Lock()
	if e.stream != stream {
		e.mu.Unlock()
		return
	}
	e.queued = false
	e.playing = false
	events := e.events
	e.mu.Unlock()

	if events != nil {
		events.OnEnded()
	}
}

func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.playing = false
}

func (e *Element) CurrentTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return e.format.SampleRate.D(e.stream.Position())
}

func (e *Element) SetCurrentTime(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return
	}
	pos := min(max(e.format.SampleRate.N(d), 0), e.stream.Len())
	speaker.Lock()
	err := e.stream.Seek(pos)
	speaker.Unlock()
	if err != nil {
		slog.Warn("audio: seek failed", "position", d, "error", err)
	}
}

func (e *Element) Duration() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return 0, false
	}
	return e.format.SampleRate.D(e.stream.Len()), true
}

func (e *Element) SetVolume(level float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = level
	if e.gain == nil {
		return
	}
	speaker.Lock()
	applyGain(e.gain, level)
	speaker.Unlock()
}

func (e *Element) SetLoop(loop bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.looping = loop
	if e.loop == nil {
		return
	}
	speaker.Lock()
	e.loop.loop = loop
	speaker.Unlock()
}

// Close stops time updates and releases the current source.
func (e *Element) Close() error {
	e.once.Do(func() { close(e.stop) })
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detachLocked()
	return nil
}

func (e *Element) tick() {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-t.C:
			e.mu.Lock()
			events, playing := e.events, e.playing
			e.mu.Unlock()
			if playing && events != nil {
				events.OnTimeUpdate()
			}
		}
	}
}

// applyGain maps a linear level in [0, 1] onto a base-2 volume effect.
func applyGain(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		v.Volume = 0
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}

// looper restarts its source at the end while loop is set.
type looper struct {
	s    beep.StreamSeeker
	loop bool
}

func (l *looper) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		sn, sok := l.s.Stream(samples[n:])
		n += sn
		if sok {
			if sn == 0 {
				break
			}
			continue
		}
		if !l.loop || l.s.Len() == 0 {
			return n, n > 0
		}
		if err := l.s.Seek(0); err != nil {
			return n, n > 0
		}
	}
	return n, true
}

func (l *looper) Err() error {
	return l.s.Err()
}

func fetch(ctx context.Context, client *http.Client, root, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		return data, nil
	}

	path := src
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, filepath.FromSlash(src))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return data, nil
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

var _ player.Media = (*Element)(nil)
