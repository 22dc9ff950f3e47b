package audio

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep/effects"
)

// counter streams the sample index as the left channel.
type counter struct {
	pos, len int
}

func (c *counter) Stream(samples [][2]float64) (int, bool) {
	if c.pos >= c.len {
		return 0, false
	}
	n := 0
	for n < len(samples) && c.pos < c.len {
		samples[n][0] = float64(c.pos)
		c.pos++
		n++
	}
	return n, true
}

func (c *counter) Err() error    { return nil }
func (c *counter) Len() int      { return c.len }
func (c *counter) Position() int { return c.pos }
func (c *counter) Seek(p int) error {
	c.pos = p
	return nil
}

func TestLooper_StopsWithoutLoop(t *testing.T) {
	l := &looper{s: &counter{len: 3}}
	buf := make([][2]float64, 5)

	n, ok := l.Stream(buf)
	if n != 3 || !ok {
		t.Fatalf("Stream = %d, %v; want 3, true", n, ok)
	}
	n, ok = l.Stream(buf)
	if n != 0 || ok {
		t.Errorf("drained Stream = %d, %v; want 0, false", n, ok)
	}
}

func TestLooper_Wraps(t *testing.T) {
	l := &looper{s: &counter{len: 3}, loop: true}
	buf := make([][2]float64, 7)

	n, ok := l.Stream(buf)
	if n != 7 || !ok {
		t.Fatalf("Stream = %d, %v; want 7, true", n, ok)
	}
	want := []float64{0, 1, 2, 0, 1, 2, 0}
	for i, w := range want {
		if buf[i][0] != w {
			t.Errorf("sample %d = %v, want %v", i, buf[i][0], w)
		}
	}
}

func TestLooper_EmptySourceDoesNotSpin(t *testing.T) {
	l := &looper{s: &counter{len: 0}, loop: true}
	n, ok := l.Stream(make([][2]float64, 4))
	if n != 0 || ok {
		t.Errorf("Stream = %d, %v; want 0, false", n, ok)
	}
}

func TestApplyGain(t *testing.T) {
	v := &effects.Volume{Base: 2}

	applyGain(v, 1)
	if v.Silent || v.Volume != 0 {
		t.Errorf("level 1: %+v", v)
	}
	applyGain(v, 0.5)
	if v.Silent || v.Volume != -1 {
		t.Errorf("level 0.5: %+v", v)
	}
	applyGain(v, 0)
	if !v.Silent {
		t.Errorf("level 0 should be silent: %+v", v)
	}
	applyGain(v, 0.25)
	if v.Silent || math.Abs(v.Volume+2) > 1e-9 {
		t.Errorf("level 0.25: %+v", v)
	}
}

func TestFetch_File(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "assets", "audio"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "assets", "audio", "pray.mp3"), []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := fetch(context.Background(), http.DefaultClient, root, "assets/audio/pray.mp3")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "ID3" {
		t.Errorf("unexpected data %q", data)
	}

	if _, err := fetch(context.Background(), http.DefaultClient, root, "missing.mp3"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pray.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	data, err := fetch(context.Background(), srv.Client(), "", srv.URL+"/pray.mp3")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "audio" {
		t.Errorf("unexpected data %q", data)
	}

	if _, err := fetch(context.Background(), srv.Client(), "", srv.URL+"/other.mp3"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestElement_WithoutSource(t *testing.T) {
	e := New(Config{Root: t.TempDir()})
	defer func() { _ = e.Close() }()

	if err := e.Play(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
	if _, ok := e.Duration(); ok {
		t.Error("duration should be unknown without a source")
	}
	if got := e.CurrentTime(); got != 0 {
		t.Errorf("CurrentTime = %v, want 0", got)
	}
	if err := e.Load("missing.mp3"); err == nil {
		t.Error("expected load error for missing file")
	}

	// No-ops without a source.
	e.Pause()
	e.SetCurrentTime(0)
	e.SetVolume(0.3)
	e.SetLoop(true)
}

func TestElement_PlayHonorsCancelledContext(t *testing.T) {
	e := New(Config{})
	defer func() { _ = e.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Play(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
