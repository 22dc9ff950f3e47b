package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/myindsound/promo/internal/flagstore"
)

const (
	ErrorDisplay   = 5 * time.Second
	CloseDelay     = 2 * time.Second
	ThankYouDelay  = 1 * time.Second
	CopyFeedback   = 2 * time.Second
	GenericFailure = "Could not submit. Check console for details."

	LabelCopy       = "Copy Code"
	LabelCopied     = "Copied!"
	LabelCopyFailed = "Failed to copy"
)

var (
	ErrSubmitting = errors.New("submission already in progress")
	ErrSubmitted  = errors.New("already submitted")
)

type State int

const (
	StateGated State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateGated:
		return "gated"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View renders the capture form and the thank-you panel.
type View interface {
	ShowForm()
	CloseForm()
	ShowError(msg string)
	ClearError()
	SetSubmitting(submitting bool)
	ShowSuccess()
	ShowThankYou(code string)
	SetCopyLabel(label string)
}

// Scheduler runs f once after d. f must not run before AfterFunc returns.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type Clipboard interface {
	WriteAll(text string) error
}

type Player interface {
	Play(ctx context.Context) error
}

type Submitter interface {
	CreateContact(ctx context.Context, payload Payload) (*Response, error)
}

type Config struct {
	Store     flagstore.Store
	Relay     Submitter
	View      View
	Player    Player
	Scheduler Scheduler
	Clipboard Clipboard
	PromoCode string
}

type Controller struct {
	store     flagstore.Store
	relay     Submitter
	view      View
	player    Player
	scheduler Scheduler
	clipboard Clipboard
	code      string

	mu    sync.Mutex
	state State
	// errGen identifies the visible error so an older clear timer does not
	// remove a newer message.
	errGen  uint64
	copyGen uint64
}

func New(cfg Config) *Controller {
	c := &Controller{
		store:     cfg.Store,
		relay:     cfg.Relay,
		view:      cfg.View,
		player:    cfg.Player,
		scheduler: cfg.Scheduler,
		clipboard: cfg.Clipboard,
		code:      cfg.PromoCode,
	}
	if c.store == nil {
		c.store = flagstore.NewMemory()
	}
	if c.view == nil {
		c.view = nopView{}
	}
	if c.scheduler == nil {
		c.scheduler = TimerScheduler{}
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Captured reports whether this client already submitted. A store failure
// counts as not captured.
func (c *Controller) Captured() bool {
	ok, err := c.store.Get(context.Background(), flagstore.CapturedKey)
	if err != nil {
		slog.Warn("capture: reading captured flag", "error", err)
		return false
	}
	return ok
}

func (c *Controller) ShowGate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateGated
	c.view.ShowForm()
}

// Dismiss closes the form without submitting.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return
	}
	c.view.CloseForm()
}

// Submit validates and relays the submission. On success the captured flag is
// stored, the form closes after CloseDelay and playback starts, and the
// thank-you panel follows after ThankYouDelay.
func (c *Controller) Submit(ctx context.Context, sub Submission) error {
	c.mu.Lock()
	switch c.state {
	case StateSubmitting:
		c.mu.Unlock()
		return ErrSubmitting
	case StateSuccess:
		c.mu.Unlock()
		return ErrSubmitted
	}
	c.state = StateValidating
	if err := Validate(sub); err != nil {
		c.state = StateGated
		c.showErrorLocked(err.Error())
		c.mu.Unlock()
		return err
	}
	c.state = StateSubmitting
	c.view.ClearError()
	c.view.SetSubmitting(true)
	c.mu.Unlock()

	resp, err := c.relay.CreateContact(ctx, sub.Payload())
	if err != nil {
		slog.Error("capture: submission failed", "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state = StateFailed
		c.showErrorLocked(GenericFailure)
		c.view.SetSubmitting(false)
		return err
	}

	slog.Info("capture: contact submitted", "contact_id", resp.ContactID, "action", resp.Action)
	if err := c.store.Set(ctx, flagstore.CapturedKey); err != nil {
		slog.Warn("capture: storing captured flag", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateSuccess
	c.view.ShowSuccess()
	c.scheduler.AfterFunc(CloseDelay, c.unlock)
	return nil
}

func (c *Controller) unlock() {
	c.mu.Lock()
	c.view.CloseForm()
	c.mu.Unlock()

	if c.player != nil {
		if err := c.player.Play(context.Background()); err != nil {
			slog.Warn("capture: starting playback", "error", err)
		}
	}

	c.scheduler.AfterFunc(ThankYouDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.view.ShowThankYou(c.code)
	})
}

func (c *Controller) showErrorLocked(msg string) {
	c.errGen++
	gen := c.errGen
	c.view.ShowError(msg)
	c.scheduler.AfterFunc(ErrorDisplay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.errGen == gen {
			c.view.ClearError()
		}
	})
}

// CopyCode copies the promotional code and shows feedback on the button,
// restoring its label after CopyFeedback.
func (c *Controller) CopyCode() error {
	var err error
	if c.clipboard == nil {
		err = errors.New("no clipboard available")
	} else {
		err = c.clipboard.WriteAll(c.code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.copyGen++
	gen := c.copyGen

	if err != nil {
		slog.Warn("capture: copying promo code", "error", err)
		c.view.SetCopyLabel(LabelCopyFailed)
	} else {
		c.view.SetCopyLabel(LabelCopied)
	}
	c.scheduler.AfterFunc(CopyFeedback, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.copyGen == gen {
			c.view.SetCopyLabel(LabelCopy)
		}
	})
	if err != nil {
		return fmt.Errorf("copy code: %w", err)
	}
	return nil
}

// TimerScheduler runs callbacks on time.AfterFunc timers.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type nopView struct{}

func (nopView) ShowForm()           {}
func (nopView) CloseForm()          {}
func (nopView) ShowError(string)    {}
func (nopView) ClearError()         {}
func (nopView) SetSubmitting(bool)  {}
func (nopView) ShowSuccess()        {}
func (nopView) ShowThankYou(string) {}
func (nopView) SetCopyLabel(string) {}
