package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/myindsound/promo/internal/audio"
	"github.com/myindsound/promo/internal/capture"
	"github.com/myindsound/promo/internal/media"
	"github.com/myindsound/promo/internal/player"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the release through the system speaker",
	Long: `Play opens an interactive player. Playback unlocks after joining the
mailing list once on this device.`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

const playHelp = `commands:
  p, play        play or pause (asks to sign up first)
  n, next        next track
  b, prev        previous track, or restart
  r, repeat      toggle repeat
  < / >          skip back or forward 5s
  + / -          volume up or down
  m, mute        toggle mute
  seek 1:30      jump to a position (also 50%)
  vol 80         set volume in percent
  copy           copy the promo code
  status         show the current track and position
  q, quit        exit`

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := &syncWriter{w: cmd.OutOrStdout()}

	resolver, _, err := newResolver(ctx)
	if err != nil {
		return err
	}
	tracks, err := media.ResolvePlaylist(ctx, resolver, cfg.Tracks)
	if err != nil {
		return err
	}

	element := audio.New(audio.Config{Root: cfg.Server.SiteDir})
	defer func() { _ = element.Close() }()

	ctrl, err := player.New(element, tracks)
	if err != nil {
		return err
	}
	element.SetEvents(ctrl)
	view := &playerView{out: out}
	ctrl.SetView(view)

	store, closeStore, err := openFlagStore()
	if err != nil {
		return err
	}
	defer closeStore()

	form := newFormView(out)
	gate := capture.New(capture.Config{
		Store:     store,
		Relay:     capture.NewRelayClient(cfg.Capture.RelayURL),
		View:      form,
		Player:    ctrl,
		Scheduler: newScheduler(),
		Clipboard: systemClipboard{},
		PromoCode: cfg.Capture.PromoCode,
	})
	ctrl.SetGate(gate)

	if err := ctrl.Load(0); err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt: "promo> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("play"), readline.PcItem("next"), readline.PcItem("prev"),
			readline.PcItem("repeat"), readline.PcItem("mute"), readline.PcItem("seek"),
			readline.PcItem("vol"), readline.PcItem("copy"), readline.PcItem("status"),
			readline.PcItem("help"), readline.PcItem("quit"),
		),
		Stdout: out,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s := &session{player: ctrl, gate: gate, view: view, out: out}
	fmt.Fprintln(out, playHelp)
	for {
		rl.SetPrompt("promo> ")
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.exec(ctx, line) {
			return nil
		}

		select {
		case <-form.requested:
			runForm(ctx, rl, gate, out)
		default:
		}
	}
}

// session maps player commands onto the controllers.
type session struct {
	player *player.Controller
	gate   *capture.Controller
	view   *playerView
	out    io.Writer
}

// exec runs one command line and reports whether the user asked to quit.
func (s *session) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, arg := strings.ToLower(fields[0]), ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	var err error
	switch cmd {
	case "p", "play", "pause":
		err = s.player.PlayClick(ctx)
	case "n", "next":
		err = s.player.Next(ctx)
	case "b", "prev", "previous":
		err = s.player.Previous(ctx)
	case "r", "repeat":
		s.player.ToggleRepeat()
	case "<":
		s.player.HandleKey(ctx, "ArrowLeft")
	case ">":
		s.player.HandleKey(ctx, "ArrowRight")
	case "+":
		s.player.HandleKey(ctx, "ArrowUp")
	case "-":
		s.player.HandleKey(ctx, "ArrowDown")
	case "m", "mute":
		s.player.HandleKey(ctx, "m")
	case "seek":
		err = s.seek(arg)
	case "vol", "volume":
		var pct float64
		pct, err = strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
		if err == nil {
			s.player.SetVolume(pct / 100)
		}
	case "copy":
		err = s.gate.CopyCode()
	case "status":
		s.status()
	case "h", "help", "?":
		fmt.Fprintln(s.out, playHelp)
	case "q", "quit", "exit":
		return true
	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *session) seek(arg string) error {
	if pct, ok := strings.CutSuffix(arg, "%"); ok {
		f, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return fmt.Errorf("invalid percentage %q", arg)
		}
		return s.player.SeekFraction(f / 100)
	}
	at, err := parsePosition(arg)
	if err != nil {
		return err
	}
	return s.player.Seek(at)
}

func (s *session) status() {
	st := s.player.State()
	p := s.view.Progress()
	total := p.Total
	if total == "" {
		total = "--:--"
	}
	fmt.Fprintf(s.out, "%d/%d %s - %s [%s] %s / %s", st.TrackIndex+1, len(s.player.Playlist()),
		st.Track.Title, st.Track.Artist, st.Phase, player.FormatTime(st.Position), total)
	if st.IsRepeating {
		fmt.Fprint(s.out, " repeat")
	}
	fmt.Fprintf(s.out, " volume %d%%\n", int(st.Volume*100+0.5))
}

// parsePosition accepts m:ss or a plain number of seconds.
func parsePosition(arg string) (time.Duration, error) {
	if m, sec, ok := strings.Cut(arg, ":"); ok {
		mins, err1 := strconv.Atoi(m)
		secs, err2 := strconv.Atoi(sec)
		if err1 != nil || err2 != nil || mins < 0 || secs < 0 || secs > 59 {
			return 0, fmt.Errorf("invalid position %q", arg)
		}
		return time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second, nil
	}
	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("invalid position %q", arg)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// runForm prompts for the capture fields and submits them once. A failed
// submission leaves the gate closed; the next play asks again.
func runForm(ctx context.Context, rl *readline.Instance, gate *capture.Controller, out io.Writer) {
	fmt.Fprintln(out, "Sign up for updates from Myind Sound to unlock playback.")
	sub := capture.Submission{
		Name:        ask(rl, "Name", ""),
		Email:       ask(rl, "Email", ""),
		Phone:       ask(rl, "Phone", ""),
		CountryCode: ask(rl, "Country code", capture.DefaultCountryCode),
	}
	answer := strings.ToLower(ask(rl, "Agree to receive updates? (y/n)", "n"))
	sub.OptIn = answer == "y" || answer == "yes"

	if err := gate.Submit(ctx, sub); err != nil {
		gate.Dismiss()
	}
}

func ask(rl *readline.Instance, label, defaultVal string) string {
	if defaultVal != "" {
		rl.SetPrompt(fmt.Sprintf("%s [%s]: ", label, defaultVal))
	} else {
		rl.SetPrompt(label + ": ")
	}
	line, _ := rl.Readline()
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}
