package cli

import (
	"fmt"
	"time"

	"github.com/myindsound/promo/internal/capture"
	"github.com/spf13/cobra"
)

var (
	submitName        string
	submitEmail       string
	submitPhone       string
	submitCountryCode string
	submitOptIn       bool
	submitCopy        bool
	submitForce       bool
)

// newScheduler is swapped in tests to skip the form delays.
var newScheduler = func() capture.Scheduler { return capture.TimerScheduler{} }

const thankYouWait = capture.CloseDelay + capture.ThankYouDelay + 5*time.Second

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Join the mailing list and reveal the promo code",
	Example: `  promo submit --name "Jane Doe" --email jane@example.com --opt-in
  promo submit --name Jane --phone "(555) 123-4567" --country-code +44 --opt-in --copy`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitName, "name", "", "your name")
	f.StringVar(&submitEmail, "email", "", "email address")
	f.StringVar(&submitPhone, "phone", "", "phone number")
	f.StringVar(&submitCountryCode, "country-code", capture.DefaultCountryCode, "phone country code")
	f.BoolVar(&submitOptIn, "opt-in", false, "agree to receive updates")
	f.BoolVar(&submitCopy, "copy", false, "copy the promo code to the clipboard")
	f.BoolVar(&submitForce, "force", false, "submit even if this device already signed up")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := &syncWriter{w: cmd.OutOrStdout()}

	store, closeStore, err := openFlagStore()
	if err != nil {
		return err
	}
	defer closeStore()

	view := newFormView(out)
	ctrl := capture.New(capture.Config{
		Store:     store,
		Relay:     capture.NewRelayClient(cfg.Capture.RelayURL),
		View:      view,
		Scheduler: newScheduler(),
		Clipboard: systemClipboard{},
		PromoCode: cfg.Capture.PromoCode,
	})

	if ctrl.Captured() && !submitForce {
		fmt.Fprintln(out, "Already signed up on this device. Use --force to submit again.")
		return nil
	}

	err = ctrl.Submit(ctx, capture.Submission{
		Name:        submitName,
		Email:       submitEmail,
		Phone:       submitPhone,
		CountryCode: submitCountryCode,
		OptIn:       submitOptIn,
	})
	if err != nil {
		return err
	}

	select {
	case <-view.thanked:
	case <-time.After(thankYouWait):
		return fmt.Errorf("timed out waiting for confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	if submitCopy && cfg.Capture.PromoCode != "" {
		if err := ctrl.CopyCode(); err != nil {
			return err
		}
	}
	return nil
}
