package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/capture"
	"github.com/kozaktomas/visionauth/internal/config"
	"github.com/kozaktomas/visionauth/internal/recognition"
)

// attemptOutput is the JSON form of a finished attempt.
type attemptOutput struct {
	Result      recognition.Result `json:"result"`
	Phase       auth.Phase         `json:"phase"`
	AccessToken string             `json:"access_token,omitempty"`
}

func addAttemptFlags(cmd *cobra.Command) {
	cmd.Flags().String("image", "", "Use a still image file instead of a camera")
	cmd.Flags().String("device", "", "Camera device passed to ffmpeg (defaults to CAMERA_DEVICE)")
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().Bool("show-token", false, "Print the access token after a successful attempt")
}

// captureDevice picks the image source from flags and configuration.
func captureDevice(cmd *cobra.Command, cfg *config.Config) (capture.Device, error) {
	if image := mustGetString(cmd, "image"); image != "" {
		return &capture.FileDevice{Path: image}, nil
	}
	device := mustGetString(cmd, "device")
	if device == "" {
		device = cfg.Camera.Device
	}
	if device == "" {
		return nil, errors.New("either provide --image or --device (or set CAMERA_DEVICE)")
	}
	return &capture.FFmpegDevice{Path: device, Format: cfg.Camera.Format}, nil
}

// runAttempt starts a flow with begin, captures one frame and reports the outcome.
func runAttempt(cmd *cobra.Command, description string, begin func(*auth.Controller) error) error {
	jsonOutput := mustGetBool(cmd, "json")
	showToken := mustGetBool(cmd, "show-token")

	cfg := loadConfig()
	device, err := captureDevice(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	recognizer, err := newRecognizer(ctx, cfg)
	if err != nil {
		return err
	}

	c, err := openController(ctx, cfg, kv, recognizer)
	if err != nil {
		return err
	}
	if err := begin(c); err != nil {
		return err
	}

	// Ctrl+C cancels the flow before the pending request, so its result is discarded.
	captureCtx, cancelCapture := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelCapture()
	stopCancel := context.AfterFunc(ctx, func() {
		c.Cancel()
		cancelCapture()
	})
	defer stopCancel()

	var result recognition.Result
	widget := capture.NewWidget(device, capture.DefaultOptions())
	err = widget.Run(ctx, func() error {
		done := spin(description, jsonOutput)
		defer done()
		return widget.Capture(captureCtx, func(ctx context.Context, dataURL string) error {
			var captureErr error
			result, captureErr = c.Capture(ctx, dataURL)
			return captureErr
		})
	})
	if err != nil {
		return err
	}

	snap := c.Snapshot()
	if jsonOutput {
		out := attemptOutput{Result: result, Phase: snap.Phase}
		if showToken {
			out.AccessToken = snap.AccessToken
		}
		return outputJSON(out)
	}

	printResult(result, snap.Phase)
	if showToken && snap.AccessToken != "" {
		fmt.Printf("\nAccess token:\n%s\n", snap.AccessToken)
	}
	if snap.Phase != auth.PhaseAuthenticated {
		return fmt.Errorf("%s did not succeed: %s", description, result.Message)
	}
	return nil
}

// spin shows an indeterminate spinner until the returned function is called.
func spin(description string, quiet bool) func() {
	if quiet {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	return func() {
		close(stop)
		<-finished
		_ = bar.Finish()
	}
}

func printResult(result recognition.Result, phase auth.Phase) {
	verdict := "NO MATCH"
	if result.Match {
		verdict = "MATCH"
	}
	fmt.Printf("Result:      %s\n", verdict)
	fmt.Printf("Confidence:  %.1f%%\n", result.Confidence*100)
	fmt.Printf("Message:     %s\n", result.Message)
	if a := result.Analysis; a != nil {
		fmt.Printf("Liveness:    %v\n", a.Liveness)
		fmt.Printf("Lighting:    %s\n", a.Lighting)
		fmt.Printf("Focus:       %s\n", a.Focus)
		if a.RiskScore != nil {
			fmt.Printf("Risk score:  %.0f/100\n", *a.RiskScore)
		}
	}
	fmt.Printf("Phase:       %s\n", phaseTitle(phase))
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
