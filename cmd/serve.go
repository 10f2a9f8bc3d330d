package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/constants"
	"github.com/kozaktomas/visionauth/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the VisionAuth web server.
The web server hosts the camera portal and the JSON API. Every browser
gets its own profile and attempt log, identified by a signed cookie.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
// Explicit flags win over the environment.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		}
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" && !cmd.Flags().Changed("host") {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := context.Background()

	fmt.Printf("Opening %s storage...\n", cfg.Storage.Backend)
	kv, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	recognizer, err := newRecognizer(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Using recognition model %s\n", recognizer.Provider().Name())
	if cfg.Web.Secret == "" {
		fmt.Println("Warning: WEB_SECRET is not set, using the development secret")
	}

	tokens := newTokenIssuer(cfg)
	registry := auth.NewRegistry(storeFactory(kv), recognizer, authPolicy(cfg), auth.WithTokenIssuer(tokens))
	registry.SetLimits(cfg.Auth.MaxDevices, time.Duration(cfg.Auth.IdleMinutes)*time.Minute)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go registry.Run(sweepCtx, constants.RegistrySweepInterval)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, registry, tokens)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Printf("Starting VisionAuth on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := runUntilStopped(server, sigChan, constants.ShutdownTimeout); err != nil {
		return err
	}

	usage := recognizer.Provider().GetUsage()
	fmt.Printf("Recognition usage: %d input / %d output tokens, $%.4f\n",
		usage.InputTokens, usage.OutputTokens, usage.TotalCost)
	return nil
}

// lifecycle is the part of the web server runServe drives.
type lifecycle interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// runUntilStopped serves until stop fires. Start returns as soon as shutdown
// begins, so it then waits for in-flight requests to drain or the grace period to end.
func runUntilStopped(srv lifecycle, stop <-chan os.Signal, grace time.Duration) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-stop
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-drained
	return nil
}
