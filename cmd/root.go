package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	providerName string
	backendName  string
	namespace    string
)

var rootCmd = &cobra.Command{
	Use:   "visionauth",
	Short: "Face enrollment and verification backed by a hosted vision model",
	Long: `VisionAuth captures a camera frame, asks a hosted multimodal model
whether it shows a live face (enrollment) or the same person as the
enrolled image (verification), and tracks the resulting authentication
state and attempt history.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "Recognition provider: gemini, openai or ollama (overrides RECOGNITION_PROVIDER)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend: file, postgres, mariadb or s3 (overrides STORAGE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", defaultNamespace, "Profile namespace used by CLI commands (a web device ID inspects that browser)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
