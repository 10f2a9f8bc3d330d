package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kozaktomas/visionauth/internal/auth"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a face",
	Long: `Capture a frame and ask the model whether it shows a live, well-lit,
in-focus face. An accepted image becomes the enrolled identity.

Examples:
  # Enroll from the default camera
  visionauth enroll --device /dev/video0

  # Enroll from a photo
  visionauth enroll --image me.jpg`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAttempt(cmd, "enrollment", (*auth.Controller).BeginEnrollment)
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	addAttemptFlags(enrollCmd)
}
