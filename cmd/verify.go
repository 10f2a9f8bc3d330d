package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kozaktomas/visionauth/internal/auth"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a face against the enrolled identity",
	Long: `Capture a frame and ask the model whether it shows the same person as the
enrolled image. The attempt succeeds only above AUTH_VERIFY_THRESHOLD.

Examples:
  visionauth verify --device /dev/video0 --show-token
  visionauth verify --image me.jpg --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAttempt(cmd, "verification", (*auth.Controller).BeginVerification)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addAttemptFlags(verifyCmd)
}
