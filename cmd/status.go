package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kozaktomas/visionauth/internal/auth"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the enrolled profile and recent attempts",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

var titleCaser = cases.Title(language.English)

// phaseTitle renders a phase for humans, e.g. "authenticated" as "Authenticated".
func phaseTitle(phase auth.Phase) string {
	return titleCaser.String(string(phase))
}

func runStatus(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(snap)
	}

	fmt.Printf("Namespace:   %s\n", namespace)
	if snap.Profile == nil {
		fmt.Println("Profile:     not enrolled")
	} else {
		fmt.Printf("Profile:     %s (%s)\n", snap.Profile.Email, snap.Profile.ID)
		fmt.Printf("Enrolled:    %s\n", time.UnixMilli(snap.Profile.EnrolledAt).Format(time.RFC1123))
		fmt.Printf("Can verify:  %v\n", snap.CanVerify())
	}

	var successes int
	for _, entry := range snap.Logs {
		if entry.Success {
			successes++
		}
	}
	fmt.Printf("Attempts:    %d logged, %d successful\n", len(snap.Logs), successes)
	if len(snap.Logs) > 0 {
		last := snap.Logs[0]
		fmt.Printf("Last:        %s %s at %s\n",
			titleCaser.String(string(last.Type)), outcome(last.Success), last.Time().Format(time.RFC1123))
	}
	return nil
}

// loadSnapshot reads the persisted state of the CLI namespace without a recognition provider.
func loadSnapshot(ctx context.Context) (auth.Snapshot, error) {
	cfg := loadConfig()
	kv, err := openStore(ctx, cfg)
	if err != nil {
		return auth.Snapshot{}, fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	c, err := openController(ctx, cfg, kv, nil)
	if err != nil {
		return auth.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

func outcome(success bool) string {
	if success {
		return "succeeded"
	}
	return "failed"
}
