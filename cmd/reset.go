package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the enrolled profile",
	Long: `Delete the enrolled profile of the namespace. The attempt log is kept.
A new enrollment is required before verification is possible again.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()
	kv, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	c, err := openController(ctx, cfg, kv, nil)
	if err != nil {
		return err
	}
	if c.Snapshot().Profile == nil {
		fmt.Println("No profile enrolled.")
		return nil
	}
	if err := c.ClearProfile(ctx); err != nil {
		return fmt.Errorf("failed to reset profile: %w", err)
	}
	fmt.Printf("Profile in namespace %q deleted.\n", namespace)
	return nil
}
