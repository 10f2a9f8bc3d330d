package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recent authentication attempts, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runLogs(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(snap.Logs)
	}

	if len(snap.Logs) == 0 {
		fmt.Println("No attempts logged.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tRESULT\tCONFIDENCE")
	fmt.Fprintln(w, "----\t----\t------\t----------")
	for _, entry := range snap.Logs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\n",
			entry.Time().Format(time.DateTime), entry.Type, outcome(entry.Success), entry.Confidence*100)
	}
	return w.Flush()
}
