package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// dsnCmd represents the dsn command
var dsnCmd = &cobra.Command{
	Use:   "dsn",
	Short: "Show the resolved database URL",
	Long: `Runs the database URL resolution exactly as serve does and prints the
result with the password redacted, along with the source that produced it.
No connection is opened.`,
	Run: func(cmd *cobra.Command, args []string) {
		res := resolveDatabaseURL(context.Background(), cfg)
		fmt.Fprintf(cmd.OutOrStdout(), "source: %s\nurl:    %s\n", res.Source, res.Redacted())
	},
}

func init() {
	rootCmd.AddCommand(dsnCmd)
}
