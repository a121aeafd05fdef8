package cmd

import (
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints healthy, warning and critical counts for the local history.",
	Long: `Prints healthy, warning and critical counts for the local history.
Confidence below 40 is healthy, 40 to 69 is a warning, 70 and above is critical.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd)
	},
}

func runStats(cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	client, err := newAnalysisClient(cmd)
	if err != nil {
		return err
	}

	s, _ := newReconciler(client, store).Stats(ctx)
	printStats(stdout(), s)
	return nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
