package cmd

import (
	"errors"
	"fmt"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/reconcile"
	"github.com/spf13/cobra"
)

// historyCmd refreshes and prints the scan history
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Sync the scan history with the service and print it",
	Long: `Fetches the scan history from the analysis service and replaces the local copy with it.
If the service cannot be reached the last synced history is shown instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh(cmd)
	},
}

var historyRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Sync the scan history with the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh(cmd)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the locally cached history without contacting the service",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		_, records := newReconciler(client, store).Stats(ctx)
		printRecords(stdout(), records)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a scan on the service and locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		res, err := newReconciler(client, store).Delete(ctx, args[0])
		if errors.Is(err, reconcile.ErrRemoteDelete) {
			// local copy is gone already, the user still needs to know
			fmt.Printf("Removed %s locally, but the service did not confirm the delete: %v\n", args[0], err)
			return err
		}
		if err != nil {
			return err
		}
		if !res.Removed {
			fmt.Printf("%s was not in the local history.\n", args[0])
		} else {
			fmt.Printf("Deleted %s. %d scans left.\n", args[0], res.Stats.TotalScans)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard stats for the local history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd)
	},
}

func runRefresh(cmd *cobra.Command) error {
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

	res, err := newReconciler(client, store).Refresh(ctx)
	if err != nil {
		return err
	}
	if res.FromCache {
		utils.Log.Warnf("Showing cached history: %v", res.RemoteErr)
	}
	printRecords(stdout(), res.Records)
	return nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRefreshCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyStatsCmd)
}
