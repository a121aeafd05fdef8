package cmd

import (
	"errors"
	"fmt"

	"github.com/agroscan/agroscan/pkg/report"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage saved reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listReports(cmd)
	},
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print saved reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listReports(cmd)
	},
}

var reportsSaveCmd = &cobra.Command{
	Use:   "save ID",
	Short: "Save a scan from the history as a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		history, err := store.Load(ctx, storage.ResultsKey)
		if err != nil {
			return err
		}
		for _, r := range history {
			if r.ID != args[0] {
				continue
			}
			if _, err := store.Append(ctx, storage.ReportsKey, r); err != nil {
				return err
			}
			fmt.Printf("Saved %s to reports.\n", r.ID)
			return nil
		}
		return fmt.Errorf("no scan with id %q in the local history", args[0])
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Remove(ctx, storage.ReportsKey, args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("%s is not a saved report.\n", args[0])
			return nil
		}
		fmt.Printf("Deleted report %s.\n", args[0])
		return nil
	},
}

var reportsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Clear(ctx, storage.ReportsKey)
	},
}

var reportsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved reports as CSV",
	Long: `Writes every saved report to a new CSV file in --dir. With --history the whole local
scan history is exported instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		fromHistory, _ := cmd.Flags().GetBool("history")
		toStdout, _ := cmd.Flags().GetBool("stdout")

		ctx, cancel := commandContext(cmd)
		defer cancel()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		key := storage.ReportsKey
		if fromHistory {
			key = storage.ResultsKey
		}
		records, err := store.Load(ctx, key)
		if err != nil {
			return err
		}

		if toStdout {
			return report.WriteCSV(stdout(), records)
		}
		if len(records) == 0 {
			return errors.New("nothing to export")
		}
		path, err := report.ExportFile(dir, records)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d rows to %s\n", len(records), path)
		return nil
	},
}

func listReports(cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Load(ctx, storage.ReportsKey)
	if err != nil {
		return err
	}
	printRecords(stdout(), records)
	return nil
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsSaveCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
	reportsCmd.AddCommand(reportsClearCmd)
	reportsCmd.AddCommand(reportsExportCmd)

	reportsExportCmd.Flags().String("dir", ".", "Directory to write the CSV file to")
	reportsExportCmd.Flags().Bool("history", false, "Export the scan history instead of saved reports")
	reportsExportCmd.Flags().Bool("stdout", false, "Write the CSV to stdout instead of a file")
}
