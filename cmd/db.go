package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/spf13/cobra"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the local store",
}

var dbShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive sqlite3 shell on the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		fmt.Println("--> Keys:")
		keys := exec.Command(sqlitePath, dbPath, "SELECT key, updated_at FROM kv ORDER BY key;")
		keys.Stdout = os.Stdout
		keys.Stderr = os.Stderr
		if err := keys.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't list keys: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

var dbSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print how much space the history and saved reports take",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "COLLECTION\tRECORDS\tSIZE\t")
		total := 0
		for _, key := range []string{storage.ResultsKey, storage.ReportsKey} {
			records, err := store.Load(ctx, key)
			if err != nil {
				return err
			}
			n, err := store.Size(ctx, key)
			if err != nil {
				return err
			}
			total += n
			fmt.Fprintf(w, "%s\t%d\t%s\t\n", key, len(records), utils.HumanMB(n))
		}
		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t\t%s\t\n", utils.HumanMB(total))
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbShellCmd)
	dbCmd.AddCommand(dbSizeCmd)
}
