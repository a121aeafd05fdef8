package cmd

import (
	"github.com/agroscan/agroscan/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	Long: `Starts a JSON API exposing dashboard stats, the scan history, saved reports, settings,
weather and regions. Set server.username and server.password in the config file to require
basic auth.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")

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

		srv := server.New(
			newReconciler(client, store),
			store,
			loadSettings(ctx, store),
			newWeather(client),
			viper.GetString("server.username"),
			viper.GetString("server.password"),
		)

		return srv.Run(ctx, listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:8090", "HTTP listen address")
}
