package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/analysis"
	"github.com/agroscan/agroscan/pkg/reconcile"
	"github.com/agroscan/agroscan/pkg/settings"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/agroscan/agroscan/pkg/weather"
	"github.com/agroscan/agroscan/pkg/whttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// commandContext is cancelled on Ctrl+C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func resolveDBPath(cmd *cobra.Command) (string, error) {
	p, _ := cmd.Flags().GetString("dbpath")
	return utils.GetAbsDBPath(p)
}

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	path, err := resolveDBPath(cmd)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	utils.Log.Debugf("Using store at %s", path)
	return storage.Open(path)
}

func newAnalysisClient(cmd *cobra.Command) (*analysis.Client, error) {
	proxy, _ := cmd.Flags().GetString("proxy")
	return analysis.New(analysis.Config{
		BaseURL: viper.GetString("api.base_url"),
		Prefix:  viper.GetString("api.prefix"),
		Dataset: viper.GetString("api.dataset"),
		Timeout: viper.GetDuration("api.submit_timeout"),
		HTTP: whttp.Config{
			RetryMax: viper.GetInt("api.retry_max"),
			Proxy:    proxy,
		},
	})
}

func newReconciler(client *analysis.Client, store *storage.Store) *reconcile.Reconciler {
	return reconcile.New(reconcile.Config{
		Source: client,
		Store:  store,
		Log:    utils.Log,
	})
}

func loadSettings(ctx context.Context, store *storage.Store) *settings.State {
	st, err := settings.Load(ctx, store)
	if err != nil {
		utils.Log.Warnf("Could not read settings, using defaults: %v", err)
	}
	return st
}

func newWeather(client *analysis.Client) *weather.Service {
	return weather.New(client, viper.GetDuration("weather.cache_ttl"))
}
