package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	                                        
	  __ _  __ _ _ __ ___  ___  ___ __ _ _ __  
	 / _' |/ _' | '__/ _ \/ __|/ __/ _' | '_ \ 
	| (_| | (_| | | | (_) \__ \ (_| (_| | | | |
	 \__,_|\__, |_|  \___/|___/\___\__,_|_| |_|
	       |___/                               

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agroscan",
	Short: "Crop disease scans, history and reports from your terminal.",
	Long: LOGO + `agroscan searches Landsat scenes for a Cameroon region, sends scenes or field photos to the
disease detection service, and keeps a local history of every result with dashboard stats,
saved reports and CSV export.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.agroscan.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to the local SQLite store (default is $HOME/.config/agroscan/agroscan.sqlite)")
	rootCmd.PersistentFlags().String("api", "", "Analysis service base URL (overrides api.base_url)")

	viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api"))
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://127.0.0.1:8000")
	viper.SetDefault("api.prefix", "/api/v1")
	viper.SetDefault("api.retry_max", 2)
	viper.SetDefault("api.discovery_timeout", "30s")
	viper.SetDefault("api.submit_timeout", "60s")
	viper.SetDefault("api.dataset", "landsat_ot_c2_l2")
	viper.SetDefault("analysis.threshold", 0.5)
	viper.SetDefault("analysis.generate_map", true)
	viper.SetDefault("weather.cache_ttl", "30m")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %s\n", err)
	}

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".agroscan")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("agroscan")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".agroscan.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating config file: %s\n", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
