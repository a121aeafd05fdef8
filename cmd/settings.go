package cmd

import (
	"fmt"
	"strings"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/settings"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showSettings(cmd)
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showSettings(cmd)
	},
}

func showSettings(cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	printSettings(loadSettings(ctx, store).Snapshot())
	return nil
}

var settingsThemeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Toggle between the light and dark theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		t, err := loadSettings(ctx, store).ToggleTheme(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Theme is now %s.\n", t)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set NAME on|off",
	Short: "Turn a preference on or off",
	Long:  "Valid names: " + strings.Join(settings.FlagNames(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, ok := utils.ParseFlag(args[1])
		if !ok {
			return fmt.Errorf("%q is not a valid value, use on or off", args[1])
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		st := loadSettings(ctx, store)
		if err := st.SetFlag(ctx, args[0], value); err != nil {
			return err
		}
		printSettings(st.Snapshot())
		return nil
	},
}

func printSettings(s settings.Snapshot) {
	fmt.Printf("theme           %s\n", s.Theme)
	fmt.Printf("notifications   %s\n", onOff(s.NotificationsEnabled))
	fmt.Printf("analytics       %s\n", onOff(s.AnalyticsEnabled))
	fmt.Printf("reminders       %s\n", onOff(s.ScanRemindersEnabled))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsThemeCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
