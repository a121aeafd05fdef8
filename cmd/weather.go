package cmd

import (
	"fmt"
	"strings"

	"github.com/agroscan/agroscan/pkg/regions"
	"github.com/agroscan/agroscan/pkg/weather"
	"github.com/spf13/cobra"
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show current weather and farming advice for a region",
	Example: `  agroscan weather --region Littoral
  agroscan weather --lat 4.05 --lon 9.7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("region")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")

		var region regions.Region
		switch {
		case cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon"):
			region = regions.Nearest(lat, lon)
		case name != "":
			r, ok := regions.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown region %q (valid: %s)", name, strings.Join(regions.Names(), ", "))
			}
			region = r
		default:
			region = regions.Default()
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		client, err := newAnalysisClient(cmd)
		if err != nil {
			return err
		}
		w, src := newWeather(client).Current(ctx, region.Name)

		fmt.Printf("%s (%s)\n", region.Name, region.Capital)
		fmt.Printf("  %.0f°C, %s\n", w.Temp, w.Condition)
		fmt.Printf("  %s\n", w.Advice)
		if src != weather.Live {
			fmt.Printf("  [%s]\n", src)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
	weatherCmd.Flags().StringP("region", "r", "", "Region, capital or town")
	weatherCmd.Flags().Float64("lat", 0, "Latitude, picks the nearest region")
	weatherCmd.Flags().Float64("lon", 0, "Longitude, picks the nearest region")
}
