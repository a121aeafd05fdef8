package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/agroscan/agroscan/pkg/regions"
	"github.com/spf13/cobra"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the supported regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		asGeoJSON, _ := cmd.Flags().GetBool("geojson")
		if asGeoJSON {
			data, err := json.MarshalIndent(regions.FeatureCollection(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REGION\tCAPITAL\tTOWN\tLAT\tLON\t")
		for _, r := range regions.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t\n", r.Name, r.Capital, r.Town, r.Lat(), r.Lon())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().Bool("geojson", false, "Print the regions as a GeoJSON FeatureCollection")
}
