package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/analysis"
	"github.com/agroscan/agroscan/pkg/scanflow"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "Search Landsat scenes for a region and optionally analyse one",
	Example: `  agroscan scenes --region Centre --date 2024-05-01 --max-cloud 20
  agroscan scenes --region Douala --enrich --pick 1 --download`,
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")
		date, _ := cmd.Flags().GetString("date")
		maxCloud, _ := cmd.Flags().GetInt("max-cloud")
		enrich, _ := cmd.Flags().GetBool("enrich")
		sceneID, _ := cmd.Flags().GetString("scene")
		pick, _ := cmd.Flags().GetInt("pick")
		download, _ := cmd.Flags().GetBool("download")

		if err := checkSceneFlags(sceneID, pick); err != nil {
			return err
		}
		if date == "" {
			date = time.Now().Format(utils.DateLayout)
		}
		params := scanflow.Params{Region: region, Date: date, MaxCloud: maxCloud}
		if err := params.Validate(); err != nil {
			return err
		}

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

		flow := newFlow(cmd, client, store, func(c *scanflow.Config) {
			c.Enrich = enrich
			c.Download = download
		})
		if err := flow.SetParams(params); err != nil {
			return err
		}

		scenes, err := flow.Discover(ctx)
		if err != nil {
			return err
		}
		if flow.Empty() {
			fmt.Println("No scenes found for the selected parameters.")
			return nil
		}
		printScenes(scenes)

		sceneID, err = chooseScene(sceneID, pick, scenes)
		if err != nil || sceneID == "" {
			return err
		}

		if err := flow.Select(sceneID); err != nil {
			return err
		}
		return submitWithRetry(cmd, flow)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze IMAGE",
	Short: "Send a field photo for disease detection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		client, err := newAnalysisClient(cmd)
		if err != nil {
			return err
		}

		flow := newFlow(cmd, client, store, nil)
		if err := flow.SelectImage(args[0]); err != nil {
			return err
		}
		return submitWithRetry(cmd, flow)
	},
}

func checkSceneFlags(sceneID string, pick int) error {
	if sceneID != "" && pick > 0 {
		return fmt.Errorf("%w: --scene and --pick are mutually exclusive", scanflow.ErrValidation)
	}
	if pick < 0 {
		return fmt.Errorf("%w: --pick must be positive", scanflow.ErrValidation)
	}
	return nil
}

// chooseScene resolves --scene or --pick against the discovered list. An empty id with no
// error means nothing was picked.
func chooseScene(sceneID string, pick int, scenes []analysis.SceneCandidate) (string, error) {
	if err := checkSceneFlags(sceneID, pick); err != nil {
		return "", err
	}
	switch {
	case sceneID != "":
		return sceneID, nil
	case pick > len(scenes):
		return "", fmt.Errorf("%w: --pick %d but only %d scenes", scanflow.ErrValidation, pick, len(scenes))
	case pick > 0:
		return scenes[pick-1].EntityID, nil
	}
	return "", nil
}

func newFlow(cmd *cobra.Command, client *analysis.Client, store *storage.Store, mod func(*scanflow.Config)) *scanflow.Flow {
	cfg := scanflow.Config{
		Service:          client,
		Store:            store,
		Log:              utils.Log,
		Progress:         &spinner{},
		DiscoveryTimeout: viper.GetDuration("api.discovery_timeout"),
		SubmitTimeout:    viper.GetDuration("api.submit_timeout"),
		GenerateMap:      viper.GetBool("analysis.generate_map"),
		Threshold:        viper.GetFloat64("analysis.threshold"),
	}
	if mod != nil {
		mod(&cfg)
	}
	return scanflow.New(cfg)
}

// submitWithRetry submits the selection and, on failure, asks whether to retry or give up.
func submitWithRetry(cmd *cobra.Command, flow *scanflow.Flow) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	in := bufio.NewReader(os.Stdin)
	out, err := flow.Submit(ctx)
	for err != nil && flow.State() == scanflow.Failed {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		if errors.Is(err, analysis.ErrTimeout) {
			fmt.Fprintln(os.Stderr, "The service took too long to answer.")
		}
		if !ask(in, "Retry? [y/N] ") {
			flow.Abandon()
			return err
		}
		out, err = flow.Retry(ctx)
	}
	if out == nil {
		return err
	}

	printOutcome(out)
	if err != nil {
		// analysis done but not saved
		return err
	}
	return nil
}

func ask(in *bufio.Reader, prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr)
		return false
	}
	ok, valid := utils.ParseFlag(strings.TrimSpace(line))
	return valid && ok
}

func printScenes(scenes []analysis.SceneCandidate) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tENTITY ID\tACQUIRED\tCLOUD\tPATH/ROW\t")
	for i, s := range scenes {
		pr := "-"
		if s.Path != "" || s.Row != "" {
			pr = s.Path + "/" + s.Row
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f%%\t%s\t\n", i+1, s.EntityID, s.AcquisitionDate, s.CloudCover, pr)
	}
	w.Flush()
}

func printOutcome(o *scanflow.Outcome) {
	r := o.Result
	fmt.Println()
	fmt.Printf("Diagnosis:   %s\n", r.Class)
	fmt.Printf("Confidence:  %d%%\n", r.Confidence)
	if r.Severity != "" {
		fmt.Printf("Severity:    %s\n", r.Severity)
	}
	if r.NDVI != nil {
		fmt.Printf("NDVI:        %.3f (range %.3f - %.3f)\n", r.NDVI.Mean, r.NDVI.Min, r.NDVI.Max)
	}
	if r.NDWI != nil {
		fmt.Printf("NDWI:        %.3f\n", *r.NDWI)
	}
	if r.Visualization != "" {
		fmt.Printf("Map:         %s%s\n", viper.GetString("api.base_url"), r.Visualization)
	}
	fmt.Printf("Advice:      %s\n", o.Record.Advice)
	if o.Record.ID != "" {
		fmt.Printf("Saved as:    %s\n", o.Record.ID)
	}
}

func init() {
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(analyzeCmd)

	scenesCmd.Flags().StringP("region", "r", "", "Region, capital or town (see 'agroscan regions')")
	scenesCmd.Flags().StringP("date", "d", "", "Acquisition date, YYYY-MM-DD (default today)")
	scenesCmd.Flags().IntP("max-cloud", "c", scanflow.DefaultMaxCloud, "Maximum cloud cover in percent (0-100)")
	scenesCmd.Flags().Bool("enrich", false, "Fetch full metadata for every scene")
	scenesCmd.Flags().String("scene", "", "Analyse the scene with this entity ID")
	scenesCmd.Flags().Int("pick", 0, "Analyse the Nth scene of the list")
	scenesCmd.Flags().Bool("download", false, "Ask the service to download the scene before analysis")
	scenesCmd.MarkFlagRequired("region")
}
