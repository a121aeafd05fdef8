package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/agroscan/agroscan/pkg/stats"
	"github.com/agroscan/agroscan/pkg/storage"
)

const tableTime = "2006-01-02 15:04"

func printRecords(out io.Writer, records []storage.ScanRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No scans yet.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tDIAGNOSIS\tCONFIDENCE\tBUCKET\tSTATUS\t")
	for _, r := range records {
		date := "-"
		if !r.Timestamp.IsZero() {
			date = r.Timestamp.Local().Format(tableTime)
		}
		status := r.Status
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\t\n", r.ID, date, r.Result, r.Confidence, stats.BucketOf(r.Confidence), status)
	}
	w.Flush()
}

func printStats(out io.Writer, s stats.AggregateStats) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "BUCKET\tSCANS\tSHARE\t")
	fmt.Fprintf(w, "healthy\t%d\t%.0f%%\t\n", s.Healthy, s.Percent(stats.Healthy))
	fmt.Fprintf(w, "warning\t%d\t%.0f%%\t\n", s.Warnings, s.Percent(stats.Warning))
	fmt.Fprintf(w, "critical\t%d\t%.0f%%\t\n", s.Critical, s.Percent(stats.Critical))
	fmt.Fprintln(w, " \t \t \t")
	fmt.Fprintf(w, "TOTAL\t%d\t \t\n", s.TotalScans)
	w.Flush()

	if s.LastScan != nil {
		fmt.Fprintf(out, "\nLast scan: %s\n", s.LastScan.Local().Format(tableTime))
	}
}

func stdout() io.Writer { return os.Stdout }
