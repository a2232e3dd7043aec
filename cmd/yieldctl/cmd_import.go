package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"yieldboard/client"
	"yieldboard/mapper"
)

var importCmd = &cobra.Command{
	Use:   "import <serials.csv>",
	Short: "Look up station times for a CSV of serial numbers",
	Long: `import reads serial numbers from a CSV file (an sn/serial column, or the
first column) and fetches per-station dwell times in batches. Ctrl-C stops
between batches and discards partial results.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	sns, err := client.ReadSerialNumbers(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if len(sns) == 0 {
		return fmt.Errorf("%s contains no serial numbers", args[0])
	}
	logger.Infof("Importing %d serial numbers", len(sns))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := api.StationTimes(ctx, sns)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("import cancelled")
		}
		var batchErr *client.BatchError
		if errors.As(err, &batchErr) {
			return fmt.Errorf("import failed at batch %d of %d: %w", batchErr.Batch+1, batchErr.Batches, batchErr.Err)
		}
		return err
	}
	return stationTimesReport(records).write(cmd.OutOrStdout(), outputFormat)
}

type stationTimesResult struct {
	Records  []mapper.StationTimeRecord `json:"records"`
	Stations map[string]float64         `json:"stations"`
}

func stationTimesReport(records []mapper.StationTimeRecord) *table {
	res := stationTimesResult{Records: records, Stations: map[string]float64{}}
	for _, r := range records {
		res.Stations[r.Station] += r.TotalTime
	}
	t := &table{data: res, headers: []string{"SN", "STATION", "SECONDS"}}
	for _, r := range records {
		t.add(r.SN, r.Station, r.TotalTime)
	}
	names := make([]string, 0, len(res.Stations))
	for name := range res.Stations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.add("(all)", name, res.Stations[name])
	}
	return t
}

var portalCmd = &cobra.Command{
	Use:   "portal <select statement>",
	Short: "Run a read-only SELECT through the SQL portal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := api.Portal(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			var fe *client.FetchError
			if errors.As(err, &fe) && fe.Message != "" {
				return fmt.Errorf("portal rejected the statement (%d): %s", fe.Status, fe.Message)
			}
			return err
		}
		if res.Truncated {
			logger.Warnf("Result truncated to %d rows", res.RowCount)
		}
		return portalReport(res).write(cmd.OutOrStdout(), outputFormat)
	},
}

func portalReport(res client.PortalResult) *table {
	t := &table{data: res, headers: res.Fields}
	for _, row := range res.Rows {
		cells := make([]any, len(res.Fields))
		for i, f := range res.Fields {
			v := row[f]
			if v == nil {
				v = "NULL"
			}
			cells[i] = v
		}
		t.add(cells...)
	}
	return t
}
