package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yieldboard/aggregate"
	"yieldboard/client"
	"yieldboard/mapper"
	"yieldboard/present"
)

var (
	xbarModel    string
	xbarStation  string
	xbarSubgroup int
	xbarBins     int
)

var xbarCmd = &cobra.Command{
	Use:   "xbar",
	Short: "X-bar/R control limits and dwell-time distribution for a station",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := api.Testboard(cmd.Context(), client.XBarR, client.TestboardQuery{
			Start:   rangeStart,
			End:     rangeEnd,
			Model:   xbarModel,
			Station: xbarStation,
		})
		if err != nil {
			return err
		}
		t, err := xbarReport(records, xbarSubgroup, xbarBins)
		if err != nil {
			return err
		}
		return t.write(cmd.OutOrStdout(), outputFormat)
	},
}

type xbarResult struct {
	Samples int                `json:"samples"`
	Chart   present.XBarRChart `json:"chart"`
	Box     present.BoxPlot    `json:"box"`
	Density []present.Bin      `json:"density"`
}

// xbarReport charts the dwell times of records in arrival order. Records
// without a known duration are skipped.
func xbarReport(records []mapper.TestboardRecord, subgroup, bins int) (*table, error) {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if d := r.Duration(); d > 0 {
			values = append(values, d)
		}
	}
	chart, err := present.XBarR(values, subgroup)
	if err != nil {
		return nil, err
	}
	res := xbarResult{
		Samples: len(values),
		Chart:   chart,
		Box:     present.BoxStats(values),
		Density: present.Density(values, bins),
	}

	t := &table{data: res, headers: []string{"SECTION", "NAME", "VALUE", "EXTRA"}}
	t.add("xbar", "center", chart.GrandMean, "")
	t.add("xbar", "limits", chart.XBarLCL, chart.XBarUCL)
	t.add("range", "center", chart.MeanRange, "")
	t.add("range", "limits", chart.RangeLCL, chart.RangeUCL)
	for i, g := range chart.Subgroups {
		t.add("subgroup", i+1, g.Mean, g.Range)
	}
	b := res.Box
	t.add("box", "quartiles", b.Q1, fmt.Sprintf("%.2f / %.2f", b.Median, b.Q3))
	t.add("box", "whiskers", b.WhiskerLow, b.WhiskerHigh)
	t.add("box", "outliers", len(b.Outliers), "")
	for _, bin := range res.Density {
		t.add("density", fmt.Sprintf("%.2f-%.2f", bin.Low, bin.High), bin.Count, "")
	}
	return t, nil
}

var testYieldsCmd = &cobra.Command{
	Use:   "test-yields",
	Short: "FLA and FCT test yield per model for the days in range",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := api.TestYields(cmd.Context(), aggregate.DayKeys(rangeStart, rangeEnd))
		if err != nil {
			return err
		}
		return testYieldsReport(records).write(cmd.OutOrStdout(), outputFormat)
	},
}

func testYieldsReport(records []mapper.TestYieldRecord) *table {
	t := &table{data: records, headers: []string{"MODEL", "ASSY2", "FLA", "FCT", "FLA YIELD", "FCT YIELD"}}
	for _, r := range records {
		t.add(r.Model, r.Assy2Total, r.FLATotal, r.FCTTotal, percent(r.YieldFLA), percent(r.YieldFCT))
	}
	return t
}

var filteredSNsFile string

var filteredYieldsCmd = &cobra.Command{
	Use:   "filtered-yields",
	Short: "Per-model yield for the days in range, optionally limited to a CSV of serials",
	RunE: func(cmd *cobra.Command, args []string) error {
		var sns []string
		if filteredSNsFile != "" {
			var err error
			if sns, err = readSerialsFile(filteredSNsFile); err != nil {
				return err
			}
		}
		records, err := api.FilteredYields(cmd.Context(), aggregate.DayKeys(rangeStart, rangeEnd), sns)
		if err != nil {
			return err
		}
		return filteredYieldsReport(records).write(cmd.OutOrStdout(), outputFormat)
	},
}

type filteredYieldsResult struct {
	Models []mapper.FilteredYieldRecord `json:"models"`
	Total  mapper.FilteredYieldRecord   `json:"total"`
}

func filteredYieldsReport(records []mapper.FilteredYieldRecord) *table {
	res := filteredYieldsResult{Models: records, Total: mapper.FilteredYieldRecord{Model: "all"}}
	for _, r := range records {
		res.Total.Total += r.Total
		res.Total.Passed += r.Passed
		res.Total.Failed += r.Failed
	}
	if res.Total.Total > 0 {
		res.Total.Yield = float64(res.Total.Passed) / float64(res.Total.Total)
	}

	t := &table{data: res, headers: []string{"MODEL", "TOTAL", "PASSED", "FAILED", "YIELD"}}
	for _, r := range records {
		t.add(r.Model, r.Total, r.Passed, r.Failed, percent(r.Yield))
	}
	t.add(res.Total.Model, res.Total.Total, res.Total.Passed, res.Total.Failed, percent(res.Total.Yield))
	return t
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file to the API's upload area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := uploadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		t := &table{data: res, headers: []string{"FIELD", "VALUE"}}
		t.add("filename", res.Filename)
		t.add("size", res.Size)
		t.add("savedTo", res.SavedTo)
		t.add("timestamp", res.Timestamp)
		return t.write(cmd.OutOrStdout(), outputFormat)
	},
}

func uploadFile(ctx context.Context, path string) (client.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return client.UploadResult{}, err
	}
	defer f.Close()
	return api.Upload(ctx, path, f)
}

func readSerialsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sns, err := client.ReadSerialNumbers(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return sns, nil
}

func init() {
	xbarCmd.Flags().StringVar(&xbarModel, "model", "", "Only this model")
	xbarCmd.Flags().StringVar(&xbarStation, "station", "", "Only this workstation")
	xbarCmd.Flags().IntVar(&xbarSubgroup, "subgroup", 5, "Subgroup size (2..10)")
	xbarCmd.Flags().IntVar(&xbarBins, "bins", 10, "Histogram bins for the distribution")
	filteredYieldsCmd.Flags().StringVar(&filteredSNsFile, "sns-file", "", "CSV of serial numbers to restrict to")
}
