package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"yieldboard/aggregate"
	"yieldboard/client"
	"yieldboard/mapper"
	"yieldboard/present"
)

var dailyModel string

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Station throughput and per-model TPY for the date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := api.DailyTPY(cmd.Context(), rangeStart, rangeEnd, dailyModel)
		if err != nil {
			return err
		}
		return dailyReport(records, rangeStart, rangeEnd, resolver).write(cmd.OutOrStdout(), outputFormat)
	},
}

type dailyResult struct {
	Stations []aggregate.StationSummary `json:"stations"`
	Models   []present.ModelTPY         `json:"models"`
	Days     []aggregate.DayYield       `json:"days"`
	TPY      float64                    `json:"tpy"`
}

func dailyReport(records []mapper.TPYRecord, start, end time.Time, r *aggregate.Resolver) *table {
	res := dailyResult{
		Stations: aggregate.StationThroughput(records),
		Models:   present.ModelTPYSeries(aggregate.ByModelStation(records, r)),
		Days:     aggregate.TPYByDay(records, start, end),
	}
	res.TPY = present.ThroughputYield(res.Stations)

	t := &table{data: res, headers: []string{"SCOPE", "NAME", "TOTAL", "PASSED", "FAILED", "YIELD"}}
	for _, s := range res.Stations {
		t.add("station", s.Station, s.Total, s.Passed, s.Failed, percent(s.Yield))
	}
	for _, m := range res.Models {
		t.add("model", m.Model, "", "", "", percent(m.TPY))
	}
	t.add("all", "TPY", "", "", "", percent(res.TPY))
	return t
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Weekly parts rollup with trend, and server-side weekly TPY per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		records, err := api.DailyTPY(ctx, rangeStart, rangeEnd, "")
		if err != nil {
			return err
		}
		startWeek := aggregate.WeekKey(rangeStart.Format("2006-01-02"))
		endWeek := aggregate.WeekKey(rangeEnd.Format("2006-01-02"))
		weeks, err := api.WeeklyTPY(ctx, startWeek, endWeek)
		if err != nil {
			return err
		}
		return weeklyReport(records, weeks, rangeStart, rangeEnd).write(cmd.OutOrStdout(), outputFormat)
	},
}

type weeklyResult struct {
	Parts []aggregate.Point        `json:"parts"`
	Trend []aggregate.Point        `json:"trend"`
	Weeks []mapper.WeeklyTPYRecord `json:"weeks"`
}

func weeklyReport(records []mapper.TPYRecord, weeks []mapper.WeeklyTPYRecord, start, end time.Time) *table {
	days := aggregate.TPYByDay(records, start, end)
	daily := make([]aggregate.Point, len(days))
	for i, d := range days {
		daily[i] = aggregate.Point{Key: d.Date, Value: float64(d.Total)}
	}
	res := weeklyResult{Parts: aggregate.WeeklyRollup(daily), Weeks: weeks}
	res.Trend = aggregate.TrendSeries(res.Parts)

	byWeek := make(map[string]mapper.WeeklyTPYRecord, len(weeks))
	for _, w := range weeks {
		byWeek[w.WeekID] = w
	}
	t := &table{data: res, headers: []string{"WEEK", "PARTS", "TREND", "TPY", "MODELS"}}
	for i, p := range res.Parts {
		tpy, models := "-", ""
		if w, ok := byWeek[p.Key]; ok {
			tpy = percent(w.ThroughputYield)
			for j, m := range w.Models {
				if j > 0 {
					models += " "
				}
				models += fmt.Sprintf("%s=%s", m.Model, percent(m.TPY))
			}
		}
		t.add(p.Key, p.Value, res.Trend[i].Value, tpy, models)
	}
	return t
}

var packingCmd = &cobra.Command{
	Use:   "packing",
	Short: "Daily and weekly packing rollup with trend",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := api.PackingRecords(cmd.Context(), rangeStart, rangeEnd)
		if err != nil {
			return err
		}
		t, res := packingReport(records, rangeStart, rangeEnd, resolver)
		if len(res.Unmatched) > 0 {
			logger.Warnf("Dropped packing rows for unknown models: %v", res.Unmatched)
		}
		return t.write(cmd.OutOrStdout(), outputFormat)
	},
}

type packingResult struct {
	aggregate.PackingResult
	Daily       []aggregate.Point `json:"daily"`
	DailyTrend  []aggregate.Point `json:"dailyTrend"`
	Weekly      []aggregate.Point `json:"weekly"`
	WeeklyTrend []aggregate.Point `json:"weeklyTrend"`
}

func packingReport(records []mapper.PackingRecord, start, end time.Time, r *aggregate.Resolver) (*table, packingResult) {
	roll := aggregate.PackingRollup(records, start, end, r)
	res := packingResult{PackingResult: roll, Daily: roll.DailySeries()}
	res.DailyTrend = aggregate.TrendSeries(res.Daily)
	res.Weekly = aggregate.WeeklyRollup(res.Daily)
	res.WeeklyTrend = aggregate.TrendSeries(res.Weekly)

	t := &table{data: res, headers: []string{"PERIOD", "KEY", "PACKED", "TREND"}}
	for i, p := range res.Daily {
		t.add("day", p.Key, p.Value, res.DailyTrend[i].Value)
	}
	for i, p := range res.Weekly {
		t.add("week", p.Key, p.Value, res.WeeklyTrend[i].Value)
	}
	for _, m := range roll.Models {
		for _, p := range m.Parts {
			t.add("total", m.Model+" "+p.PartNumber, p.Total, "")
		}
	}
	t.add("total", "all", roll.Total(), "")
	return t, res
}

var (
	snfnSNsFile    string
	snfnCodes      []string
	snfnStations   []string
	snfnModels     []string
	snfnByFixture  bool
	snfnSort       string
	snfnAscending  bool
	snfnMaxCodes   int
	snfnParetoSize int
)

var snfnCmd = &cobra.Command{
	Use:   "snfn",
	Short: "Failing serials grouped by station (or fixture) and error code",
	Long: `snfn loads failing testboard records either for the serial numbers in
--sns-file (fail-check) or for the error codes in --codes (by-error over the
date range), then filters, groups and ranks their error codes.

Saved settings (yieldctl settings) supply defaults for the filter and
grouping flags.`,
	RunE: runSNFN,
}

func init() {
	snfnCmd.Flags().StringVar(&snfnSNsFile, "sns-file", "", "CSV of serial numbers to check")
	snfnCmd.Flags().StringSliceVar(&snfnCodes, "codes", nil, "Error codes to search for (by-error)")
	snfnCmd.Flags().StringSliceVar(&snfnStations, "stations", nil, "Only these stations")
	snfnCmd.Flags().StringSliceVar(&snfnModels, "models", nil, "Only these models")
	snfnCmd.Flags().BoolVar(&snfnByFixture, "by-fixture", false, "Group by fixture instead of station")
	snfnCmd.Flags().StringVar(&snfnSort, "sort", "count", "Group order: count or key")
	snfnCmd.Flags().BoolVar(&snfnAscending, "asc", false, "Ascending order")
	snfnCmd.Flags().IntVar(&snfnMaxCodes, "max", 10, "Top error codes per group (0 keeps all)")
	snfnCmd.Flags().IntVar(&snfnParetoSize, "pareto", 10, "Codes in the pareto summary")
	dailyCmd.Flags().StringVar(&dailyModel, "model", "", "Only this model")
}

func runSNFN(cmd *cobra.Command, args []string) error {
	if (snfnSNsFile == "") == (len(snfnCodes) == 0) {
		return fmt.Errorf("exactly one of --sns-file or --codes is required")
	}
	ctx := cmd.Context()

	opts, err := savedSNFNOptions(ctx)
	if err != nil {
		logger.Debugf("settings unavailable, using flags only: %v", err)
	}
	flags := cmd.Flags()
	if flags.Changed("stations") {
		opts.Stations = snfnStations
	}
	if flags.Changed("models") {
		opts.Models = snfnModels
	}
	if flags.Changed("by-fixture") {
		opts.GroupByFixture = snfnByFixture
	}
	if flags.Changed("sort") || err != nil {
		switch snfnSort {
		case "count":
			opts.SortByCount = true
		case "key":
			opts.SortByCount = false
		default:
			return fmt.Errorf("--sort must be count or key")
		}
	}
	if flags.Changed("asc") {
		opts.Ascending = snfnAscending
	}
	if flags.Changed("max") || err != nil {
		opts.MaxErrorCodes = snfnMaxCodes
	}

	var records []mapper.TestboardRecord
	if snfnSNsFile != "" {
		sns, err := readSerialsFile(snfnSNsFile)
		if err != nil {
			return err
		}
		records, err = api.Testboard(ctx, client.FailCheck, client.TestboardQuery{SNs: sns, Start: rangeStart, End: rangeEnd})
		if err != nil {
			return err
		}
	} else {
		// The server matches codes by substring, so E10 also returns E100
		// and every code failing alongside it.
		opts.ErrorCodes = snfnCodes
		records, err = api.Testboard(ctx, client.ByError, client.TestboardQuery{ErrorCodes: snfnCodes, Start: rangeStart, End: rangeEnd})
		if err != nil {
			return err
		}
	}
	return snfnReport(records, opts, snfnParetoSize).write(cmd.OutOrStdout(), outputFormat)
}

type snfnResult struct {
	Groups []aggregate.SNFNGroup       `json:"groups"`
	Table  []aggregate.ModelStationRow `json:"table"`
	Pareto []present.ParetoPoint       `json:"pareto"`
}

func snfnReport(records []mapper.TestboardRecord, opts aggregate.SNFNOptions, paretoSize int) *table {
	var errs []mapper.ErrorCodeRecord
	for _, r := range records {
		errs = append(errs, mapper.ErrorCodeRecords(r)...)
	}
	res := snfnResult{
		Groups: aggregate.GroupSNFN(errs, opts),
		Table:  aggregate.ModelStationTable(errs, opts),
		Pareto: present.ParetoSeries(aggregate.TopErrorCodes(errs, opts), paretoSize),
	}

	t := &table{data: res, headers: []string{"GROUP", "CODE", "COUNT", "CUMULATIVE"}}
	for _, g := range res.Groups {
		for _, c := range g.Codes {
			t.add(g.Key, c.Code, c.Count, "")
		}
		t.add(g.Key, "(total)", g.Total, "")
	}
	for _, p := range res.Pareto {
		t.add("pareto", p.Label, p.Count, percent(p.Cumulative))
	}
	return t
}
