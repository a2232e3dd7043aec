package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"yieldboard/aggregate"
	"yieldboard/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change saved dashboard settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeFn, err := openSettings(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		return settingsReport(st.State()).write(cmd.OutOrStdout(), outputFormat)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Keys:
  range          2025-01-01..2025-01-07
  poll           10m
  snfn.stations  FLA,FCT   (likewise snfn.models, snfn.codes)
  snfn.sort      count|key
  snfn.order     asc|desc
  snfn.group     fixture|station
  snfn.max       10
  widget.toggle  <id>      (likewise widget.remove)

Any other key is stored as a free-form value.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeFn, err := openSettings(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		action, err := settings.ParseAction(st.State(), args[0], args[1])
		if err != nil {
			return err
		}
		next, err := st.Dispatch(cmd.Context(), action)
		if err != nil {
			return err
		}
		return settingsReport(next).write(cmd.OutOrStdout(), outputFormat)
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func openSettings(ctx context.Context) (*settings.Store, func(), error) {
	db, err := settings.OpenSQLite(cfg.SettingsDB)
	if err != nil {
		return nil, nil, err
	}
	p, err := settings.NewSQLitePersister(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	st, err := settings.Open(ctx, p, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return st, func() { db.Close() }, nil
}

// savedSNFNOptions returns the SNFN defaults from the settings database.
func savedSNFNOptions(ctx context.Context) (aggregate.SNFNOptions, error) {
	st, closeFn, err := openSettings(ctx)
	if err != nil {
		return aggregate.SNFNOptions{}, err
	}
	defer closeFn()
	return st.State().SNFN, nil
}

func settingsReport(s settings.State) *table {
	t := &table{data: s, headers: []string{"KEY", "VALUE"}}
	t.add("range", s.StartDate+".."+s.EndDate)
	t.add("poll", s.PollInterval)
	t.add("snfn.stations", strings.Join(s.SNFN.Stations, ","))
	t.add("snfn.models", strings.Join(s.SNFN.Models, ","))
	t.add("snfn.codes", strings.Join(s.SNFN.ErrorCodes, ","))
	t.add("snfn.sort", map[bool]string{true: "count", false: "key"}[s.SNFN.SortByCount])
	t.add("snfn.order", map[bool]string{true: "asc", false: "desc"}[s.SNFN.Ascending])
	t.add("snfn.group", map[bool]string{true: "fixture", false: "station"}[s.SNFN.GroupByFixture])
	t.add("snfn.max", s.SNFN.MaxErrorCodes)
	for _, w := range s.Widgets {
		t.add("widget."+w.ID, map[bool]string{true: "visible", false: "hidden"}[w.Visible])
	}
	for k, v := range s.Extra {
		t.add(k, v)
	}
	return t
}
