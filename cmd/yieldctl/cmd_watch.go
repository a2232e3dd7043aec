package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"yieldboard/aggregate"
	"yieldboard/client"
	"yieldboard/poller"
	"yieldboard/present"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll daily TPY and print a summary line on every refresh",
	Long: `watch polls daily TPY for --start..--end. Without those flags the
window is the seven days ending on the day of each refresh.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval := watchInterval
		if interval <= 0 {
			interval = cfg.PollInterval
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		window := func(now time.Time) (time.Time, time.Time, error) {
			return dayRange(startFlag, endFlag, now)
		}
		return watchDaily(ctx, cmd.OutOrStdout(), interval, window)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Refresh interval (default $YIELD_POLL_INTERVAL)")
}

// watchDaily refreshes until ctx ends. Each refresh drops the cached daily
// rows so the poll reaches the API, and asks window for the days to fetch.
func watchDaily(ctx context.Context, w io.Writer, interval time.Duration, window func(time.Time) (time.Time, time.Time, error)) error {
	sched := poller.New(poller.WithInterval(interval), poller.WithLogger(logger), poller.WithImmediate())
	defer sched.Stop()

	unsubscribe := sched.Subscribe(client.RouteDailyTPY, func(ctx context.Context) error {
		api.Invalidate(client.RouteDailyTPY)
		start, end, err := window(time.Now())
		if err != nil {
			return err
		}
		records, err := api.DailyTPY(ctx, start, end, "")
		if err != nil {
			logger.Warnf("Daily TPY refresh failed: %v", err)
			return err
		}
		stations := aggregate.StationThroughput(records)
		fmt.Fprintf(w, "%s  %s..%s  stations=%d  tpy=%s\n",
			time.Now().Format(time.TimeOnly), start.Format(time.DateOnly), end.Format(time.DateOnly),
			len(stations), percent(present.ThroughputYield(stations)))
		return nil
	})
	defer unsubscribe()

	<-ctx.Done()
	return nil
}
