package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"storepulse/internal/schedule"
	"storepulse/internal/timeline"
	"storepulse/internal/uptime"
)

var (
	inspectStore string
	inspectAt    string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Compute one store and print its windows.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if inspectStore == "" {
			return fmt.Errorf("--store is required")
		}
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		zones, err := a.store.Timezones(ctx)
		if err != nil {
			return err
		}
		dir, err := schedule.NewDirectory(zones, a.cfg.Report.DefaultTimezone, a.logger)
		if err != nil {
			return err
		}
		agg := uptime.NewAggregator(a.store, dir, timeline.Options{Horizon: a.cfg.Report.Horizon})

		var res uptime.Result
		if inspectAt != "" {
			at, perr := time.Parse(time.RFC3339, inspectAt)
			if perr != nil {
				return fmt.Errorf("--at: %w", perr)
			}
			res, err = agg.Compute(ctx, inspectStore, at)
		} else {
			res, err = agg.ComputeLatest(ctx, inspectStore)
		}
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res, dir.Location(inspectStore))
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectStore, "store", "", "store id")
	inspectCmd.Flags().StringVar(&inspectAt, "at", "", "anchor time (RFC3339); defaults to the newest observation")
}

func printResult(w io.Writer, res uptime.Result, loc *time.Location) error {
	if !res.Observed {
		fmt.Fprintf(w, "store %s has no observations\n", res.StoreID)
	} else {
		fmt.Fprintf(w, "store %s anchored at %s (%s)\n", res.StoreID,
			res.Anchor.Format(time.RFC3339), res.Anchor.In(loc).Format("Mon 15:04 MST"))
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Window", "Business (h)", "Uptime (h)", "Downtime (h)", "Unknown (h)"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	hours := func(d time.Duration) string { return strconv.FormatFloat(d.Hours(), 'f', 2, 64) }
	var data [][]string
	for _, row := range []struct {
		name string
		t    uptime.Totals
	}{
		{"last hour", res.LastHour},
		{"last day", res.LastDay},
		{"last week", res.LastWeek},
	} {
		data = append(data, []string{
			row.name,
			hours(row.t.Business),
			hours(row.t.Uptime),
			hours(row.t.Downtime),
			hours(row.t.Business - row.t.Uptime - row.t.Downtime),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
