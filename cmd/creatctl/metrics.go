package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"creatflow/internal/metrics"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show lane depths, in-flight claims, and stage latencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap metrics.Snapshot
			if err := getJSON("/v1/metrics/engine", &snap); err != nil {
				return err
			}

			lanes := table.NewWriter()
			lanes.SetOutputMirror(os.Stdout)
			lanes.AppendHeader(table.Row{"Lane", "Depth"})
			laneNames := make([]string, 0, len(snap.Lanes))
			for name := range snap.Lanes {
				laneNames = append(laneNames, name)
			}
			sort.Strings(laneNames)
			for _, name := range laneNames {
				lanes.AppendRow(table.Row{name, snap.Lanes[name]})
			}
			lanes.AppendFooter(table.Row{"in flight", snap.InFlight})
			lanes.Render()

			if len(snap.Stages) > 0 {
				stages := table.NewWriter()
				stages.SetOutputMirror(os.Stdout)
				stages.AppendHeader(table.Row{"Stage", "Count", "Avg (ms)", "Max (ms)"})
				stageNames := make([]string, 0, len(snap.Stages))
				for name := range snap.Stages {
					stageNames = append(stageNames, name)
				}
				sort.Strings(stageNames)
				for _, name := range stageNames {
					s := snap.Stages[name]
					stages.AppendRow(table.Row{name, s.Count, fmt.Sprintf("%.1f", s.AvgMillis), fmt.Sprintf("%.1f", s.MaxMillis)})
				}
				stages.Render()
			}
			return nil
		},
	}
}
