package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"creatflow/internal/engine"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's aggregate status, work items, and assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view engine.JobView
			if err := getJSON("/v1/jobs/"+args[0], &view); err != nil {
				return err
			}

			fmt.Printf("job %s  project %s  status %s  progress %d/%d\n",
				view.Job.ID, view.Job.ProjectID, view.Job.Status, view.Job.Progress, view.Job.TotalItems)
			if view.Job.CancelRequested {
				fmt.Println("cancellation requested")
			}
			if view.Job.LastError != "" {
				fmt.Printf("last error: %s\n", view.Job.LastError)
			}

			items := table.NewWriter()
			items.SetOutputMirror(os.Stdout)
			items.AppendHeader(table.Row{"Item", "Format", "Kind", "State", "Attempt", "Fail Reason"})
			for _, item := range view.Items {
				items.AppendRow(table.Row{
					item.ID,
					fmt.Sprintf("%s (%dx%d)", item.Format.ID, item.Format.Width, item.Format.Height),
					item.Format.Kind,
					item.State,
					item.Attempt,
					item.FailReason,
				})
			}
			items.Render()

			if len(view.Assets) > 0 {
				assets := table.NewWriter()
				assets.SetOutputMirror(os.Stdout)
				assets.AppendHeader(table.Row{"Asset", "Storage Key", "Size", "Strategy", "Flagged", "Category"})
				for _, record := range view.Assets {
					assets.AppendRow(table.Row{
						record.ID,
						record.StorageKey,
						fmt.Sprintf("%dx%d", record.Width, record.Height),
						record.PlanUsed,
						record.Flagged,
						record.ModerationCategory,
					})
				}
				assets.Render()
			}
			return nil
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cooperative cancellation of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				JobID  string `json:"job_id"`
				Status string `json:"status"`
			}
			if err := postJSON("/v1/jobs/"+args[0]+"/cancel", nil, &out); err != nil {
				return err
			}
			fmt.Printf("job %s: %s\n", out.JobID, out.Status)
			return nil
		},
	}
}
