package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"creatflow/internal/domain"
)

func newDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and recover dead-lettered work",
	}
	cmd.AddCommand(newDLQListCmd(), newDLQRequeueCmd())
	return cmd
}

func newDLQListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Count    int                   `json:"count"`
				Messages []domain.QueueMessage `json:"messages"`
			}
			if err := getJSON("/v1/dlq", &out); err != nil {
				return err
			}
			if out.Count == 0 {
				fmt.Println("dead-letter lane is empty")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Message", "Job", "Work Item", "Format", "Attempt", "Last Error"})
			for _, msg := range out.Messages {
				t.AppendRow(table.Row{
					msg.ID,
					msg.JobID,
					msg.WorkItemID,
					msg.Format.ID,
					msg.Attempt,
					msg.LastError,
				})
			}
			t.Render()
			return nil
		},
	}
}

func newDLQRequeueCmd() *cobra.Command {
	var lane string

	cmd := &cobra.Command{
		Use:   "requeue <message-id>",
		Short: "Move a dead-lettered message back to a claimable lane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				MessageID string `json:"message_id"`
				Lane      string `json:"lane"`
			}
			if err := postJSON("/v1/dlq/"+args[0]+"/requeue", map[string]string{"lane": lane}, &out); err != nil {
				return err
			}
			fmt.Printf("message %s requeued to %s for another attempt\n", out.MessageID, out.Lane)
			return nil
		},
	}
	cmd.Flags().StringVar(&lane, "lane", "primary", "target lane (primary or priority)")
	return cmd
}
