package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"creatflow/internal/domain"
	"creatflow/internal/engine"
)

func newSubmitCmd() *cobra.Command {
	var (
		projectID string
		assetID   string
		assetRef  string
		formats   []string
		priority  bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a generation job for one source asset",
		Long: `Submit a generation job. Each --format flag adds one work item for the
source asset, written as id:WIDTHxHEIGHT:kind where kind is resizing or
repurposing, for example: --format square:1080x1080:resizing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(formats) == 0 {
				return fmt.Errorf("at least one --format is required")
			}
			req := engine.SubmitRequest{ProjectID: projectID, Priority: priority}
			for _, raw := range formats {
				format, err := parseFormat(raw)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, engine.SubmitItem{
					AssetID:  assetID,
					AssetRef: assetRef,
					Format:   format,
				})
			}

			var created struct {
				JobID      string `json:"job_id"`
				Status     string `json:"status"`
				TotalItems int    `json:"total_items"`
			}
			if err := postJSON("/v1/jobs", req, &created); err != nil {
				return err
			}
			fmt.Printf("job %s submitted: %d item(s), status %s\n", created.JobID, created.TotalItems, created.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project identifier")
	cmd.Flags().StringVar(&assetID, "asset", "", "source asset identifier")
	cmd.Flags().StringVar(&assetRef, "ref", "", "source asset reference (storage key or URL)")
	cmd.Flags().StringArrayVar(&formats, "format", nil, "target format as id:WIDTHxHEIGHT:kind (repeatable)")
	cmd.Flags().BoolVar(&priority, "priority", false, "route to the priority lane")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("ref")

	return cmd
}

func parseFormat(raw string) (domain.TargetFormat, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return domain.TargetFormat{}, fmt.Errorf("format %q is not id:WIDTHxHEIGHT:kind", raw)
	}
	dims := strings.SplitN(parts[1], "x", 2)
	if len(dims) != 2 {
		return domain.TargetFormat{}, fmt.Errorf("format %q has no WIDTHxHEIGHT", raw)
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil {
		return domain.TargetFormat{}, fmt.Errorf("format %q: bad width: %w", raw, err)
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil {
		return domain.TargetFormat{}, fmt.Errorf("format %q: bad height: %w", raw, err)
	}
	kind := domain.FormatKind(parts[2])
	switch kind {
	case domain.FormatResizing, domain.FormatRepurposing:
	default:
		return domain.TargetFormat{}, fmt.Errorf("format %q: kind must be resizing or repurposing", raw)
	}
	return domain.TargetFormat{ID: parts[0], Width: width, Height: height, Kind: kind}, nil
}
