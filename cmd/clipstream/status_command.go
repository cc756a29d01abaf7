package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ctx.newRequest(http.MethodGet, "/api/status", nil)
			if err != nil {
				return err
			}
			var status serverStatusView
			if err := doJSON(ctx.httpClient(), req, &status); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			printStatus(cmd, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func printStatus(cmd *cobra.Command, status serverStatusView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	runningKind := statusError
	runningMsg := "stopped"
	if status.Running {
		runningKind = statusOK
		runningMsg = "running"
	}
	fmt.Fprintln(out, renderStatusLine("State", runningKind, runningMsg, colorize))
	fmt.Fprintln(out, renderStatusLine("Uptime", statusInfo, formatUptime(status.UptimeSecs), colorize))
	fmt.Fprintln(out, renderStatusLine("Active runs", statusInfo, fmt.Sprintf("%d", status.ActiveRuns), colorize))
	droppedKind := statusOK
	if status.DroppedEvts > 0 {
		droppedKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Dropped events", droppedKind, fmt.Sprintf("%d", status.DroppedEvts), colorize))

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Catalog", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", status.Catalog.Total), colorize))
	fmt.Fprintln(out, renderStatusLine("Uploaded", statusInfo, fmt.Sprintf("%d", status.Catalog.Uploaded), colorize))
	fmt.Fprintln(out, renderStatusLine("Processing", statusInfo, fmt.Sprintf("%d", status.Catalog.Processing), colorize))
	fmt.Fprintln(out, renderStatusLine("Processed", statusOK, fmt.Sprintf("%d", status.Catalog.Processed), colorize))
	failedKind := statusOK
	if status.Catalog.Failed > 0 {
		failedKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", status.Catalog.Failed), colorize))
}

func formatUptime(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	return (time.Duration(seconds) * time.Second).String()
}
