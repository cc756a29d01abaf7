package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items for the tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/videos"
			if filter := strings.TrimSpace(statusFilter); filter != "" {
				path += "?status=" + url.QueryEscape(filter)
			}
			req, err := ctx.newRequest(http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			var items []videoView
			if err := doJSON(ctx.httpClient(), req, &items); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, items)
			}
			printItemTable(cmd, items)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show items with this status")
	return cmd
}

func printItemTable(cmd *cobra.Command, items []videoView) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items")
		return
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			shortID(item.ID),
			item.Title,
			item.Status,
			strconv.Itoa(item.Progress) + "%",
			item.Sensitivity,
			formatDuration(item.Duration),
			formatSize(item.Size),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Status", "Progress", "Sensitivity", "Duration", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
	))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
