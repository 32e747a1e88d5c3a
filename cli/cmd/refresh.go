package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCommand creates the refresh command
func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the monitor to re-poll the database now",
		RunE:  runRefresh,
	}
}

func runRefresh(cmd *cobra.Command, args []string) error {
	result, err := newClient(cmd).Refresh()
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(result)
	}

	fmt.Printf("%s (requests within %s of a poll coalesce)\n", result.Status, result.MinPollInterval)
	return nil
}
