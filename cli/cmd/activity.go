package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewActivityCommand creates the activity command
func NewActivityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show queries currently running on the tasker database",
		RunE:  runActivity,
	}

	cmd.Flags().Int("limit", 0, "Maximum rows to show (default: server setting)")

	return cmd
}

func runActivity(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	activity, err := newClient(cmd).Activity(limit)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(activity)
	}

	if activity.Count == 0 {
		fmt.Println("no active queries")
		return nil
	}

	fmt.Printf("%-8s %-20s %10s  %s\n", "PID", "STATE", "SECONDS", "QUERY")
	for _, q := range activity.Items {
		fmt.Printf("%-8d %-20s %10.1f  %s\n",
			q.PID, truncate(q.State, 20), q.Seconds, truncate(q.Query, 60))
	}
	return nil
}
