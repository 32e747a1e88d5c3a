package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewLogCommand creates the log command
func NewLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <id>",
		Short: "Print the tail of a task's log file",
		Args:  cobra.ExactArgs(1),
		RunE:  runLog,
	}

	cmd.Flags().IntP("lines", "n", 0, "Number of lines (default: server setting)")
	cmd.Flags().BoolP("follow", "f", false, "Keep streaming appended lines")

	return cmd
}

func runLog(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}
	lines, _ := cmd.Flags().GetInt("lines")
	follow, _ := cmd.Flags().GetBool("follow")

	api := newClient(cmd)

	if follow {
		return api.FollowTaskLog(cmd.Context(), taskID, lines, func(line string) error {
			fmt.Println(line)
			return nil
		})
	}

	log, err := api.TaskLog(taskID, lines)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(log)
	}
	for _, line := range log.Lines {
		fmt.Println(line)
	}
	return nil
}
