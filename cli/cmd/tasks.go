package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
)

// NewTasksCommand creates the tasks command
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks with their current run state",
		RunE:  runTasks,
	}

	cmd.Flags().Int64("stage", 0, "Only tasks of this stage")
	cmd.Flags().String("status", "", "Only tasks with this status (e.g. RUNNING, FAILED)")

	return cmd
}

func runTasks(cmd *cobra.Command, args []string) error {
	stageID, _ := cmd.Flags().GetInt64("stage")
	status, _ := cmd.Flags().GetString("status")

	api := newClient(cmd)

	var items []monitoring.TaskView
	if stageID != 0 {
		resp, err := api.StageTasks(stageID)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(resp)
		}
		fmt.Printf("stage %s (%s)\n\n", resp.Stage.Name, resp.Stage.Status)
		items = resp.Items
	} else {
		resp, err := api.Tasks(status)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(resp)
		}
		items = resp.Items
	}

	printTaskTable(items)
	return nil
}

func printTaskTable(items []monitoring.TaskView) {
	fmt.Printf("%-5s %-28s %-6s %-12s %9s %9s %-16s %s\n",
		"ID", "TASK", "STAGE", "STATUS", "PROGRESS", "SUBTASKS", "HOST", "UPDATED")
	for _, tv := range items {
		progress := "-"
		host := "-"
		updated := "-"
		if tv.Run != nil {
			progress = fmt.Sprintf("%.1f%%", tv.Run.PercentComplete)
			if tv.Run.Host != "" {
				host = tv.Run.Host
			}
			updated = formatTime(&tv.Run.UpdatedAt)
		}
		subtasks := "-"
		if tv.SubtasksTotal > 0 {
			subtasks = fmt.Sprintf("%d/%d", tv.SubtasksDone, tv.SubtasksTotal)
		}
		status := string(tv.Status)
		if tv.ReporterStale {
			status += "!"
		}
		fmt.Printf("%-5d %-28s %-6d %-12s %9s %9s %-16s %s\n",
			tv.Task.ID, truncate(tv.Task.Name, 28), tv.Task.StageID, status,
			progress, subtasks, truncate(host, 16), updated)
	}
}
