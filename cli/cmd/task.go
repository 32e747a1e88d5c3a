package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTaskCommand creates the task command
func NewTaskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "task <id>",
		Short: "Show one task in full detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runTask,
	}
}

func runTask(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	detail, err := newClient(cmd).Task(taskID)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(detail)
	}

	tv := detail.Task
	fmt.Printf("%-14s %s (id %d)\n", "task", tv.Task.Name, tv.Task.ID)
	fmt.Printf("%-14s %d\n", "stage", tv.Task.StageID)
	fmt.Printf("%-14s %s\n", "status", tv.Status)
	fmt.Printf("%-14s %t\n", "enabled", tv.Task.Enabled)
	if logFile := tv.Task.LogFile(); logFile != "" {
		fmt.Printf("%-14s %s\n", "log", logFile)
	}

	if tv.Run != nil {
		run := tv.Run
		fmt.Printf("\n%-14s %d\n", "run", run.RunID)
		fmt.Printf("%-14s %s\n", "started", formatTime(run.StartedAt))
		fmt.Printf("%-14s %s\n", "ended", formatTime(run.EndedAt))
		if run.Host != "" {
			fmt.Printf("%-14s %s (pid %d)\n", "host", run.Host, run.PID)
		}
		fmt.Printf("%-14s %.1f%%\n", "progress", run.PercentComplete)
		if run.ErrorText != "" {
			fmt.Printf("%-14s %s\n", "error", run.ErrorText)
		}
	}

	if len(tv.Subtasks) > 0 {
		fmt.Printf("\n%-28s %-12s %9s\n", "SUBTASK", "STATUS", "ITEMS")
		for _, st := range tv.Subtasks {
			items := "-"
			if st.ItemsTotal > 0 {
				items = fmt.Sprintf("%d/%d", st.ItemsDone, st.ItemsTotal)
			}
			fmt.Printf("%-28s %-12s %9s\n", truncate(st.Name, 28), st.Status, items)
		}
	}

	if tv.Metrics != nil {
		m := tv.Metrics
		fmt.Printf("\n%-14s %.1f%% cpu, %.1f MB rss, %d children\n",
			"process", m.CPUPercent, float64(m.RSSBytes)/(1024*1024), m.ChildCount)
		fmt.Printf("%-14s %.0fs ago", "heartbeat", tv.HeartbeatAgeSeconds)
		if tv.ReporterStale {
			fmt.Printf(" (stale)")
		}
		fmt.Println()
	}

	return nil
}
