package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStagesCommand creates the stages command
func NewStagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List pipeline stages with their derived status",
		RunE:  runStages,
	}
}

func runStages(cmd *cobra.Command, args []string) error {
	stages, err := newClient(cmd).Stages()
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(stages)
	}

	fmt.Printf("%-4s %-24s %-12s %8s %8s %8s %8s\n",
		"ID", "STAGE", "STATUS", "RUNNING", "DONE", "FAILED", "TOTAL")
	for _, s := range stages.Items {
		total := s.Counts.NotStarted + s.Counts.Started + s.Counts.Running +
			s.Counts.Completed + s.Counts.Failed
		fmt.Printf("%-4d %-24s %-12s %8d %8d %8d %8d\n",
			s.ID, truncate(s.Name, 24), s.Status,
			s.Counts.Running, s.Counts.Completed, s.Counts.Failed, total)
	}
	fmt.Printf("\nrevision %d at %s\n", stages.Revision, stages.TakenAt.Local().Format("15:04:05"))
	return nil
}
