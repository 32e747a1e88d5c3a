package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Broadband-Catalysts/tasker-sub001/cli/client"
	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream pipeline changes as they happen",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	raw := jsonOutput(cmd)

	return newClient(cmd).WatchEvents(cmd.Context(), func(ev client.Event) error {
		if raw {
			fmt.Println(string(ev.Data))
			return nil
		}

		stamp := time.Now().Local().Format("15:04:05")
		switch ev.Name {
		case "snapshot":
			var snap monitoring.Snapshot
			if err := json.Unmarshal(ev.Data, &snap); err != nil {
				return err
			}
			tasks := 0
			for _, sv := range snap.Stages {
				tasks += len(sv.Tasks)
			}
			fmt.Printf("%s snapshot revision=%d stages=%d tasks=%d\n",
				stamp, snap.Revision, len(snap.Stages), tasks)

		case "changes":
			var cs monitoring.ChangeSet
			if err := json.Unmarshal(ev.Data, &cs); err != nil {
				return err
			}
			for _, ch := range cs.Changes {
				fmt.Printf("%s %s\n", stamp, describeChange(ch, cs.ToRevision))
			}
		}
		return nil
	})
}

func describeChange(ch monitoring.Change, revision uint64) string {
	switch ch.Kind {
	case monitoring.ChangeTaskUpdated, monitoring.ChangeTaskAdded:
		name := fmt.Sprintf("task %d", ch.TaskID)
		detail := ""
		if ch.Task != nil {
			name = ch.Task.Task.Name
			detail = string(ch.Task.Status)
			if ch.Task.Run != nil {
				detail = fmt.Sprintf("%s %.1f%%", detail, ch.Task.Run.PercentComplete)
			}
		}
		return fmt.Sprintf("%-20s %-28s %s", ch.Kind, name, detail)

	case monitoring.ChangeTaskRemoved:
		return fmt.Sprintf("%-20s task %d", ch.Kind, ch.TaskID)

	case monitoring.ChangeStageStatusChanged:
		name := fmt.Sprintf("stage %d", ch.StageID)
		if ch.Stage != nil {
			name = ch.Stage.Name
		}
		return fmt.Sprintf("%-20s %-28s %s", ch.Kind, name, ch.Reason)

	case monitoring.ChangeSnapshotReset:
		return fmt.Sprintf("%-20s revision=%d %s", ch.Kind, revision, ch.Reason)
	}
	return fmt.Sprintf("%-20s task %d", ch.Kind, ch.TaskID)
}
