package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Broadband-Catalysts/tasker-sub001/cli/client"
)

// NewRootCommand builds the taskerctl command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskerctl",
		Short:         "Inspect a running tasker pipeline from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("server", "", "Monitor base URL (default TASKER_SERVER or "+client.DefaultServerURL+")")
	rootCmd.PersistentFlags().Bool("json", false, "Print raw JSON responses")

	RegisterCommands(rootCmd)
	return rootCmd
}

// RegisterCommands adds all available commands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(NewStagesCommand())
	rootCmd.AddCommand(NewTasksCommand())
	rootCmd.AddCommand(NewTaskCommand())
	rootCmd.AddCommand(NewLogCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewRefreshCommand())
	rootCmd.AddCommand(NewActivityCommand())
}

func newClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	return client.New(server)
}

func jsonOutput(cmd *cobra.Command) bool {
	raw, _ := cmd.Flags().GetBool("json")
	return raw
}

func printJSON(v interface{}) error {
	formatted, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(formatted))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
