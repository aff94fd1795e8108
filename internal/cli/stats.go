package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewStatsCmd создаёт команду просмотра состояния планировщика.
func NewStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show scheduler state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.GetStats()
			if err != nil {
				return err
			}

			out.Print(
				[]string{"STATE", "QUEUE", "BACKLOG", "SCHEDULED", "ACTIVE_JOBS", "KINDS"},
				[][]string{{
					stats.Scheduler.State,
					strconv.Itoa(stats.Scheduler.QueueDepth),
					strconv.Itoa(stats.Scheduler.SinkBacklog),
					strconv.FormatUint(stats.Scheduler.Scheduled, 10),
					strconv.Itoa(stats.ActiveJobs),
					strings.Join(stats.Kinds, ","),
				}},
				stats,
			)
			return nil
		},
	}
}
