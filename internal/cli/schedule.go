package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var scheduleWithin time.Duration

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect the challenge schedule",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled challenge starts",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		if err := services.Registry.LoadAll(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load schedule: %w", err)
		}

		starts := services.Registry.ListAll()
		if scheduleWithin > 0 {
			starts = services.Registry.StartingWithin(time.Now().UTC(), scheduleWithin)
		}

		if len(starts) == 0 {
			fmt.Println("No challenges scheduled")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CHALLENGE ID\tSTART TIME")
		for _, s := range starts {
			fmt.Fprintf(w, "%s\t%s\n", s.ChallengeID, s.StartTime.Format(time.RFC3339))
		}
		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleListCmd.Flags().DurationVar(&scheduleWithin, "within", 0, "only list challenges starting within this window")
}
