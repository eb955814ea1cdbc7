package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/config"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/workflow"
	"github.com/spf13/cobra"
)

var watchCommand = &cobra.Command{
	Use:     "watch",
	GroupID: "provision",
	Short:   "Retry instance creation until capacity is available",
	Long: `Runs the in-process polling loop: attempts creation, sleeps the configured
wait time on capacity exhaustion, and keeps going until the instance exists or
a fatal error ends the run. Interrupting the wait exits with code 1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("OCI Free Tier - Capacity Watch"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := workflow.Run(ctx, workflow.Options{
			EnvFile:      envFile,
			LogLevel:     logLevel,
			ModeOverride: config.ModePolling,
			MarkerPath:   markerPath,
		})
		return resultError(res, err)
	},
}

func init() {
	rootCommand.AddCommand(watchCommand)
}
