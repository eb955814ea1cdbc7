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

var createCommand = &cobra.Command{
	Use:     "create",
	GroupID: "provision",
	Short:   "Attempt instance creation once",
	Long: `Makes a single provisioning attempt and exits. Capacity exhaustion exits
with code 1 so an external scheduler (cron, systemd timer) can retry later;
fatal errors exit with code 2.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("OCI Free Tier - Single Attempt"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := workflow.Run(ctx, workflow.Options{
			EnvFile:      envFile,
			LogLevel:     logLevel,
			ModeOverride: config.ModeOnce,
			MarkerPath:   markerPath,
		})
		return resultError(res, err)
	},
}

func init() {
	rootCommand.AddCommand(createCommand)
}
