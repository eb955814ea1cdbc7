package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	envFile, logLevel string
	markerPath        string
)

var rootCommand = &cobra.Command{
	Use:           "oci-freetier",
	Aliases:       []string{"freetier"},
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "Oracle Free Tier instance creation bot",
	Long: `oci-freetier retries creation of an Oracle Cloud free-tier compute instance
until the region has capacity, then records the instance in a marker file and
notifies the configured channels.

Exit codes: 0 instance created or already exists, 1 capacity exhausted
(retry later), 2 fatal error (manual intervention required).`,
}

func Execute() error {
	return rootCommand.Execute()
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "provision", Title: "Provisioning"})

	// Global persistent flags with env vars support
	rootCommand.PersistentFlags().StringVar(&envFile, "env-file", "oci.env", "Path to the environment configuration file")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCommand.PersistentFlags().StringVar(&markerPath, "marker", "INSTANCE_CREATED", "Path of the idempotency marker file")
	// Bind to env vars
	_ = viper.BindPFlag("env-file", rootCommand.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("log-level", rootCommand.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("marker", rootCommand.PersistentFlags().Lookup("marker"))

	viper.SetEnvPrefix("OCI_FREETIER")
	viper.AutomaticEnv()
}
