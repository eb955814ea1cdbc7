package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version, Commit, Date string
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Display version, commit hash, build date, and other build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("oci-freetier version: %s\n", Version)
		fmt.Printf("Commit: %s\n", Commit)
		fmt.Printf("Built: %s\n", Date)
	},
}

func init() {
	rootCommand.AddCommand(versionCommand)
}
