package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/bujo/internal/output"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the bujo version",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput(cmd) {
			return output.JSON(map[string]string{"version": version})
		}
		fmt.Printf("bujo %s\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
