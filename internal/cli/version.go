package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version tags produced charts so they can be identified later.
const Version = "3.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the karachart version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("karachart " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
