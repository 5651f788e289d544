package cli

import (
	"karachart/internal/logging"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "karachart",
	Short: "Karaoke subtitle to UltraStar chart converter",
	Long: `Karachart converts timed karaoke subtitles (.ass) into UltraStar
song charts.

Subtitles can come from a local file or be fetched from kara.moe along
with the song's media. Overlapping lines, which a single vocal track
cannot represent, are resolved interactively or filtered by style.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
