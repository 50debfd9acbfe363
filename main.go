package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	r1csFile   string
	useFixture bool

	logLevel string
	logJSON  bool
)

func init() {
	checkzkpCmd.PersistentFlags().StringVar(&r1csFile, "r1cs", "", "The R1CS constraint container to work on.")
	checkzkpCmd.PersistentFlags().BoolVar(&useFixture, "use-fixture", false, "Fall back to the built-in multiplexer circuit when no container is given or decoding fails. Logged, never implicit.")
	checkzkpCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Minimum log level - one of debug/info/warn/error.")
	checkzkpCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON log lines instead of the console format.")
}

var checkzkpCmd = &cobra.Command{
	Use:   "checkzkp",
	Short: "Build OP_CHECKZKP locking scripts from R1CS constraint containers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if logJSON {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func main() {
	if err := checkzkpCmd.Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
