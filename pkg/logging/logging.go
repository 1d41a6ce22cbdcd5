// vl2rule/pkg/logging/logging.go

package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// LogFile is the file written when the "file" output is selected.
const LogFile = "vl2rule.log"

var Logger zerolog.Logger

func init() {
	logLevel := zerolog.InfoLevel // Default log level
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if level, err := zerolog.ParseLevel(envLevel); err == nil {
			logLevel = level
		}
	}

	zerolog.SetGlobalLevel(logLevel)
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ConfigureLogger sets the global level and replaces Logger with one writing
// to the selected output: "console", "json" or "file".
func ConfigureLogger(logLevel, logOutput string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("Invalid log level %q: %w", logLevel, err)
	}

	var out io.Writer
	switch logOutput {
	case "console":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "3:04PM"}
	case "json":
		out = os.Stderr
	case "file":
		file, err := os.Create(LogFile)
		if err != nil {
			return fmt.Errorf("Failed to create log file: %w", err)
		}
		out = file
	default:
		return fmt.Errorf("Invalid log output option %q", logOutput)
	}

	zerolog.SetGlobalLevel(level)
	Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}
