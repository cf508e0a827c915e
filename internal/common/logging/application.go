package logging

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

const RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"

// ConfigureLogging sets up the standard logrus logger for a long-running application.
func ConfigureLogging(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	level, _ := parseLogLevel(config.Level)
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	if strings.ToLower(config.Format) == FormatJson {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: RFC3339Milli})
	} else {
		log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: RFC3339Milli})
	}
	return nil
}

// MustConfigureLogging is ConfigureLogging but will immediately shut down the application if it fails.
func MustConfigureLogging(config Config) {
	if err := ConfigureLogging(config); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error initializing logging: "+err.Error())
		os.Exit(1)
	}
}

// ConfigureCommandLineLogging sets up logging for command line use: only the message is printed.
func ConfigureCommandLineLogging() {
	log.SetFormatter(new(CommandLineFormatter))
	log.SetOutput(os.Stdout)
}
