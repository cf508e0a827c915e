package main

import (
	"os"

	"github.com/armadaproject/jobbuffer/cmd/jobbuffer/cmd"
	"github.com/armadaproject/jobbuffer/internal/common/logging"
)

func main() {
	logging.ConfigureCommandLineLogging()
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
