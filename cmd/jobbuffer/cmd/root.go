package cmd

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/jobbuffer/internal/common"
	"github.com/armadaproject/jobbuffer/internal/common/app"
	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
	"github.com/armadaproject/jobbuffer/internal/common/armadaerrors"
	"github.com/armadaproject/jobbuffer/internal/common/logging"
	"github.com/armadaproject/jobbuffer/internal/common/metrics"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/configuration"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/orchestrator"
)

const (
	defaultConfigPath = "./config/jobbuffer"
	envPrefix         = "JOBBUFFER"

	configFlag        = "config"
	idleTimeoutFlag   = "idleTimeout"
	timeUnitFlag      = "timeUnit"
	statsIntervalFlag = "statsInterval"
	metricsPortFlag   = "metricsPort"
	seedFlag          = "seed"
	logFormatFlag     = "logFormat"
	logLevelFlag      = "logLevel"
	summaryFlag       = "summary"

	summaryFormatYaml = "yaml"
)

// Flags whose name differs from the config key they override.
var flagKeys = map[string]string{
	seedFlag:      "randomSeed",
	logFormatFlag: "logging.format",
	logLevelFlag:  "logging.level",
}

// Execute runs the root command with the given arguments and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := RootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err == nil {
		return armadaerrors.ExitCodeSuccess
	}
	code := armadaerrors.ExitCodeFromError(err)
	_, _ = fmt.Fprintf(stderr, "Error: %s\n", err)
	if code == armadaerrors.ExitCodeArgumentCount || code == armadaerrors.ExitCodeInvalidArgument {
		_, _ = fmt.Fprintln(stderr, cmd.UsageString())
	}
	return code
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobbuffer <bufferSize> <jobsPerProducer> <numberOfProducers> <numberOfConsumers>",
		Short: "jobbuffer runs producers and consumers against a shared bounded job buffer.",
		Long: `jobbuffer starts numberOfProducers producers, each of which generates jobsPerProducer jobs of random
duration and deposits them in a circular buffer of bufferSize jobs, and numberOfConsumers consumers that
take jobs from the buffer and execute them. Workers stop once they have waited longer than the idle
timeout for a free slot or for a job.`,
		// Positional arguments are validated by run so that they map to their own exit codes.
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.Flags().StringSlice(configFlag, []string{}, "Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	cmd.Flags().Duration(idleTimeoutFlag, configuration.DefaultIdleTimeout, "How long a worker waits for a slot or a job before terminating")
	cmd.Flags().Duration(timeUnitFlag, configuration.DefaultTimeUnit, "Length of the unit in which job durations and production delays are expressed")
	cmd.Flags().Duration(statsIntervalFlag, configuration.DefaultStatsInterval, "Interval between progress updates, 0 to disable")
	cmd.Flags().Uint16(metricsPortFlag, 0, "Port on which Prometheus metrics are served, 0 to disable")
	cmd.Flags().Int64(seedFlag, 0, "Random seed for job durations and production delays, 0 to seed from the current time")
	cmd.Flags().String(logFormatFlag, logging.FormatText, "Log format, text or json")
	cmd.Flags().String(logLevelFlag, "info", "Log level")
	cmd.Flags().String(summaryFlag, "", "Print a summary of the run to stdout in the given format (yaml)")

	// Unknown flags include negative numbers given as positional arguments, e.g. -3.
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "flags",
			Value:   cmd.Flags().Args(),
			Message: err.Error(),
		})
	})

	cmd.AddCommand(versionCmd())
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	workload, err := configuration.ParseArguments(args)
	if err != nil {
		return err
	}
	summaryFormat, err := cmd.Flags().GetString(summaryFlag)
	if err != nil {
		return errors.WithStack(err)
	}
	if summaryFormat != "" && summaryFormat != summaryFormatYaml {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    summaryFlag,
			Value:   summaryFormat,
			Message: "the only supported format is " + summaryFormatYaml,
		})
	}

	config, err := loadConfig(cmd, workload)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return errors.WithStack(err)
	}
	if err := configureLogging(config.Logging, registry); err != nil {
		return err
	}

	ctx, stop := app.CreateContextWithShutdown(armadacontext.Background())
	defer stop()

	shutdownMetrics, err := metrics.ServeMetrics(config.MetricsPort, registry)
	if err != nil {
		return errors.WithStack(&armadaerrors.ErrResourceCreation{Resource: "metrics server", Err: err})
	}

	summary, runErr := orchestrator.NewRunner(config).WithRegisterer(registry).Run(ctx)

	var result *multierror.Error
	if runErr != nil {
		result = multierror.Append(result, runErr)
	}
	if err := shutdownMetrics(); err != nil {
		result = multierror.Append(result, errors.WithMessage(err, "shutting down metrics server"))
	}
	if summary != nil && summaryFormat == summaryFormatYaml {
		out, err := summary.YAML()
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(out))
		}
	}
	return result.ErrorOrNil()
}

// loadConfig merges defaults, config files, environment variables and flags into a validated configuration.
func loadConfig(cmd *cobra.Command, workload configuration.Workload) (configuration.Configuration, error) {
	userConfigs, err := cmd.Flags().GetStringSlice(configFlag)
	if err != nil {
		return configuration.Configuration{}, errors.WithStack(err)
	}
	var config configuration.Configuration
	_, err = common.LoadConfig(&config, common.ConfigSources{
		Defaults:    configuration.DefaultValues(),
		DefaultPath: defaultConfigPath,
		UserConfigs: userConfigs,
		EnvPrefix:   envPrefix,
		Flags:       cmd.Flags(),
		FlagKeys:    flagKeys,
	})
	if err != nil {
		return configuration.Configuration{}, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    configFlag,
			Value:   userConfigs,
			Message: err.Error(),
		})
	}
	config.Workload = workload
	return config, nil
}

func configureLogging(config logging.Config, registry prometheus.Registerer) error {
	if err := logging.ConfigureLogging(config); err != nil {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "logging",
			Value:   fmt.Sprintf("%+v", config),
			Message: err.Error(),
		})
	}
	hook, err := logging.NewPrometheusHook("jobbuffer_", registry)
	if err != nil {
		return errors.WithStack(err)
	}
	log.StandardLogger().ReplaceHooks(log.LevelHooks{})
	log.AddHook(hook)
	return nil
}
