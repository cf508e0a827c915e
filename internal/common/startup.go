package common

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigSources describes where LoadConfig reads configuration from, lowest precedence first.
type ConfigSources struct {
	// Default values, keyed by config key (e.g. "logging.level")
	Defaults map[string]interface{}
	// Directory searched for config.yaml. A missing file is not an error.
	DefaultPath string
	// Files merged on top of the default config, in order
	UserConfigs []string
	// Prefix of environment variable overrides, e.g. JOBBUFFER gives JOBBUFFER_LOGGING_LEVEL
	EnvPrefix string
	// Command line flags. Only flags explicitly set by the user are applied.
	Flags *pflag.FlagSet
	// Maps flag names to config keys where they differ, e.g. "logLevel" -> "logging.level"
	FlagKeys map[string]string
}

// LoadConfig merges all configured sources into a viper instance and unmarshals the result into config.
// The returned viper instance can be used to look up individual keys.
func LoadConfig(config interface{}, sources ConfigSources) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range sources.Defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if sources.DefaultPath != "" {
		v.AddConfigPath(sources.DefaultPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrapf(err, "failed to read default config from %s", sources.DefaultPath)
			}
			log.Debugf("No default config found in %s", sources.DefaultPath)
		}
	}

	for _, configFile := range sources.UserConfigs {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to merge config file %s", configFile)
		}
		log.Debugf("Read config from %s", configFile)
	}

	if sources.EnvPrefix != "" {
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.SetEnvPrefix(sources.EnvPrefix)
		v.AutomaticEnv()
	}

	if sources.Flags != nil {
		if err := BindCommandlineArguments(v, sources.Flags, sources.FlagKeys); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, errors.WithStack(err)
	}
	return v, nil
}

// BindCommandlineArguments binds every flag the user has set to its config key.
func BindCommandlineArguments(v *viper.Viper, flags *pflag.FlagSet, flagKeys map[string]string) error {
	var err error
	flags.Visit(func(flag *pflag.Flag) {
		if err != nil {
			return
		}
		key, ok := flagKeys[flag.Name]
		if !ok {
			key = flag.Name
		}
		err = v.BindPFlag(key, flag)
	})
	return errors.WithStack(err)
}
