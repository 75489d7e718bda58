package cli

import (
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/spf13/viper"

	"github.com/poltergeist/phasebuild/pkg/types"
)

// EnvPrefix prefixes every environment variable the CLI reads, e.g. PHASEBUILD_TIMEOUT
const EnvPrefix = "PHASEBUILD"

// Flag names shared by flags, viper keys and environment variables
const (
	flagConfigFileName = "config-file-name"
	flagConfigFileDir  = "config-file-dir"
	flagTimeout        = "timeout"
	flagExclusive      = "exclusive"
	flagNoColor        = "no-color"
	flagVerbosity      = "verbosity"
	flagLogFile        = "log-file"
	flagNotify         = "notify"
	flagMetricsFile    = "metrics-file"
)

// Settings holds everything the CLI resolved from flags and environment
type Settings struct {
	ConfigFileName string
	ConfigFileDir  string
	// Timeout is the per-task timeout in milliseconds
	Timeout     int
	Exclusive   bool
	NoColor     bool
	Verbosity   string
	LogFile     string
	Notify      bool
	MetricsFile string
}

// DefaultSettings returns the values used for anything left unset
func DefaultSettings() Settings {
	return Settings{
		ConfigFileName: types.DefaultConfigFileName,
		ConfigFileDir:  ".",
		Timeout:        30000,
		Verbosity:      "warn",
	}
}

// TaskTimeout returns Timeout as a duration
func (s Settings) TaskTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}

// newViper binds environment variables; flags are bound per command
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadSettings reads every setting from v and fills the gaps from DefaultSettings
func loadSettings(v *viper.Viper) (Settings, error) {
	settings := Settings{
		ConfigFileName: v.GetString(flagConfigFileName),
		ConfigFileDir:  v.GetString(flagConfigFileDir),
		Timeout:        v.GetInt(flagTimeout),
		Exclusive:      v.GetBool(flagExclusive),
		NoColor:        v.GetBool(flagNoColor),
		Verbosity:      v.GetString(flagVerbosity),
		LogFile:        v.GetString(flagLogFile),
		Notify:         v.GetBool(flagNotify),
		MetricsFile:    v.GetString(flagMetricsFile),
	}
	if settings.Timeout < 0 {
		return settings, fmt.Errorf("timeout must not be negative, got %d", settings.Timeout)
	}
	if err := mergo.Merge(&settings, DefaultSettings()); err != nil {
		return settings, fmt.Errorf("failed to apply default settings: %w", err)
	}
	return settings, nil
}
