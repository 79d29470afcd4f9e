package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alphabill-org/txplanner/logger"
	"github.com/alphabill-org/txplanner/view/boltstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type baseConfiguration struct {
	// HomeDir holds the view database and configuration files.
	HomeDir string
	// CfgFile is relative to HomeDir unless absolute.
	CfgFile string
	// LogCfgFile is relative to HomeDir unless absolute.
	LogCfgFile string

	Logger zerolog.Logger
}

const (
	envPrefix = "TP"

	defaultHomeDir          = ".txplanner"
	defaultConfigFile       = "config.props"
	defaultLoggerConfigFile = "logger-config.yaml"

	keyHome   = "home"
	keyConfig = "config"

	flagNameLoggerCfgFile = "logger-config"
	flagNameLogOutputFile = "log-file"
	flagNameLogLevel      = "log-level"
	flagNameLogFormat     = "log-format"
)

func (r *baseConfiguration) addConfigurationFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&r.HomeDir, keyHome, "", fmt.Sprintf("home directory, overrides %s (default $HOME/%s)", envKey(keyHome), defaultHomeDir))
	flags.StringVar(&r.CfgFile, keyConfig, "", fmt.Sprintf("properties file with flag values (default $%s/%s)", envKey(keyHome), defaultConfigFile))
	flags.StringVar(&r.LogCfgFile, flagNameLoggerCfgFile, defaultLoggerConfigFile, "logger YAML configuration file, relative to home directory unless absolute")
	// no defaults so that values of the logger config file are only
	// overridden when the flag is set explicitly
	flags.String(flagNameLogOutputFile, "", "log output: file path, stdout, stderr or discard")
	flags.String(flagNameLogLevel, "", "log level: TRACE, DEBUG, INFO, WARN, ERROR or NONE")
	flags.String(flagNameLogFormat, "", "log format: json, console or wallet")
}

// resolvePaths fills in home directory and config file from the environment
// or defaults when they were not given as flags.
func (r *baseConfiguration) resolvePaths() error {
	if r.HomeDir == "" {
		if r.HomeDir = os.Getenv(envKey(keyHome)); r.HomeDir == "" {
			dir, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolving user home directory: %w", err)
			}
			r.HomeDir = filepath.Join(dir, defaultHomeDir)
		}
	}
	if r.CfgFile == "" {
		if r.CfgFile = os.Getenv(envKey(keyConfig)); r.CfgFile == "" {
			r.CfgFile = defaultConfigFile
		}
	}
	r.CfgFile = r.inHome(r.CfgFile)
	return nil
}

func (r *baseConfiguration) inHome(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.HomeDir, name)
}

func (r *baseConfiguration) defaultDbFile() string {
	return filepath.Join(r.HomeDir, boltstore.StoreFileName)
}

/*
loadConfig applies values of the config file and TP_ prefixed environment
variables to the flags of "cmd" which were not set on the command line.
Dashes in flag names are underscores in environment variable names, ie
--view-url is read from TP_VIEW_URL.
*/
func (r *baseConfiguration) loadConfig(cmd *cobra.Command) error {
	if err := r.resolvePaths(); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if _, err := os.Stat(r.CfgFile); err == nil {
		v.SetConfigFile(r.CfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", r.CfgFile, err)
		}
	}

	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == keyHome || f.Name == keyConfig || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, v.GetString(f.Name)); err != nil {
			errs = append(errs, fmt.Errorf("setting flag %q from configuration: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

/*
initLogger builds the Logger from the logger config file, log flags override
the values of the file. Missing default logger config file is not an error.
*/
func (r *baseConfiguration) initLogger(cmd *cobra.Command) error {
	cfgFile := filepath.Clean(r.inHome(r.LogCfgFile))
	cfg, err := logger.LoadConfiguration(cfgFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cfgFile != r.inHome(defaultLoggerConfigFile) {
			return err
		}
		cfg = &logger.LogConfiguration{Format: logger.FormatWallet, Level: "INFO"}
	}

	for name, field := range map[string]*string{
		flagNameLogLevel:      &cfg.Level,
		flagNameLogFormat:     &cfg.Format,
		flagNameLogOutputFile: &cfg.OutputPath,
	} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if *field, err = cmd.Flags().GetString(name); err != nil {
			return fmt.Errorf("reading %s flag: %w", name, err)
		}
	}

	if r.Logger, err = logger.New(cfg); err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	return nil
}

func envKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(key)
}
