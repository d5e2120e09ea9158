package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jward/trellis/internal/config"
	tlog "github.com/jward/trellis/internal/log"
)

// settings are the layered CLI settings: flags over TRELLIS_* environment
// variables over .trellis.yaml over defaults.
type settings struct {
	DB       string `mapstructure:"db"`
	Format   string `mapstructure:"format"`
	LogLevel string `mapstructure:"log-level"`
	Manifest string `mapstructure:"manifest"`
}

var settingKeys = []string{"db", "format", "log-level", "manifest"}

func (c *cli) loadSettings(cmd *cobra.Command) error {
	v := viper.New()
	v.SetDefault("format", "json")
	v.SetDefault("log-level", "warn")

	if c.configFile != "" {
		v.SetConfigFile(c.configFile)
	} else {
		v.SetConfigName(".trellis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TRELLIS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range settingKeys {
		if f := cmd.Flags().Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", key, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading settings: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return fmt.Errorf("decoding settings: %w", err)
	}
	if err := validateFormat(s.Format); err != nil {
		return err
	}
	c.settings = s
	c.logger = tlog.New(c.errOut, tlog.LoggerOpts{Level: tlog.ParseLevel(s.LogLevel)})
	return nil
}

// manifestPath picks the manifest from the argument, the manifest setting,
// or the current directory.
func (c *cli) manifestPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if c.settings.Manifest != "" {
		return c.settings.Manifest, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return config.Find(cwd)
}

// dbPath resolves the snapshot path: the db setting, then the manifest's
// database, then trellis.db.
func (c *cli) dbPath(m *config.Manifest) string {
	if c.settings.DB != "" {
		return c.settings.DB
	}
	if m != nil {
		return m.DatabasePath()
	}
	if path, err := c.manifestPath(nil); err == nil {
		if m, err := config.Load(path); err == nil {
			return m.DatabasePath()
		}
	}
	return "trellis.db"
}
