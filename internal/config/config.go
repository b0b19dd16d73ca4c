package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	SendBuffer int           `mapstructure:"send_buffer"`
	LogLevel   string        `mapstructure:"log_level"`
	// Backpressure is "kick" or "drop".
	Backpressure string    `mapstructure:"backpressure"`
	RateLimit    RateLimit `mapstructure:"rate_limit"`
	Metrics      bool      `mapstructure:"metrics"`
}

type RateLimit struct {
	Count    int           `mapstructure:"count"`
	Interval time.Duration `mapstructure:"interval"`
}

const envPrefix = "VOICE"

// newViper wires the shared lookup order: flags, VOICE_* env, the yaml
// file, then defaults.
func newViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	fileName, _ := fs.GetString("config")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}
	return v, nil
}

// bindFlags maps flag names onto viper keys, dashes becoming underscores.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// Load reads the server configuration. args are the command line
// arguments without the program name.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("voice-server", pflag.ContinueOnError)
	fs.String("config", "", "path to a yaml config file")
	fs.Int("port", 8080, "listen port")
	fs.String("log-level", "info", "zerolog level")
	fs.String("mode", "release", "gin mode: debug or release")

	v, err := newViper(fs, args)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("log_level", "info")
	v.SetDefault("backpressure", "kick")
	v.SetDefault("rate_limit.count", 5)
	v.SetDefault("rate_limit.interval", "10s")
	v.SetDefault("metrics", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("server config")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.SendBuffer <= 0:
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	case c.Backpressure != "kick" && c.Backpressure != "drop":
		return fmt.Errorf("backpressure must be kick or drop, got %q", c.Backpressure)
	case c.RateLimit.Count <= 0 || c.RateLimit.Interval <= 0:
		return fmt.Errorf("invalid rate_limit %+v", c.RateLimit)
	}
	return nil
}
