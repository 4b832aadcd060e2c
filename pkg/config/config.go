// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/viper"
)

type Config struct {
	Logger  log.Logger `yaml:"-" json:"-"`
	Logging Logging

	Http  HTTP
	Admin Admin

	Database Database

	SEPA     SEPA
	Pipeline Pipeline
	Tracing  Tracing
}

type Logging struct {
	Format string
	Level  string
}

type HTTP struct {
	BindAddress string
}

type Admin struct {
	BindAddress           string
	DisableConfigEndpoint bool
}

func Empty() *Config {
	return &Config{
		Logger: log.NewNopLogger(),
		Admin: Admin{
			BindAddress: ":9098",
		},
		Http: HTTP{
			BindAddress: ":8098",
		},
		Database: Database{
			// Set the default path inside this path if no other database is defined.
			SQLite: &SQLite{
				Path: "sepagate.db",
			},
		},
		SEPA: SEPA{
			Validation: Validation{
				Structural: true,
			},
		},
	}
}

func FromFile(path string) (*Config, error) {
	cfg := Empty()
	if path != "" {
		bs, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %v", path, err)
		}
		return Read(bs)
	}
	cfg = setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses YAML config. Keys present in the document can be overridden
// from the environment, e.g. SEPAGATE_HTTP_BINDADDRESS.
func Read(data []byte) (*Config, error) {
	vip := viper.New()
	vip.SetConfigType("yaml")
	vip.SetEnvPrefix("sepagate")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()
	if err := vip.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("problem reading config: %v", err)
	}

	cfg := Empty()
	if err := vip.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("problem unmarshaling config: %v", err)
	}

	cfg = setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogger(cfg *Config) *Config {
	var logger log.Logger
	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		logger = log.NewJSONLogger(os.Stderr)
	default:
		logger = log.NewLogfmtLogger(os.Stderr)
	}
	logger = level.NewFilter(logger, levelOption(cfg.Logging.Level))
	cfg.Logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return cfg
}

// levelOption maps the configured level onto a go-kit filter. Unknown or
// empty levels keep everything.
func levelOption(lvl string) level.Option {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "error":
		return level.AllowError()
	case "warn", "warning":
		return level.AllowWarn()
	case "info":
		return level.AllowInfo()
	default:
		return level.AllowAll()
	}
}

// Validate checks a Config fields and performs various confirmations
// their values conform to expectations.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.New("missing Config")
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "plain", "logfmt":
	default:
		return fmt.Errorf("logging: unknown format %q", cfg.Logging.Format)
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %v", err)
	}
	if err := cfg.SEPA.Validate(); err != nil {
		return fmt.Errorf("sepa: %v", err)
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %v", err)
	}
	if err := cfg.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %v", err)
	}
	return nil
}
