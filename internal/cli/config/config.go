// Package config loads the engine configuration: judge endpoints and
// accounts, polling bounds, harness limits and the comparison mode.
// Secrets never live in the file; they come from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/js-808/cc-cli/internal/judge"
	appErr "github.com/js-808/cc-cli/pkg/errors"
)

const (
	DefaultTimeout = 30 * time.Second

	DefaultPollInitial      = 2 * time.Second
	DefaultPollMaxInterval  = 30 * time.Second
	DefaultPollMaxWait      = 10 * time.Minute
	DefaultPollMaxTransient = 5

	DefaultTimeLimit = 10 * time.Second
	DefaultMemoryMB  = 512
	DefaultOutputKB  = 1024
)

// JudgeConfig holds one judge's endpoint and account.
type JudgeConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	Account    string        `yaml:"account"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
	// StatusOverrides patches the verdict vocabulary when the judge
	// changes status strings faster than releases ship.
	StatusOverrides map[string]string `yaml:"statusOverrides"`
}

// PollingConfig bounds the submission tracker's loop.
type PollingConfig struct {
	Initial      time.Duration `yaml:"initial"`
	MaxInterval  time.Duration `yaml:"maxInterval"`
	MaxWait      time.Duration `yaml:"maxWait"`
	MaxTransient int           `yaml:"maxTransient"`
}

// LimitsConfig bounds local test execution.
type LimitsConfig struct {
	Time     time.Duration `yaml:"time"`
	MemoryMB int64         `yaml:"memoryMB"`
	OutputKB int64         `yaml:"outputKB"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Config is the full engine configuration.
type Config struct {
	Judges  map[string]JudgeConfig `yaml:"judges"`
	Polling PollingConfig          `yaml:"polling"`
	Limits  LimitsConfig           `yaml:"limits"`
	Compare string                 `yaml:"compare"`
	Timeout time.Duration          `yaml:"timeout"`
	Log     LogConfig              `yaml:"log"`
}

// Load reads and validates a config file. A missing file yields pure
// defaults so the harness works with zero setup.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			return cfg, nil
		}
		return cfg, appErr.Wrapf(err, appErr.ConfigMissing, "read config file failed")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, appErr.Wrapf(err, appErr.ConfigInvalid, "parse config file failed")
	}
	applyDefaults(&cfg)
	if cfg.Compare != "exact" && cfg.Compare != "trailing-ws" {
		return cfg, appErr.Newf(appErr.ConfigInvalid, "unknown compare mode %q", cfg.Compare)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Judges == nil {
		cfg.Judges = map[string]JudgeConfig{}
	}
	if cfg.Polling.Initial <= 0 {
		cfg.Polling.Initial = DefaultPollInitial
	}
	if cfg.Polling.MaxInterval <= 0 {
		cfg.Polling.MaxInterval = DefaultPollMaxInterval
	}
	if cfg.Polling.MaxWait <= 0 {
		cfg.Polling.MaxWait = DefaultPollMaxWait
	}
	if cfg.Polling.MaxTransient <= 0 {
		cfg.Polling.MaxTransient = DefaultPollMaxTransient
	}
	if cfg.Limits.Time <= 0 {
		cfg.Limits.Time = DefaultTimeLimit
	}
	if cfg.Limits.MemoryMB <= 0 {
		cfg.Limits.MemoryMB = DefaultMemoryMB
	}
	if cfg.Limits.OutputKB <= 0 {
		cfg.Limits.OutputKB = DefaultOutputKB
	}
	if cfg.Compare == "" {
		cfg.Compare = "exact"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Credential resolves a judge account's secret from the environment:
// CC_<JUDGE>_USER and CC_<JUDGE>_SECRET. The config account name wins
// over the env user when both are set.
func Credential(cfg Config, judgeName, account string) (judge.Credential, error) {
	prefix := "CC_" + strings.ToUpper(judgeName) + "_"
	user := account
	if user == "" {
		user = os.Getenv(prefix + "USER")
	}
	secret := os.Getenv(prefix + "SECRET")
	if user == "" || secret == "" {
		return judge.Credential{}, appErr.New(appErr.CredentialMissing).
			WithDetail("judge", judgeName).
			WithDetail("env", fmt.Sprintf("%sUSER/%sSECRET", prefix, prefix))
	}
	return judge.Credential{Username: user, Secret: secret}, nil
}
