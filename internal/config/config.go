// Package config loads agentcore settings.
//
// Settings come from three layers, lowest priority first: built-in defaults,
// a TOML file, and AGENTCORE_* environment variables. The merged result is
// decoded into Config and validated.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/bridge"
	"github.com/dshills/agentcore/internal/logstore"
)

// Persistence backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Bridge probe kinds.
const (
	ProbeNone  = "none"
	ProbeDir   = "dir"
	ProbeTCP   = "tcp"
	ProbeRedis = "redis"
)

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration struct {
	time.Duration
}

// Dur wraps d.
func Dur(d time.Duration) Duration {
	return Duration{Duration: d}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q", string(b))
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Executor ExecutorConfig `toml:"executor"`
	Agents   AgentsConfig   `toml:"agents"`
	Bridge   BridgeConfig   `toml:"bridge"`
	API      APIConfig      `toml:"api"`
}

// LogConfig configures the log store and its persistence.
type LogConfig struct {
	Level        string   `toml:"level"`
	MaxEntries   int      `toml:"maxEntries"`
	PersistCount int      `toml:"persistCount"`
	AutoSave     Duration `toml:"autoSave"`
	Console      bool     `toml:"console"`

	// Backend is one of file, redis or none.
	Backend string `toml:"backend"`
	File    string `toml:"file"`

	RedisAddr     string   `toml:"redisAddr"`
	RedisPassword string   `toml:"redisPassword"`
	RedisDB       int      `toml:"redisDb"`
	RedisKey      string   `toml:"redisKey"`
	RedisTTL      Duration `toml:"redisTtl"`
}

// ExecutorConfig configures task execution.
type ExecutorConfig struct {
	Timeout    Duration `toml:"timeout"`
	StepDelay  Duration `toml:"stepDelay"`
	StepJitter Duration `toml:"stepJitter"`
	Policy     string   `toml:"policy"`

	// ScriptDir holds optional <kind>.lua step scripts.
	ScriptDir     string   `toml:"scriptDir"`
	ScriptTimeout Duration `toml:"scriptTimeout"`
}

// AgentsConfig locates agent definition files.
type AgentsConfig struct {
	Dir string `toml:"dir"`
}

// BridgeConfig configures the external connection monitor.
type BridgeConfig struct {
	Name     string   `toml:"name"`
	Probe    string   `toml:"probe"`
	Target   string   `toml:"target"`
	Interval Duration `toml:"interval"`
	Timeout  Duration `toml:"timeout"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Addr string `toml:"addr"`

	// Mode is the gin mode: release, debug or test.
	Mode string `toml:"mode"`
}

// Default returns the built-in configuration.
func Default() Config {
	exec := agent.DefaultExecutorConfig()
	mon := bridge.DefaultMonitorConfig()
	return Config{
		Log: LogConfig{
			Level:        string(logstore.LevelInfo),
			MaxEntries:   logstore.DefaultMaxEntries,
			PersistCount: logstore.DefaultPersistCount,
			AutoSave:     Dur(logstore.DefaultAutoSaveInterval),
			Backend:      BackendFile,
			File:         "agentcore-logs.json",
			RedisAddr:    "localhost:6379",
			RedisKey:     logstore.DefaultRedisKey,
		},
		Executor: ExecutorConfig{
			Timeout:       Dur(exec.DefaultTimeout),
			StepDelay:     Dur(exec.StepDelay),
			StepJitter:    Dur(exec.StepJitter),
			Policy:        string(exec.Policy),
			ScriptDir:     "scripts",
			ScriptTimeout: Dur(10 * time.Second),
		},
		Agents: AgentsConfig{
			Dir: ".claude/agents",
		},
		Bridge: BridgeConfig{
			Name:     "ons",
			Probe:    ProbeNone,
			Interval: Dur(mon.Interval),
			Timeout:  Dur(mon.Timeout),
		},
		API: APIConfig{
			Addr: ":8080",
			Mode: "release",
		},
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	fail := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := logstore.ParseLevel(c.Log.Level); err != nil {
		fail("log.level", "unknown level %q", c.Log.Level)
	}
	if c.Log.MaxEntries <= 0 {
		fail("log.maxEntries", "must be positive, got %d", c.Log.MaxEntries)
	}
	if c.Log.PersistCount <= 0 {
		fail("log.persistCount", "must be positive, got %d", c.Log.PersistCount)
	}
	if c.Log.AutoSave.Duration < 0 {
		fail("log.autoSave", "must not be negative")
	}
	switch c.Log.Backend {
	case BackendFile:
		if c.Log.File == "" {
			fail("log.file", "required for the file backend")
		}
	case BackendRedis:
		if c.Log.RedisAddr == "" {
			fail("log.redisAddr", "required for the redis backend")
		}
	case BackendNone:
	default:
		fail("log.backend", "unknown backend %q", c.Log.Backend)
	}

	if c.Executor.Timeout.Duration <= 0 {
		fail("executor.timeout", "must be positive")
	}
	if c.Executor.StepDelay.Duration < 0 {
		fail("executor.stepDelay", "must not be negative")
	}
	if c.Executor.StepJitter.Duration < 0 {
		fail("executor.stepJitter", "must not be negative")
	}
	if _, err := agent.ParsePolicy(c.Executor.Policy); err != nil {
		fail("executor.policy", "unknown policy %q", c.Executor.Policy)
	}

	switch c.Bridge.Probe {
	case ProbeNone, ProbeRedis:
	case ProbeDir, ProbeTCP:
		if c.Bridge.Target == "" {
			fail("bridge.target", "required for the %s probe", c.Bridge.Probe)
		}
	default:
		fail("bridge.probe", "unknown probe %q", c.Bridge.Probe)
	}
	if c.Bridge.Probe != ProbeNone && c.Bridge.Interval.Duration <= 0 {
		fail("bridge.interval", "must be positive")
	}

	switch c.API.Mode {
	case "", "release", "debug", "test":
	default:
		fail("api.mode", "unknown mode %q", c.API.Mode)
	}

	return errors.Join(errs...)
}

// StoreConfig converts the log settings for logstore.New.
func (c LogConfig) StoreConfig() logstore.Config {
	level, err := logstore.ParseLevel(c.Level)
	if err != nil {
		level = logstore.LevelInfo
	}
	return logstore.Config{
		MaxEntries:   c.MaxEntries,
		MinLevel:     level,
		PersistCount: c.PersistCount,
	}
}

// RedisOptions converts the redis settings for logstore.NewRedisPersister.
func (c LogConfig) RedisOptions() logstore.RedisOptions {
	return logstore.RedisOptions{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Key:      c.RedisKey,
		TTL:      c.RedisTTL.Duration,
	}
}

// Agent converts the executor settings for agent.NewExecutor.
func (c ExecutorConfig) Agent() agent.ExecutorConfig {
	policy, err := agent.ParsePolicy(c.Policy)
	if err != nil {
		policy = agent.PolicySerialize
	}
	return agent.ExecutorConfig{
		DefaultTimeout: c.Timeout.Duration,
		StepDelay:      c.StepDelay.Duration,
		StepJitter:     c.StepJitter.Duration,
		Policy:         policy,
	}
}

// MonitorConfig converts the bridge settings for bridge.NewMonitor.
func (c BridgeConfig) MonitorConfig() bridge.MonitorConfig {
	return bridge.MonitorConfig{
		Interval: c.Interval.Duration,
		Timeout:  c.Timeout.Duration,
	}
}
