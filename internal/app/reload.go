package app

import (
	"github.com/dshills/agentcore/internal/config"
	"github.com/dshills/agentcore/internal/logstore"
)

// Reload rereads the config file and applies the settings that can change
// at runtime: log level, log capacity and the agent definitions. Other
// changes are logged and take effect on restart.
func (a *Application) Reload() error {
	if a.isClosed() {
		return ErrShutdown
	}
	if a.opts.ConfigPath == "" {
		return ErrNoConfigFile
	}
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		a.logs.Error("Config reload failed", logstore.SourceSystem, map[string]any{"error": err.Error()})
		return err
	}
	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		a.logs.Error("Config reload failed", logstore.SourceSystem, map[string]any{"error": err.Error()})
		return err
	}

	prev := a.Config()
	level, _ := logstore.ParseLevel(cfg.Log.Level)
	if err := a.logs.SetMinLevel(level); err != nil {
		return err
	}
	a.logs.SetMaxEntries(cfg.Log.MaxEntries)

	agentsDir := cfg.Agents.Dir
	if agentsDir == prev.Agents.Dir {
		if err := a.registry.Reload(a.ctx); err != nil {
			a.logs.Error("Agent reload failed", logstore.SourceSystem, map[string]any{"error": err.Error()})
		}
	}

	var restart []string
	if cfg.Agents.Dir != prev.Agents.Dir {
		restart = append(restart, "agents.dir")
	}
	if cfg.Executor != prev.Executor {
		restart = append(restart, "executor")
	}
	if cfg.Bridge != prev.Bridge {
		restart = append(restart, "bridge")
	}
	if cfg.API != prev.API {
		restart = append(restart, "api")
	}
	if cfg.Log.Backend != prev.Log.Backend || cfg.Log.File != prev.Log.File || cfg.Log.RedisAddr != prev.Log.RedisAddr {
		restart = append(restart, "log persistence")
	}

	// Settings that need a restart keep their running values.
	applied := prev
	applied.Log.Level = cfg.Log.Level
	applied.Log.MaxEntries = cfg.Log.MaxEntries
	a.mu.Lock()
	a.config = applied
	a.mu.Unlock()

	details := map[string]any{
		"level":      cfg.Log.Level,
		"maxEntries": cfg.Log.MaxEntries,
	}
	if len(restart) > 0 {
		details["restartRequired"] = restart
	}
	a.logs.Info("Configuration reloaded", logstore.SourceSystem, details)
	return nil
}

func (a *Application) reloadFromWatcher() {
	_ = a.Reload()
}
