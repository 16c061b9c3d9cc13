package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nicer/internal/config"
	"nicer/internal/logging"
	"nicer/internal/pipeline"
	"nicer/internal/stage"
	"nicer/internal/store"
	"nicer/internal/toolchain"
)

const defaultConfigName = config.DefaultFile

// newRunner is replaced in tests with a simulated toolchain.
var newRunner = func(*config.Config) toolchain.Runner {
	return toolchain.NewExecRunner()
}

// executablePath is replaced in tests.
var executablePath = config.ExecutablePath

// loadConfig reads the config named by --config, or ./nicer.yaml when it
// exists, or the defaults. It resolves derived paths and initialises logging.
func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, error) {
	path := g.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigName); err == nil {
			path = defaultConfigName
		}
	}
	cfg := config.Default()
	if path != "" {
		c, err := config.LoadFromPath(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(level, cfg.Log.Format, cmd.ErrOrStderr())

	exe := ""
	if cfg.OutputDir == "" {
		if exe, err = executablePath(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Resolve(exe); err != nil {
		return nil, err
	}
	logging.New("config").Debug("config loaded", "path", path, "output_dir", cfg.OutputDir, "obs_root", cfg.ObsRoot)
	return cfg, nil
}

// newDriver opens the ledger and builds a pipeline driver. The caller closes
// the returned store.
func newDriver(cfg *config.Config) (*pipeline.Driver, store.Store, error) {
	st, err := store.Open(cfg.LedgerPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	env := stage.NewEnv(cfg, newRunner(cfg))
	return pipeline.New(env, st), st, nil
}
