package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"jigpipe/internal/config"
	"jigpipe/internal/faults"
	"jigpipe/internal/logging"
)

// rootFlags are the persistent flags shared by every subcommand. Only flags
// the user actually set override the config file.
type rootFlags struct {
	dryRun         bool
	verbose        bool
	hidden         bool
	token          string
	remoteTarget   string
	outputDir      string
	inputCSV       string
	outputCSV      string
	maxTasks       int
	loadGameRemote bool
	albumsPerPage  int
	jigsBatch      int
	modulesBatch   int
}

type commandContext struct {
	configFlag *string
	flags      *rootFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, flags *rootFlags) *commandContext {
	return &commandContext{configFlag: configFlag, flags: flags}
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = faults.Configf("%v", err)
			return
		}
		c.applyFlagOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = faults.Configf("%v", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = faults.Configf("%v", err)
			return
		}
		logger, err := c.buildLogger(cfg)
		if err != nil {
			c.configErr = faults.Configf("%v", err)
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd == nil || c.flags == nil {
		return
	}
	flags := cmd.Root().PersistentFlags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("dry-run", func() { cfg.DryRun = c.flags.dryRun })
	set("verbose", func() { cfg.Verbose = c.flags.verbose })
	set("hidden", func() { cfg.Hidden = c.flags.hidden })
	set("token", func() { cfg.Platform.Token = c.flags.token })
	set("remote-target", func() { cfg.Platform.RemoteTarget = strings.ToLower(c.flags.remoteTarget) })
	set("output-dir", func() { cfg.OutputDir = c.flags.outputDir })
	set("input-csv", func() { cfg.InputCSV = c.flags.inputCSV })
	set("output-csv", func() { cfg.OutputCSV = c.flags.outputCSV })
	set("max-tasks", func() { cfg.Workflow.MaxTasks = c.flags.maxTasks })
	set("load-game-remote", func() { cfg.Albums.LoadGameRemote = c.flags.loadGameRemote })
	set("download-albums-per-page", func() { cfg.Albums.PerPage = c.flags.albumsPerPage })
	set("download-jigs-batch-size", func() { cfg.Workflow.JigsBatchSize = c.flags.jigsBatch })
	set("download-modules-batch-size", func() { cfg.Workflow.ModulesBatchSize = c.flags.modulesBatch })
}

func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	outputs := []string{"stderr"}
	if strings.TrimSpace(cfg.LogDir) != "" {
		outputs = append(outputs, filepath.Join(cfg.LogDir, "jigpipe.log"))
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.LogFormat,
		OutputPaths: outputs,
	})
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig(nil)
	return cfg
}

func (c *commandContext) loggerValue() *slog.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations != nil && current.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
