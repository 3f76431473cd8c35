package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"videoforge/internal/api"
	"videoforge/internal/config"
	"videoforge/internal/daemon"
	"videoforge/internal/logging"
	"videoforge/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
	configSeen bool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// withStore opens the task database for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withMedia is withStore plus a media service that logs nowhere, so command
// output stays clean.
func (c *commandContext) withMedia(fn func(*api.MediaService, *queue.Store) error) error {
	return c.withStore(func(cfg *config.Config, store *queue.Store) error {
		return fn(api.NewMediaService(cfg, store, logging.NewNop()), store)
	})
}

func (c *commandContext) daemonRunning() (bool, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return false, err
	}
	return daemon.IsRunning(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
