package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

func TestConfigWatcher_ReloadNotifies(t *testing.T) {
	initial := GetDefaultConfig()
	w := NewConfigWatcher("unused.yaml", initial, logger.NewNop())

	next := GetDefaultConfig()
	next.LogLevel = "debug"
	w.load = func() (*Config, error) { return next, nil }

	var got *Config
	w.RegisterWatcher(func(c *Config) { got = c })
	w.RegisterWatcher(func(*Config) { panic("boom") })

	assert.NoError(t, w.reloadConfig())
	w.notifyWatchers()

	assert.Same(t, next, got)
	assert.Same(t, next, w.GetConfig())
}

func TestConfigWatcher_ReloadFailureKeepsConfig(t *testing.T) {
	initial := GetDefaultConfig()
	w := NewConfigWatcher("unused.yaml", initial, logger.NewNop())
	w.load = func() (*Config, error) { return nil, errors.New("bad yaml") }

	assert.Error(t, w.reloadConfig())
	assert.Same(t, initial, w.GetConfig())

	w.Stop()
	w.Stop()
}
