package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fussion/engine/internal/core/observability/log"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, time.Second/60, c.App.FixedDelta)
	assert.False(t, c.Inspector.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fussion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  encoding: json
app:
  fixed_delta: 20ms
  max_frames: 120
  abort_on_fault: true
  scene: levels/main.scene
assets:
  root: data
  save_on_exit: true
inspector:
  enabled: true
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, c.App.FixedDelta)
	assert.Equal(t, 120, c.App.MaxFrames)
	assert.True(t, c.App.AbortOnFault)
	assert.Equal(t, "levels/main.scene", c.App.Scene)
	assert.Equal(t, "data", c.Assets.Root)
	assert.Equal(t, "assets.yaml", c.Assets.Registry, "untouched keys keep defaults")
	assert.True(t, c.Assets.SaveOnExit)
	assert.True(t, c.Inspector.Enabled)
	assert.Equal(t, "127.0.0.1:7070", c.Inspector.Address)

	opts := c.LoggerOptions()
	assert.Equal(t, log.LevelDebug, opts.Level)
	assert.Equal(t, "json", opts.Encoding)
}

func TestLoadEmpty(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c, err = Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Decode(strings.NewReader("app: [1, 2"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"encoding":        func(c *Config) { c.Log.Encoding = "xml" },
		"fixed delta":     func(c *Config) { c.App.FixedDelta = 0 },
		"max frames":      func(c *Config) { c.App.MaxFrames = -1 },
		"asset root":      func(c *Config) { c.Assets.Root = "" },
		"workers":         func(c *Config) { c.Assets.Workers = -2 },
		"inspector addr": func(c *Config) {
			c.Inspector.Enabled = true
			c.Inspector.Address = ""
		},
		"inspector every": func(c *Config) { c.Inspector.Interval = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
