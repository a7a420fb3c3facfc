package tuihost

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/furry-actions/lsp"
)

// FileConfig is the YAML settings file:
//
//	settings:
//	  actions:
//	    theme: dracula
//	    keys:
//	      confirm: <Tab>
//	servers:
//	  go:
//	    command: gopls
//	keymap:
//	  ga: actions.open
type FileConfig struct {
	Settings map[string]any              `yaml:"settings"`
	Servers  map[string]lsp.ServerConfig `yaml:"servers"`
	Keymap   map[string]string           `yaml:"keymap"`
}

// LoadFileConfig reads path. A missing file yields an empty config.
func LoadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Get implements host.Config. Dotted keys are looked up flat first, then
// through nested maps.
func (c FileConfig) Get(key string) (any, bool) {
	if v, ok := c.Settings[key]; ok {
		return v, true
	}
	var cur any = c.Settings
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
