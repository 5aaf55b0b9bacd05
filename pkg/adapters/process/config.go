package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes an external command exposed as a named dialog action.
type Config struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Reply sends the command output to the user as a message.
	Reply bool `yaml:"reply" json:"reply"`
	// Timeout bounds one execution. Zero means the turn deadline only.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ConfigFile represents the structure of actions.yaml.
type ConfigFile struct {
	Actions []Config `yaml:"actions" json:"actions"`
}

// LoadActions reads a configuration file (YAML or JSON) and returns the
// actions by name. A missing file means no actions.
func LoadActions(path string) (map[string]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Config{}, nil
		}
		return nil, fmt.Errorf("failed to read actions config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse actions json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse actions yaml: %w", err)
		}
	}

	actions := make(map[string]Config, len(cfg.Actions))
	for _, a := range cfg.Actions {
		if a.Name == "" {
			continue
		}
		if a.Command == "" {
			return nil, fmt.Errorf("action %q: command is required", a.Name)
		}
		actions[a.Name] = a
	}
	return actions, nil
}
