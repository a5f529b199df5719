// Package ci parses, validates, matrix-expands and executes
// appveyor-style continuous-integration configuration files.
package ci

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("ci: invalid config")

// recognizedKeys are the only top-level keys the schema allows.
var recognizedKeys = map[string]bool{
	"build":       true,
	"environment": true,
	"platform":    true,
	"init":        true,
	"install":     true,
	"test_script": true,
}

// Shell selects how a command string is executed.
type Shell string

const (
	ShellDefault Shell = ""
	ShellSh      Shell = "sh"
	ShellCmd     Shell = "cmd"
	ShellPS      Shell = "ps"
)

// Command is one pipeline step command with its shell.
type Command struct {
	Shell Shell
	Line  string
}

// Environment holds the environment section: global variables applied to
// every leg, and a matrix of per-leg variable sets.
type Environment struct {
	Global map[string]string
	Matrix []map[string]string
}

// Config is a parsed and validated CI configuration.
type Config struct {
	BuildOff    bool
	Environment Environment
	Platforms   []string
	Init        []Command
	Install     []Command
	TestScript  []Command
}

// Parse decodes and validates a CI configuration document.
func Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !recognizedKeys[k] {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, k)
		}
	}

	cfg := &Config{}
	if v, ok := raw["build"]; ok {
		off, err := parseBuild(v)
		if err != nil {
			return nil, err
		}
		cfg.BuildOff = off
	}
	if v, ok := raw["environment"]; ok {
		env, err := parseEnvironment(v)
		if err != nil {
			return nil, err
		}
		cfg.Environment = env
	}
	if v, ok := raw["platform"]; ok {
		platforms, err := parsePlatforms(v)
		if err != nil {
			return nil, err
		}
		cfg.Platforms = platforms
	}
	for _, sec := range []struct {
		key string
		dst *[]Command
	}{
		{"init", &cfg.Init},
		{"install", &cfg.Install},
		{"test_script", &cfg.TestScript},
	} {
		v, ok := raw[sec.key]
		if !ok {
			continue
		}
		cmds, err := parseCommands(sec.key, v)
		if err != nil {
			return nil, err
		}
		*sec.dst = cmds
	}

	if len(cfg.TestScript) == 0 {
		return nil, fmt.Errorf("%w: test_script is required and must not be empty", ErrInvalidConfig)
	}
	return cfg, nil
}

// ParseFile reads and parses a configuration file.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ci: read config: %w", err)
	}
	return Parse(data)
}

func parseBuild(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return !b, nil
	case string:
		switch strings.ToLower(b) {
		case "off", "false", "none":
			return true, nil
		case "on", "true":
			return false, nil
		}
		return false, fmt.Errorf("%w: build: unrecognized value %q", ErrInvalidConfig, b)
	default:
		return false, fmt.Errorf("%w: build: expected bool or string, got %T", ErrInvalidConfig, v)
	}
}

func parseEnvironment(v interface{}) (Environment, error) {
	env := Environment{Global: map[string]string{}}
	m, ok := v.(map[string]interface{})
	if !ok {
		return env, fmt.Errorf("%w: environment: expected mapping, got %T", ErrInvalidConfig, v)
	}
	for k, val := range m {
		if k == "matrix" {
			rows, ok := val.([]interface{})
			if !ok {
				return env, fmt.Errorf("%w: environment.matrix: expected list, got %T", ErrInvalidConfig, val)
			}
			for i, row := range rows {
				vars, ok := row.(map[string]interface{})
				if !ok {
					return env, fmt.Errorf("%w: environment.matrix[%d]: expected mapping, got %T", ErrInvalidConfig, i, row)
				}
				set := make(map[string]string, len(vars))
				for name, value := range vars {
					set[name] = scalarString(value)
				}
				env.Matrix = append(env.Matrix, set)
			}
			continue
		}
		env.Global[k] = scalarString(val)
	}
	return env, nil
}

func parsePlatforms(v interface{}) ([]string, error) {
	switch p := v.(type) {
	case string:
		return []string{p}, nil
	case []interface{}:
		platforms := make([]string, 0, len(p))
		for i, item := range p {
			s, ok := item.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%w: platform[%d]: expected non-empty string", ErrInvalidConfig, i)
			}
			platforms = append(platforms, s)
		}
		return platforms, nil
	default:
		return nil, fmt.Errorf("%w: platform: expected string or list, got %T", ErrInvalidConfig, v)
	}
}

func parseCommands(section string, v interface{}) ([]Command, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s: expected list, got %T", ErrInvalidConfig, section, v)
	}
	cmds := make([]Command, 0, len(items))
	for i, item := range items {
		switch c := item.(type) {
		case string:
			if strings.TrimSpace(c) == "" {
				return nil, fmt.Errorf("%w: %s[%d]: empty command", ErrInvalidConfig, section, i)
			}
			cmds = append(cmds, Command{Line: c})
		case map[string]interface{}:
			if len(c) != 1 {
				return nil, fmt.Errorf("%w: %s[%d]: shell commands take exactly one key", ErrInvalidConfig, section, i)
			}
			for key, val := range c {
				shell := Shell(key)
				switch shell {
				case ShellSh, ShellCmd, ShellPS:
				default:
					return nil, fmt.Errorf("%w: %s[%d]: unknown shell %q", ErrInvalidConfig, section, i, key)
				}
				line, ok := val.(string)
				if !ok || strings.TrimSpace(line) == "" {
					return nil, fmt.Errorf("%w: %s[%d]: empty %s command", ErrInvalidConfig, section, i, key)
				}
				cmds = append(cmds, Command{Shell: shell, Line: line})
			}
		default:
			return nil, fmt.Errorf("%w: %s[%d]: expected string or shell mapping, got %T", ErrInvalidConfig, section, i, item)
		}
	}
	return cmds, nil
}

func scalarString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
