// Package config loads and stores the persisted YADA settings.
//
// Settings live in a TOML file, by default ~/.config/yada/yada.config.
// Environment variables override file values for the running process only.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mfateev/yada-go/internal/models"
)

// Environment variables that override file settings.
const (
	EnvAPIKey         = "YADA_API_KEY"
	EnvLLMModelName   = "YADA_LLM_MODEL_NAME"
	EnvLLMProvider    = "YADA_LLM_PROVIDER"
	EnvCustomToolsDir = "YADA_CUSTOM_TOOLS_DIR"
	EnvCheckpointDB   = "YADA_CHECKPOINT_DB"
)

// MCPServer describes an MCP server started over stdio.
type MCPServer struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Args    []string `toml:"args,omitempty"`
	// SafeTools lists tools that run without confirmation.
	SafeTools []string `toml:"safe_tools,omitempty"`
}

// Config is the persisted configuration.
type Config struct {
	APIKey         string      `toml:"api_key"`
	LLMModelName   string      `toml:"llm_model_name"`
	LLMProvider    string      `toml:"llm_provider,omitempty"`
	CustomToolsDir string      `toml:"custom_tools_dir"`
	CheckpointDB   string      `toml:"checkpoint_db,omitempty"`
	MaxSteps       int         `toml:"max_steps,omitempty"`
	MCPServers     []MCPServer `toml:"mcp_servers,omitempty"`
}

// Default returns the configuration used for an empty file.
func Default() Config {
	return Config{LLMModelName: models.DefaultModel}
}

// DefaultPath returns ~/.config/yada/yada.config.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "yada", "yada.config"), nil
}

// Load reads path, creating an empty file when it does not exist. Keys
// missing from the file keep their defaults. Files written as bare
// key=value lines are accepted too.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("create config file: %w", err)
		}
		data = nil
	} else if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		legacy, lerr := parseKeyValue(data)
		if lerr != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = legacy
	}
	if cfg.LLMModelName == "" {
		cfg.LLMModelName = models.DefaultModel
	}
	return &cfg, nil
}

// Save writes cfg to path in TOML.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Update loads path, applies fn and saves the result.
func Update(path string, fn func(*Config)) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	fn(cfg)
	return Save(path, cfg)
}

// SetAPIKey persists a new API key.
func SetAPIKey(path, key string) error {
	return Update(path, func(c *Config) { c.APIKey = key })
}

// SetLLMModelName persists a new model name.
func SetLLMModelName(path, name string) error {
	return Update(path, func(c *Config) { c.LLMModelName = name })
}

// SetCustomToolsDir persists a new custom tools directory.
func SetCustomToolsDir(path, dir string) error {
	return Update(path, func(c *Config) { c.CustomToolsDir = dir })
}

// WithEnv returns a copy of c with environment overrides applied. lookup is
// usually os.LookupEnv.
func (c Config) WithEnv(lookup func(string) (string, bool)) Config {
	override := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.APIKey, EnvAPIKey)
	override(&c.LLMModelName, EnvLLMModelName)
	override(&c.LLMProvider, EnvLLMProvider)
	override(&c.CustomToolsDir, EnvCustomToolsDir)
	override(&c.CheckpointDB, EnvCheckpointDB)
	return c
}

// ModelConfig derives the model selection. The provider is inferred from
// the model name when not set.
func (c Config) ModelConfig() models.ModelConfig {
	mc := models.DefaultModelConfig()
	if c.LLMModelName != "" {
		mc.Model = c.LLMModelName
	}
	mc.Provider = c.LLMProvider
	if mc.Provider == "" {
		mc.Provider = models.DetectProvider(mc.Model)
	}
	return mc
}

// parseKeyValue reads the older unquoted key=value format.
func parseKeyValue(data []byte) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, found := strings.Cut(text, "=")
		if !found {
			return Config{}, fmt.Errorf("line %d: expected key=value", line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch key {
		case "api_key":
			cfg.APIKey = value
		case "llm_model_name":
			cfg.LLMModelName = value
		case "llm_provider":
			cfg.LLMProvider = value
		case "custom_tools_dir":
			cfg.CustomToolsDir = value
		case "checkpoint_db":
			cfg.CheckpointDB = value
		case "max_steps":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, fmt.Errorf("line %d: max_steps: %w", line, err)
			}
			cfg.MaxSteps = n
		}
	}
	return cfg, scanner.Err()
}
