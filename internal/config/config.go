package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ResponsesURL           = "https://chatgpt.com/backend-api/codex/responses"
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 4050
	DefaultUpstreamTimeout = 300 * time.Second

	// DefaultAliasSource is the local model name rewritten to DefaultAliasTarget.
	DefaultAliasSource = "local_md"
	DefaultAliasTarget = "gpt-5"
)

// ServerConfig holds all server configuration.
type ServerConfig struct {
	Host            string            `yaml:"host"`
	Port            int               `yaml:"port"`
	Verbose         bool              `yaml:"verbose"`
	AccessToken     string            `yaml:"access_token"`
	LogFile         string            `yaml:"log_file"`
	UpstreamURL     string            `yaml:"upstream_url"`
	UpstreamTimeout time.Duration     `yaml:"upstream_timeout"`
	CodexHome       string            `yaml:"codex_home"`
	ModelAliases    map[string]string `yaml:"model_aliases"`
}

// Default returns the built-in configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Host:            DefaultHost,
		Port:            DefaultPort,
		UpstreamURL:     ResponsesURL,
		UpstreamTimeout: DefaultUpstreamTimeout,
		ModelAliases:    map[string]string{DefaultAliasSource: DefaultAliasTarget},
	}
}

// Load builds the configuration in layers: defaults, the optional YAML file at path,
// a .env file in the working directory, then the process environment.
func Load(path string) (*ServerConfig, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// LoadDotEnv loads variables from a .env file without overriding the real environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *ServerConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	aliases := c.ModelAliases
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	// model_aliases in the file extends the defaults instead of replacing them.
	if c.ModelAliases == nil {
		c.ModelAliases = aliases
	} else {
		for k, v := range aliases {
			if _, ok := c.ModelAliases[k]; !ok {
				c.ModelAliases[k] = v
			}
		}
	}
	return nil
}

// ApplyEnv overrides fields from BRIDGE_* and CODEX_HOME environment variables.
func (c *ServerConfig) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("BRIDGE_HOST")); v != "" {
		c.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("BRIDGE_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("BRIDGE_ACCESS_TOKEN")); v != "" {
		c.AccessToken = v
	}
	if envBool("BRIDGE_VERBOSE") {
		c.Verbose = true
	}
	if v := strings.TrimSpace(os.Getenv("BRIDGE_LOG_FILE")); v != "" {
		c.LogFile = v
	}
	if v := strings.TrimSpace(os.Getenv("BRIDGE_UPSTREAM_URL")); v != "" {
		c.UpstreamURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CODEX_HOME")); v != "" {
		c.CodexHome = v
	}
}

// Validate checks values that would otherwise fail late at listen or dial time.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.UpstreamURL) == "" {
		return errors.New("upstream url is empty")
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = DefaultUpstreamTimeout
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CodexHomeDir returns the directory holding auth.json.
func (c *ServerConfig) CodexHomeDir() string {
	if c.CodexHome != "" {
		return c.CodexHome
	}
	return HomeDir()
}

// HomeDir returns the Codex home directory: CODEX_HOME or ~/.codex.
func HomeDir() string {
	if d := strings.TrimSpace(os.Getenv("CODEX_HOME")); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codex")
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
