package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prbarcelon/cliproxy/internal/protocol"
)

type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	History  HistoryConfig  `yaml:"history"`
}

// EndpointConfig addresses the local CLI proxy. Auth is sent as the auth
// query parameter by the exec policy; it is a label the agent matches on, not
// a credential.
type EndpointConfig struct {
	BaseURL string          `yaml:"base_url"`
	Policy  protocol.Policy `yaml:"policy"`
	Auth    string          `yaml:"auth"`
	Timeout time.Duration   `yaml:"timeout,omitempty"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path,omitempty"`
}

func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			BaseURL: protocol.DefaultBaseURL,
			Policy:  protocol.PolicyExec,
			Auth:    protocol.DefaultAuth,
		},
		History: HistoryConfig{
			DBPath: DefaultDBPath(),
		},
	}
}

func DefaultConfigPath() string {
	if envPath := strings.TrimSpace(os.Getenv("CLIPROXY_CONFIG")); envPath != "" {
		return envPath
	}
	return filepath.Join(xdgConfigHome(), "cliproxy", "config.yaml")
}

func DefaultDBPath() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); dir != "" {
		return filepath.Join(dir, "cliproxy", "history.db")
	}
	return filepath.Join(homeDir(), ".local", "share", "cliproxy", "history.db")
}

func xdgConfigHome() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".config")
}

func homeDir() string {
	if home := strings.TrimSpace(os.Getenv("HOME")); home != "" {
		return home
	}
	return "/tmp/cliproxy-" + strconv.Itoa(os.Getuid())
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Endpoint.BaseURL = os.ExpandEnv(cfg.Endpoint.BaseURL)
	cfg.Endpoint.Auth = os.ExpandEnv(cfg.Endpoint.Auth)
	cfg.History.DBPath = expandPath(cfg.History.DBPath)
	if err := normalize(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not
// exist. Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays CLIPROXY_* variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookupEnv("CLIPROXY_URL"); ok {
		cfg.Endpoint.BaseURL = v
	}
	if v, ok := lookupEnv("CLIPROXY_POLICY"); ok {
		cfg.Endpoint.Policy = protocol.Policy(v)
	}
	if v, ok := os.LookupEnv("CLIPROXY_AUTH"); ok {
		cfg.Endpoint.Auth = strings.TrimSpace(v)
	}
	if v, ok := lookupEnv("CLIPROXY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CLIPROXY_TIMEOUT: %w", err)
		}
		cfg.Endpoint.Timeout = d
	}
	if err := normalize(cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// SetBaseURL replaces the endpoint base url, validating it like a loaded
// config.
func SetBaseURL(cfg *Config, baseURL string) error {
	cfg.Endpoint.BaseURL = baseURL
	if err := normalize(cfg); err != nil {
		return fmt.Errorf("url override: %w", err)
	}
	return nil
}

// Debug reports whether CLIPROXY_DEBUG asks for debug logging.
func Debug() bool {
	v, ok := lookupEnv("CLIPROXY_DEBUG")
	if !ok {
		return false
	}
	enabled, err := strconv.ParseBool(v)
	return err == nil && enabled
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func normalize(cfg *Config) error {
	cfg.Endpoint.BaseURL = strings.TrimSpace(cfg.Endpoint.BaseURL)
	if cfg.Endpoint.BaseURL == "" {
		cfg.Endpoint.BaseURL = protocol.DefaultBaseURL
	}
	u, err := url.Parse(cfg.Endpoint.BaseURL)
	if err != nil {
		return fmt.Errorf("endpoint base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint base_url %q: scheme must be http or https", cfg.Endpoint.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint base_url %q: host is required", cfg.Endpoint.BaseURL)
	}
	policy, err := protocol.ParsePolicy(string(cfg.Endpoint.Policy))
	if err != nil {
		return fmt.Errorf("endpoint policy: %w", err)
	}
	cfg.Endpoint.Policy = policy
	if cfg.Endpoint.Timeout < 0 {
		return fmt.Errorf("endpoint timeout must not be negative, got %s", cfg.Endpoint.Timeout)
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = DefaultDBPath()
	}
	return nil
}

func expandPath(path string) string {
	path = os.ExpandEnv(strings.TrimSpace(path))
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
