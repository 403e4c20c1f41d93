package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigSource represents where the configuration was loaded from
type ConfigSource string

const (
	SourceCLI         ConfigSource = "cli"          // From command line argument
	SourceConfigFile  ConfigSource = "config-file"  // From ~/.config/kvui/config.yaml
	SourceNATSContext ConfigSource = "nats-context" // From NATS CLI contexts
	SourceDefault     ConfigSource = "default"      // Default configuration
)

const (
	DefaultBucket           = "kvui"
	DefaultServer           = "nats://localhost:4222"
	DefaultRefreshInterval  = "250ms"
	DefaultPayloadSizeLimit = 8000
	DefaultTopic            = "**"
)

// Environment variables that override the file
const (
	EnvTopics           = "KVUI_TOPICS"
	EnvPayloadSizeLimit = "KVUI_PAYLOAD_SIZE_LIMIT"
	EnvBucket           = "KVUI_BUCKET"
)

// Config represents the application configuration
type Config struct {
	Contexts         []Context `yaml:"contexts"`
	DefaultContext   string    `yaml:"default_context"`
	RefreshInterval  string    `yaml:"refresh_interval"`
	PayloadSizeLimit int       `yaml:"payload_size_limit"`
	Topics           []string  `yaml:"topics,omitempty"`
	LogFile          string    `yaml:"log_file,omitempty"`
	LogLevel         string    `yaml:"log_level,omitempty"`
	currentContext   *Context
	source           ConfigSource // Where this config was loaded from
	sourcePath       string       // Specific file path or context name
}

// Context represents a NATS server connection and the bucket to inspect
type Context struct {
	Name   string `yaml:"name"`
	Server string `yaml:"server"`
	Token  string `yaml:"token,omitempty"`
	Creds  string `yaml:"creds,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
}

// natsContext represents the NATS CLI context JSON format
type natsContext struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	Creds    string `json:"creds"`
	User     string `json:"user"`
	Password string `json:"password"`
	NKey     string `json:"nkey"`
}

// expandPath expands environment variables, tilde, and relative paths
// Supports:
// - Environment variables: $HOME, ${HOME}, $VAR_NAME
// - Tilde expansion: ~/path or ~
// - Relative paths: ./creds/file.creds or ../creds/file.creds (relative to configDir)
func expandPath(path string, configDir string) (string, error) {
	if path == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(path)

	if strings.HasPrefix(expanded, "~/") || expanded == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get home directory")
		}
		expanded = filepath.Join(homeDir, strings.TrimPrefix(expanded, "~"))
	}

	// If the path is not absolute, make it relative to config directory
	if !filepath.IsAbs(expanded) && configDir != "" {
		expanded = filepath.Join(configDir, expanded)
	}

	return filepath.Clean(expanded), nil
}

// expandToken expands a token that references environment variables
func expandToken(token string) string {
	if strings.Contains(token, "$") {
		return os.ExpandEnv(token)
	}
	return token
}

// getNATSContextDir returns the NATS CLI context directory path
func getNATSContextDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ".config", "nats", "context"), nil
}

// getCurrentNATSContext reads the current NATS CLI context name from context.txt
func getCurrentNATSContext() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(homeDir, ".config", "nats", "context.txt"))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// readNATSContext reads a NATS CLI context JSON file and converts it to our Context format
func readNATSContext(contextDir, name string) (*Context, error) {
	data, err := os.ReadFile(filepath.Join(contextDir, name+".json"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read NATS context '%s'", name)
	}

	var natsCtx natsContext
	if err := json.Unmarshal(data, &natsCtx); err != nil {
		return nil, errors.Wrapf(err, "failed to parse NATS context '%s'", name)
	}

	creds, err := expandPath(natsCtx.Creds, contextDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to expand creds path")
	}

	return &Context{
		Name:   name,
		Server: natsCtx.URL,
		Token:  expandToken(natsCtx.Token),
		Creds:  creds,
		Bucket: DefaultBucket,
	}, nil
}

// listNATSContexts returns every readable NATS CLI context in contextDir
func listNATSContexts(contextDir string) ([]Context, error) {
	entries, err := os.ReadDir(contextDir)
	if err != nil {
		return nil, err
	}

	var contexts []Context
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		ctx, err := readNATSContext(contextDir, name)
		if err != nil {
			// Skip contexts that can't be read
			continue
		}
		contexts = append(contexts, *ctx)
	}

	return contexts, nil
}

// loadFromNATSContexts creates a config from NATS CLI contexts
func loadFromNATSContexts() (*Config, error) {
	contextDir, err := getNATSContextDir()
	if err != nil {
		return nil, err
	}

	contexts, err := listNATSContexts(contextDir)
	if err != nil || len(contexts) == 0 {
		return nil, errors.New("no NATS contexts found")
	}

	currentCtx, err := getCurrentNATSContext()
	if err != nil {
		currentCtx = contexts[0].Name
	}

	cfg := newConfig(contexts, currentCtx, SourceNATSContext, filepath.Join(contextDir, currentCtx+".json"))
	cfg.selectDefault()
	return cfg, nil
}

func newConfig(contexts []Context, defaultContext string, source ConfigSource, sourcePath string) *Config {
	return &Config{
		Contexts:         contexts,
		DefaultContext:   defaultContext,
		RefreshInterval:  DefaultRefreshInterval,
		PayloadSizeLimit: DefaultPayloadSizeLimit,
		Topics:           []string{DefaultTopic},
		source:           source,
		sourcePath:       sourcePath,
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return newConfig([]Context{
		{
			Name:   "local",
			Server: DefaultServer,
			Bucket: DefaultBucket,
		},
	}, "local", SourceDefault, "built-in default")
}

// DefaultPath returns ~/.config/kvui/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ".config", "kvui", "config.yaml"), nil
}

// Load loads configuration from file, NATS contexts, or creates default.
// Environment overrides are applied last.
func Load(configPath, serverURL string) (*Config, error) {
	cfg, err := load(configPath, serverURL)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

func load(configPath, serverURL string) (*Config, error) {
	// If server URL is provided via command line, use it
	if serverURL != "" {
		cfg := newConfig([]Context{
			{
				Name:   "cli",
				Server: serverURL,
				Bucket: DefaultBucket,
			},
		}, "cli", SourceCLI, serverURL)
		cfg.currentContext = &cfg.Contexts[0]
		return cfg, nil
	}

	if configPath == "" {
		var err error
		if configPath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Try to load from NATS CLI contexts as fallback
		if cfg, err := loadFromNATSContexts(); err == nil {
			return cfg, nil
		}

		cfg := DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, errors.Wrap(err, "failed to save default config")
		}
		cfg.selectDefault()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Keys missing from the file keep their defaults; 0 disables truncation
	cfg := &Config{PayloadSizeLimit: DefaultPayloadSizeLimit}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	cfg.source = SourceConfigFile
	cfg.sourcePath = configPath

	// Expand credential paths with env vars, tilde, and relative paths
	configDir := filepath.Dir(configPath)
	for i := range cfg.Contexts {
		expanded, err := expandPath(cfg.Contexts[i].Creds, configDir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to expand creds path for context '%s'", cfg.Contexts[i].Name)
		}
		cfg.Contexts[i].Creds = expanded
		cfg.Contexts[i].Token = expandToken(cfg.Contexts[i].Token)
	}

	cfg.selectDefault()
	return cfg, nil
}

func (c *Config) selectDefault() {
	for i := range c.Contexts {
		if c.Contexts[i].Name == c.DefaultContext {
			c.currentContext = &c.Contexts[i]
			return
		}
	}
	if len(c.Contexts) > 0 {
		c.currentContext = &c.Contexts[0]
	}
}

func (c *Config) applyEnv() error {
	if topics := os.Getenv(EnvTopics); topics != "" {
		c.Topics = splitList(topics)
	}
	if limit := os.Getenv(EnvPayloadSizeLimit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvPayloadSizeLimit)
		}
		c.PayloadSizeLimit = n
	}
	if bucket := os.Getenv(EnvBucket); bucket != "" {
		for i := range c.Contexts {
			c.Contexts[i].Bucket = bucket
		}
	}
	return nil
}

func (c *Config) fillDefaults() {
	if len(c.Topics) == 0 {
		c.Topics = []string{DefaultTopic}
	}
	for i := range c.Contexts {
		if c.Contexts[i].Bucket == "" {
			c.Contexts[i].Bucket = DefaultBucket
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Save saves the configuration to file
func (c *Config) Save(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// CurrentContext returns the current context
func (c *Config) CurrentContext() *Context {
	if c.currentContext != nil {
		return c.currentContext
	}
	return &Context{
		Name:   "default",
		Server: DefaultServer,
		Bucket: DefaultBucket,
	}
}

// CurrentContextName returns the current context name
func (c *Config) CurrentContextName() string {
	if c.currentContext != nil {
		return c.currentContext.Name
	}
	return "unknown"
}

// SetContext switches to a different context
func (c *Config) SetContext(name string) error {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			c.currentContext = &c.Contexts[i]
			c.DefaultContext = name
			return nil
		}
	}
	return errors.Errorf("context '%s' not found", name)
}

// GetRefreshInterval returns the refresh interval as duration
func (c *Config) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}

// GetConfigSource returns where the configuration was loaded from
func (c *Config) GetConfigSource() ConfigSource {
	return c.source
}

// GetConfigSourcePath returns the specific path or identifier for the config source
func (c *Config) GetConfigSourcePath() string {
	return c.sourcePath
}

// GetConfigSourceDescription returns a human-readable description of the config source
func (c *Config) GetConfigSourceDescription() string {
	switch c.source {
	case SourceCLI:
		return fmt.Sprintf("Command line: %s", c.sourcePath)
	case SourceConfigFile:
		return fmt.Sprintf("Config file: %s", c.sourcePath)
	case SourceNATSContext:
		contextName := strings.TrimSuffix(filepath.Base(c.sourcePath), ".json")
		return fmt.Sprintf("NATS context: %s", contextName)
	case SourceDefault:
		return "Built-in default (no config found)"
	default:
		return "Unknown source"
	}
}
