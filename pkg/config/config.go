package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for convguard
type Config struct {
	Language           string        `mapstructure:"language"`
	FailOn             string        `mapstructure:"fail_on"`
	ParseErrorSeverity string        `mapstructure:"parse_error_severity"`
	Concurrency        int           `mapstructure:"concurrency"`
	Exclude            []string      `mapstructure:"exclude"`
	NoIgnore           bool          `mapstructure:"no_ignore"`
	TaintParameters    bool          `mapstructure:"taint_parameters"`
	Tools              ToolsConfig   `mapstructure:"tools"`
	Sources            LanguageLists `mapstructure:"sources"`
	Sanitizers         LanguageLists `mapstructure:"sanitizers"`
}

// ToolsConfig enables the external Python linters and bounds their runtime
type ToolsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Bandit  bool          `mapstructure:"bandit"`
	Flake8  bool          `mapstructure:"flake8"`
	Pylint  bool          `mapstructure:"pylint"`
	Pyre    bool          `mapstructure:"pyre"`
}

// LanguageLists carries per-grammar pattern lists (extra sources, extra sanitizers)
type LanguageLists struct {
	JavaScript []string `mapstructure:"javascript"`
	PHP        []string `mapstructure:"php"`
}

// Error reports an invalid or unreadable configuration. It is always fatal.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var defaultConfig = Config{
	FailOn:             "high",
	ParseErrorSeverity: "low",
	Concurrency:        0,
	Exclude:            []string{},
	Tools: ToolsConfig{
		Timeout: 2 * time.Minute,
	},
	Sources:    LanguageLists{JavaScript: []string{}, PHP: []string{}},
	Sanitizers: LanguageLists{JavaScript: []string{}, PHP: []string{}},
}

// Default returns a copy of the built-in defaults.
func Default() Config {
	c := defaultConfig
	c.Exclude = []string{}
	return c
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"language":     "language",
	"fail-on":      "fail_on",
	"concurrency":  "concurrency",
	"exclude":      "exclude",
	"no-ignore":    "no_ignore",
	"tool-timeout": "tools.timeout",
	"use-bandit":   "tools.bandit",
	"use-flake8":   "tools.flake8",
	"use-pylint":   "tools.pylint",
	"use-pyre":     "tools.pyre",
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFile is an explicit file; when set the search paths are skipped.
	ConfigFile string
	// WorkDir is the project directory searched for .convguard.* and pyproject.toml. Defaults to ".".
	WorkDir string
	// Flags, when non-nil, override every other source for the flags the user changed.
	Flags *pflag.FlagSet
}

// Load resolves configuration with precedence flags > env > pyproject.toml > project file > user file > defaults.
func Load(opts LoadOptions) (*Config, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &Error{Source: opts.ConfigFile, Err: err}
		}
	} else {
		v.SetConfigName("convguard")
		v.SetConfigType("yaml")
		v.AddConfigPath(workDir)
		if configDir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(configDir)
		}
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &Error{Source: v.ConfigFileUsed(), Err: err}
			}
		}
		if err := mergeProjectConfig(v, workDir); err != nil {
			return nil, err
		}
	}

	if err := mergePyproject(v, workDir); err != nil {
		return nil, err
	}

	// Documents are schema-checked before env and flags are layered; those carry strings.
	if err := ValidateSettings(v.AllSettings()); err != nil {
		return nil, &Error{Source: sourceName(v), Err: err}
	}

	v.SetEnvPrefix("CONVGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, &Error{Source: "--" + name, Err: err}
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Source: sourceName(v), Err: fmt.Errorf("error unmarshaling config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Source: "settings", Err: err}
	}
	return &cfg, nil
}

var severityNames = []string{"critical", "high", "medium", "low", "info"}

// Validate checks enumerated values that env vars and flags can still set after schema validation.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Language) {
	case "", "javascript", "php", "python":
	default:
		return fmt.Errorf("unsupported language %q (want javascript, php or python)", c.Language)
	}
	if !oneOf(c.FailOn, severityNames) {
		return fmt.Errorf("invalid fail_on severity %q", c.FailOn)
	}
	if !oneOf(c.ParseErrorSeverity, severityNames) {
		return fmt.Errorf("invalid parse_error_severity %q", c.ParseErrorSeverity)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.Tools.Timeout < 0 {
		return fmt.Errorf("tools.timeout must not be negative")
	}
	return nil
}

func oneOf(s string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", defaultConfig.Language)
	v.SetDefault("fail_on", defaultConfig.FailOn)
	v.SetDefault("parse_error_severity", defaultConfig.ParseErrorSeverity)
	v.SetDefault("concurrency", defaultConfig.Concurrency)
	v.SetDefault("exclude", []string{})
	v.SetDefault("no_ignore", false)
	v.SetDefault("taint_parameters", false)
	v.SetDefault("tools.timeout", defaultConfig.Tools.Timeout.String())
	v.SetDefault("tools.bandit", false)
	v.SetDefault("tools.flake8", false)
	v.SetDefault("tools.pylint", false)
	v.SetDefault("tools.pyre", false)
	v.SetDefault("sources.javascript", []string{})
	v.SetDefault("sources.php", []string{})
	v.SetDefault("sanitizers.javascript", []string{})
	v.SetDefault("sanitizers.php", []string{})
}

// mergeProjectConfig layers the first project-level dotfile found in workDir.
func mergeProjectConfig(v *viper.Viper, workDir string) error {
	for _, name := range []string{".convguard.yaml", ".convguard.yml", ".convguard.json"} {
		p := filepath.Join(workDir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		pv := viper.New()
		pv.SetConfigFile(p)
		if err := pv.ReadInConfig(); err != nil {
			return &Error{Source: p, Err: err}
		}
		if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
			return &Error{Source: p, Err: err}
		}
		return nil
	}
	return nil
}

// mergePyproject layers the [tool.convguard] table of pyproject.toml when present.
func mergePyproject(v *viper.Viper, workDir string) error {
	p := filepath.Join(workDir, "pyproject.toml")
	data, err := os.ReadFile(filepath.Clean(p))
	if err != nil {
		return nil
	}
	section, err := PyprojectSection(data)
	if err != nil {
		return &Error{Source: p, Err: err}
	}
	if len(section) == 0 {
		return nil
	}
	if err := v.MergeConfigMap(section); err != nil {
		return &Error{Source: p, Err: err}
	}
	return nil
}

// PyprojectSection extracts the [tool.convguard] table from pyproject.toml content.
func PyprojectSection(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pyproject.toml: %w", err)
	}
	tool, ok := doc["tool"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	section, ok := tool["convguard"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	// TOML keys use dashes by convention; configuration keys use underscores.
	return normalizeKeys(section), nil
}

func normalizeKeys(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, val := range in {
		if nested, ok := val.(map[string]interface{}); ok {
			val = normalizeKeys(nested)
		}
		out[strings.ReplaceAll(k, "-", "_")] = val
	}
	return out
}

func sourceName(v *viper.Viper) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	return "settings"
}

// GetConvguardHome returns the convguard home directory
func GetConvguardHome() (string, error) {
	if home := os.Getenv("CONVGUARD_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".convguard"), nil
}

// GetConfigDir returns the user-level configuration directory
func GetConfigDir() (string, error) {
	home, err := GetConvguardHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config"), nil
}
