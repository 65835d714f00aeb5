package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CALLDELTA_WORKERS or
// CALLDELTA_CALLGRAPH_TIMEOUT.
const EnvPrefix = "CALLDELTA"

type Config struct {
	Input         InputConfig      `mapstructure:"input"`
	Output        OutputConfig     `mapstructure:"output"`
	WorkDir       string           `mapstructure:"work_dir"`
	KeepExtracted bool             `mapstructure:"keep_extracted"`
	Language      string           `mapstructure:"language"`
	Workers       int              `mapstructure:"workers"`
	CallGraph     CallGraphConfig  `mapstructure:"callgraph"`
	Checkpoint    CheckpointConfig `mapstructure:"checkpoint"`
	Metrics       MetricsConfig    `mapstructure:"metrics"`
}

type InputConfig struct {
	Manifest   string `mapstructure:"manifest"`    // JSONL list of commits
	BeforeRoot string `mapstructure:"before_root"` // directory of <commit_before>.zip archives
	AfterRoot  string `mapstructure:"after_root"`  // directory of <commit_after>.zip archives
}

type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Append bool   `mapstructure:"append"`
}

type CallGraphConfig struct {
	Binary     string        `mapstructure:"binary"`
	Depth      int           `mapstructure:"depth"`
	IndentUnit int           `mapstructure:"indent_unit"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Scope      string        `mapstructure:"scope"` // "file" or "tree"
}

// CheckpointConfig enables resuming a batch. Empty Path disables it.
type CheckpointConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig names a Prometheus textfile written when a batch ends.
// Empty Path disables it.
type MetricsConfig struct {
	Path string `mapstructure:"path"`
}

func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Path: "calldelta_output.jsonl",
		},
		WorkDir:  filepath.Join(os.TempDir(), "calldelta"),
		Language: "c",
		Workers:  max(1, runtime.NumCPU()/2),
		CallGraph: CallGraphConfig{
			Binary:     "cflow",
			Depth:      2,
			IndentUnit: 2,
			Timeout:    10 * time.Second,
			Scope:      "file",
		},
	}
}

// LoadConfig reads path (YAML, JSON or TOML by extension) over the defaults.
// With an empty path it looks for calldelta.{yaml,json,toml} in the working
// directory and in .calldelta/, and a missing file is not an error.
// Environment variables override both; .env files are loaded first.
func LoadConfig(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("calldelta")
		v.AddConfigPath(".")
		v.AddConfigPath(".calldelta")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every leaf key so environment overrides reach
// fields the config file leaves out.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("input.manifest", cfg.Input.Manifest)
	v.SetDefault("input.before_root", cfg.Input.BeforeRoot)
	v.SetDefault("input.after_root", cfg.Input.AfterRoot)
	v.SetDefault("output.path", cfg.Output.Path)
	v.SetDefault("output.append", cfg.Output.Append)
	v.SetDefault("work_dir", cfg.WorkDir)
	v.SetDefault("keep_extracted", cfg.KeepExtracted)
	v.SetDefault("language", cfg.Language)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("callgraph.binary", cfg.CallGraph.Binary)
	v.SetDefault("callgraph.depth", cfg.CallGraph.Depth)
	v.SetDefault("callgraph.indent_unit", cfg.CallGraph.IndentUnit)
	v.SetDefault("callgraph.timeout", cfg.CallGraph.Timeout)
	v.SetDefault("callgraph.scope", cfg.CallGraph.Scope)
	v.SetDefault("checkpoint.path", cfg.Checkpoint.Path)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			// godotenv never overrides variables that are already set,
			// so the first file wins.
			_ = godotenv.Load(file)
		}
	}
}

// Validate checks the settings a batch run needs.
func (c *Config) Validate() error {
	var problems []string

	if c.Input.Manifest == "" {
		problems = append(problems, "input.manifest is required")
	}
	if c.Input.BeforeRoot == "" {
		problems = append(problems, "input.before_root is required")
	}
	if c.Input.AfterRoot == "" {
		problems = append(problems, "input.after_root is required")
	}
	if c.Output.Path == "" {
		problems = append(problems, "output.path is required")
	}
	if c.WorkDir == "" {
		problems = append(problems, "work_dir is required")
	}
	if c.Language == "" {
		problems = append(problems, "language is required")
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if c.CallGraph.Depth < 1 {
		problems = append(problems, "callgraph.depth must be at least 1")
	}
	if c.CallGraph.IndentUnit < 1 {
		problems = append(problems, "callgraph.indent_unit must be at least 1")
	}
	if c.CallGraph.Timeout <= 0 {
		problems = append(problems, "callgraph.timeout must be positive")
	}
	if s := strings.ToLower(c.CallGraph.Scope); s != "file" && s != "tree" {
		problems = append(problems, fmt.Sprintf("callgraph.scope must be file or tree, got %q", c.CallGraph.Scope))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
