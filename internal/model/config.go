package model

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every path and knob the process needs. It is built once in
// cmd/nbrun and passed down explicitly; nothing reads ambient global state.
type Config struct {
	NotebookPath  string        `mapstructure:"nb_path" yaml:"nb_path"`
	LogPath       string        `mapstructure:"log_path" yaml:"log_path"`
	OutputPath    string        `mapstructure:"output_path" yaml:"output_path"`
	QueuePath     string        `mapstructure:"queue_path" yaml:"queue_path"`
	FindingsPath  string        `mapstructure:"findings_path" yaml:"findings_path"`
	ConfigPath    string        `mapstructure:"config_path" yaml:"config_path"`
	OutputDiv     string        `mapstructure:"output_div" yaml:"output_div"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
	Verbose       bool          `mapstructure:"verbose" yaml:"verbose"`

	Engine Command `mapstructure:"engine" yaml:"engine"`
	Render Command `mapstructure:"render" yaml:"render"`
}

// Command describes an external collaborator binary.
type Command struct {
	Path    string            `mapstructure:"path" yaml:"path"`
	Args    []string          `mapstructure:"args" yaml:"args,omitempty"`
	Env     map[string]string `mapstructure:"env" yaml:"env,omitempty"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// Environ renders the configured env map into KEY=value pairs. Values
// starting with $ are expanded from the parent environment.
func (c Command) Environ() []string {
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		if strings.HasPrefix(v, "$") {
			v = os.ExpandEnv(v)
		}
		env = append(env, strings.ToUpper(k)+"="+v)
	}
	return env
}

// SetDefaults primes viper with values that flags and config files only
// override. Path and interval defaults are carried by the CLI flags
// themselves; only the collaborator commands live here.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine.path", "papermill")
	v.SetDefault("engine.timeout", time.Hour)
	v.SetDefault("render.path", "jupyter-nbconvert")
	v.SetDefault("render.timeout", 5*time.Minute)
}

// LoadConfig unmarshals the merged viper state (defaults, config file,
// bound flags) into a Config.
func LoadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.CheckInterval <= 0 {
		return Config{}, fmt.Errorf("check_interval must be positive, got %s", cfg.CheckInterval)
	}
	if cfg.QueuePath == "" {
		return Config{}, fmt.Errorf("queue_path must not be empty")
	}
	return cfg, nil
}

// Folders returns every directory the process expects to exist. The config
// command creates them all.
func (c Config) Folders() []string {
	return []string{
		c.NotebookPath,
		c.LogPath,
		c.OutputPath,
		c.QueuePath,
		c.FindingsPath,
		c.ConfigPath,
	}
}
