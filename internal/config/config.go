// Package config loads ssrshim settings from flags, SSRSHIM_* environment
// variables and an optional ssrshim.yaml in the project root, in that order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rafbgarcia/ssrshim/internal/bundler"
	"github.com/rafbgarcia/ssrshim/internal/conventions"
)

// Config is the complete ssrshim configuration.
type Config struct {
	Port         string   `mapstructure:"port"`
	Root         string   `mapstructure:"root"`
	Shell        string   `mapstructure:"shell"`
	MountID      string   `mapstructure:"mount_id"`
	Styled       bool     `mapstructure:"styled"`
	LogLevel     string   `mapstructure:"log_level"`
	Pages        []string `mapstructure:"pages"`
	StaticPrefix string   `mapstructure:"static_prefix"`

	Renderer RendererConfig `mapstructure:"renderer"`
	Bundle   BundleConfig   `mapstructure:"bundle"`
}

// RendererConfig configures the render sidecar.
type RendererConfig struct {
	Command []string `mapstructure:"command"`
	Bundle  string   `mapstructure:"bundle"`
}

// BundleConfig mirrors bundler.Config's project layout.
type BundleConfig struct {
	IndexHTML   string   `mapstructure:"index_html"`
	ClientEntry string   `mapstructure:"client_entry"`
	CSSEntry    string   `mapstructure:"css_entry"`
	ServerEntry string   `mapstructure:"server_entry"`
	OutputDir   string   `mapstructure:"output_dir"`
	AssetsDir   string   `mapstructure:"assets_dir"`
	ExtraFiles  []string `mapstructure:"extra_files"`
	External    []string `mapstructure:"external"`
	Sass        string   `mapstructure:"sass"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"port":      "port",
	"root":      "root",
	"shell":     "shell",
	"mount-id":  "mount_id",
	"styled":    "styled",
	"log-level": "log_level",
	"page":      "pages",
}

func setDefaults(v *viper.Viper) {
	b := bundler.DefaultConfig(".")
	v.SetDefault("port", "3000")
	v.SetDefault("root", ".")
	v.SetDefault("shell", "")
	v.SetDefault("mount_id", "app")
	v.SetDefault("styled", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("pages", []string{"index"})
	v.SetDefault("static_prefix", "/")
	v.SetDefault("renderer.command", []string{"node"})
	v.SetDefault("renderer.bundle", "")
	v.SetDefault("bundle.index_html", b.IndexHTML)
	v.SetDefault("bundle.client_entry", b.ClientEntry)
	v.SetDefault("bundle.css_entry", b.CSSEntry)
	v.SetDefault("bundle.server_entry", b.ServerEntry)
	v.SetDefault("bundle.output_dir", b.OutputDir)
	v.SetDefault("bundle.assets_dir", b.AssetsDir)
	v.SetDefault("bundle.extra_files", []string{})
	v.SetDefault("bundle.external", b.External)
	v.SetDefault("bundle.sass", b.SassBinary)
}

// Load builds the configuration. flags may be nil. configFile, when set,
// must exist; otherwise ssrshim.yaml is looked up in the project root and
// is optional.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SSRSHIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ssrshim")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("root"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks page names and required fields.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	if len(c.Renderer.Command) == 0 {
		return fmt.Errorf("config: renderer.command is required")
	}
	seen := map[string]string{}
	for _, p := range c.Pages {
		if err := conventions.ValidatePageName(p); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		pattern := conventions.PageToURLPattern(p)
		if other, ok := seen[pattern]; ok {
			return fmt.Errorf("config: pages %q and %q both map to %s", other, p, pattern)
		}
		seen[pattern] = p
	}
	return nil
}

// Bundler returns the build configuration for the project.
func (c *Config) Bundler(production bool) bundler.Config {
	return bundler.Config{
		Root:        c.Root,
		IndexHTML:   c.Bundle.IndexHTML,
		ClientEntry: c.Bundle.ClientEntry,
		CSSEntry:    c.Bundle.CSSEntry,
		ServerEntry: c.Bundle.ServerEntry,
		OutputDir:   c.Bundle.OutputDir,
		AssetsDir:   c.Bundle.AssetsDir,
		ExtraFiles:  c.Bundle.ExtraFiles,
		External:    c.Bundle.External,
		SassBinary:  c.Bundle.Sass,
		Production:  production,
	}
}

// ShellPath returns the shell file to serve, defaulting to the built one.
func (c *Config) ShellPath() string {
	if c.Shell != "" {
		return c.path(c.Shell)
	}
	return c.path(c.Bundler(true).ShellFile())
}

// ServerBundle returns the server bundle the sidecar loads.
func (c *Config) ServerBundle() string {
	if c.Renderer.Bundle != "" {
		return c.path(c.Renderer.Bundle)
	}
	return c.path(c.Bundler(true).ServerBundle())
}

// OutputDir returns the directory static client files are served from.
func (c *Config) OutputDir() string {
	return c.path(c.Bundle.OutputDir)
}

func (c *Config) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
