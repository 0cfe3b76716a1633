package configfx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the optional per-workspace configuration file.
	FileName = "stitcher.yaml"
	// MemoryDB selects the in-memory index instead of sqlite.
	MemoryDB = ":memory:"
)

// Config holds the application configuration
type Config struct {
	Root        string   `yaml:"-"`
	DBPath      string   `yaml:"db_path"`
	DBDriver    string   `yaml:"db_driver"`
	SourceRoots []string `yaml:"source_roots"`
	Workers     int      `yaml:"workers"`
}

// Params represents the parameters needed to create configuration
type Params struct {
	fx.In

	Root       string `name:"root"       optional:"true"`
	DBPath     string `name:"dbPath"     optional:"true"`
	ConfigPath string `name:"configPath" optional:"true"`
}

// NewConfig resolves configuration from the config file, .env and the
// environment. Explicit params win over all of them.
func NewConfig(params Params) (*Config, error) {
	root := params.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	config := &Config{Root: root}

	configPath := params.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(root, FileName)
	}
	if err := config.loadFile(configPath, params.ConfigPath != ""); err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the process
	_ = godotenv.Load(filepath.Join(root, ".env"))
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if params.DBPath != "" {
		config.DBPath = params.DBPath
	}
	config.setDefaults()
	return config, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STITCHER_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("STITCHER_DB_DRIVER"); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv("STITCHER_SOURCE_ROOTS"); v != "" {
		c.SourceRoots = strings.Split(v, ",")
	}
	if v := os.Getenv("STITCHER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STITCHER_WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.Root, ".stitcher", "index.db")
	} else if c.DBPath != MemoryDB && !filepath.IsAbs(c.DBPath) {
		c.DBPath = filepath.Join(c.Root, c.DBPath)
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	if len(c.SourceRoots) == 0 {
		c.SourceRoots = []string{"."}
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
