package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Store backends
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"

	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultStore       = StoreSQLite
	DefaultDatabase    = "inspection.db"
	DefaultOwner       = "local"
	DefaultMaxMachines = 200
	DefaultMaxFileSize = 100 << 20

	DefaultDirPerm = 0o750

	envPrefix = "INSPECTION"
)

// Config is the runtime configuration of the inspection service
type Config struct {
	Mode string
	Host string
	Port int

	// Storage
	Store string
	DSN   string

	// Templates is an optional template file replacing the built-in set
	Templates string

	// Report assets and output
	LogoPath      string
	WatermarkPath string
	PhotoDir      string
	OutputDir     string
	TempDir       string

	// Owner is the identity used by the MCP tools, which carry no
	// authenticated user
	Owner string

	Version     string
	ServerName  string
	LogLevel    string
	MaxMachines int
	MaxFileSize int64 // largest report Inspect reads
}

// DefaultConfig runs MCP over stdio with a sqlite database and a reports
// directory under the working directory
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		Mode:        ModeStdio,
		Host:        DefaultHost,
		Port:        DefaultPort,
		Store:       DefaultStore,
		DSN:         filepath.Join(wd, DefaultDatabase),
		OutputDir:   filepath.Join(wd, "reports"),
		Owner:       DefaultOwner,
		Version:     "1.0.0",
		ServerName:  "inspection-report",
		LogLevel:    DefaultLogLevel,
		MaxMachines: DefaultMaxMachines,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// ErrVersionRequested is returned by LoadFromFlags when the command line asks
// for the version instead of a run
var ErrVersionRequested = errors.New("version requested")

// LoadFromFlags reads the configuration from flags, INSPECTION_* environment
// variables and an optional --config file, in that order of precedence
func LoadFromFlags() (*Config, error) {
	for _, arg := range os.Args[1:] {
		if arg == "-v" || arg == "-version" || arg == "--version" {
			return nil, ErrVersionRequested
		}
	}

	cfg := DefaultConfig()
	v := viper.GetViper()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	flags := pflag.CommandLine
	flags.String("config", "", "Optional configuration file (yaml, json or toml)")
	for _, s := range settings {
		s.define(flags, cfg)
		_ = v.BindPFlag(s.key, flags.Lookup(s.key))
	}
	_ = v.BindPFlag("config", flags.Lookup("config"))
	flags.Usage = usage(flags)
	pflag.Parse()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", file, err)
		}
	}

	for _, s := range settings {
		s.load(v, cfg)
	}
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setting ties one key to its flag and its Config field. The environment
// variable is INSPECTION_<KEY>.
type setting struct {
	key    string
	define func(*pflag.FlagSet, *Config)
	load   func(*viper.Viper, *Config)
}

func stringSetting(key, usage string, field func(*Config) *string) setting {
	return setting{
		key:    key,
		define: func(fs *pflag.FlagSet, c *Config) { fs.String(key, *field(c), usage) },
		load:   func(v *viper.Viper, c *Config) { *field(c) = v.GetString(key) },
	}
}

var settings = []setting{
	stringSetting("mode", "stdio (MCP over standard I/O) or server (HTTP API)", func(c *Config) *string { return &c.Mode }),
	stringSetting("host", "HTTP listen address (server mode)", func(c *Config) *string { return &c.Host }),
	{
		key:    "port",
		define: func(fs *pflag.FlagSet, c *Config) { fs.Int("port", c.Port, "HTTP listen port (server mode)") },
		load:   func(v *viper.Viper, c *Config) { c.Port = v.GetInt("port") },
	},
	stringSetting("store", "Record store: memory, sqlite or mysql", func(c *Config) *string { return &c.Store }),
	stringSetting("dsn", "Database file (sqlite) or DSN (mysql)", func(c *Config) *string { return &c.DSN }),
	stringSetting("templates", "Template file replacing the built-in templates", func(c *Config) *string { return &c.Templates }),
	stringSetting("logo", "Header logo image (PNG or JPEG)", func(c *Config) *string { return &c.LogoPath }),
	stringSetting("watermark", "Watermark image (PNG or JPEG)", func(c *Config) *string { return &c.WatermarkPath }),
	stringSetting("photos", "Directory holding machine photos", func(c *Config) *string { return &c.PhotoDir }),
	stringSetting("output", "Directory receiving exported reports", func(c *Config) *string { return &c.OutputDir }),
	stringSetting("tempdir", "Directory for intermediate report files", func(c *Config) *string { return &c.TempDir }),
	stringSetting("owner", "Owner identity used by MCP tools", func(c *Config) *string { return &c.Owner }),
	stringSetting("loglevel", "debug, info, warn or error", func(c *Config) *string { return &c.LogLevel }),
	{
		key:    "maxmachines",
		define: func(fs *pflag.FlagSet, c *Config) { fs.Int("maxmachines", c.MaxMachines, "Machines allowed per project, 0 for no limit") },
		load:   func(v *viper.Viper, c *Config) { c.MaxMachines = v.GetInt("maxmachines") },
	},
	{
		key:    "maxfilesize",
		define: func(fs *pflag.FlagSet, c *Config) { fs.Int64("maxfilesize", c.MaxFileSize, "Largest report report_inspect will read, in bytes") },
		load:   func(v *viper.Viper, c *Config) { c.MaxFileSize = v.GetInt64("maxfilesize") },
	},
}

func usage(fs *pflag.FlagSet) func() {
	return func() {
		name := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, "%s records equipment inspections and renders them as PDF reports.\n\n", name)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [flags]\n\nFlags:\n", name)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEvery flag can also be set as %s_<FLAG>, e.g. %s_STORE=mysql.\n", envPrefix, envPrefix)
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # MCP over stdio, sqlite store\n", name)
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                # HTTP API\n", name)
		fmt.Fprintf(os.Stderr, "  %s --store=mysql --dsn='user:pw@tcp(db)/x'  # MySQL store\n", name)
	}
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Templates, &c.LogoPath, &c.WatermarkPath, &c.PhotoDir, &c.OutputDir, &c.TempDir} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate rejects unusable settings and creates the output and temp
// directories
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeStdio:
	case ModeServer:
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("port %d out of range 1-65535", c.Port)
		}
	default:
		return fmt.Errorf("unknown mode %q: want %s or %s", c.Mode, ModeStdio, ModeServer)
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite, StoreMySQL:
		if c.DSN == "" {
			return fmt.Errorf("store %s requires a dsn", c.Store)
		}
	default:
		return fmt.Errorf("invalid store: %s (must be one of: memory, sqlite, mysql)", c.Store)
	}

	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q: want one of %s", c.LogLevel, strings.Join(logLevels, ", "))
	}
	if strings.TrimSpace(c.Owner) == "" {
		return errors.New("owner cannot be empty")
	}
	if c.MaxMachines < 0 {
		return errors.New("maximum machines cannot be negative")
	}
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}
	for _, dir := range []string{c.OutputDir, c.TempDir} {
		if dir == "" {
			continue
		}
		if err := ensureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// ensureDir creates dir when it does not exist
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

// Address is the HTTP listen address
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) IsDebug() bool { return c.LogLevel == "debug" }

// Verbosity maps the log level to a klog verbosity
func (c *Config) Verbosity() int {
	switch c.LogLevel {
	case "debug":
		return 4
	case "info":
		return 1
	default:
		return 0
	}
}

// String omits the DSN, which may carry credentials
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Address: %s, Store: %s, OutputDir: %s, LogLevel: %s, MaxMachines: %d}",
		c.Mode, c.Address(), c.Store, c.OutputDir, c.LogLevel, c.MaxMachines)
}

func (c *Config) IsServerMode() bool { return c.Mode == ModeServer }

func (c *Config) IsStdioMode() bool { return c.Mode == ModeStdio }
